package campaign

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/beladevo/redirector/logger"
	campaignModel "github.com/beladevo/redirector/models/campaign"
	"github.com/beladevo/redirector/services/logstore"
	"github.com/beladevo/redirector/types"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Card listing pagination bounds.
const (
	defaultCardsPerPage = 20
	maxCardsPerPage     = 100
)

// topMethodLimit caps the per-card method breakdown.
const topMethodLimit = 3

// CampaignController manages registered campaign labels.
type CampaignController struct {
	DB       *gorm.DB
	LogStore *logstore.Store
}

// NewCampaignController creates a new campaign controller
func NewCampaignController(db *gorm.DB, store *logstore.Store) *CampaignController {
	return &CampaignController{
		DB:       db,
		LogStore: store,
	}
}

// campaignViews builds the union of registered campaigns (newest first) and
// the distinct labels observed in the logs.
func (cc *CampaignController) campaignViews() ([]types.CampaignView, error) {
	var registered []campaignModel.Campaign
	if err := cc.DB.Order("created_at DESC").Find(&registered).Error; err != nil {
		return nil, err
	}

	observed, err := cc.LogStore.DistinctCampaigns()
	if err != nil {
		return nil, err
	}

	views := make([]types.CampaignView, 0, len(registered)+len(observed))
	seen := make(map[string]bool, len(registered))
	for _, reg := range registered {
		seen[reg.Name] = true
		views = append(views, types.CampaignView{
			ID:          reg.ID,
			Name:        reg.Name,
			Description: reg.Description,
			IsActive:    reg.IsActive,
			CreatedAt:   reg.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:   reg.UpdatedAt.UTC().Format(time.RFC3339),
			Registered:  true,
		})
	}
	for _, name := range observed {
		if name == "" || seen[name] {
			continue
		}
		views = append(views, types.CampaignView{
			Name:     name,
			IsActive: true,
		})
	}
	return views, nil
}

// Index handles GET /api/campaigns: the union of registered campaigns and
// the distinct labels observed in the logs.
func (cc *CampaignController) Index(c *fiber.Ctx) error {
	views, err := cc.campaignViews()
	if err != nil {
		logger.Error("Failed to list campaigns", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Database error"})
	}
	return c.JSON(views)
}

// Cards handles GET /api/campaign-cards: the campaign listing enriched with
// per-campaign traffic aggregates, paginated.
func (cc *CampaignController) Cards(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultCardsPerPage)
	if perPage < 1 {
		perPage = defaultCardsPerPage
	}
	if perPage > maxCardsPerPage {
		perPage = maxCardsPerPage
	}

	views, err := cc.campaignViews()
	if err != nil {
		logger.Error("Failed to list campaigns", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Database error"})
	}

	activities, err := cc.LogStore.CampaignActivities()
	if err != nil {
		logger.Error("Failed to aggregate campaign activity", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Database error"})
	}

	total := int64(len(views))
	perPage64 := int64(perPage)
	start := (page - 1) * perPage
	if start > len(views) {
		start = len(views)
	}
	end := start + perPage
	if end > len(views) {
		end = len(views)
	}

	cards := make([]types.CampaignCard, 0, end-start)
	for _, view := range views[start:end] {
		card := types.CampaignCard{
			CampaignView: view,
			TopMethods:   []types.MethodCount{},
		}
		if activity := activities[view.Name]; activity != nil {
			card.RequestCount = activity.RequestCount
			card.RecentCount = activity.RecentCount
			card.LatestRequest = activity.Latest.UTC().Format(time.RFC3339)
			card.TopMethods = topMethods(activity.Methods)
		}
		cards = append(cards, card)
	}

	return c.JSON(types.CampaignCardsResponse{
		CampaignCards: cards,
		Page:          page,
		PerPage:       perPage,
		TotalCount:    total,
		TotalPages:    (total + perPage64 - 1) / perPage64,
	})
}

// topMethods ranks a method histogram most frequent first, names breaking
// ties, capped at topMethodLimit.
func topMethods(methods map[string]int64) []types.MethodCount {
	ranked := make([]types.MethodCount, 0, len(methods))
	for method, count := range methods {
		ranked = append(ranked, types.MethodCount{Method: method, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Method < ranked[j].Method
	})
	if len(ranked) > topMethodLimit {
		ranked = ranked[:topMethodLimit]
	}
	return ranked
}

// Store handles POST /api/campaigns: register a label with an optional
// description. Registration is discoverability metadata only.
func (cc *CampaignController) Store(c *fiber.Ctx) error {
	var req types.CampaignCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Invalid request body"})
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Campaign name is required"})
	}

	var existing campaignModel.Campaign
	err := cc.DB.Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Campaign already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Database error while checking existing campaign", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Database error"})
	}

	record := campaignModel.Campaign{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := cc.DB.Create(&record).Error; err != nil {
		logger.Error("Failed to create campaign", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Database error"})
	}

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Campaign registered",
		Data:    record,
	})
}
