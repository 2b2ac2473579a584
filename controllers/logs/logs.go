package logs

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/beladevo/redirector/config"
	"github.com/beladevo/redirector/logger"
	"github.com/beladevo/redirector/models/logentry"
	"github.com/beladevo/redirector/services/logstore"
	"github.com/beladevo/redirector/types"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
	"github.com/valyala/fasthttp"
)

// LogsController serves the dashboard log listing, exports and stats.
type LogsController struct {
	Store  *logstore.Store
	Config *config.Config
}

// NewLogsController creates a new logs controller
func NewLogsController(store *logstore.Store, cfg *config.Config) *LogsController {
	return &LogsController{
		Store:  store,
		Config: cfg,
	}
}

// Index handles GET /api/logs: filtered, paginated listing.
func (lc *LogsController) Index(c *fiber.Ctx) error {
	filter, err := lc.parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: err.Error()})
	}

	rows, total, err := lc.Store.Query(filter)
	if err != nil {
		logger.Error("Failed to query logs", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Database error"})
	}

	views := make([]logentry.View, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].ToView())
	}

	perPage := int64(filter.PerPage)
	return c.JSON(types.LogsResponse{
		Logs:       views,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalCount: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// ExportCSV handles GET /api/logs/export.csv. Rows are streamed straight to
// the response writer, so memory stays bounded regardless of result size.
func (lc *LogsController) ExportCSV(c *fiber.Ctx) error {
	filter, err := lc.parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: err.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s", exportFilename(filter.Campaign, "csv")))

	store := lc.Store
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		csvWriter := csv.NewWriter(w)
		if err := csvWriter.Write(logentry.CSVHeader()); err != nil {
			logger.Error("CSV export aborted", err)
			return
		}

		err := store.StreamAll(filter, func(entry *logentry.LogEntry) error {
			return csvWriter.Write(entry.CSVRecord())
		})
		if err != nil {
			// Headers are already on the wire; all we can do is stop.
			logger.Error("CSV export aborted", err)
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			logger.Error("CSV export aborted", err)
		}
	}))
	return nil
}

// ExportJSONL handles GET /api/logs/export.jsonl: one JSON object per line,
// no enclosing array, so a truncated export is still a valid JSONL prefix.
func (lc *LogsController) ExportJSONL(c *fiber.Ctx) error {
	filter, err := lc.parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: err.Error()})
	}

	c.Set(fiber.HeaderContentType, "application/jsonl; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s", exportFilename(filter.Campaign, "jsonl")))

	store := lc.Store
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		err := store.StreamAll(filter, func(entry *logentry.LogEntry) error {
			line, err := json.Marshal(entry.ToView())
			if err != nil {
				return err
			}
			if _, err := w.Write(line); err != nil {
				return err
			}
			return w.WriteByte('\n')
		})
		if err != nil {
			logger.Error("JSONL export aborted", err)
		}
	}))
	return nil
}

// Stats handles GET /api/stats.
func (lc *LogsController) Stats(c *fiber.Ctx) error {
	filter, err := lc.parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: err.Error()})
	}

	stats, err := lc.Store.Stats(filter)
	if err != nil {
		logger.Error("Failed to compute stats", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Database error"})
	}
	return c.JSON(stats)
}

// parseFilter validates and normalizes the shared query parameters. Bad time
// formats and inverted ranges are rejected before the store is touched;
// out-of-range pagination is clamped instead.
func (lc *LogsController) parseFilter(c *fiber.Ctx) (types.Filter, error) {
	filter := types.Filter{
		Campaign:     c.Query("campaign"),
		IPFilter:     c.Query("ip_filter"),
		UAFilter:     c.Query("ua_filter"),
		MethodFilter: c.Query("method_filter"),
		PathFilter:   c.Query("path_filter"),
		SortAsc:      !c.QueryBool("sort_desc", true),
		Page:         c.QueryInt("page", 1),
		PerPage:      c.QueryInt("per_page", lc.Config.DefaultPerPage),
	}

	if raw := c.Query("start_time"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return types.Filter{}, fmt.Errorf("invalid start_time format: %q", raw)
		}
		filter.StartTime = &t
	}
	if raw := c.Query("end_time"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return types.Filter{}, fmt.Errorf("invalid end_time format: %q", raw)
		}
		filter.EndTime = &t
	}
	if filter.StartTime != nil && filter.EndTime != nil && filter.EndTime.Before(*filter.StartTime) {
		return types.Filter{}, fmt.Errorf("end_time must not be before start_time")
	}

	filter.Normalize(lc.Config.DefaultPerPage, lc.Config.MaxPerPage)
	return filter, nil
}

// parseTime accepts RFC 3339 plus the looser date/datetime spellings the
// dashboard pickers emit.
func parseTime(raw string) (time.Time, error) {
	t, err := now.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func exportFilename(campaign, ext string) string {
	if campaign == "" {
		campaign = "all"
	}
	return fmt.Sprintf("redirector_logs_%s_%s.%s",
		campaign, time.Now().Format("20060102_150405"), ext)
}
