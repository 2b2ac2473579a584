package capture

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/beladevo/redirector/config"
	"github.com/beladevo/redirector/logger"
	"github.com/beladevo/redirector/models/logentry"
	"github.com/beladevo/redirector/services/logstore"
	"github.com/beladevo/redirector/utils"

	"github.com/gofiber/fiber/v2"
)

// CaptureController logs every request hitting the redirect listener and
// answers with the configured redirect.
type CaptureController struct {
	Store  *logstore.Store
	Config *config.Config
}

// NewCaptureController creates a new capture controller
func NewCaptureController(store *logstore.Store, cfg *config.Config) *CaptureController {
	return &CaptureController{
		Store:  store,
		Config: cfg,
	}
}

// HandleAll captures the request and redirects. The insert is best-effort:
// a storage failure is logged and the client still gets its redirect.
func (cc *CaptureController) HandleAll(c *fiber.Ctx) error {
	start := time.Now()

	entry := cc.buildEntry(c)
	entry.ResponseTimeMs = time.Since(start).Milliseconds()

	if err := cc.Store.Insert(entry); err != nil {
		logger.Error("Failed to store captured request", err)
	}

	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")
	return c.Redirect(cc.Config.RedirectURL, cc.Config.RedirectStatus)
}

// Health reports liveness of the redirect listener.
func (cc *CaptureController) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  "redirect",
		"campaign": cc.Config.Campaign,
	})
}

func (cc *CaptureController) buildEntry(c *fiber.Ctx) *logentry.LogEntry {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		// string() tolerates invalid encodings; json marshalling later
		// replaces any invalid bytes instead of failing.
		headers[string(key)] = string(value)
	})
	headers = utils.RedactHeaders(headers, cc.Config.RedactHeaders)

	headersJSON, err := json.Marshal(headers)
	if err != nil {
		headersJSON = []byte("{}")
	}

	entry := &logentry.LogEntry{
		Timestamp:      time.Now().UTC(),
		IP:             utils.ClientIP(c, cc.Config.TrustProxyHeader),
		XForwardedFor:  c.Get(fiber.HeaderXForwardedFor),
		UserAgent:      c.Get(fiber.HeaderUserAgent),
		Method:         c.Method(),
		URL:            c.OriginalURL(),
		Path:           c.Path(),
		Query:          string(c.Request().URI().QueryString()),
		Headers:        string(headersJSON),
		Referer:        c.Get(fiber.HeaderReferer),
		AcceptLanguage: c.Get(fiber.HeaderAcceptLanguage),
		Campaign:       cc.Config.Campaign,
	}
	if entry.Campaign == "" {
		entry.Campaign = config.GenerateCampaignName()
	}

	// Oversize bodies are skipped, never an error for the client.
	if cc.Config.StoreBody {
		body := c.Body()
		if len(body) > 0 && len(body) <= cc.Config.MaxBodySize {
			digest := sha256.Sum256(body)
			entry.BodyDigest = hex.EncodeToString(digest[:])
			entry.BodyContent = base64.StdEncoding.EncodeToString(body)
		}
	}

	return entry
}
