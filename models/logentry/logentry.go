package logentry

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LogEntry represents one captured request. Rows are appended by the capture
// middleware and never updated.
type LogEntry struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp      time.Time `gorm:"not null;index" json:"timestamp"`
	IP             string    `gorm:"type:varchar(64);index" json:"ip"`
	XForwardedFor  string    `gorm:"type:varchar(255)" json:"x_forwarded_for"`
	UserAgent      string    `gorm:"type:text" json:"user_agent"`
	Method         string    `gorm:"type:varchar(10);index" json:"method"`
	URL            string    `gorm:"type:text;not null" json:"url"`
	Path           string    `gorm:"type:varchar(2048);index" json:"path"`
	Query          string    `gorm:"type:text" json:"query"`
	Headers        string    `gorm:"type:text" json:"-"` // JSON string, redacted before insert
	BodyDigest     string    `gorm:"type:varchar(64)" json:"body_digest"`
	BodyContent    string    `gorm:"type:text" json:"-"` // base64, only when body capture is enabled
	Referer        string    `gorm:"type:text" json:"referer"`
	AcceptLanguage string    `gorm:"type:varchar(255)" json:"accept_language"`
	Campaign       string    `gorm:"type:varchar(255);not null;index" json:"campaign"`
	ResponseTimeMs int64     `json:"response_time_ms"`
}

func (LogEntry) TableName() string {
	return "logs"
}

// View is the API projection of a LogEntry: headers as a nested object, body
// reduced to a presence flag. Used by the logs listing and the JSONL export.
type View struct {
	ID             uint              `json:"id"`
	Timestamp      string            `json:"timestamp"`
	IP             string            `json:"ip"`
	XForwardedFor  string            `json:"x_forwarded_for"`
	UserAgent      string            `json:"user_agent"`
	Method         string            `json:"method"`
	URL            string            `json:"url"`
	Path           string            `json:"path"`
	Query          string            `json:"query"`
	Headers        map[string]string `json:"headers"`
	BodyDigest     string            `json:"body_digest,omitempty"`
	Referer        string            `json:"referer"`
	AcceptLanguage string            `json:"accept_language"`
	Campaign       string            `json:"campaign"`
	ResponseTimeMs int64             `json:"response_time_ms"`
	HasBody        bool              `json:"has_body"`
}

// HeaderMap decodes the stored headers JSON. A corrupt value yields an empty
// map rather than an error.
func (e *LogEntry) HeaderMap() map[string]string {
	headers := make(map[string]string)
	if e.Headers != "" {
		_ = json.Unmarshal([]byte(e.Headers), &headers)
	}
	return headers
}

// ToView converts the row to its API projection.
func (e *LogEntry) ToView() View {
	return View{
		ID:             e.ID,
		Timestamp:      e.Timestamp.UTC().Format(time.RFC3339Nano),
		IP:             e.IP,
		XForwardedFor:  e.XForwardedFor,
		UserAgent:      e.UserAgent,
		Method:         e.Method,
		URL:            e.URL,
		Path:           e.Path,
		Query:          e.Query,
		Headers:        e.HeaderMap(),
		BodyDigest:     e.BodyDigest,
		Referer:        e.Referer,
		AcceptLanguage: e.AcceptLanguage,
		Campaign:       e.Campaign,
		ResponseTimeMs: e.ResponseTimeMs,
		HasBody:        e.BodyContent != "",
	}
}

// CSVHeader is the fixed column order of the CSV export.
func CSVHeader() []string {
	return []string{"id", "timestamp", "ip", "user_agent", "method", "url", "campaign", "headers"}
}

// CSVRecord renders the row in CSVHeader order. The headers map is flattened
// to a single semicolon-separated field.
func (e *LogEntry) CSVRecord() []string {
	return []string{
		strconv.FormatUint(uint64(e.ID), 10),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.IP,
		e.UserAgent,
		e.Method,
		e.URL,
		e.Campaign,
		FlattenHeaders(e.HeaderMap()),
	}
}

// FlattenHeaders renders a header map as "key:value;key:value" with keys
// sorted for a stable output.
func FlattenHeaders(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+":"+headers[k])
	}
	return strings.Join(pairs, ";")
}
