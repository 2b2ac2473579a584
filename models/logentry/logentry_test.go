package logentry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlattenHeaders(t *testing.T) {
	assert.Equal(t, "", FlattenHeaders(nil))
	assert.Equal(t, "Accept:*/*;Host:example.com",
		FlattenHeaders(map[string]string{"Host": "example.com", "Accept": "*/*"}))
}

func TestCSVRecordColumnOrder(t *testing.T) {
	ts := time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC)
	entry := LogEntry{
		ID:        7,
		Timestamp: ts,
		IP:        "192.0.2.1",
		UserAgent: "curl/8.0",
		Method:    "GET",
		URL:       "/lure?id=1",
		Campaign:  "lab-a",
		Headers:   `{"Host":"example.com"}`,
	}

	assert.Equal(t,
		[]string{"id", "timestamp", "ip", "user_agent", "method", "url", "campaign", "headers"},
		CSVHeader())
	assert.Equal(t,
		[]string{"7", "2026-08-24T12:30:00Z", "192.0.2.1", "curl/8.0", "GET", "/lure?id=1", "lab-a", "Host:example.com"},
		entry.CSVRecord())
}

func TestToView(t *testing.T) {
	entry := LogEntry{
		ID:          3,
		Timestamp:   time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		Headers:     `{"Accept":"*/*"}`,
		BodyContent: "aGVsbG8=",
		Campaign:    "lab-a",
	}

	view := entry.ToView()
	assert.Equal(t, uint(3), view.ID)
	assert.Equal(t, map[string]string{"Accept": "*/*"}, view.Headers)
	assert.True(t, view.HasBody)

	// Corrupt headers degrade to an empty map, not an error.
	entry.Headers = "{not json"
	assert.Empty(t, entry.HeaderMap())
}
