package types

import (
	"github.com/beladevo/redirector/models/logentry"
)

// LogsResponse is the paginated /api/logs payload.
type LogsResponse struct {
	Logs       []logentry.View `json:"logs"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalCount int64           `json:"total_count"`
	TotalPages int64           `json:"total_pages"`
}

// UACount is one user-agent bucket, ordered most frequent first.
type UACount struct {
	UserAgent string `json:"user_agent"`
	Count     int64  `json:"count"`
}

// HourCount is one hourly bucket ("2006-01-02T15", UTC).
type HourCount struct {
	Hour  string `json:"hour"`
	Count int64  `json:"count"`
}

// StatsResponse is the /api/stats payload. Aggregates are recomputed from
// the filtered row set on every call.
type StatsResponse struct {
	Total         int64            `json:"total"`
	Recent        int64            `json:"recent"` // last 24 hours
	ByMethod      map[string]int64 `json:"by_method"`
	TopUserAgents []UACount        `json:"top_user_agents"`
	ByHour        []HourCount      `json:"by_hour"`
	Campaign      string           `json:"campaign,omitempty"`
}

// MethodCount is one HTTP method bucket of a campaign card.
type MethodCount struct {
	Method string `json:"method"`
	Count  int64  `json:"count"`
}

// CampaignCreateRequest is the POST /api/campaigns body.
type CampaignCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CampaignView is one entry of the GET /api/campaigns listing. Labels that
// were only observed in logs, never registered, carry a zero ID.
type CampaignView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	Registered  bool   `json:"registered"`
}

// CampaignCard is one entry of the GET /api/campaign-cards listing: the
// campaign plus its traffic aggregates.
type CampaignCard struct {
	CampaignView
	RequestCount  int64         `json:"request_count"`
	RecentCount   int64         `json:"recent_count"` // last 24 hours
	LatestRequest string        `json:"latest_request,omitempty"`
	TopMethods    []MethodCount `json:"top_methods"`
}

// CampaignCardsResponse is the paginated /api/campaign-cards payload.
type CampaignCardsResponse struct {
	CampaignCards []CampaignCard `json:"campaign_cards"`
	Page          int            `json:"page"`
	PerPage       int            `json:"per_page"`
	TotalCount    int64          `json:"total_count"`
	TotalPages    int64          `json:"total_pages"`
}
