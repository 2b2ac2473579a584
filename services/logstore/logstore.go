package logstore

import (
	"sort"
	"time"

	"github.com/beladevo/redirector/models/logentry"
	"github.com/beladevo/redirector/types"

	"gorm.io/gorm"
)

// streamBatchSize bounds the rows held in memory during StreamAll.
const streamBatchSize = 500

// topUserAgentLimit caps the user-agent leaderboard in Stats.
const topUserAgentLimit = 10

// Store is the repository over the logs table: durable append plus
// predicate-filtered reads. Both listeners get their own Store over the
// shared *gorm.DB.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Insert appends one entry. The caller decides whether a failure is fatal;
// the capture path swallows it, the dashboard path surfaces a 5xx.
func (s *Store) Insert(entry *logentry.LogEntry) error {
	return s.db.Create(entry).Error
}

// scope applies every filter predicate (AND across fields) to a fresh query.
func (s *Store) scope(f types.Filter) *gorm.DB {
	q := s.db.Model(&logentry.LogEntry{})

	if f.Campaign != "" {
		q = q.Where("campaign = ?", f.Campaign)
	}
	if f.StartTime != nil {
		q = q.Where("timestamp >= ?", *f.StartTime)
	}
	if f.EndTime != nil {
		q = q.Where("timestamp < ?", *f.EndTime)
	}
	if f.IPFilter != "" {
		like := "%" + f.IPFilter + "%"
		q = q.Where("ip LIKE ? OR x_forwarded_for LIKE ?", like, like)
	}
	if f.UAFilter != "" {
		q = q.Where("user_agent LIKE ?", "%"+f.UAFilter+"%")
	}
	if f.MethodFilter != "" {
		q = q.Where("UPPER(method) = UPPER(?)", f.MethodFilter)
	}
	if f.PathFilter != "" {
		q = q.Where("path LIKE ?", "%"+f.PathFilter+"%")
	}
	return q
}

// orderClause maps the filter's direction to the (timestamp, id) sort.
func orderClause(f types.Filter) string {
	if f.SortAsc {
		return "timestamp ASC, id ASC"
	}
	return "timestamp DESC, id DESC"
}

// Query returns one page ordered on (timestamp, id), newest-first unless the
// filter flips the direction, and the total count of the full matching set.
// The filter must be normalized.
func (s *Store) Query(f types.Filter) ([]logentry.LogEntry, int64, error) {
	var total int64
	if err := s.scope(f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []logentry.LogEntry
	err := s.scope(f).
		Order(orderClause(f)).
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// StreamAll walks the full matching set in Query order without materializing
// it, using keyset pagination on (timestamp, id). Each call opens its own
// cursor. Iteration stops at the first callback error.
func (s *Store) StreamAll(f types.Filter, fn func(entry *logentry.LogEntry) error) error {
	cursor := "timestamp < ? OR (timestamp = ? AND id < ?)"
	if f.SortAsc {
		cursor = "timestamp > ? OR (timestamp = ? AND id > ?)"
	}

	var lastTS time.Time
	var lastID uint
	started := false

	for {
		q := s.scope(f).Order(orderClause(f)).Limit(streamBatchSize)
		if started {
			q = q.Where(cursor, lastTS, lastTS, lastID)
		}

		var batch []logentry.LogEntry
		if err := q.Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for i := range batch {
			if err := fn(&batch[i]); err != nil {
				return err
			}
		}

		last := batch[len(batch)-1]
		lastTS, lastID, started = last.Timestamp, last.ID, true

		if len(batch) < streamBatchSize {
			return nil
		}
	}
}

// CampaignActivity aggregates one campaign's traffic for the card listing.
type CampaignActivity struct {
	RequestCount int64
	RecentCount  int64 // last 24 hours
	Latest       time.Time
	Methods      map[string]int64
}

// CampaignActivities computes per-campaign aggregates in a single streaming
// pass over the whole logs table, keyed by campaign label.
func (s *Store) CampaignActivities() (map[string]*CampaignActivity, error) {
	activities := make(map[string]*CampaignActivity)
	recentCutoff := time.Now().UTC().Add(-24 * time.Hour)

	err := s.StreamAll(types.Filter{}, func(entry *logentry.LogEntry) error {
		activity := activities[entry.Campaign]
		if activity == nil {
			activity = &CampaignActivity{Methods: make(map[string]int64)}
			activities[entry.Campaign] = activity
		}
		activity.RequestCount++
		activity.Methods[entry.Method]++
		if !entry.Timestamp.UTC().Before(recentCutoff) {
			activity.RecentCount++
		}
		if entry.Timestamp.After(activity.Latest) {
			activity.Latest = entry.Timestamp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// DistinctCampaigns lists the campaign labels observed in the logs.
func (s *Store) DistinctCampaigns() ([]string, error) {
	var names []string
	err := s.db.Model(&logentry.LogEntry{}).
		Distinct("campaign").
		Order("campaign").
		Pluck("campaign", &names).Error
	return names, err
}

// Stats recomputes the aggregate counts over the filtered set. The
// aggregation runs in one StreamAll pass so sqlite and postgres produce
// identical buckets.
func (s *Store) Stats(f types.Filter) (types.StatsResponse, error) {
	stats := types.StatsResponse{
		ByMethod:      make(map[string]int64),
		TopUserAgents: []types.UACount{},
		ByHour:        []types.HourCount{},
		Campaign:      f.Campaign,
	}

	uaCounts := make(map[string]int64)
	var uaOrder []string // first-seen order, the tie-breaker for top N
	hourCounts := make(map[string]int64)
	recentCutoff := time.Now().UTC().Add(-24 * time.Hour)

	err := s.StreamAll(f, func(entry *logentry.LogEntry) error {
		stats.Total++
		stats.ByMethod[entry.Method]++

		ua := entry.UserAgent
		if ua == "" {
			ua = "Unknown"
		}
		if _, seen := uaCounts[ua]; !seen {
			uaOrder = append(uaOrder, ua)
		}
		uaCounts[ua]++

		hourCounts[entry.Timestamp.UTC().Format("2006-01-02T15")]++

		if !entry.Timestamp.UTC().Before(recentCutoff) {
			stats.Recent++
		}
		return nil
	})
	if err != nil {
		return types.StatsResponse{}, err
	}

	// StreamAll yields newest-first, so uaOrder reflects the underlying
	// query order; a stable sort keeps that order among equal counts.
	top := make([]types.UACount, 0, len(uaOrder))
	for _, ua := range uaOrder {
		top = append(top, types.UACount{UserAgent: ua, Count: uaCounts[ua]})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > topUserAgentLimit {
		top = top[:topUserAgentLimit]
	}
	stats.TopUserAgents = top

	hours := make([]string, 0, len(hourCounts))
	for h := range hourCounts {
		hours = append(hours, h)
	}
	sort.Strings(hours)
	for _, h := range hours {
		stats.ByHour = append(stats.ByHour, types.HourCount{Hour: h, Count: hourCounts[h]})
	}

	return stats, nil
}
