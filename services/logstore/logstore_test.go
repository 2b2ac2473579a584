package logstore

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/beladevo/redirector/models/campaign"
	"github.com/beladevo/redirector/models/logentry"
	"github.com/beladevo/redirector/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&logentry.LogEntry{}, &campaign.Campaign{}))
	return New(db)
}

var baseTime = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func seedEntry(t *testing.T, s *Store, offset time.Duration, mutate func(*logentry.LogEntry)) *logentry.LogEntry {
	t.Helper()
	entry := &logentry.LogEntry{
		Timestamp: baseTime.Add(offset),
		IP:        "192.0.2.10",
		UserAgent: "curl/8.0",
		Method:    "GET",
		URL:       "/lure",
		Path:      "/lure",
		Headers:   `{"Host":"example.com"}`,
		Campaign:  "lab-a",
	}
	if mutate != nil {
		mutate(entry)
	}
	require.NoError(t, s.Insert(entry))
	return entry
}

func normalized(f types.Filter) types.Filter {
	f.Normalize(50, 200)
	return f
}

func TestInsertAndQueryRoundtrip(t *testing.T) {
	s := newTestStore(t)
	inserted := seedEntry(t, s, 0, func(e *logentry.LogEntry) {
		e.XForwardedFor = "203.0.113.9"
		e.Query = "id=1"
		e.URL = "/lure?id=1"
		e.Referer = "https://mail.example.com"
		e.AcceptLanguage = "en-US"
		e.ResponseTimeMs = 3
	})
	assert.NotZero(t, inserted.ID)

	rows, total, err := s.Query(normalized(types.Filter{Campaign: "lab-a"}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)

	got := rows[0]
	assert.Equal(t, inserted.ID, got.ID)
	assert.Equal(t, "192.0.2.10", got.IP)
	assert.Equal(t, "203.0.113.9", got.XForwardedFor)
	assert.Equal(t, "curl/8.0", got.UserAgent)
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "/lure?id=1", got.URL)
	assert.Equal(t, "lab-a", got.Campaign)
	assert.Equal(t, int64(3), got.ResponseTimeMs)
	assert.True(t, got.Timestamp.UTC().Equal(inserted.Timestamp))
}

func TestQueryPaginationPartitionsResultSet(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 25; i++ {
		seedEntry(t, s, time.Duration(i)*time.Second, nil)
	}

	seen := make(map[uint]bool)
	var previousLastID uint
	for page := 1; page <= 3; page++ {
		rows, total, err := s.Query(normalized(types.Filter{Page: page, PerPage: 10}))
		require.NoError(t, err)
		assert.Equal(t, int64(25), total)

		wantLen := 10
		if page == 3 {
			wantLen = 5
		}
		require.Len(t, rows, wantLen)

		for i := range rows {
			assert.False(t, seen[rows[i].ID], "row %d repeated across pages", rows[i].ID)
			seen[rows[i].ID] = true
			if i > 0 {
				assert.True(t, !rows[i].Timestamp.After(rows[i-1].Timestamp),
					"pages must be sorted newest-first")
			}
		}
		if page > 1 {
			assert.Less(t, rows[0].ID, previousLastID)
		}
		previousLastID = rows[len(rows)-1].ID
	}
	assert.Len(t, seen, 25, "pages must cover every row exactly once")
}

func TestQueryFiltersCombineWithAND(t *testing.T) {
	s := newTestStore(t)
	seedEntry(t, s, 0, nil)
	seedEntry(t, s, time.Second, func(e *logentry.LogEntry) { e.Method = "POST" })
	seedEntry(t, s, 2*time.Second, func(e *logentry.LogEntry) {
		e.Method = "POST"
		e.IP = "198.51.100.4"
	})

	rows, total, err := s.Query(normalized(types.Filter{
		MethodFilter: "post",
		IPFilter:     "192.0.2",
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "POST", rows[0].Method)
	assert.Equal(t, "192.0.2.10", rows[0].IP)
}

func TestQueryIPFilterMatchesForwardedFor(t *testing.T) {
	s := newTestStore(t)
	seedEntry(t, s, 0, func(e *logentry.LogEntry) {
		e.IP = "10.0.0.1"
		e.XForwardedFor = "203.0.113.50"
	})

	_, total, err := s.Query(normalized(types.Filter{IPFilter: "203.0.113"}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestQueryTimeRangeHalfOpen(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 4; i++ {
		seedEntry(t, s, time.Duration(i)*time.Minute, nil)
	}

	start := baseTime.Add(time.Minute)    // inclusive
	end := baseTime.Add(3 * time.Minute)  // exclusive
	rows, total, err := s.Query(normalized(types.Filter{StartTime: &start, EndTime: &end}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for i := range rows {
		ts := rows[i].Timestamp.UTC()
		assert.False(t, ts.Before(start))
		assert.True(t, ts.Before(end))
	}
}

func TestQueryAscendingOrder(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		seedEntry(t, s, time.Duration(i)*time.Second, nil)
	}

	rows, total, err := s.Query(normalized(types.Filter{SortAsc: true}))
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, rows, 5)
	for i := 1; i < len(rows); i++ {
		assert.True(t, !rows[i].Timestamp.Before(rows[i-1].Timestamp),
			"ascending query must be sorted oldest-first")
		assert.Greater(t, rows[i].ID, rows[i-1].ID)
	}
}

func TestStreamAllAscendingMatchesQuery(t *testing.T) {
	s := newTestStore(t)
	const rows = streamBatchSize + 10
	for i := 0; i < rows; i++ {
		seedEntry(t, s, time.Duration(i/4)*time.Second, nil)
	}

	full, _, err := s.Query(normalized(types.Filter{SortAsc: true, PerPage: rows}))
	require.NoError(t, err)

	var streamed []uint
	require.NoError(t, s.StreamAll(types.Filter{SortAsc: true}, func(entry *logentry.LogEntry) error {
		streamed = append(streamed, entry.ID)
		return nil
	}))

	require.Len(t, streamed, rows)
	for i := range full {
		assert.Equal(t, full[i].ID, streamed[i], "ascending stream diverged at index %d", i)
	}
}

func TestQueryIdempotentReads(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 7; i++ {
		seedEntry(t, s, time.Duration(i)*time.Second, nil)
	}

	filter := normalized(types.Filter{Campaign: "lab-a", PerPage: 5})
	first, firstTotal, err := s.Query(filter)
	require.NoError(t, err)
	second, secondTotal, err := s.Query(filter)
	require.NoError(t, err)

	assert.Equal(t, firstTotal, secondTotal)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestStreamAllMatchesQueryOrder(t *testing.T) {
	s := newTestStore(t)
	// More rows than one stream batch, with timestamp ties to exercise the
	// keyset cursor's id tie-break.
	const rows = streamBatchSize + 20
	for i := 0; i < rows; i++ {
		seedEntry(t, s, time.Duration(i/4)*time.Second, nil)
	}

	full, total, err := s.Query(normalized(types.Filter{PerPage: rows}))
	require.NoError(t, err)
	require.Equal(t, int64(rows), total)

	var streamed []uint
	require.NoError(t, s.StreamAll(types.Filter{}, func(entry *logentry.LogEntry) error {
		streamed = append(streamed, entry.ID)
		return nil
	}))

	require.Len(t, streamed, rows)
	for i := range full {
		assert.Equal(t, full[i].ID, streamed[i], "stream order diverged at index %d", i)
	}
}

func TestStreamAllStopsOnCallbackError(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		seedEntry(t, s, time.Duration(i)*time.Second, nil)
	}

	calls := 0
	err := s.StreamAll(types.Filter{}, func(entry *logentry.LogEntry) error {
		calls++
		if calls == 2 {
			return fmt.Errorf("stop")
		}
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDistinctCampaigns(t *testing.T) {
	s := newTestStore(t)
	seedEntry(t, s, 0, nil)
	seedEntry(t, s, time.Second, nil)
	seedEntry(t, s, 2*time.Second, func(e *logentry.LogEntry) { e.Campaign = "lab-b" })

	names, err := s.DistinctCampaigns()
	require.NoError(t, err)
	assert.Equal(t, []string{"lab-a", "lab-b"}, names)
}

func TestCampaignActivities(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		seedEntry(t, s, 0, func(e *logentry.LogEntry) {
			e.Timestamp = now.Add(time.Duration(-i) * time.Minute)
		})
	}
	seedEntry(t, s, 0, func(e *logentry.LogEntry) {
		e.Timestamp = now.Add(-time.Hour)
		e.Method = "POST"
	})
	seedEntry(t, s, 0, func(e *logentry.LogEntry) {
		e.Timestamp = now.Add(-48 * time.Hour)
		e.Campaign = "lab-b"
	})

	activities, err := s.CampaignActivities()
	require.NoError(t, err)
	require.Len(t, activities, 2)

	a := activities["lab-a"]
	require.NotNil(t, a)
	assert.Equal(t, int64(4), a.RequestCount)
	assert.Equal(t, int64(4), a.RecentCount)
	assert.Equal(t, int64(3), a.Methods["GET"])
	assert.Equal(t, int64(1), a.Methods["POST"])
	assert.True(t, a.Latest.UTC().Equal(now))

	b := activities["lab-b"]
	require.NotNil(t, b)
	assert.Equal(t, int64(1), b.RequestCount)
	assert.Equal(t, int64(0), b.RecentCount, "entries older than 24h are not recent")
}

func TestCampaignActivitiesEmptyStore(t *testing.T) {
	s := newTestStore(t)

	activities, err := s.CampaignActivities()
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestStatsEmptyStore(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(types.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Empty(t, stats.ByMethod)
	assert.Empty(t, stats.TopUserAgents)
	assert.Empty(t, stats.ByHour)
}

func TestStatsAggregates(t *testing.T) {
	s := newTestStore(t)
	recent := time.Now().UTC()
	old := recent.Add(-48 * time.Hour)

	for i := 0; i < 3; i++ {
		seedEntry(t, s, 0, func(e *logentry.LogEntry) {
			e.Timestamp = recent.Add(time.Duration(i) * time.Second)
		})
	}
	seedEntry(t, s, 0, func(e *logentry.LogEntry) {
		e.Timestamp = recent
		e.Method = "POST"
		e.UserAgent = "Mozilla/5.0"
	})
	seedEntry(t, s, 0, func(e *logentry.LogEntry) {
		e.Timestamp = old
		e.UserAgent = ""
	})

	stats, err := s.Stats(types.Filter{})
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(4), stats.Recent)
	assert.Equal(t, int64(4), stats.ByMethod["GET"])
	assert.Equal(t, int64(1), stats.ByMethod["POST"])

	require.NotEmpty(t, stats.TopUserAgents)
	assert.Equal(t, "curl/8.0", stats.TopUserAgents[0].UserAgent)
	assert.Equal(t, int64(3), stats.TopUserAgents[0].Count)

	// The empty user agent shows up as Unknown.
	uas := make(map[string]int64)
	for _, ua := range stats.TopUserAgents {
		uas[ua.UserAgent] = ua.Count
	}
	assert.Equal(t, int64(1), uas["Unknown"])

	var bucketTotal int64
	for _, bucket := range stats.ByHour {
		bucketTotal += bucket.Count
	}
	assert.Equal(t, int64(5), bucketTotal)
}

func TestStatsTopUserAgentTieBreak(t *testing.T) {
	s := newTestStore(t)
	// Newest entry first in stream order: ua-first is seen before ua-second
	// and both end with the same count.
	seedEntry(t, s, 2*time.Second, func(e *logentry.LogEntry) { e.UserAgent = "ua-first" })
	seedEntry(t, s, time.Second, func(e *logentry.LogEntry) { e.UserAgent = "ua-second" })

	stats, err := s.Stats(types.Filter{})
	require.NoError(t, err)
	require.Len(t, stats.TopUserAgents, 2)
	assert.Equal(t, "ua-first", stats.TopUserAgents[0].UserAgent)
	assert.Equal(t, "ua-second", stats.TopUserAgents[1].UserAgent)
}

func TestStatsRespectsFilter(t *testing.T) {
	s := newTestStore(t)
	seedEntry(t, s, 0, nil)
	seedEntry(t, s, time.Second, func(e *logentry.LogEntry) { e.Campaign = "lab-b" })

	stats, err := s.Stats(types.Filter{Campaign: "lab-b"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, "lab-b", stats.Campaign)
}
