package profile

import (
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Stats summarizes the store from index bucket sizes.
type Stats struct {
	TotalProfiles      int             `json:"total_profiles"`
	StatusBreakdown    store.Breakdown `json:"status_breakdown"`
	RelevanceBreakdown store.Breakdown `json:"relevance_breakdown"`
	CompanyBreakdown   store.Breakdown `json:"company_breakdown"`
	GoalBreakdown      store.Breakdown `json:"goal_breakdown"`
	TotalTags          int             `json:"total_tags"`
	StorageLocation    string          `json:"storage_location"`
	LastUpdated        time.Time       `json:"last_updated"`
	LastBackup         *time.Time      `json:"last_backup"`
}

// Stats reads counts from the index; no documents are loaded.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := m.store.Counts()
	meta := m.store.Metadata()
	return &Stats{
		TotalProfiles:      c.Total,
		StatusBreakdown:    c.Status,
		RelevanceBreakdown: c.Relevance,
		CompanyBreakdown:   c.Company,
		GoalBreakdown:      c.Goal,
		TotalTags:          c.Tags,
		StorageLocation:    m.store.Dir(),
		LastUpdated:        m.store.LastUpdated(),
		LastBackup:         meta.LastBackup,
	}, nil
}

// RecentLimit caps the recent activity list.
const RecentLimit = 10

// Engagement measures progress through the pipeline.
type Engagement struct {
	TotalProfiles  int     `json:"total_profiles"`
	Contacted      int     `json:"contacted"`
	Converted      int     `json:"converted"`
	HighRelevance  int     `json:"high_relevance"`
	ConversionRate float64 `json:"conversion_rate"`
}

// RecentProfile is one row of the recent activity feed.
type RecentProfile struct {
	ProfileID      string          `json:"profile_id"`
	Name           string          `json:"name"`
	CreatedAt      time.Time       `json:"created_at"`
	Status         model.Status    `json:"status"`
	RelevanceScore model.Relevance `json:"relevance_score"`
}

// Charts holds distributions for the dashboard.
type Charts struct {
	StatusDistribution    map[string]int `json:"status_distribution"`
	RelevanceDistribution map[string]int `json:"relevance_distribution"`
	DiscoveryTimeline     map[string]int `json:"discovery_timeline"`
	IndustryDistribution  map[string]int `json:"industry_distribution"`
}

// Analytics is the dashboard payload.
type Analytics struct {
	Stats          *Stats          `json:"stats"`
	Engagement     Engagement      `json:"engagement_metrics"`
	RecentActivity []RecentProfile `json:"recent_activity"`
	Charts         Charts          `json:"charts"`
}

// Analytics computes engagement, recent activity and chart distributions
// from the index summaries.
func (m *Manager) Analytics(ctx context.Context) (*Analytics, error) {
	stats, err := m.Stats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "profile: analytics")
	}
	all, err := m.store.List(ctx, 0, 0)
	if err != nil {
		return nil, eris.Wrap(err, "profile: analytics")
	}

	a := &Analytics{
		Stats:          stats,
		Engagement:     Engagement{TotalProfiles: len(all)},
		RecentActivity: []RecentProfile{},
		Charts: Charts{
			StatusDistribution:    map[string]int{},
			RelevanceDistribution: map[string]int{},
			DiscoveryTimeline:     map[string]int{},
			IndustryDistribution:  map[string]int{},
		},
	}
	for _, s := range all {
		switch s.Status {
		case model.StatusContacted, model.StatusEngaged, model.StatusConverted:
			a.Engagement.Contacted++
		}
		if s.Status == model.StatusConverted {
			a.Engagement.Converted++
		}
		if s.RelevanceScore == model.RelevanceHigh {
			a.Engagement.HighRelevance++
		}

		a.Charts.StatusDistribution[string(s.Status)]++
		a.Charts.RelevanceDistribution[string(s.RelevanceScore)]++
		a.Charts.DiscoveryTimeline[s.CreatedAt.Format("2006-01")]++
		industry := s.Industry
		if industry == "" {
			industry = "Unknown"
		}
		a.Charts.IndustryDistribution[industry]++
	}
	if a.Engagement.Contacted > 0 {
		a.Engagement.ConversionRate = float64(a.Engagement.Converted) / float64(a.Engagement.Contacted) * 100
	}

	slices.SortStableFunc(all, func(x, y model.Summary) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		if x.ID < y.ID {
			return -1
		}
		if x.ID > y.ID {
			return 1
		}
		return 0
	})
	for _, s := range all[:min(RecentLimit, len(all))] {
		a.RecentActivity = append(a.RecentActivity, RecentProfile{
			ProfileID:      s.ID,
			Name:           s.Name,
			CreatedAt:      s.CreatedAt,
			Status:         s.Status,
			RelevanceScore: s.RelevanceScore,
		})
	}
	return a, nil
}
