// Package analytics derives reporting aggregates from an
// organization's checklists. Aggregation happens in memory over a
// bounded sample of recent checklists; there are no precomputed
// counters to keep consistent.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/checklists-vnext/checklist-service/internal/checklist"
)

// SampleLimit caps how many checklists one report reads.
const SampleLimit = 500

// Reporting periods.
const (
	Period7d  = "7d"
	Period30d = "30d"
	Period90d = "90d"

	DefaultPeriod = Period30d
)

// periodDays maps a period name to its length. Unknown periods fall
// back to 30 days.
func periodDays(period string) int {
	switch period {
	case Period7d:
		return 7
	case Period90d:
		return 90
	default:
		return 30
	}
}

// Score counts completions against a total.
type Score struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// RankedScore is a Score attributed to a user or team, with a
// completion rate in whole percent.
type RankedScore struct {
	ID        string `json:"id"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Rate      int    `json:"rate"`
}

// Overview summarizes an organization's recent checklists.
type Overview struct {
	Period         string           `json:"period"`
	Total          int              `json:"total"`
	CompletionRate int              `json:"completionRate"`
	ByStatus       map[string]int   `json:"byStatus"`
	PerUser        map[string]Score `json:"perUser"`
	PerTeam        map[string]Score `json:"perTeam"`
}

// Performance ranks users and teams by completions and counts
// deviations across recent checklists.
type Performance struct {
	Period          string        `json:"period"`
	TopUsers        []RankedScore `json:"topUsers"`
	TopTeams        []RankedScore `json:"topTeams"`
	TotalDeviations int           `json:"totalDeviations"`
}

// OverviewFilter narrows an overview to one user or team.
type OverviewFilter struct {
	UserID string
	TeamID string
}

// Service computes reports from the checklist repository.
type Service struct {
	repo *checklist.Repository
	now  func() time.Time
}

// NewService creates a Service.
func NewService(repo *checklist.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// sample reads up to SampleLimit checklists and keeps those created
// within the period.
func (s *Service) sample(ctx context.Context, orgID, period string) ([]*checklist.Checklist, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -periodDays(period))
	all, _, err := s.repo.ListByOrg(ctx, orgID, SampleLimit, "")
	if err != nil {
		return nil, err
	}
	recent := make([]*checklist.Checklist, 0, len(all))
	for _, c := range all {
		if !c.CreatedAt.Before(cutoff) {
			recent = append(recent, c)
		}
	}
	return recent, nil
}

// Overview computes status and per-user/per-team counts for recent
// checklists, optionally narrowed by filter.
func (s *Service) Overview(ctx context.Context, orgID, period string, filter OverviewFilter) (*Overview, error) {
	if period == "" {
		period = DefaultPeriod
	}
	checklists, err := s.sample(ctx, orgID, period)
	if err != nil {
		return nil, err
	}
	if filter.UserID != "" {
		checklists = filterByUser(checklists, filter.UserID)
	}
	if filter.TeamID != "" {
		checklists = filterByTeam(checklists, filter.TeamID)
	}

	o := &Overview{
		Period:   period,
		Total:    len(checklists),
		ByStatus: map[string]int{},
		PerUser:  map[string]Score{},
		PerTeam:  map[string]Score{},
	}
	for _, c := range checklists {
		status := c.Status
		if status == "" {
			status = "unknown"
		}
		o.ByStatus[status]++

		completed := c.Status == checklist.StatusCompleted
		if uid := attributedUser(c); uid != "" {
			score := o.PerUser[uid]
			score.Total++
			if completed {
				score.Completed++
			}
			o.PerUser[uid] = score
		}
		if c.TeamID != "" {
			score := o.PerTeam[c.TeamID]
			score.Total++
			if completed {
				score.Completed++
			}
			o.PerTeam[c.TeamID] = score
		}
	}
	o.CompletionRate = rate(o.ByStatus[checklist.StatusCompleted], o.Total)
	return o, nil
}

// Performance ranks the top ten users and teams by completed
// checklists and totals deviations across item rows.
func (s *Service) Performance(ctx context.Context, orgID, period string) (*Performance, error) {
	if period == "" {
		period = DefaultPeriod
	}
	checklists, err := s.sample(ctx, orgID, period)
	if err != nil {
		return nil, err
	}

	userScores := map[string]Score{}
	teamScores := map[string]Score{}
	for _, c := range checklists {
		completed := c.Status == checklist.StatusCompleted
		if uid := attributedUser(c); uid != "" {
			score := userScores[uid]
			score.Total++
			if completed {
				score.Completed++
			}
			userScores[uid] = score
		}
		if c.TeamID != "" {
			score := teamScores[c.TeamID]
			score.Total++
			if completed {
				score.Completed++
			}
			teamScores[c.TeamID] = score
		}
	}

	totalDeviations := 0
	for _, c := range checklists {
		items, err := s.repo.ListItems(ctx, c.ChecklistID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.HasDeviation {
				totalDeviations++
			}
		}
	}

	return &Performance{
		Period:          period,
		TopUsers:        rank(userScores, 10),
		TopTeams:        rank(teamScores, 10),
		TotalDeviations: totalDeviations,
	}, nil
}

// attributedUser picks who a checklist counts against: the assignee,
// or the creator when unassigned.
func attributedUser(c *checklist.Checklist) string {
	if c.AssigneeID != "" {
		return c.AssigneeID
	}
	return c.CreatedBy
}

func filterByUser(checklists []*checklist.Checklist, userID string) []*checklist.Checklist {
	kept := checklists[:0]
	for _, c := range checklists {
		if c.AssigneeID == userID {
			kept = append(kept, c)
			continue
		}
		for _, owner := range c.OwnerIDs {
			if owner == userID {
				kept = append(kept, c)
				break
			}
		}
	}
	return kept
}

func filterByTeam(checklists []*checklist.Checklist, teamID string) []*checklist.Checklist {
	kept := checklists[:0]
	for _, c := range checklists {
		if c.TeamID == teamID {
			kept = append(kept, c)
		}
	}
	return kept
}

func rate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(completed)/float64(total)*100 + 0.5)
}

// rank orders scores by completions, descending, keeping the top n.
// Ties break on id so output is stable.
func rank(scores map[string]Score, n int) []RankedScore {
	ranked := make([]RankedScore, 0, len(scores))
	for id, s := range scores {
		ranked = append(ranked, RankedScore{
			ID:        id,
			Total:     s.Total,
			Completed: s.Completed,
			Rate:      rate(s.Completed, s.Total),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Completed != ranked[j].Completed {
			return ranked[i].Completed > ranked[j].Completed
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
