package analytics

import (
	"sort"

	"recycling-tracker/internal/domain"

	"github.com/shopspring/decimal"
)

// Score is a precomputed ranking metric for one user.
type Score struct {
	UserID string          `json:"user_id"`
	Name   string          `json:"name,omitempty"`
	Score  decimal.Decimal `json:"score"`
}

type RankingEntry struct {
	UserID     string          `json:"user_id"`
	Name       string          `json:"name,omitempty"`
	Score      decimal.Decimal `json:"score"`
	Position   int             `json:"position"`
	Percentile float64         `json:"percentile"`
	TotalUsers int             `json:"total_users"`
}

// sortScores orders a copy of scores by score descending, then user id
// ascending.
//
// Tied scores still get distinct sequential positions; there is no shared
// (competition) rank. The user id tie-break keeps positions reproducible for
// identical input.
func sortScores(scores []Score) []Score {
	sorted := make([]Score, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Score.Cmp(sorted[j].Score); c != 0 {
			return c > 0
		}
		return sorted[i].UserID < sorted[j].UserID
	})
	return sorted
}

func entryAt(sorted []Score, i int) RankingEntry {
	n := len(sorted)
	position := i + 1
	pct := float64(n-position) / float64(n) * 100
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	return RankingEntry{
		UserID:     sorted[i].UserID,
		Name:       sorted[i].Name,
		Score:      sorted[i].Score,
		Position:   position,
		Percentile: pct,
		TotalUsers: n,
	}
}

// Rank locates targetUserID in the ranked population. It returns ErrNotFound
// for an empty population or an unknown user.
func Rank(scores []Score, targetUserID string) (RankingEntry, error) {
	if len(scores) == 0 {
		return RankingEntry{}, ErrNotFound
	}
	sorted := sortScores(scores)
	for i := range sorted {
		if sorted[i].UserID == targetUserID {
			return entryAt(sorted, i), nil
		}
	}
	return RankingEntry{}, ErrNotFound
}

// Leaderboard returns the first limit entries of the ranked population, all
// of them when limit <= 0.
func Leaderboard(scores []Score, limit int) []RankingEntry {
	sorted := sortScores(scores)
	n := len(sorted)
	if limit > 0 && limit < n {
		n = limit
	}
	entries := make([]RankingEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, entryAt(sorted, i))
	}
	return entries
}

// PointsScores scores users by their accumulated points.
func PointsScores(users []domain.User) []Score {
	scores := make([]Score, 0, len(users))
	for _, u := range users {
		scores = append(scores, Score{UserID: u.ID, Name: u.Name, Score: decimal.NewFromInt(u.Points)})
	}
	return scores
}

// MassScores scores users by the total mass of their reports. Users without
// reports are part of the population with a zero score; report authors
// missing from users are added without a name.
func MassScores(users []domain.User, reports []domain.Report) []Score {
	totals := make(map[string]decimal.Decimal, len(users))
	for _, r := range reports {
		totals[r.UserID] = totals[r.UserID].Add(r.QuantityKg)
	}

	scores := make([]Score, 0, len(users)+len(totals))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		seen[u.ID] = struct{}{}
		mass, ok := totals[u.ID]
		if !ok {
			mass = decimal.Zero
		}
		scores = append(scores, Score{UserID: u.ID, Name: u.Name, Score: mass})
	}
	for id, mass := range totals {
		if _, ok := seen[id]; ok {
			continue
		}
		scores = append(scores, Score{UserID: id, Score: mass})
	}
	return scores
}
