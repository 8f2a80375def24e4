package scoring

import (
	"sort"

	"livequiz-service/internal/domain"
)

// Rank orders summaries descending by score, ties broken ascending by
// average time (the faster participant ranks higher). Exact ties on
// both keep their input order; the sort is stable.
func Rank(summaries []domain.Summary) []domain.Summary {
	ranked := make([]domain.Summary, len(summaries))
	copy(ranked, summaries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].AvgTimeSec < ranked[j].AvgTimeSec
	})
	return ranked
}

// Awards are read-only reductions over a ranked list. A nil field
// means "no award"; empty and single-participant sessions are fine.
type Awards struct {
	Winner        *domain.Summary `json:"winner,omitempty"`
	FastestAvg    *domain.Summary `json:"fastestAvg,omitempty"`
	HighestStreak *domain.Summary `json:"highestStreak,omitempty"`
	RunnerUp      *domain.Summary `json:"runnerUp,omitempty"`
}

// ComputeAwards derives awards from an already-ranked list. It never
// mutates its input and recomputes from scratch on every call.
func ComputeAwards(ranked []domain.Summary) Awards {
	var awards Awards
	if len(ranked) == 0 {
		return awards
	}

	winner := ranked[0]
	awards.Winner = &winner

	fastest := ranked[0]
	streaker := ranked[0]
	for _, s := range ranked[1:] {
		if s.AnsweredCount > 0 && (fastest.AnsweredCount == 0 || s.AvgTimeSec < fastest.AvgTimeSec) {
			fastest = s
		}
		if s.MaxStreak > streaker.MaxStreak {
			streaker = s
		}
	}
	if fastest.AnsweredCount > 0 {
		f := fastest
		awards.FastestAvg = &f
	}
	if streaker.MaxStreak > 0 {
		h := streaker
		awards.HighestStreak = &h
	}
	if len(ranked) > 1 {
		runnerUp := ranked[1]
		awards.RunnerUp = &runnerUp
	}
	return awards
}
