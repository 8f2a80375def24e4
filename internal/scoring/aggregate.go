package scoring

import (
	"math"
	"sort"

	"livequiz-service/internal/domain"
)

// Summarize folds one participant's deduplicated answers into a
// Summary. The score denominator is the number of questions the
// participant actually answered, not the quiz length: someone who
// answered 2 of 10 and got both right scores 100. Points sum the
// per-answer weight awarded at write time, so a retried answer that
// went from correct to wrong sheds its points. Streaks run over
// answered-at chronological order and reset on any incorrect answer.
func Summarize(participantID, name string, answers []domain.Answer) domain.Summary {
	mine := ForParticipant(answers, participantID)

	summary := domain.Summary{
		ParticipantID: participantID,
		Name:          name,
		AnsweredCount: len(mine),
	}
	if len(mine) == 0 {
		return summary
	}

	timeSum := 0
	for _, a := range mine {
		if a.Correct {
			summary.CorrectCount++
		}
		summary.Points += a.Points
		timeSum += a.TimeTakenSec
	}
	summary.Score = roundRatio(summary.CorrectCount*100, summary.AnsweredCount)
	summary.AvgTimeSec = roundRatio(timeSum, summary.AnsweredCount)
	summary.MaxStreak = maxStreak(mine)
	return summary
}

// SummarizeAll deduplicates the raw log once and produces one summary
// per participant in the given roster order.
func SummarizeAll(roster []domain.Participant, raw []domain.Answer) []domain.Summary {
	deduped := Deduplicate(raw)
	summaries := make([]domain.Summary, 0, len(roster))
	for _, p := range roster {
		summaries = append(summaries, Summarize(p.ID, p.Name, deduped))
	}
	return summaries
}

func maxStreak(answers []domain.Answer) int {
	ordered := make([]domain.Answer, len(answers))
	copy(ordered, answers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AnsweredAt.Before(ordered[j].AnsweredAt)
	})

	best, run := 0, 0
	for _, a := range ordered {
		if a.Correct {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

func roundRatio(numerator, denominator int) int {
	if denominator == 0 {
		return 0
	}
	return int(math.Round(float64(numerator) / float64(denominator)))
}
