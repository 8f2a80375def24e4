// Package scoring holds the pure functions that turn a raw answer log
// into summaries and rankings. Everything here is deterministic: the
// same input always produces the same output, so results can be
// recomputed from the log at any time.
package scoring

import "livequiz-service/internal/domain"

type answerKey struct {
	participantID string
	questionID    string
}

// Deduplicate collapses repeated submissions for the same
// (participant, question) pair down to the most recent one by
// AnsweredAt. A missing instant sorts as the zero time. When two
// records carry the identical instant, the later one in input order
// wins; for a store that applies a single client's writes in issue
// order that makes the last retry authoritative. Pair order in the
// output follows first appearance in the input, so the function is
// idempotent: Deduplicate(Deduplicate(x)) == Deduplicate(x).
func Deduplicate(answers []domain.Answer) []domain.Answer {
	latest := make(map[answerKey]int, len(answers))
	order := make([]answerKey, 0, len(answers))

	for i, a := range answers {
		key := answerKey{a.ParticipantID, a.QuestionID}
		prev, seen := latest[key]
		if !seen {
			latest[key] = i
			order = append(order, key)
			continue
		}
		if !a.AnsweredAt.Before(answers[prev].AnsweredAt) {
			latest[key] = i
		}
	}

	out := make([]domain.Answer, 0, len(order))
	for _, key := range order {
		out = append(out, answers[latest[key]])
	}
	return out
}

// ForParticipant filters a deduplicated answer set down to one
// participant, preserving order.
func ForParticipant(answers []domain.Answer, participantID string) []domain.Answer {
	out := make([]domain.Answer, 0, len(answers))
	for _, a := range answers {
		if a.ParticipantID == participantID {
			out = append(out, a)
		}
	}
	return out
}
