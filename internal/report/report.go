// Package report builds the read-model the external report exporter
// consumes: per participant, every incorrectly answered question with
// its prompt, the correct answer, and what the participant chose.
package report

import (
	"livequiz-service/internal/domain"
	"livequiz-service/internal/scoring"
)

// WrongAnswers lists a participant's incorrect answers from an
// already-deduplicated answer set, in the order the questions appear
// in the quiz.
func WrongAnswers(participantID string, deduped []domain.Answer, quiz domain.Quiz) []domain.WrongAnswer {
	byQuestion := make(map[string]domain.Answer)
	for _, a := range scoring.ForParticipant(deduped, participantID) {
		byQuestion[a.QuestionID] = a
	}

	var wrong []domain.WrongAnswer
	for _, q := range quiz.Questions {
		answer, ok := byQuestion[q.ID]
		if !ok || answer.Correct {
			continue
		}
		wrong = append(wrong, domain.WrongAnswer{
			QuestionID: q.ID,
			Prompt:     q.Prompt,
			Correct:    q.Correct,
			Given:      answer.Selected,
		})
	}
	return wrong
}

// BuildResult assembles the archived outcome of a session: ranked
// summaries plus wrong-answer detail per participant. Deduplication
// happens once here; everything downstream is pure.
func BuildResult(state domain.SessionState, roster []domain.Participant, raw []domain.Answer) domain.SessionResult {
	deduped := scoring.Deduplicate(raw)

	summaries := make([]domain.Summary, 0, len(roster))
	wrongByParticipant := make(map[string][]domain.WrongAnswer, len(roster))
	for _, p := range roster {
		summaries = append(summaries, scoring.Summarize(p.ID, p.Name, deduped))
		if wrong := WrongAnswers(p.ID, deduped, state.Quiz); len(wrong) > 0 {
			wrongByParticipant[p.ID] = wrong
		}
	}

	return domain.SessionResult{
		Session:      state,
		Summaries:    scoring.Rank(summaries),
		WrongAnswers: wrongByParticipant,
	}
}
