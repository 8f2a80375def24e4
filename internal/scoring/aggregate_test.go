package scoring

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"livequiz-service/internal/domain"
)

// Mirrors the canonical retry scenario: the t=12s resubmission of q1
// flips it incorrect, so the participant scores 1/2 = 50 with an
// average of round((3+8)/2) = 6 seconds.
func TestSummarizeRetryScenario(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	raw := []domain.Answer{
		{ParticipantID: "p1", QuestionID: "q1", Selected: "A", Correct: true, TimeTakenSec: 5, AnsweredAt: base.Add(10 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q1", Selected: "B", Correct: false, TimeTakenSec: 3, AnsweredAt: base.Add(12 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q2", Selected: "B", Correct: true, TimeTakenSec: 8, AnsweredAt: base.Add(20 * time.Second)},
	}

	summary := Summarize("p1", "Alice", Deduplicate(raw))
	if summary.AnsweredCount != 2 {
		t.Fatalf("expected answeredCount 2, got %d", summary.AnsweredCount)
	}
	if summary.CorrectCount != 1 {
		t.Fatalf("expected correctCount 1, got %d", summary.CorrectCount)
	}
	if summary.Score != 50 {
		t.Fatalf("expected score 50, got %d", summary.Score)
	}
	if summary.AvgTimeSec != 6 {
		t.Fatalf("expected avgTime 6, got %d", summary.AvgTimeSec)
	}
}

func TestSummarizeSumsAwardedPoints(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	raw := []domain.Answer{
		{ParticipantID: "p1", QuestionID: "q1", Correct: true, Points: 3, AnsweredAt: base.Add(10 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q2", Correct: true, Points: 1, AnsweredAt: base.Add(20 * time.Second)},
		// Retried q2 goes wrong, so its point does not survive dedup.
		{ParticipantID: "p1", QuestionID: "q2", Correct: false, Points: 0, AnsweredAt: base.Add(30 * time.Second)},
	}

	summary := Summarize("p1", "Alice", Deduplicate(raw))
	if summary.Points != 3 {
		t.Fatalf("expected 3 weighted points, got %d", summary.Points)
	}
}

func TestSummarizeNoAnswers(t *testing.T) {
	summary := Summarize("p1", "Alice", nil)
	if summary.Score != 0 || summary.AvgTimeSec != 0 || summary.MaxStreak != 0 {
		t.Fatalf("expected zero summary for no answers, got %+v", summary)
	}
}

func TestSummarizeDenominatorIsAnsweredNotTotal(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	answers := []domain.Answer{
		{ParticipantID: "p1", QuestionID: "q1", Correct: true, TimeTakenSec: 4, AnsweredAt: base},
		{ParticipantID: "p1", QuestionID: "q2", Correct: true, TimeTakenSec: 6, AnsweredAt: base.Add(time.Second)},
	}

	// Two answered out of a much longer quiz, both right: 100, not 20.
	summary := Summarize("p1", "Alice", answers)
	if summary.Score != 100 {
		t.Fatalf("expected score 100, got %d", summary.Score)
	}
}

func TestSummarizeOrderIndependent(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	answers := []domain.Answer{
		{ParticipantID: "p1", QuestionID: "q1", Correct: true, TimeTakenSec: 2, AnsweredAt: base.Add(1 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q2", Correct: false, TimeTakenSec: 9, AnsweredAt: base.Add(2 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q3", Correct: true, TimeTakenSec: 4, AnsweredAt: base.Add(3 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q4", Correct: true, TimeTakenSec: 5, AnsweredAt: base.Add(4 * time.Second)},
	}

	want := Summarize("p1", "Alice", answers)
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := make([]domain.Answer, len(answers))
		copy(shuffled, answers)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Summarize("p1", "Alice", shuffled)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("summary depends on input order:\nwant %+v\ngot  %+v", want, got)
		}
	}
}

func TestMaxStreakResetsOnIncorrect(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	answers := []domain.Answer{
		{ParticipantID: "p1", QuestionID: "q1", Correct: true, AnsweredAt: base.Add(1 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q2", Correct: true, AnsweredAt: base.Add(2 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q3", Correct: false, AnsweredAt: base.Add(3 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q4", Correct: true, AnsweredAt: base.Add(4 * time.Second)},
	}

	summary := Summarize("p1", "Alice", answers)
	if summary.MaxStreak != 2 {
		t.Fatalf("expected max streak 2, got %d", summary.MaxStreak)
	}
}

func TestMaxStreakUsesChronologicalOrder(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	// Input order has the incorrect answer last, but chronologically it
	// lands in the middle and splits the streak.
	answers := []domain.Answer{
		{ParticipantID: "p1", QuestionID: "q1", Correct: true, AnsweredAt: base.Add(1 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q3", Correct: true, AnsweredAt: base.Add(3 * time.Second)},
		{ParticipantID: "p1", QuestionID: "q2", Correct: false, AnsweredAt: base.Add(2 * time.Second)},
	}

	summary := Summarize("p1", "Alice", answers)
	if summary.MaxStreak != 1 {
		t.Fatalf("expected streak 1 after chronological ordering, got %d", summary.MaxStreak)
	}
}

func TestSummarizeAllFiltersByParticipant(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	roster := []domain.Participant{
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob"},
	}
	raw := []domain.Answer{
		{ParticipantID: "p1", QuestionID: "q1", Correct: true, TimeTakenSec: 4, AnsweredAt: base},
		{ParticipantID: "p2", QuestionID: "q1", Correct: false, TimeTakenSec: 7, AnsweredAt: base},
	}

	summaries := SummarizeAll(roster, raw)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Score != 100 || summaries[1].Score != 0 {
		t.Fatalf("cross-participant leakage: %+v", summaries)
	}
}
