package prize

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"livequiz-service/internal/domain"
)

func testRoster(n int) []domain.Participant {
	roster := make([]domain.Participant, n)
	for i := range roster {
		roster[i] = domain.Participant{ID: string(rune('a' + i)), Name: "P"}
	}
	return roster
}

func TestBuildDeckDealsOneCardPerParticipant(t *testing.T) {
	prizes := []domain.Prize{
		{ID: "gold", Name: "Gold", Quantity: 1},
		{ID: "silver", Name: "Silver", Quantity: 2},
	}
	roster := testRoster(6)

	deck := BuildDeck(prizes, roster, rand.New(rand.NewSource(42)))
	if deck.Size() != 6 {
		t.Fatalf("expected 6 cards, got %d", deck.Size())
	}

	won := map[string]int{}
	for _, p := range roster {
		card, err := deck.Card(p.ID)
		if err != nil {
			t.Fatalf("card for %s: %v", p.ID, err)
		}
		if card.PrizeID != "" {
			won[card.PrizeID]++
		}
	}
	if won["gold"] != 1 || won["silver"] != 2 {
		t.Fatalf("prize unit counts not preserved: %+v", won)
	}
}

func TestBuildDeckMorePrizesThanParticipants(t *testing.T) {
	prizes := []domain.Prize{{ID: "mug", Name: "Mug", Quantity: 10}}
	roster := testRoster(3)

	deck := BuildDeck(prizes, roster, rand.New(rand.NewSource(1)))
	if deck.Size() != 3 {
		t.Fatalf("expected one card per participant, got %d", deck.Size())
	}
}

func TestScratchIsOneWay(t *testing.T) {
	deck := BuildDeck(nil, testRoster(1), rand.New(rand.NewSource(1)))
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	card, err := deck.Scratch("a", now)
	if err != nil {
		t.Fatalf("first scratch: %v", err)
	}
	if !card.Scratched || !card.ScratchedAt.Equal(now) {
		t.Fatalf("expected scratched card, got %+v", card)
	}

	_, err = deck.Scratch("a", now.Add(time.Second))
	if !errors.Is(err, domain.ErrCardAlreadyScratched) {
		t.Fatalf("expected already-scratched error, got %v", err)
	}
}

func TestCardUnknownParticipant(t *testing.T) {
	deck := BuildDeck(nil, testRoster(1), rand.New(rand.NewSource(1)))
	if _, err := deck.Card("nobody"); !errors.Is(err, domain.ErrNoCardForParticipant) {
		t.Fatalf("expected no-card error, got %v", err)
	}
}
