// Package prize implements the scratch-card giveaway: a one-shot
// shuffled assignment of prize units to a session's roster.
package prize

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"livequiz-service/internal/domain"
)

// Deck holds the generated cards for one session, keyed by participant.
type Deck struct {
	cards map[string]*domain.ScratchCard
}

// BuildDeck lays out one slot per prize unit, pads with blanks up to
// the participant count, shuffles once, and deals one card per
// participant. Prize units beyond the roster size go unassigned. This
// is a single shuffle at generation time, not a streaming lottery.
func BuildDeck(prizes []domain.Prize, roster []domain.Participant, rnd *rand.Rand) *Deck {
	var slots []domain.Prize
	for _, p := range prizes {
		for i := 0; i < p.Quantity; i++ {
			slots = append(slots, p)
		}
	}
	for len(slots) < len(roster) {
		slots = append(slots, domain.Prize{}) // blank card
	}

	rnd.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })

	deck := &Deck{cards: make(map[string]*domain.ScratchCard, len(roster))}
	for i, participant := range roster {
		deck.cards[participant.ID] = &domain.ScratchCard{
			ID:            uuid.NewString(),
			ParticipantID: participant.ID,
			PrizeID:       slots[i].ID,
			PrizeName:     slots[i].Name,
		}
	}
	return deck
}

// Card returns the card dealt to a participant.
func (d *Deck) Card(participantID string) (domain.ScratchCard, error) {
	card, ok := d.cards[participantID]
	if !ok {
		return domain.ScratchCard{}, domain.ErrNoCardForParticipant
	}
	return *card, nil
}

// Scratch performs the one-way unscratched -> scratched transition and
// returns the revealed card. Scratching twice is an error.
func (d *Deck) Scratch(participantID string, now time.Time) (domain.ScratchCard, error) {
	card, ok := d.cards[participantID]
	if !ok {
		return domain.ScratchCard{}, domain.ErrNoCardForParticipant
	}
	if card.Scratched {
		return *card, domain.ErrCardAlreadyScratched
	}
	card.Scratched = true
	card.ScratchedAt = now
	return *card, nil
}

// Size reports how many cards were dealt.
func (d *Deck) Size() int {
	return len(d.cards)
}
