// Package joincode allocates short human-enterable session codes.
package joincode

import (
	"math/rand"

	"livequiz-service/internal/domain"
)

// Alphabet excludes visually confusable characters (0/O, 1/I).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	// Length is the fixed code length.
	Length = 6
	// MaxAttempts bounds the generate-check-retry loop.
	MaxAttempts = 5
)

// Index answers whether a code is already held by a live session.
type Index interface {
	CodeInUse(code string) bool
}

// Generate produces a unique join code by generate-check-retry against
// the index. After MaxAttempts collisions it fails with
// domain.ErrJoinCodeExhausted instead of reusing a colliding code.
func Generate(rnd *rand.Rand, index Index) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		code := random(rnd)
		if !index.CodeInUse(code) {
			return code, nil
		}
	}
	return "", domain.ErrJoinCodeExhausted
}

func random(rnd *rand.Rand) string {
	buf := make([]byte, Length)
	for i := range buf {
		buf[i] = Alphabet[rnd.Intn(len(Alphabet))]
	}
	return string(buf)
}
