package shortid

import (
	"errors"
	"math/rand"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// Length of generated ids. 36^6 tokens is far more than the expected
	// number of profiles.
	Length = 6

	maxAttempts = 100
)

// ErrGenerationExhausted is returned when every attempt collided. With a
// healthy id space this indicates a broken randomness source, not bad luck.
var ErrGenerationExhausted = errors.New("shortid: exhausted generation attempts")

// Generator produces short link tokens from an injected randomness source so
// tests can seed it deterministically.
type Generator struct {
	rng *rand.Rand
}

func New(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Generate returns a fresh token for which exists reports false.
func (g *Generator) Generate(exists func(string) bool) (string, error) {
	buf := make([]byte, Length)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		for i := range buf {
			buf[i] = alphabet[g.rng.Intn(len(alphabet))]
		}
		id := string(buf)
		if !exists(id) {
			return id, nil
		}
	}
	return "", ErrGenerationExhausted
}
