package portal

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	roomIDWords    = 4
	guestCodeWords = 3
	maxAttempts    = 32
)

var wordLists = [][]string{animals, dishes, names, randomWords, adjectives, extras}

// generateID builds a memorable id like "kitten-waffle-stardust-happy" from
// n distinct word lists, retrying while taken reports a collision.
func generateID(n int, taken func(string) bool) (string, error) {
	if n > len(wordLists) {
		n = len(wordLists)
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		words := make([]string, 0, n)
		used := make(map[int]bool, n)
		for len(words) < n {
			i, err := randomIndex(len(wordLists))
			if err != nil {
				return "", err
			}
			if used[i] {
				continue
			}
			used[i] = true
			j, err := randomIndex(len(wordLists[i]))
			if err != nil {
				return "", err
			}
			words = append(words, wordLists[i][j])
		}

		id := strings.Join(words, "-")
		if taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", errIDSpaceExhausted
}

// randomIndex returns a cryptographically secure index below max.
func randomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
