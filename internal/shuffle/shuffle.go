// Package shuffle reorders only the head of a ranked list, deterministically
// per seed, so repeat visitors see variety without losing the tail order.
package shuffle

import (
	"hash/fnv"
	"math/rand"
)

// Window shuffles the first min(window, len(items)) elements with a
// Fisher-Yates pass seeded from the seed string. Elements past the window
// keep their positions. The input slice is not modified.
func Window[T any](items []T, window int, seed string) []T {
	out := make([]T, len(items))
	copy(out, items)

	if window <= 1 || len(out) < 2 {
		return out
	}
	n := window
	if n > len(out) {
		n = len(out)
	}

	h := fnv.New32a()
	h.Write([]byte(seed))
	rng := rand.New(rand.NewSource(int64(h.Sum32())))

	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
