package service

import "math/rand/v2"

// PlaceholderRating draws a rating uniformly from [2,5].
//
// Placeholder: the rating policy has no settled product meaning. It exists
// so every persisted record carries a rating; replace with a real
// port.RatingSource once one is designed.
type PlaceholderRating struct{}

// Rate ignores its inputs and returns a pseudo-random rating in [2,5].
func (PlaceholderRating) Rate(_, _ string) int {
	return 2 + rand.IntN(4)
}
