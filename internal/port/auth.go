package port

import "context"

// SessionVerifier validates an opaque session credential against the
// identity provider and returns the subject id it belongs to.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (string, error)
}

// RatingSource assigns a rating to a freshly persisted query record.
//
// The selection policy has no settled product meaning yet; implementations
// are pluggable and the default is an explicit placeholder that draws
// uniformly from [2,5].
type RatingSource interface {
	Rate(prompt, response string) int
}
