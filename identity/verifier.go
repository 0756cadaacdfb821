// Package identity provides TokenVerifier implementations: a static
// in-memory map for development and tests, a YAML token file loaded at
// startup, and a client for a remote identity provider's verify endpoint.
package identity

import (
	"context"
	"fmt"
	"maps"

	"github.com/picshed/picshed"
)

// StaticVerifier resolves tokens from a fixed in-memory map. Useful for
// development and tests; tokens cannot be changed after construction.
type StaticVerifier struct {
	tokens map[string]string
}

// NewStaticVerifier creates a StaticVerifier from a token -> owner id map.
// The map is copied, so later changes to it have no effect.
func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	return &StaticVerifier{tokens: maps.Clone(tokens)}
}

// Verify resolves the token to its owner id. Unknown or empty tokens are
// rejected with picshed.ErrUnauthorized.
func (v *StaticVerifier) Verify(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if token == "" {
		return "", fmt.Errorf("verify token: %w: empty token", picshed.ErrUnauthorized)
	}

	ownerID, ok := v.tokens[token]
	if !ok || ownerID == "" {
		return "", fmt.Errorf("verify token: %w", picshed.ErrUnauthorized)
	}

	return ownerID, nil
}
