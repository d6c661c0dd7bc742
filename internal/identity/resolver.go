package identity

import (
	"context"
	"errors"

	"github.com/apexaso/insights/internal/auth"
)

// Resolver implements the auth-context resolution step: bearer credential in,
// authenticated principal out. Pure lookup against the identity store, no
// caching and no side effects.
type Resolver struct {
	jwt   *auth.JWTService
	store Store
}

// NewResolver creates a Resolver backed by the given JWT verifier and identity store.
func NewResolver(jwt *auth.JWTService, store Store) *Resolver {
	return &Resolver{jwt: jwt, store: store}
}

// Resolve verifies the Authorization header value and returns the principal.
// Returns ErrMalformedCredential for empty/structurally invalid credentials
// and ErrUnauthenticated when the credential does not map to a known identity.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (*Principal, error) {
	token, err := auth.BearerToken(authorization)
	if err != nil {
		return nil, ErrMalformedCredential
	}

	claims, err := r.jwt.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrMalformedToken) {
			return nil, ErrMalformedCredential
		}
		// Expired and tampered tokens both resolve to no identity.
		return nil, ErrUnauthenticated
	}
	if claims.Subject == "" {
		return nil, ErrUnauthenticated
	}

	id, err := r.store.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	return &Principal{
		ID:        id.ID,
		HomeOrgID: id.HomeOrgID,
		Elevated:  id.Elevated,
	}, nil
}
