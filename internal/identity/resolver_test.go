package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apexaso/insights/internal/auth"
)

func newTestResolver(t *testing.T) (*Resolver, *auth.JWTService, *InMemoryStore) {
	t.Helper()
	jwtSvc := auth.NewJWTService("test-secret")
	store := NewInMemoryStore()
	return NewResolver(jwtSvc, store), jwtSvc, store
}

func TestResolve_Success(t *testing.T) {
	resolver, jwtSvc, store := newTestResolver(t)
	store.Put(&Identity{ID: "principal-1", HomeOrgID: "org-a"})

	token, err := jwtSvc.GenerateToken("principal-1", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	p, err := resolver.Resolve(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.ID != "principal-1" {
		t.Errorf("ID = %q, want %q", p.ID, "principal-1")
	}
	if p.HomeOrgID != "org-a" {
		t.Errorf("HomeOrgID = %q, want %q", p.HomeOrgID, "org-a")
	}
	if p.Elevated {
		t.Error("Elevated = true, want false")
	}
}

func TestResolve_ElevatedWithoutHomeOrg(t *testing.T) {
	resolver, jwtSvc, store := newTestResolver(t)
	store.Put(&Identity{ID: "platform-op", Elevated: true})

	token, err := jwtSvc.GenerateToken("platform-op", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	p, err := resolver.Resolve(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.Elevated {
		t.Error("Elevated = false, want true")
	}
	if p.HomeOrgID != "" {
		t.Errorf("HomeOrgID = %q, want empty", p.HomeOrgID)
	}
}

func TestResolve_MalformedCredential(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	for _, cred := range []string{"", "Bearer ", "Bearer not-a-jwt", "garbage"} {
		_, err := resolver.Resolve(context.Background(), cred)
		if !errors.Is(err, ErrMalformedCredential) {
			t.Errorf("Resolve(%q) error = %v, want ErrMalformedCredential", cred, err)
		}
	}
}

func TestResolve_UnknownSubject(t *testing.T) {
	resolver, jwtSvc, _ := newTestResolver(t)

	// Valid token, but no identity exists for the subject
	token, err := jwtSvc.GenerateToken("ghost", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	_, err = resolver.Resolve(context.Background(), "Bearer "+token)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Resolve() error = %v, want ErrUnauthenticated", err)
	}
}

func TestResolve_TamperedToken(t *testing.T) {
	resolver, _, store := newTestResolver(t)
	store.Put(&Identity{ID: "principal-1", HomeOrgID: "org-a"})

	// Signed by a different issuer
	otherIssuer := auth.NewJWTService("other-secret")
	token, err := otherIssuer.GenerateToken("principal-1", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	_, err = resolver.Resolve(context.Background(), "Bearer "+token)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Resolve() error = %v, want ErrUnauthenticated", err)
	}
}

func TestInMemoryStore_ReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	store.Put(&Identity{ID: "p1", HomeOrgID: "org-a"})

	first, err := store.GetByID(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	first.HomeOrgID = "mutated"

	second, err := store.GetByID(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if second.HomeOrgID != "org-a" {
		t.Errorf("HomeOrgID = %q, want %q (store leaked internal state)", second.HomeOrgID, "org-a")
	}
}
