package cache

import (
	"context"
	"testing"
	"time"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key(KeyInputs{
		OrgIDs:        []string{"org-b", "org-a"},
		AppIDs:        []string{"app2", "app1", "app2"},
		StartDate:     "2026-07-01",
		EndDate:       "2026-07-31",
		TrafficSource: "search",
		Comparison:    true,
	})
	b := Key(KeyInputs{
		OrgIDs:        []string{"org-a", "org-b"},
		AppIDs:        []string{"app1", "app2"},
		StartDate:     "2026-07-01",
		EndDate:       "2026-07-31",
		TrafficSource: "search",
		Comparison:    true,
	})

	if a != b {
		t.Errorf("keys differ for identical effective inputs:\n%s\n%s", a, b)
	}
}

func TestKey_DistinguishesInputs(t *testing.T) {
	base := KeyInputs{
		OrgIDs:    []string{"org-a"},
		AppIDs:    []string{"app1"},
		StartDate: "2026-07-01",
		EndDate:   "2026-07-31",
	}

	variants := map[string]KeyInputs{}
	variants["base"] = base

	v := base
	v.AppIDs = []string{"app1", "app2"}
	variants["extra app"] = v

	v = base
	v.EndDate = "2026-08-01"
	variants["different end date"] = v

	v = base
	v.TrafficSource = "browse"
	variants["traffic source filter"] = v

	v = base
	v.Comparison = true
	variants["comparison"] = v

	v = base
	v.IncludeRaw = true
	variants["raw rows"] = v

	v = base
	v.IncludeLegacy = true
	variants["legacy data"] = v

	v = base
	v.Unrestricted = true
	variants["unrestricted"] = v

	seen := map[string]string{}
	for name, in := range variants {
		key := Key(in)
		if prev, ok := seen[key]; ok {
			t.Errorf("key collision between %q and %q", prev, name)
		}
		seen[key] = name
	}
}

func TestKey_EmptyAppSetDistinctFromNone(t *testing.T) {
	// An unrestricted scope with no app filter must not collide with a
	// restricted scope whose effective set happens to be empty.
	unfiltered := Key(KeyInputs{Unrestricted: true, StartDate: "2026-07-01", EndDate: "2026-07-31"})
	emptyRestricted := Key(KeyInputs{OrgIDs: []string{"org-a"}, StartDate: "2026-07-01", EndDate: "2026-07-31"})
	if unfiltered == emptyRestricted {
		t.Error("unrestricted and empty restricted scopes produced the same key")
	}
}

func TestMemoryCache_PutGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("Get(missing) ok = true, want miss")
	}

	c.Put(ctx, "k1", []byte(`{"rows":3}`), 30*time.Second)
	payload, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("Get(k1) ok = false, want hit")
	}
	if string(payload) != `{"rows":3}` {
		t.Errorf("payload = %q", payload)
	}

	// Returned slice must be a copy.
	payload[0] = 'X'
	again, _ := c.Get(ctx, "k1")
	if string(again) != `{"rows":3}` {
		t.Errorf("cached payload mutated through returned slice: %q", again)
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	current := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Put(ctx, "k1", []byte("v"), 30*time.Second)

	current = current.Add(29 * time.Second)
	if _, ok := c.Get(ctx, "k1"); !ok {
		t.Error("entry expired before TTL")
	}

	current = current.Add(2 * time.Second)
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("entry served after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after expired read, want 0", c.Len())
	}
}

func TestMemoryCache_ZeroTTLNoop(t *testing.T) {
	c := NewMemoryCache()
	c.Put(context.Background(), "k1", []byte("v"), 0)
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for zero TTL", c.Len())
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Put(ctx, "k1", []byte("old"), time.Minute)
	c.Put(ctx, "k1", []byte("new"), time.Minute)

	payload, ok := c.Get(ctx, "k1")
	if !ok || string(payload) != "new" {
		t.Errorf("Get() = (%q, %v), want (new, true)", payload, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
