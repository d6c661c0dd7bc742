package tenant

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestGetOrganization(t *testing.T) {
	store := NewInMemoryStore()
	store.PutOrganization(&Organization{ID: "org-a", Name: "Acme Agency", IsAgency: true})

	org, err := store.GetOrganization(context.Background(), "org-a")
	if err != nil {
		t.Fatalf("GetOrganization() error = %v", err)
	}
	if !org.IsAgency {
		t.Error("IsAgency = false, want true")
	}

	_, err = store.GetOrganization(context.Background(), "missing")
	if !errors.Is(err, ErrOrganizationNotFound) {
		t.Errorf("GetOrganization(missing) error = %v, want ErrOrganizationNotFound", err)
	}
}

func TestListActiveClientLinks(t *testing.T) {
	store := NewInMemoryStore()
	store.LinkAgency("agency-1", "client-b")
	store.LinkAgency("agency-1", "client-a")
	store.LinkAgency("agency-2", "client-c")

	clients, err := store.ListActiveClientLinks(context.Background(), "agency-1")
	if err != nil {
		t.Fatalf("ListActiveClientLinks() error = %v", err)
	}
	if !reflect.DeepEqual(clients, []string{"client-a", "client-b"}) {
		t.Errorf("clients = %v, want [client-a client-b]", clients)
	}
}

func TestListActiveClientLinks_DeactivationIsImmediate(t *testing.T) {
	store := NewInMemoryStore()
	store.LinkAgency("agency-1", "client-a")

	clients, err := store.ListActiveClientLinks(context.Background(), "agency-1")
	if err != nil {
		t.Fatalf("ListActiveClientLinks() error = %v", err)
	}
	if len(clients) != 1 {
		t.Fatalf("clients = %v, want one entry", clients)
	}

	store.SetLinkActive("agency-1", "client-a", false)

	clients, err = store.ListActiveClientLinks(context.Background(), "agency-1")
	if err != nil {
		t.Fatalf("ListActiveClientLinks() error = %v", err)
	}
	if len(clients) != 0 {
		t.Errorf("clients after deactivation = %v, want empty", clients)
	}
}

func TestListLiveGrants(t *testing.T) {
	store := NewInMemoryStore()
	store.AttachApp("app-2", "org-a")
	store.AttachApp("app-1", "org-a")
	store.AttachApp("app-3", "org-b")
	store.AttachApp("app-4", "org-c") // out of scope

	apps, err := store.ListLiveGrants(context.Background(), []string{"org-a", "org-b"})
	if err != nil {
		t.Fatalf("ListLiveGrants() error = %v", err)
	}
	if !reflect.DeepEqual(apps, []string{"app-1", "app-2", "app-3"}) {
		t.Errorf("apps = %v, want [app-1 app-2 app-3]", apps)
	}
}

func TestListLiveGrants_DetachedExcluded(t *testing.T) {
	store := NewInMemoryStore()
	store.AttachApp("app-1", "org-a")
	store.AttachApp("app-2", "org-a")
	store.DetachApp("app-2", "org-a")

	apps, err := store.ListLiveGrants(context.Background(), []string{"org-a"})
	if err != nil {
		t.Fatalf("ListLiveGrants() error = %v", err)
	}
	if !reflect.DeepEqual(apps, []string{"app-1"}) {
		t.Errorf("apps = %v, want [app-1]", apps)
	}
}

func TestListLiveGrants_EmptyScope(t *testing.T) {
	store := NewInMemoryStore()
	store.AttachApp("app-1", "org-a")

	apps, err := store.ListLiveGrants(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListLiveGrants() error = %v", err)
	}
	if len(apps) != 0 {
		t.Errorf("apps = %v, want empty", apps)
	}
}

func TestListLiveGrants_Deduplicates(t *testing.T) {
	store := NewInMemoryStore()
	// Same app granted to two orgs in scope
	store.AttachApp("app-1", "org-a")
	store.AttachApp("app-1", "org-b")

	apps, err := store.ListLiveGrants(context.Background(), []string{"org-a", "org-b"})
	if err != nil {
		t.Fatalf("ListLiveGrants() error = %v", err)
	}
	if !reflect.DeepEqual(apps, []string{"app-1"}) {
		t.Errorf("apps = %v, want [app-1]", apps)
	}
}
