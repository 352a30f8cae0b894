package core_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/llcc/org-workbench/pkg/core"
)

// MockHost serves headings from an in-memory table keyed by location.
type MockHost struct {
	headings map[core.Location]core.Card
	ids      map[string]core.Location
	nextID   int
}

func NewMockHost() *MockHost {
	return &MockHost{
		headings: make(map[core.Location]core.Card),
		ids:      make(map[string]core.Location),
	}
}

func (h *MockHost) Put(loc core.Location, c core.Card) {
	c.File = loc.File
	h.headings[loc] = c
	if c.ID != "" {
		h.ids[c.ID] = loc
	}
}

func (h *MockHost) ExtractCardAt(ctx context.Context, loc core.Location) (core.Card, error) {
	c, ok := h.headings[loc]
	if !ok {
		return core.Card{}, core.ErrNotAHeading
	}
	return c, nil
}

func (h *MockHost) ResolveIdentifier(ctx context.Context, id string) (core.Location, error) {
	loc, ok := h.ids[id]
	if !ok {
		return core.Location{}, core.ErrNotFound
	}
	return loc, nil
}

func (h *MockHost) GetOrCreateIdentifier(ctx context.Context, loc core.Location) (string, error) {
	c, ok := h.headings[loc]
	if !ok {
		return "", core.ErrNotAHeading
	}
	if c.ID == "" {
		h.nextID++
		c.ID = "gen-" + string(rune('0'+h.nextID))
		h.Put(loc, c)
	}
	return c.ID, nil
}

func newServiceWithHost(t *testing.T) (*core.Service, *MockRepository, *MockHost) {
	t.Helper()
	repo := NewMockRepository()
	host := NewMockHost()
	svc := core.NewService(repo, host, nil)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return svc, repo, host
}

func TestAddCard(t *testing.T) {
	ctx := context.Background()

	t.Run("Prepends New Cards", func(t *testing.T) {
		svc, _ := newService(t)
		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "first"})
		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "second"})

		cards, _ := svc.GetCards(core.DefaultWorkbench)
		if got := titles(cards); !reflect.DeepEqual(got, []string{"second", "first"}) {
			t.Errorf("expected newest first, got %v", got)
		}
	})

	t.Run("Dedup Is Idempotent", func(t *testing.T) {
		svc, repo := newService(t)
		card := core.Card{ID: "abc", Title: "Intro"}

		added, err := svc.AddCard(ctx, core.DefaultWorkbench, card)
		if err != nil || !added {
			t.Fatalf("first add: added=%v err=%v", added, err)
		}
		added, err = svc.AddCard(ctx, core.DefaultWorkbench, card)
		if err != nil {
			t.Fatalf("second add: %v", err)
		}
		if added {
			t.Error("expected duplicate to be rejected")
		}
		if repo.saves != 1 {
			t.Errorf("expected a single save, got %d", repo.saves)
		}
	})

	t.Run("Same ID Different Title", func(t *testing.T) {
		svc, _ := newService(t)
		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "abc", Title: "Old"})
		added, _ := svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "abc", Title: "New"})
		if added {
			t.Error("expected identifier match to reject")
		}
	})

	t.Run("Empty IDs Do Not Match", func(t *testing.T) {
		svc, _ := newService(t)
		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "a"})
		added, _ := svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "b"})
		if !added {
			t.Error("expected distinct titles without ids to be added")
		}
	})

	t.Run("Requires Title", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.AddCard(ctx, core.DefaultWorkbench, core.Card{})
		if !errors.Is(err, core.ErrExtractionFailed) {
			t.Errorf("expected ErrExtractionFailed, got %v", err)
		}
	})

	t.Run("Unknown Workbench", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.AddCard(ctx, "nope", core.Card{Title: "a"})
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestScenario_IntroTwice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "Intro", ID: "abc"})
	_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "Intro", ID: "xyz"})

	cards, _ := svc.GetCards(core.DefaultWorkbench)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].ID != "abc" {
		t.Errorf("expected the first card to survive, got %q", cards[0].ID)
	}

	if err := svc.RemoveCard(ctx, core.DefaultWorkbench, cards[0].Key); err != nil {
		t.Fatalf("RemoveCard failed: %v", err)
	}
	cards, _ = svc.GetCards(core.DefaultWorkbench)
	if len(cards) != 0 {
		t.Errorf("expected 0 cards, got %d", len(cards))
	}
	if cards == nil {
		t.Error("expected an empty list, got nil")
	}
}

func TestAddFromHost(t *testing.T) {
	ctx := context.Background()
	svc, _, host := newServiceWithHost(t)
	loc := core.Location{File: "/notes/a.org", Line: 3}
	host.Put(loc, core.Card{Title: "Heading", Content: "body", Level: 2})

	card, added, err := svc.AddFromHost(ctx, core.DefaultWorkbench, loc, true)
	if err != nil || !added {
		t.Fatalf("AddFromHost: added=%v err=%v", added, err)
	}
	if card.ID == "" {
		t.Error("expected an identifier to be created")
	}

	t.Run("Returned Card Carries Its Key", func(t *testing.T) {
		cards, _ := svc.GetCards(core.DefaultWorkbench)
		if card.Key == "" || card.Key != cards[0].Key {
			t.Fatalf("expected the stored key %q, got %q", cards[0].Key, card.Key)
		}
		if _, err := svc.SyncCard(ctx, core.DefaultWorkbench, card.Key); err != nil {
			t.Errorf("SyncCard by returned key failed: %v", err)
		}
	})

	t.Run("Duplicate Returns Stored Card", func(t *testing.T) {
		dup, added, err := svc.AddFromHost(ctx, core.DefaultWorkbench, loc, false)
		if err != nil || added {
			t.Fatalf("expected duplicate, added=%v err=%v", added, err)
		}
		if dup.Key != card.Key {
			t.Errorf("expected key %q of the existing card, got %q", card.Key, dup.Key)
		}
		if err := svc.RemoveCard(ctx, core.DefaultWorkbench, dup.Key); err != nil {
			t.Errorf("RemoveCard by returned key failed: %v", err)
		}
		if cards, _ := svc.GetCards(core.DefaultWorkbench); len(cards) != 0 {
			t.Errorf("expected empty workbench, got %v", titles(cards))
		}
	})

	_, _, err = svc.AddFromHost(ctx, core.DefaultWorkbench, core.Location{File: "/notes/a.org", Line: 99}, false)
	if !errors.Is(err, core.ErrExtractionFailed) || !errors.Is(err, core.ErrNotAHeading) {
		t.Errorf("expected ErrExtractionFailed wrapping ErrNotAHeading, got %v", err)
	}
}

func TestSyncCard(t *testing.T) {
	ctx := context.Background()

	t.Run("Preserves Position", func(t *testing.T) {
		svc, _, host := newServiceWithHost(t)
		loc := core.Location{File: "/n.org", Line: 1}
		host.Put(loc, core.Card{ID: "s1", Title: "Middle", Content: "old", Level: 1})

		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "Bottom"})
		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "s1", Title: "Middle", Content: "old", File: "/n.org", Level: 1})
		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "Top"})
		before, _ := svc.GetCards(core.DefaultWorkbench)

		host.Put(loc, core.Card{ID: "s1", Title: "Middle v2", Content: "new", Level: 3})
		fresh, err := svc.SyncCard(ctx, core.DefaultWorkbench, before[1].Key)
		if err != nil {
			t.Fatalf("SyncCard failed: %v", err)
		}

		after, _ := svc.GetCards(core.DefaultWorkbench)
		if after[1].Title != "Middle v2" || after[1].Content != "new" || after[1].Level != 3 {
			t.Errorf("card not refreshed: %+v", after[1])
		}
		if after[1].Key != before[1].Key || fresh.Key != before[1].Key {
			t.Error("sync must keep the slot key")
		}
		if after[0] != before[0] || after[2] != before[2] {
			t.Error("sync touched neighbouring cards")
		}
	})

	t.Run("Unresolvable Identifier", func(t *testing.T) {
		svc, _, _ := newServiceWithHost(t)
		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "ghost", Title: "Ghost"})
		cards, _ := svc.GetCards(core.DefaultWorkbench)

		_, err := svc.SyncCard(ctx, core.DefaultWorkbench, cards[0].Key)
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		after, _ := svc.GetCards(core.DefaultWorkbench)
		if !reflect.DeepEqual(cards, after) {
			t.Error("failed sync modified the store")
		}
	})

	t.Run("Extraction Failure", func(t *testing.T) {
		svc, _, host := newServiceWithHost(t)
		host.ids["broken"] = core.Location{File: "/x.org", Line: 5}
		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "broken", Title: "Broken"})
		cards, _ := svc.GetCards(core.DefaultWorkbench)

		_, err := svc.SyncCard(ctx, core.DefaultWorkbench, cards[0].Key)
		if !errors.Is(err, core.ErrExtractionFailed) {
			t.Errorf("expected ErrExtractionFailed, got %v", err)
		}
	})

	t.Run("No Identifier", func(t *testing.T) {
		svc, _, _ := newServiceWithHost(t)
		_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "Plain"})
		cards, _ := svc.GetCards(core.DefaultWorkbench)

		_, err := svc.SyncCard(ctx, core.DefaultWorkbench, cards[0].Key)
		if !errors.Is(err, core.ErrNoIdentifier) {
			t.Errorf("expected ErrNoIdentifier, got %v", err)
		}
	})
}

func TestPreviewSync(t *testing.T) {
	ctx := context.Background()
	svc, repo, host := newServiceWithHost(t)
	loc := core.Location{File: "/n.org", Line: 1}
	host.Put(loc, core.Card{ID: "p", Title: "P", Content: "v1"})
	_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "p", Title: "P", Content: "v1"})
	host.Put(loc, core.Card{ID: "p", Title: "P", Content: "v2"})
	saves := repo.saves

	cards, _ := svc.GetCards(core.DefaultWorkbench)
	old, fresh, err := svc.PreviewSync(ctx, core.DefaultWorkbench, cards[0].Key)
	if err != nil {
		t.Fatalf("PreviewSync failed: %v", err)
	}
	if old.Content != "v1" || fresh.Content != "v2" {
		t.Errorf("unexpected preview old=%q fresh=%q", old.Content, fresh.Content)
	}
	if repo.saves != saves {
		t.Error("preview must not persist")
	}
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	svc, repo, host := newServiceWithHost(t)

	host.Put(core.Location{File: "/a.org", Line: 1}, core.Card{ID: "a", Title: "A fresh"})
	host.Put(core.Location{File: "/a.org", Line: 9}, core.Card{ID: "b", Title: "B fresh"})

	_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "a", Title: "A"})
	_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "b", Title: "B"})
	_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "missing", Title: "M"})
	_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{Title: "No id"})
	saves := repo.saves

	report, err := svc.SyncAll(ctx, core.DefaultWorkbench)
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if report.Synced != 2 || report.Total != 4 {
		t.Errorf("expected (2, 4), got (%d, %d)", report.Synced, report.Total)
	}
	if len(report.Failures) != 1 || report.Failures[0].Card.ID != "missing" {
		t.Errorf("unexpected failures %+v", report.Failures)
	}
	if repo.saves != saves+1 {
		t.Errorf("expected exactly one save, got %d", repo.saves-saves)
	}

	cards, _ := svc.GetCards(core.DefaultWorkbench)
	if got := titles(cards); !reflect.DeepEqual(got, []string{"No id", "M", "B fresh", "A fresh"}) {
		t.Errorf("unexpected order after sync: %v", got)
	}
}

func TestSyncFile(t *testing.T) {
	ctx := context.Background()
	svc, _, host := newServiceWithHost(t)
	host.Put(core.Location{File: "/a.org", Line: 1}, core.Card{ID: "a", Title: "A2"})

	_, _ = svc.AddCard(ctx, core.DefaultWorkbench, core.Card{ID: "a", Title: "A", File: "/a.org"})
	_ = svc.CreateWorkbench(ctx, "other")
	_, _ = svc.AddCard(ctx, "other", core.Card{ID: "a", Title: "A", File: "/a.org"})
	_, _ = svc.AddCard(ctx, "other", core.Card{Title: "Elsewhere", File: "/b.org"})

	report, err := svc.SyncFile(ctx, "/a.org")
	if err != nil {
		t.Fatalf("SyncFile failed: %v", err)
	}
	if report.Synced != 2 || report.Total != 2 {
		t.Errorf("expected (2, 2), got (%d, %d)", report.Synced, report.Total)
	}
	for _, name := range []string{core.DefaultWorkbench, "other"} {
		cards, _ := svc.GetCards(name)
		found := false
		for _, c := range cards {
			if c.Title == "A2" {
				found = true
			}
		}
		if !found {
			t.Errorf("workbench %q not refreshed: %v", name, titles(cards))
		}
	}
}
