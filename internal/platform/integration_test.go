package platform_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/llcc/org-workbench/internal/platform"
	"github.com/llcc/org-workbench/pkg/core"
)

const book = `* Chapter one
:PROPERTIES:
:ID: ch-1
:END:
It begins.
* Chapter two
Untouched.
`

func setupService(t *testing.T, opts ...platform.Option) (*core.Service, string) {
	t.Helper()
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "book.org"), []byte(book), 0644); err != nil {
		t.Fatal(err)
	}

	baseOpts := []platform.Option{platform.WithRoot(tmpDir), platform.WithForceTemp(true)}
	service, err := platform.New(platform.SnapshotPath(tmpDir), append(baseOpts, opts...)...)
	if err != nil {
		t.Fatalf("Failed to init service: %v", err)
	}
	return service, tmpDir
}

func TestService_PersistsAcrossRestarts(t *testing.T) {
	service, tmpDir := setupService(t)
	ctx := context.TODO()

	if err := service.CreateWorkbench(ctx, "reading"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := service.AddFromHost(ctx, "reading", core.Location{File: "book.org", Line: 5}, false); err != nil {
		t.Fatalf("AddFromHost failed: %v", err)
	}
	if _, _, err := service.AddFromHost(ctx, "reading", core.Location{File: "book.org", Line: 6}, true); err != nil {
		t.Fatalf("AddFromHost with id failed: %v", err)
	}

	// A second process sees the same state.
	reopened, err := platform.New(platform.SnapshotPath(tmpDir), platform.WithRoot(tmpDir), platform.WithForceTemp(true))
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Current() != "reading" {
		t.Errorf("Expected current workbench 'reading', got %q", reopened.Current())
	}
	cards, err := reopened.GetCards("reading")
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(cards))
	}
	if cards[0].Title != "Chapter two" || !cards[0].HasID() {
		t.Errorf("Expected 'Chapter two' with a fresh id first, got %+v", cards[0])
	}
	if cards[1].ID != "ch-1" {
		t.Errorf("Expected existing id ch-1, got %q", cards[1].ID)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "book.org"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), cards[0].ID) {
		t.Errorf("Expected id %s written to the document:\n%s", cards[0].ID, data)
	}
}

func TestService_SyncFromDocument(t *testing.T) {
	service, tmpDir := setupService(t)
	ctx := context.TODO()

	card, _, err := service.AddFromHost(ctx, core.DefaultWorkbench, core.Location{File: "book.org", Line: 1}, false)
	if err != nil {
		t.Fatal(err)
	}

	// Move the heading and change its body; the id still finds it.
	edited := "* Preface\nNew.\n" + strings.Replace(book, "It begins.", "It begins again.", 1)
	if err := os.WriteFile(filepath.Join(tmpDir, "book.org"), []byte(edited), 0644); err != nil {
		t.Fatal(err)
	}

	fresh, err := service.SyncCard(ctx, core.DefaultWorkbench, card.Key)
	if err != nil {
		t.Fatalf("SyncCard failed: %v", err)
	}
	if fresh.Content != "It begins again." {
		t.Errorf("Expected refreshed content, got %q", fresh.Content)
	}
	if fresh.Key != card.Key {
		t.Error("Sync must keep the card key")
	}

	t.Run("Missing Identifier", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(tmpDir, "book.org"), []byte("* Gone\n"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := service.SyncCard(ctx, core.DefaultWorkbench, card.Key)
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		cards, _ := service.GetCards(core.DefaultWorkbench)
		if cards[0].Content != "It begins again." {
			t.Error("Failed sync must leave the stored card untouched")
		}
	})
}

func TestService_CorruptSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	snapshot := platform.SnapshotPath(tmpDir)
	if err := os.MkdirAll(filepath.Dir(snapshot), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(snapshot, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	service, err := platform.New(snapshot, platform.WithRoot(tmpDir), platform.WithForceTemp(true))
	if err != nil {
		t.Fatalf("A corrupt snapshot must not be fatal: %v", err)
	}
	if got := service.Workbenches(); len(got) != 1 || got[0] != core.DefaultWorkbench {
		t.Errorf("Expected only the default workbench, got %v", got)
	}
}

func TestService_ReadOnly(t *testing.T) {
	tmpDir := t.TempDir()
	snapshot := platform.SnapshotPath(tmpDir)
	if _, err := platform.New(snapshot, platform.WithRoot(tmpDir), platform.WithReadOnly(true)); err == nil {
		t.Fatal("Expected failure for a missing snapshot directory in read-only mode")
	}

	if err := os.MkdirAll(filepath.Dir(snapshot), 0755); err != nil {
		t.Fatal(err)
	}
	service, err := platform.New(snapshot, platform.WithRoot(tmpDir), platform.WithReadOnly(true))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.TODO()

	err = service.CreateWorkbench(ctx, "x")
	if !errors.Is(err, core.ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
	if got := service.Workbenches(); len(got) != 1 {
		t.Errorf("Failed persistence must not change memory, got %v", got)
	}
	if _, err := os.Stat(snapshot); !os.IsNotExist(err) {
		t.Error("Read-only store must not create a snapshot")
	}
}
