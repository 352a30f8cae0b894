package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/llcc/org-workbench/pkg/adapters/fs"
	"github.com/llcc/org-workbench/pkg/core"
)

// setupRepo creates a repository whose snapshot lives in a fresh temp dir.
func setupRepo(t *testing.T, name string, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "state")
	cfg := fs.Config{
		Path: filepath.Join(dir, name),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return fs.NewRepository(cfg), cfg.Path
}

func TestInitialize(t *testing.T) {
	t.Run("Creates Directory if Missing", func(t *testing.T) {
		repo, path := setupRepo(t, "workbenches.json")
		if err := repo.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
			t.Errorf("expected directory to be created")
		}
	})

	t.Run("Fails if MustExist and Missing", func(t *testing.T) {
		repo, _ := setupRepo(t, "workbenches.json", func(c *fs.Config) {
			c.MustExist = true
		})
		if err := repo.Initialize(context.Background()); err == nil {
			t.Error("expected Initialize to fail when directory is missing and MustExist=true")
		}
	})

	t.Run("Fails on Unknown Format", func(t *testing.T) {
		repo, _ := setupRepo(t, "workbenches.ini")
		if err := repo.Initialize(context.Background()); err == nil {
			t.Error("expected Initialize to reject unknown extension")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("Missing File Is Fresh Store", func(t *testing.T) {
		repo, _ := setupRepo(t, "workbenches.json")
		snap, err := repo.Load(context.Background())
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !reflect.DeepEqual(snap, core.NewSnapshot()) {
			t.Errorf("expected fresh snapshot, got %+v", snap)
		}
	})

	t.Run("Corrupted File Errors", func(t *testing.T) {
		repo, path := setupRepo(t, "workbenches.json")
		repo.Initialize(context.Background())
		os.WriteFile(path, []byte("{ nope"), 0644)

		if _, err := repo.Load(context.Background()); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	snap := core.Snapshot{
		Current: "b",
		Workbenches: map[string][]core.Card{
			core.DefaultWorkbench: {},
			"b": {
				{Key: "1", ID: "id-1", Title: "One", Content: "body\n", Level: 1, File: "/x.org"},
				{Key: "2", Title: "Two", Level: 4},
			},
		},
	}

	for _, name := range []string{"workbenches.json", "workbenches.yaml"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo, path := setupRepo(t, name)
			if err := repo.Initialize(ctx); err != nil {
				t.Fatalf("Initialize failed: %v", err)
			}

			if err := repo.Save(ctx, snap); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			first, _ := os.ReadFile(path)

			loaded, err := repo.Load(ctx)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(snap, loaded) {
				t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", snap, loaded)
			}

			if err := repo.Save(ctx, loaded); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			second, _ := os.ReadFile(path)
			if string(first) != string(second) {
				t.Error("saving the same snapshot twice produced different files")
			}

			if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
				t.Error("lock file left behind")
			}
		})
	}
}

func TestSave_ReadOnly(t *testing.T) {
	repo, path := setupRepo(t, "workbenches.json", func(c *fs.Config) {
		c.ReadOnly = true
	})

	err := repo.Save(context.Background(), core.NewSnapshot())
	if !errors.Is(err, core.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("read-only save wrote a file")
	}
}

func TestSave_LockTimeout(t *testing.T) {
	ctx := context.Background()
	repo, path := setupRepo(t, "workbenches.json", func(c *fs.Config) {
		c.LockTimeout = 30 * time.Millisecond
	})
	repo.Initialize(ctx)

	if err := os.WriteFile(path+".lock", nil, 0644); err != nil {
		t.Fatal(err)
	}

	err := repo.Save(ctx, core.NewSnapshot())
	if !errors.Is(err, fs.ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout, got %v", err)
	}
}

func TestState(t *testing.T) {
	ctx := context.Background()
	repo, path := setupRepo(t, "workbenches.yaml")
	repo.Initialize(ctx)
	_ = repo.Save(ctx, core.NewSnapshot())

	state, ok := repo.State().(fs.RepositoryState)
	if !ok {
		t.Fatalf("unexpected state type %T", repo.State())
	}
	if state.Path != path || state.Format != "yaml" || state.Saves != 1 || state.LastSave == nil {
		t.Errorf("unexpected state %+v", state)
	}
}
