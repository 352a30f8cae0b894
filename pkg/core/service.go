package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// errUnchanged lets a mutation report that there is nothing to persist.
var errUnchanged = errors.New("unchanged")

// Service is the workbench store. It owns every workbench and card; callers
// only ever get copies.
//
// Every mutating operation writes the full snapshot through the Repository
// before the new state becomes visible. If the write fails the previous
// state is kept, so memory and disk never diverge.
type Service struct {
	repo   Repository
	host   Host
	logger *slog.Logger

	mu        sync.RWMutex
	state     Snapshot
	listeners []func(workbench string)
}

// NewService creates a Service holding only the empty default workbench.
// Call Load to restore the persisted snapshot. host may be nil, in which case
// operations that read source documents fail.
func NewService(repo Repository, host Host, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:   repo,
		host:   host,
		logger: logger,
		state:  NewSnapshot(),
	}
}

// Load restores the store from the repository.
//
// A failed load is not fatal: the store falls back to just the default
// workbench and the error (wrapping ErrPersistenceFailed) is returned so the
// caller can report it.
func (s *Service) Load(ctx context.Context) error {
	snap, err := s.repo.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = NewSnapshot()
		s.logger.Warn("failed to load snapshot, starting empty", "error", err)
		return fmt.Errorf("%w: load: %w", ErrPersistenceFailed, err)
	}

	s.state = normalize(snap)
	s.logger.Debug("snapshot loaded", "workbenches", len(s.state.Workbenches), "current", s.state.Current)
	return nil
}

// Flush writes the current state to the repository.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.RLock()
	snap := s.state.Clone()
	s.mu.RUnlock()

	if err := s.repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	return nil
}

// Snapshot returns a copy of the whole store.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// OnChange registers fn to be called with the workbench name after every
// successful mutation of that workbench.
func (s *Service) OnChange(fn func(workbench string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Current returns the name of the current workbench.
func (s *Service) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Current
}

// Workbenches returns all workbench names, sorted.
func (s *Service) Workbenches() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.state.Workbenches))
	for name := range s.state.Workbenches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetCards returns a copy of the cards of the named workbench, in display order.
func (s *Service) GetCards(name string) ([]Card, error) {
	name = cleanName(name)
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards, ok := s.state.Workbenches[name]
	if !ok {
		return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
	}
	return cloneCards(cards), nil
}

// SetCards replaces the cards of the named workbench and persists.
// Cards without a key are given one.
func (s *Service) SetCards(ctx context.Context, name string, cards []Card) error {
	name = cleanName(name)
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		if _, ok := next.Workbenches[name]; !ok {
			return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
		}
		list := cloneCards(cards)
		for i := range list {
			if list[i].Key == "" {
				list[i].Key = newKey()
			}
		}
		next.Workbenches[name] = list
		return []string{name}, nil
	})
}

// CreateWorkbench adds an empty workbench and makes it current.
func (s *Service) CreateWorkbench(ctx context.Context, name string) error {
	name = cleanName(name)
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		if name == "" {
			return nil, fmt.Errorf("%w: name is empty", ErrInvalidName)
		}
		if _, exists := next.Workbenches[name]; exists {
			return nil, fmt.Errorf("%w: %q already exists", ErrInvalidName, name)
		}
		next.Workbenches[name] = []Card{}
		next.Current = name
		return []string{name}, nil
	})
}

// SwitchTo makes the named workbench current.
func (s *Service) SwitchTo(ctx context.Context, name string) error {
	name = cleanName(name)
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		if _, ok := next.Workbenches[name]; !ok {
			return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
		}
		if next.Current == name {
			return nil, errUnchanged
		}
		next.Current = name
		return []string{name}, nil
	})
}

// RenameWorkbench moves the cards of oldName to newName.
//
// Renaming onto another existing workbench is rejected rather than
// overwriting it. The default workbench cannot be renamed.
func (s *Service) RenameWorkbench(ctx context.Context, oldName, newName string) error {
	oldName, newName = cleanName(oldName), cleanName(newName)
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		cards, ok := next.Workbenches[oldName]
		if !ok {
			return nil, fmt.Errorf("workbench %q: %w", oldName, ErrNotFound)
		}
		if oldName == DefaultWorkbench {
			return nil, fmt.Errorf("%w: cannot rename %q", ErrProtected, DefaultWorkbench)
		}
		if newName == "" {
			return nil, fmt.Errorf("%w: name is empty", ErrInvalidName)
		}
		if newName == oldName {
			return nil, errUnchanged
		}
		if _, exists := next.Workbenches[newName]; exists {
			return nil, fmt.Errorf("%w: %q already exists", ErrInvalidName, newName)
		}

		next.Workbenches[newName] = cards
		delete(next.Workbenches, oldName)
		if next.Current == oldName {
			next.Current = newName
		}
		return []string{oldName, newName}, nil
	})
}

// DeleteWorkbench removes a workbench. Deleting the current workbench makes
// the default one current.
func (s *Service) DeleteWorkbench(ctx context.Context, name string) error {
	name = cleanName(name)
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		if name == DefaultWorkbench {
			return nil, fmt.Errorf("%w: cannot delete %q", ErrProtected, DefaultWorkbench)
		}
		if _, ok := next.Workbenches[name]; !ok {
			return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
		}
		delete(next.Workbenches, name)
		if next.Current == name {
			next.Current = DefaultWorkbench
		}
		return []string{name}, nil
	})
}

// ClearWorkbench removes every card of a workbench.
func (s *Service) ClearWorkbench(ctx context.Context, name string) error {
	name = cleanName(name)
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		if _, ok := next.Workbenches[name]; !ok {
			return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
		}
		next.Workbenches[name] = []Card{}
		return []string{name}, nil
	})
}

// cleanName is how every operation compares workbench names.
func cleanName(name string) string {
	return strings.TrimSpace(name)
}

// mutate runs fn against a copy of the state, persists the copy and swaps it
// in. Listeners are notified after the lock is released.
func (s *Service) mutate(ctx context.Context, fn func(next *Snapshot) ([]string, error)) error {
	s.mu.Lock()

	next := s.state.Clone()
	changed, err := fn(&next)
	if errors.Is(err, errUnchanged) {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to persist snapshot", "error", err)
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	s.state = next
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.logger.Debug("snapshot saved", "changed", changed)
	for _, name := range changed {
		for _, notify := range listeners {
			notify(name)
		}
	}
	return nil
}

// normalize repairs a loaded snapshot so the store invariants hold.
func normalize(snap Snapshot) Snapshot {
	out := Snapshot{
		Current:     snap.Current,
		Workbenches: make(map[string][]Card, len(snap.Workbenches)+1),
	}
	for name, cards := range snap.Workbenches {
		if strings.TrimSpace(name) == "" {
			continue
		}
		list := cloneCards(cards)
		for i := range list {
			if list[i].Key == "" {
				list[i].Key = newKey()
			}
		}
		out.Workbenches[name] = list
	}
	if _, ok := out.Workbenches[DefaultWorkbench]; !ok {
		out.Workbenches[DefaultWorkbench] = []Card{}
	}
	if _, ok := out.Workbenches[out.Current]; !ok {
		out.Current = DefaultWorkbench
	}
	return out
}

func newKey() string {
	return uuid.NewString()
}

func indexOfKey(cards []Card, key string) int {
	for i, c := range cards {
		if c.Key == key {
			return i
		}
	}
	return -1
}
