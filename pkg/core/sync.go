package core

import (
	"context"
	"errors"
	"fmt"
)

// SyncReport summarises a bulk sync.
type SyncReport struct {
	// Synced counts cards that were refreshed from their source.
	Synced int
	// Total counts every card considered, including those without an identifier.
	Total    int
	Failures []SyncFailure
}

// SyncFailure records why one card could not be synced.
type SyncFailure struct {
	Card Card
	Err  error
}

// SyncCard refreshes one card from its source document and stores the fresh
// record at the same position. On failure the stored card is left untouched.
func (s *Service) SyncCard(ctx context.Context, name, key string) (Card, error) {
	name = cleanName(name)
	old, err := s.cardByKey(name, key)
	if err != nil {
		return Card{}, err
	}

	fresh, err := s.fetch(ctx, old)
	if err != nil {
		s.logger.Warn("sync failed", "workbench", name, "title", old.Title, "error", err)
		return Card{}, err
	}

	err = s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		cards, ok := next.Workbenches[name]
		if !ok {
			return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
		}
		i := indexOfKey(cards, key)
		if i < 0 {
			return nil, fmt.Errorf("card %q: %w", key, ErrNotFound)
		}
		cards[i] = fresh
		return []string{name}, nil
	})
	if err != nil {
		return Card{}, err
	}

	s.logger.Info("card synced", "workbench", name, "title", fresh.Title, "id", fresh.ID)
	return fresh, nil
}

// PreviewSync returns the stored card and what a sync would replace it with,
// without changing anything.
func (s *Service) PreviewSync(ctx context.Context, name, key string) (old, fresh Card, err error) {
	name = cleanName(name)
	old, err = s.cardByKey(name, key)
	if err != nil {
		return Card{}, Card{}, err
	}
	fresh, err = s.fetch(ctx, old)
	if err != nil {
		return Card{}, Card{}, err
	}
	return old, fresh, nil
}

// SyncAll syncs every card with an identifier in the named workbench and
// persists once at the end. Cards without an identifier are left alone but
// still count towards Total.
func (s *Service) SyncAll(ctx context.Context, name string) (SyncReport, error) {
	name = cleanName(name)
	cards, err := s.GetCards(name)
	if err != nil {
		return SyncReport{}, err
	}

	report := SyncReport{Total: len(cards)}
	refreshed := make(map[string]Card)
	for _, c := range cards {
		if !c.HasID() {
			continue
		}
		fresh, err := s.fetch(ctx, c)
		if err != nil {
			report.Failures = append(report.Failures, SyncFailure{Card: c, Err: err})
			continue
		}
		refreshed[c.Key] = fresh
	}

	if err := s.replaceAll(ctx, map[string]map[string]Card{name: refreshed}); err != nil {
		return SyncReport{Total: report.Total}, err
	}
	report.Synced = len(refreshed)

	s.logger.Info("workbench synced", "workbench", name, "synced", report.Synced, "total", report.Total)
	return report, nil
}

// SyncFile syncs every card, in any workbench, that came from file.
// Total counts the cards from file.
func (s *Service) SyncFile(ctx context.Context, file string) (SyncReport, error) {
	snap := s.Snapshot()

	var report SyncReport
	refreshed := make(map[string]map[string]Card)
	for name, cards := range snap.Workbenches {
		for _, c := range cards {
			if c.File != file {
				continue
			}
			report.Total++
			if !c.HasID() {
				continue
			}
			fresh, err := s.fetch(ctx, c)
			if err != nil {
				report.Failures = append(report.Failures, SyncFailure{Card: c, Err: err})
				continue
			}
			if refreshed[name] == nil {
				refreshed[name] = make(map[string]Card)
			}
			refreshed[name][c.Key] = fresh
			report.Synced++
		}
	}

	if err := s.replaceAll(ctx, refreshed); err != nil {
		return SyncReport{Total: report.Total}, err
	}
	return report, nil
}

// replaceAll swaps in refreshed cards by key, per workbench, in one write.
// Cards removed in the meantime are skipped.
func (s *Service) replaceAll(ctx context.Context, refreshed map[string]map[string]Card) error {
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		var changed []string
		for name, byKey := range refreshed {
			cards, ok := next.Workbenches[name]
			if !ok || len(byKey) == 0 {
				continue
			}
			for i, c := range cards {
				if fresh, ok := byKey[c.Key]; ok {
					cards[i] = fresh
				}
			}
			changed = append(changed, name)
		}
		if len(changed) == 0 {
			return nil, errUnchanged
		}
		return changed, nil
	})
}

// fetch re-reads a card from its live source. The result keeps old's key.
func (s *Service) fetch(ctx context.Context, old Card) (Card, error) {
	if !old.HasID() {
		return Card{}, fmt.Errorf("%q: %w", old.Title, ErrNoIdentifier)
	}
	if s.host == nil {
		return Card{}, errors.New("no document host configured")
	}

	loc, err := s.host.ResolveIdentifier(ctx, old.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Card{}, fmt.Errorf("identifier %s: %w", old.ID, err)
		}
		return Card{}, fmt.Errorf("identifier %s: %w: %w", old.ID, ErrNotFound, err)
	}

	fresh, err := s.host.ExtractCardAt(ctx, loc)
	if err != nil {
		return Card{}, fmt.Errorf("%w: %s:%d: %w", ErrExtractionFailed, loc.File, loc.Line, err)
	}
	if fresh.Title == "" {
		return Card{}, fmt.Errorf("%w: %s:%d: heading has no title", ErrExtractionFailed, loc.File, loc.Line)
	}

	fresh.Key = old.Key
	if fresh.ID == "" {
		fresh.ID = old.ID
	}
	return fresh, nil
}

func (s *Service) cardByKey(name, key string) (Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards, ok := s.state.Workbenches[name]
	if !ok {
		return Card{}, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
	}
	i := indexOfKey(cards, key)
	if i < 0 {
		return Card{}, fmt.Errorf("card %q: %w", key, ErrNotFound)
	}
	return cards[i], nil
}
