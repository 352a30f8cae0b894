package core

import (
	"context"
	"errors"
	"fmt"
)

// AddCard prepends card to the named workbench unless it is already present.
//
// A card is already present when an existing card has the same identifier
// (both non-empty) or the same title. Title equality alone is enough: the
// rule is meant to keep near-copies out, not to check identity. added is
// false when the card was rejected as a duplicate; nothing is written then.
func (s *Service) AddCard(ctx context.Context, name string, card Card) (added bool, err error) {
	_, added, err = s.add(ctx, name, card)
	return added, err
}

// add is AddCard returning the card as stored: the new card with its key,
// or the existing card it duplicates.
func (s *Service) add(ctx context.Context, name string, card Card) (Card, bool, error) {
	name = cleanName(name)
	if card.Title == "" {
		return Card{}, false, fmt.Errorf("%w: card has no title", ErrExtractionFailed)
	}

	var stored Card
	added := false
	err := s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		cards, ok := next.Workbenches[name]
		if !ok {
			return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
		}
		if i := indexOfDuplicate(cards, card); i >= 0 {
			stored = cards[i]
			return nil, errUnchanged
		}

		if card.Key == "" || indexOfKey(cards, card.Key) >= 0 {
			card.Key = newKey()
		}
		list := make([]Card, 0, len(cards)+1)
		list = append(list, card)
		list = append(list, cards...)
		next.Workbenches[name] = list
		stored, added = card, true
		return []string{name}, nil
	})
	if err != nil {
		return Card{}, false, err
	}

	if added {
		s.logger.Info("card added", "workbench", name, "title", card.Title, "id", card.ID)
	} else {
		s.logger.Info("card already present", "workbench", name, "title", card.Title)
	}
	return stored, added, nil
}

// AddFromHost extracts the heading at loc and adds it to the named workbench.
// With withID set, the heading is given an identifier first so the card can
// be synced later. The returned card is the stored one, so its Key can be
// used right away; for a duplicate it is the card already on the workbench.
func (s *Service) AddFromHost(ctx context.Context, name string, loc Location, withID bool) (Card, bool, error) {
	if s.host == nil {
		return Card{}, false, errors.New("no document host configured")
	}

	if withID {
		if _, err := s.host.GetOrCreateIdentifier(ctx, loc); err != nil {
			return Card{}, false, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
	}

	card, err := s.host.ExtractCardAt(ctx, loc)
	if err != nil {
		return Card{}, false, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	return s.add(ctx, name, card)
}

// RemoveCard removes the card with the given key from the named workbench.
func (s *Service) RemoveCard(ctx context.Context, name, key string) error {
	return s.ApplyRemoval(ctx, name, Card{Key: key})
}

func indexOfDuplicate(cards []Card, candidate Card) int {
	for i, c := range cards {
		if candidate.ID != "" && c.ID != "" && c.ID == candidate.ID {
			return i
		}
		if c.Title == candidate.Title {
			return i
		}
	}
	return -1
}
