package core

import (
	"context"
	"fmt"
	"strings"
)

// Range is an inclusive, 1-based line range in a rendered view.
type Range struct {
	Start int
	End   int
}

// Block is one rendered card and the lines it occupies.
type Block struct {
	Range Range
	Text  string
	Card  Card
}

// View is the outline rendering of a workbench. It is a read-only copy:
// edits go back through ApplyReorder and ApplyRemoval.
type View struct {
	Workbench string
	Blocks    []Block
}

// Text returns the whole outline.
func (v View) Text() string {
	if len(v.Blocks) == 0 {
		return ""
	}
	parts := make([]string, len(v.Blocks))
	for i, b := range v.Blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n") + "\n"
}

// CardAt returns the card rendered on the given line.
func (v View) CardAt(line int) (Card, bool) {
	for _, b := range v.Blocks {
		if line >= b.Range.Start && line <= b.Range.End {
			return b.Card, true
		}
	}
	return Card{}, false
}

// Keys returns the card keys in display order.
func (v View) Keys() []string {
	keys := make([]string, len(v.Blocks))
	for i, b := range v.Blocks {
		keys[i] = b.Card.Key
	}
	return keys
}

// RenderWorkbench builds the outline view of a workbench. Every card is
// flattened to a top-level heading followed by its content.
func (s *Service) RenderWorkbench(name string) (View, error) {
	name = cleanName(name)
	cards, err := s.GetCards(name)
	if err != nil {
		return View{}, err
	}

	view := View{Workbench: name, Blocks: make([]Block, 0, len(cards))}
	line := 1
	for _, c := range cards {
		text := RenderCard(c)
		n := strings.Count(text, "\n") + 1
		view.Blocks = append(view.Blocks, Block{
			Range: Range{Start: line, End: line + n - 1},
			Text:  text,
			Card:  c,
		})
		line += n
	}
	return view, nil
}

// RenderCard renders a card as a top-level outline heading.
func RenderCard(c Card) string {
	text := "* " + c.Title
	if body := strings.Trim(c.Content, "\n"); body != "" {
		text += "\n" + body
	}
	return text
}

// ApplyReorder replaces the order of a workbench. keys must name every card
// of the workbench exactly once.
func (s *Service) ApplyReorder(ctx context.Context, name string, keys []string) error {
	name = cleanName(name)
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		cards, ok := next.Workbenches[name]
		if !ok {
			return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
		}
		if len(keys) != len(cards) {
			return nil, fmt.Errorf("%w: got %d cards, workbench has %d", ErrInvalidOrder, len(keys), len(cards))
		}

		byKey := make(map[string]Card, len(cards))
		for _, c := range cards {
			byKey[c.Key] = c
		}
		ordered := make([]Card, 0, len(keys))
		for _, k := range keys {
			c, ok := byKey[k]
			if !ok {
				return nil, fmt.Errorf("%w: unknown or repeated card %q", ErrInvalidOrder, k)
			}
			delete(byKey, k)
			ordered = append(ordered, c)
		}
		next.Workbenches[name] = ordered
		return []string{name}, nil
	})
}

// MoveCard moves one card to index to, clamped to the list bounds.
func (s *Service) MoveCard(ctx context.Context, name, key string, to int) error {
	name = cleanName(name)
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		cards, ok := next.Workbenches[name]
		if !ok {
			return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
		}
		from := indexOfKey(cards, key)
		if from < 0 {
			return nil, fmt.Errorf("card %q: %w", key, ErrNotFound)
		}
		to = max(0, min(to, len(cards)-1))
		if from == to {
			return nil, errUnchanged
		}

		c := cards[from]
		rest := append(cards[:from:from], cards[from+1:]...)
		moved := make([]Card, 0, len(cards))
		moved = append(moved, rest[:to]...)
		moved = append(moved, c)
		moved = append(moved, rest[to:]...)
		next.Workbenches[name] = moved
		return []string{name}, nil
	})
}

// ApplyRemoval removes card from a workbench. The card is matched by key, or
// by its fields when it has no key.
func (s *Service) ApplyRemoval(ctx context.Context, name string, card Card) error {
	name = cleanName(name)
	return s.mutate(ctx, func(next *Snapshot) ([]string, error) {
		cards, ok := next.Workbenches[name]
		if !ok {
			return nil, fmt.Errorf("workbench %q: %w", name, ErrNotFound)
		}

		i := -1
		if card.Key != "" {
			i = indexOfKey(cards, card.Key)
		} else {
			for j, c := range cards {
				if c.sameRecord(card) {
					i = j
					break
				}
			}
		}
		if i < 0 {
			label := card.Title
			if label == "" {
				label = card.Key
			}
			return nil, fmt.Errorf("card %q: %w", label, ErrNotFound)
		}

		next.Workbenches[name] = append(cards[:i:i], cards[i+1:]...)
		return []string{name}, nil
	})
}
