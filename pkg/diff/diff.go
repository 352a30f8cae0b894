// Package diff renders unified diffs between the stored and the fresh
// version of a card, so a sync can be reviewed before it is applied.
package diff

import (
	"strconv"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/llcc/org-workbench/pkg/core"
)

// DefaultContext is the number of context lines around each hunk.
const DefaultContext = 3

// Unified produces a unified patch for a↦b. It returns "" when the inputs
// are equal.
func Unified(aName, bName, a, b string, context int) (string, error) {
	if a == b {
		return "", nil
	}
	if context <= 0 {
		context = DefaultContext
	}
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(a),
		B:        splitLinesKeepNL(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  context,
	}
	return difflib.GetUnifiedDiffString(u)
}

// Cards diffs the rendered form of two cards. The headers carry level and
// identifier, which rendering flattens away.
func Cards(stored, fresh core.Card) (string, error) {
	a := core.RenderCard(stored) + "\n"
	b := core.RenderCard(fresh) + "\n"
	from, to := "stored"+header(stored), "source"+header(fresh)
	if a == b {
		if header(stored) == header(fresh) {
			return "", nil
		}
		// metadata only
		return "--- " + from + "\n+++ " + to + "\n", nil
	}
	return Unified(from, to, a, b, DefaultContext)
}

func header(c core.Card) string {
	var sb strings.Builder
	if c.File != "" {
		sb.WriteString(" ")
		sb.WriteString(c.File)
	}
	if c.ID != "" {
		sb.WriteString(" id=")
		sb.WriteString(c.ID)
	}
	sb.WriteString(" level=")
	sb.WriteString(strconv.Itoa(c.Level))
	return sb.String()
}

// splitLinesKeepNL splits s into lines, each keeping its trailing newline.
// A missing final newline is added so the last line diffs cleanly.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if last := lines[len(lines)-1]; !strings.HasSuffix(last, "\n") {
		lines[len(lines)-1] = last + "\n"
	}
	return lines
}
