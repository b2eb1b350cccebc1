package note

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// AutoTag marks notes written by this system; its presence on an
	// order short-circuits reprocessing.
	AutoTag = "[AUTO]"

	// MaxNoteLength is the marketplace's hard cap on note text.
	MaxNoteLength = 300

	// maxDetailedProducts is the largest number of distinct products a
	// note lists in full before the biggest group collapses to "Restante".
	maxDetailedProducts = 9
)

// Entry is one flattened allocation result: a product label, the resource
// (or sentinel) it was assigned to, and the quantity taken there.
type Entry struct {
	Product    string
	Assignment string
	Quantity   int64
}

type group struct {
	products []string
	qty      map[string]int64
}

func (g *group) add(product string, qty int64) {
	if strings.TrimSpace(product) == "" {
		return
	}
	if qty <= 0 {
		qty = 1
	}
	if _, ok := g.qty[product]; !ok {
		g.products = append(g.products, product)
		g.qty[product] = qty
		return
	}
	g.qty[product] += qty
}

// GroupLines folds entries into one note line per assignment, preserving
// first-appearance order of assignments and of products within each, and
// merging duplicate (assignment, product) pairs by summing quantity.
//
// Up to maxDetailedProducts distinct products every group is rendered in
// full. Above that, groups are ordered by ascending product count (stable)
// and the largest one collapses to "<abbrev>: Restante" so huge packs
// still fit the note cap.
func GroupLines(entries []Entry) []string {
	var assignmentOrder []string
	byAssignment := make(map[string]*group)

	for _, e := range entries {
		g, ok := byAssignment[e.Assignment]
		if !ok {
			g = &group{qty: make(map[string]int64)}
			byAssignment[e.Assignment] = g
			assignmentOrder = append(assignmentOrder, e.Assignment)
		}
		g.add(e.Product, e.Quantity)
	}

	totalProducts := 0
	for _, g := range byAssignment {
		totalProducts += len(g.products)
	}

	if totalProducts <= maxDetailedProducts {
		var lines []string
		for _, name := range assignmentOrder {
			if line := renderGroup(name, byAssignment[name], false); line != "" {
				lines = append(lines, line)
			}
		}
		return lines
	}

	sorted := make([]string, len(assignmentOrder))
	copy(sorted, assignmentOrder)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(byAssignment[sorted[i]].products) < len(byAssignment[sorted[j]].products)
	})

	var lines []string
	for i, name := range sorted {
		summarize := i == len(sorted)-1
		if line := renderGroup(name, byAssignment[name], summarize); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// renderGroup renders one assignment group, either in full detail or as
// the "Restante" summary.
func renderGroup(assignment string, g *group, summarize bool) string {
	abbrev := AbbrevAssignment(assignment)

	var body string
	if summarize {
		body = "Restante"
	} else {
		parts := make([]string, 0, len(g.products))
		for _, p := range g.products {
			if q := g.qty[p]; q > 1 {
				parts = append(parts, fmt.Sprintf("%s x%d", p, q))
			} else {
				parts = append(parts, p)
			}
		}
		body = strings.Join(parts, " + ")
	}

	if strings.TrimSpace(body) == "" {
		return ""
	}
	if abbrev == "" {
		return body
	}
	return abbrev + ": " + body
}

// AbbrevAssignment shortens an assignment label for note lines: the two
// sentinels map to fixed codes, anything else keeps its first three
// characters.
func AbbrevAssignment(assignment string) string {
	trimmed := strings.TrimSpace(assignment)
	if trimmed == "" {
		return ""
	}
	switch strings.ToLower(StripDiacritics(trimmed)) {
	case "sin asignacion":
		return "SA"
	case "sin stock":
		return "SS"
	}
	runes := []rune(trimmed)
	if len(runes) <= 3 {
		return trimmed
	}
	return string(runes[:3])
}

// BuildFinalNote compacts a note body, truncates it to the marketplace
// cap minus the tag header, and guarantees exactly one "[AUTO] " prefix.
func BuildFinalNote(body string) string {
	text := compact(body)
	available := MaxNoteLength - len(AutoTag) - 1
	if available < 0 {
		available = 0
	}
	return EnsureAutoPrefix(truncate(text, available))
}

// IsAutoNote reports whether a note carries the auto tag.
func IsAutoNote(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return strings.HasPrefix(text, AutoTag)
}

// ContainsAutoNote reports whether any of the notes carries the auto tag.
func ContainsAutoNote(notes []string) bool {
	for _, n := range notes {
		if IsAutoNote(n) {
			return true
		}
	}
	return false
}

// EnsureAutoPrefix prepends the auto tag, normalizing the space after it
// when the tag is already present.
func EnsureAutoPrefix(text string) string {
	if IsAutoNote(text) {
		if strings.HasPrefix(text, AutoTag+" ") {
			return text
		}
		return AutoTag + " " + text[len(AutoTag):]
	}
	return AutoTag + " " + text
}

// compact trims every line and drops blank ones.
func compact(text string) string {
	if text == "" {
		return ""
	}
	var clean []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			clean = append(clean, line)
		}
	}
	return strings.Join(clean, "\n")
}

// truncate cuts text to at most max characters.
func truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
