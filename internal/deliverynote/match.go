package deliverynote

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MatchStatus represents the status of a match operation
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	case Unmatched:
		return "unmatched"
	default:
		return "unknown"
	}
}

// Item is an inventory item a line can resolve to.
type Item struct {
	ID   uuid.UUID
	Name string
	Unit string
}

// MatchResult contains the result of a matching operation
type MatchResult struct {
	Status     MatchStatus
	Item       *Item  // when Matched
	Candidates []Item // when Ambiguous
}

// Matcher resolves free-text descriptions to inventory items by the words
// of their names.
type Matcher struct {
	items  []Item
	tokens [][]string // pre-tokenized names per item
}

// New creates a Matcher with pre-tokenized item names.
func New(items []Item) *Matcher {
	m := &Matcher{
		items:  items,
		tokens: make([][]string, len(items)),
	}
	for i, item := range items {
		m.tokens[i] = strings.Fields(normalize(item.Name))
	}
	return m
}

// Match scores every item by how many of its name words appear in text.
// An exact name match wins outright. Items whose name has words missing
// from text lose to items fully covered by it, so "red onion" picks
// "Red Onion" over "Onion".
func (m *Matcher) Match(text string) MatchResult {
	normalized := normalize(text)
	input := make(map[string]bool)
	for _, tok := range strings.Fields(normalized) {
		input[tok] = true
	}

	type scoredItem struct {
		item    Item
		score   int
		covered bool
	}
	var scored []scoredItem

	for i, item := range m.items {
		words := m.tokens[i]
		if len(words) == 0 {
			continue
		}
		if strings.Join(words, " ") == normalized {
			return MatchResult{Status: Matched, Item: &m.items[i]}
		}

		score := 0
		for _, w := range words {
			if input[w] || input[singular(w)] || input[w+"s"] {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, scoredItem{item: item, score: score, covered: score == len(words)})
		}
	}

	if len(scored) == 0 {
		return MatchResult{Status: Unmatched}
	}

	// Fully covered names beat partial hits.
	anyCovered := false
	for _, s := range scored {
		if s.covered {
			anyCovered = true
			break
		}
	}

	maxScore := 0
	for _, s := range scored {
		if anyCovered && !s.covered {
			continue
		}
		if s.score > maxScore {
			maxScore = s.score
		}
	}

	var top []Item
	for _, s := range scored {
		if anyCovered && !s.covered {
			continue
		}
		if s.score == maxScore {
			top = append(top, s.item)
		}
	}

	if len(top) == 1 {
		return MatchResult{Status: Matched, Item: &top[0]}
	}
	return MatchResult{Status: Ambiguous, Candidates: top}
}

// normalize lowercases s and replaces non-alphanumeric runes with spaces,
// collapsing runs of whitespace.
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func singular(w string) string {
	if len(w) > 3 && strings.HasSuffix(w, "s") {
		return w[:len(w)-1]
	}
	return w
}
