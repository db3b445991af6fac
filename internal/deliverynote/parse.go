// Package deliverynote turns a supplier's free-text delivery note into
// restock lines matched against inventory items.
package deliverynote

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Note is a parsed delivery note.
type Note struct {
	Supplier string
	Lines    []Line
	Warnings []string // lines that failed to parse
}

// Line is one delivered item, e.g. "chicken thigh 5kg".
type Line struct {
	Raw         string
	Description string
	Quantity    decimal.Decimal
	Unit        string
}

// unitAliases maps every accepted spelling to its canonical unit.
var unitAliases = map[string]string{
	"kg": "kg", "kgs": "kg", "kilo": "kg", "kilos": "kg",
	"g": "g", "gr": "g", "gram": "g", "grams": "g",
	"l": "l", "ltr": "l", "liter": "l", "litre": "l", "liters": "l", "litres": "l",
	"ml": "ml",
	"pcs": "pcs", "pc": "pcs", "piece": "pcs", "pieces": "pcs", "x": "pcs",
	"pack": "pack", "packs": "pack", "pk": "pack",
	"box": "box", "boxes": "box",
	"bunch": "bunch", "bunches": "bunch",
	"btl": "bottle", "bottle": "bottle", "bottles": "bottle",
	"dozen": "dozen", "doz": "dozen",
	"can": "can", "cans": "can",
	"bag": "bag", "bags": "bag",
}

// CanonicalUnit returns the canonical spelling of unit, or "" if unknown.
func CanonicalUnit(unit string) string {
	return unitAliases[strings.ToLower(strings.TrimSpace(unit))]
}

// Parse reads a delivery note. An optional first line "supplier: <name>"
// names the supplier; every other non-empty line is an item with a quantity,
// written either "5kg" or "5 kg". Lines starting with '#' are comments.
func Parse(text string) (*Note, error) {
	note := &Note{}
	first := true

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if first {
			first = false
			if name, ok := supplierLine(line); ok {
				note.Supplier = name
				continue
			}
		}

		item, err := parseItemLine(line)
		if err != nil {
			note.Warnings = append(note.Warnings, fmt.Sprintf("skipped %q: %v", line, err))
			continue
		}
		note.Lines = append(note.Lines, *item)
	}

	if len(note.Lines) == 0 {
		return nil, fmt.Errorf("no items found in delivery note")
	}
	return note, nil
}

func supplierLine(line string) (string, bool) {
	key, value, ok := strings.Cut(line, ":")
	if !ok || !strings.EqualFold(strings.TrimSpace(key), "supplier") {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func parseItemLine(line string) (*Line, error) {
	tokens := strings.Fields(strings.ToLower(line))

	var (
		qty        decimal.Decimal
		unit       string
		qtyFound   bool
		descTokens []string
	)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !qtyFound {
			if q, u, ok := parseQtyUnitToken(tok); ok {
				qty, unit, qtyFound = q, u, true
				continue
			}
			// "5 kg": a bare number followed by a unit
			if q, err := decimal.NewFromString(tok); err == nil && i+1 < len(tokens) {
				if u := CanonicalUnit(tokens[i+1]); u != "" {
					qty, unit, qtyFound = q, u, true
					i++
					continue
				}
			}
		}
		descTokens = append(descTokens, tok)
	}

	if !qtyFound {
		return nil, fmt.Errorf("no quantity with unit")
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("quantity must be > 0")
	}
	if len(descTokens) == 0 {
		return nil, fmt.Errorf("no item name")
	}

	return &Line{
		Raw:         line,
		Description: strings.Join(descTokens, " "),
		Quantity:    qty,
		Unit:        unit,
	}, nil
}

// parseQtyUnitToken parses "5kg" into (5, "kg", true). Only known units match.
func parseQtyUnitToken(tok string) (decimal.Decimal, string, bool) {
	digitEnd := 0
	for i, r := range tok {
		if unicode.IsDigit(r) || r == '.' {
			digitEnd = i + 1
		} else {
			break
		}
	}
	if digitEnd == 0 || digitEnd == len(tok) {
		return decimal.Zero, "", false
	}

	unit := CanonicalUnit(tok[digitEnd:])
	if unit == "" {
		return decimal.Zero, "", false
	}
	qty, err := decimal.NewFromString(tok[:digitEnd])
	if err != nil {
		return decimal.Zero, "", false
	}
	return qty, unit, true
}
