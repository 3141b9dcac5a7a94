// Package party resolves the many ways people write a political party name
// (abbreviations, nicknames, election symbols, English or Devanagari) to the
// canonical name stored in the election dataset.
//
// The table is loaded once and never mutated, so a Normalizer is safe for
// concurrent use.
package party

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed parties.yaml
var defaultTable []byte

var (
	// ErrDuplicateAlias is returned when one alias maps to two parties.
	ErrDuplicateAlias = errors.New("duplicate party alias")
	// ErrInvalidEntry is returned for entries missing required fields.
	ErrInvalidEntry = errors.New("invalid party entry")
)

// minPartialRunes is the shortest input that may match inside a longer alias.
const minPartialRunes = 2

// Entry is one party in the alias table.
type Entry struct {
	Key           string   `yaml:"key" json:"key"`
	CanonicalName string   `yaml:"canonical_name" json:"canonical_name"`
	DisplayName   string   `yaml:"display_name" json:"display_name"`
	Symbol        string   `yaml:"symbol" json:"symbol"`
	Aliases       []string `yaml:"aliases" json:"aliases"`
}

type tableFile struct {
	Parties []Entry `yaml:"parties"`
}

// lookupKey is one searchable string, kept in definition order for the
// partial-match scan.
type lookupKey struct {
	folded string
	runes  int
	entry  int
}

// Normalizer maps free-text party names to canonical names.
type Normalizer struct {
	entries []Entry
	index   map[string]int // folded key -> entry position
	keys    []lookupKey
}

// Load reads a YAML alias table.
func Load(r io.Reader) (*Normalizer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading party table: %w", err)
	}
	return Parse(data)
}

// Parse builds a Normalizer from YAML table data.
func Parse(data []byte) (*Normalizer, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing party table: %w", err)
	}
	return New(tf.Parties)
}

// New builds a Normalizer over entries. The key, canonical name, display name
// and every alias of an entry are indexed; any of them pointing at two
// different entries is an ErrDuplicateAlias.
func New(entries []Entry) (*Normalizer, error) {
	n := &Normalizer{
		entries: make([]Entry, len(entries)),
		index:   make(map[string]int),
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Key) == "" || strings.TrimSpace(e.CanonicalName) == "" {
			return nil, fmt.Errorf("%w: entry %d needs key and canonical_name", ErrInvalidEntry, i)
		}
		e.Aliases = append([]string(nil), e.Aliases...)
		n.entries[i] = e

		names := []string{e.Key, e.CanonicalName}
		if e.DisplayName != "" {
			names = append(names, e.DisplayName)
		}
		names = append(names, e.Aliases...)
		for _, name := range names {
			folded := fold(name)
			if folded == "" {
				return nil, fmt.Errorf("%w: %q has an empty alias", ErrInvalidEntry, e.Key)
			}
			if prev, ok := n.index[folded]; ok {
				if prev != i {
					return nil, fmt.Errorf("%w: %q maps to both %q and %q",
						ErrDuplicateAlias, name, entries[prev].Key, e.Key)
				}
				continue
			}
			n.index[folded] = i
			n.keys = append(n.keys, lookupKey{
				folded: folded,
				runes:  utf8.RuneCountInString(folded),
				entry:  i,
			})
		}
	}

	return n, nil
}

var loadDefault = sync.OnceValues(func() (*Normalizer, error) {
	return Parse(defaultTable)
})

// Default returns the Normalizer over the built-in table.
func Default() *Normalizer {
	n, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("party: built-in table is invalid: %v", err))
	}
	return n
}

// Normalize returns the canonical name input refers to, or input unchanged
// when nothing matches. An unchanged result means "unresolved", not
// "already canonical"; use Lookup to tell the two apart.
func (n *Normalizer) Normalize(input string) string {
	if canonical, ok := n.Lookup(input); ok {
		return canonical
	}
	return input
}

// Lookup returns the canonical name for input and whether it resolved.
func (n *Normalizer) Lookup(input string) (string, bool) {
	e, ok := n.Resolve(input)
	if !ok {
		return "", false
	}
	return e.CanonicalName, true
}

// Resolve returns the full entry input refers to.
//
// Matching runs in two stages: an exact match on the folded input, then a
// partial match where the input contains a key or a key contains the input.
// Among partial matches the one with the longest overlap wins; ties go to the
// key closest in length to the input, then to the earliest definition.
func (n *Normalizer) Resolve(input string) (Entry, bool) {
	folded := fold(input)
	if folded == "" {
		return Entry{}, false
	}

	if i, ok := n.index[folded]; ok {
		return n.entry(i), true
	}

	inputRunes := utf8.RuneCountInString(folded)
	best := -1
	bestOverlap, bestDiff := 0, 0
	for pos, k := range n.keys {
		var overlap int
		switch {
		case strings.Contains(folded, k.folded):
			overlap = k.runes
		case inputRunes >= minPartialRunes && strings.Contains(k.folded, folded):
			overlap = inputRunes
		default:
			continue
		}
		diff := k.runes - inputRunes
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || overlap > bestOverlap || (overlap == bestOverlap && diff < bestDiff) {
			best, bestOverlap, bestDiff = pos, overlap, diff
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return n.entry(n.keys[best].entry), true
}

// Entries returns the table in definition order.
func (n *Normalizer) Entries() []Entry {
	out := make([]Entry, len(n.entries))
	for i := range n.entries {
		out[i] = n.entry(i)
	}
	return out
}

// AllNames returns every key, canonical name, display name and alias,
// de-duplicated and sorted.
func (n *Normalizer) AllNames() []string {
	seen := make(map[string]struct{})
	for _, e := range n.entries {
		for _, name := range append([]string{e.Key, e.CanonicalName, e.DisplayName}, e.Aliases...) {
			if name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MappingContext renders the table as plain text for query generators that
// need to know which names refer to which party.
func (n *Normalizer) MappingContext() string {
	var b strings.Builder
	b.WriteString("=== POLITICAL PARTY MAPPING ===\n\n")
	b.WriteString("Parties are stored under their official Nepali name. Map these aliases before filtering:\n\n")
	for _, e := range n.entries {
		fmt.Fprintf(&b, "Official Name (English): %s\n", e.DisplayName)
		fmt.Fprintf(&b, "Official Name (Nepali): %s\n", e.CanonicalName)
		if e.Symbol != "" {
			fmt.Fprintf(&b, "Symbol: %s\n", e.Symbol)
		}
		fmt.Fprintf(&b, "Aliases/Shortcuts: %s\n\n", strings.Join(e.Aliases, ", "))
	}
	b.WriteString("Always filter using the official Nepali name.\n")
	return b.String()
}

func (n *Normalizer) entry(i int) Entry {
	e := n.entries[i]
	e.Aliases = append([]string(nil), e.Aliases...)
	return e
}

// fold canonicalizes a name for comparison: NFC, trimmed, lowercased.
func fold(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(s)
}
