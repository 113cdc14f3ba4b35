// Package pattern tracks recurring operator sequences in a linear scan of
// the graph, so repeated chains can be folded into one generated module.
package pattern

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Delimiter joins operator-kind tokens into a pattern string
const Delimiter = "->"

// Key identifies a tracked pattern. Boundary degrees are part of the key
// so two chains with the same tokens but different connectivity never share
// an occurrence list.
type Key struct {
	Pattern   string
	InDegree  int
	OutDegree int
}

// Pattern is a candidate recurring operator sequence and its occurrences
type Pattern struct {
	ID         string
	Pattern    string
	Items      []string
	Length     int
	InDegree   int
	OutDegree  int
	Count      int
	StartIndex []int
	EndIndex   []int
	// ModuleName is assigned by the folding pass, empty until then
	ModuleName string
}

// New creates a pattern with no occurrences
func New(pattern string, length, inDegree, outDegree int) *Pattern {
	return &Pattern{
		ID:         uuid.New().String(),
		Pattern:    pattern,
		Items:      strings.Split(pattern, Delimiter),
		Length:     length,
		InDegree:   inDegree,
		OutDegree:  outDegree,
		StartIndex: []int{},
		EndIndex:   []int{},
	}
}

// Join builds the pattern string of a token sequence
func Join(tokens []string) string {
	return strings.Join(tokens, Delimiter)
}

// Key returns the tracker key of the pattern
func (p *Pattern) Key() Key {
	return Key{Pattern: p.Pattern, InDegree: p.InDegree, OutDegree: p.OutDegree}
}

// Insert records an occurrence starting at start. Inserting a start index
// that is already recorded is a no-op.
func (p *Pattern) Insert(start int) {
	for _, idx := range p.StartIndex {
		if idx == start {
			return
		}
	}
	p.StartIndex = append(p.StartIndex, start)
	p.EndIndex = append(p.EndIndex, start+p.Length)
	p.Count++
}

// Occurrences returns the recorded [start, end) ranges
func (p *Pattern) Occurrences() [][2]int {
	out := make([][2]int, len(p.StartIndex))
	for i := range p.StartIndex {
		out[i] = [2]int{p.StartIndex[i], p.EndIndex[i]}
	}
	return out
}

// String implements fmt.Stringer
func (p *Pattern) String() string {
	name := p.ModuleName
	if name == "" {
		name = "Not init"
	}
	return fmt.Sprintf("Ptn: %s[%s], count=%d", p.Pattern, name, p.Count)
}

// Tracker registers patterns for the duration of one graph scan. It is
// not safe for concurrent writers.
type Tracker struct {
	patterns map[Key]*Pattern
	order    []*Pattern
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{patterns: make(map[Key]*Pattern)}
}

// GetOrCreate returns the tracked pattern for the key, creating it on
// first sight
func (t *Tracker) GetOrCreate(pattern string, length, inDegree, outDegree int) *Pattern {
	key := Key{Pattern: pattern, InDegree: inDegree, OutDegree: outDegree}
	if p, ok := t.patterns[key]; ok {
		return p
	}
	p := New(pattern, length, inDegree, outDegree)
	t.patterns[key] = p
	t.order = append(t.order, p)
	return p
}

// Lookup returns the tracked pattern for key
func (t *Tracker) Lookup(key Key) (*Pattern, bool) {
	p, ok := t.patterns[key]
	return p, ok
}

// Insert records an occurrence of p starting at start
func (t *Tracker) Insert(p *Pattern, start int) {
	p.Insert(start)
}

// Patterns returns the tracked patterns in creation order
func (t *Tracker) Patterns() []*Pattern {
	out := make([]*Pattern, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of tracked patterns
func (t *Tracker) Len() int {
	return len(t.order)
}
