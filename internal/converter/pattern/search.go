package pattern

import (
	"fmt"
	"sort"
)

// DegreeFunc reports the in-degree and out-degree of the node range
// [start, end) at its boundary with the rest of the graph
type DegreeFunc func(start, end int) (in, out int)

// ScanOptions bounds the candidate sequences enumerated by Scan
type ScanOptions struct {
	MinLength int
	MaxLength int
	Degrees   DegreeFunc
}

// Scan enumerates every contiguous token run with a length in
// [MinLength, MaxLength] and records it in t. An occurrence overlapping the
// previous occurrence of the same pattern is not recorded.
func Scan(t *Tracker, tokens []string, opts ScanOptions) error {
	if opts.MinLength < 1 || opts.MaxLength < opts.MinLength {
		return fmt.Errorf("invalid pattern lengths: min=%d max=%d", opts.MinLength, opts.MaxLength)
	}

	for length := opts.MinLength; length <= opts.MaxLength && length <= len(tokens); length++ {
		for start := 0; start+length <= len(tokens); start++ {
			end := start + length
			in, out := 0, 0
			if opts.Degrees != nil {
				in, out = opts.Degrees(start, end)
			}

			p := t.GetOrCreate(Join(tokens[start:end]), length, in, out)
			if n := len(p.EndIndex); n > 0 && p.EndIndex[n-1] > start {
				continue
			}
			t.Insert(p, start)
		}
	}
	return nil
}

// AssignModuleNames names every pattern occurring at least threshold times
// and returns them. Longer patterns are named first, then more frequent
// ones, then by first occurrence. Patterns with no occurrences are never
// named, whatever the threshold.
func AssignModuleNames(patterns []*Pattern, threshold int) []*Pattern {
	if threshold < 1 {
		threshold = 1
	}
	var selected []*Pattern
	for _, p := range patterns {
		if p.Count >= threshold && len(p.StartIndex) > 0 {
			selected = append(selected, p)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.Length != b.Length {
			return a.Length > b.Length
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.StartIndex[0] < b.StartIndex[0]
	})

	for i, p := range selected {
		p.ModuleName = fmt.Sprintf("Module%d", i)
	}
	return selected
}
