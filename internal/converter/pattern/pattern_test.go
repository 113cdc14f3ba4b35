package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p := New("Conv->Relu->MaxPool", 3, 1, 1)

	assert.Equal(t, []string{"Conv", "Relu", "MaxPool"}, p.Items)
	assert.Equal(t, 3, p.Length)
	assert.Equal(t, 0, p.Count)
	assert.Empty(t, p.StartIndex)
	assert.Empty(t, p.EndIndex)
	assert.Empty(t, p.ModuleName)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Ptn: Conv->Relu->MaxPool[Not init], count=0", p.String())
}

func TestInsert_Idempotent(t *testing.T) {
	p := New("MatMul->Add", 2, 1, 1)

	p.Insert(4)
	count, starts, ends := p.Count, len(p.StartIndex), len(p.EndIndex)

	p.Insert(4)
	assert.Equal(t, count, p.Count)
	assert.Len(t, p.StartIndex, starts)
	assert.Len(t, p.EndIndex, ends)
	assert.Equal(t, 1, p.Count)
}

func TestInsert_Accumulates(t *testing.T) {
	p := New("MatMul->Add->Relu", 3, 1, 1)
	starts := []int{0, 5, 9, 20}
	for _, s := range starts {
		p.Insert(s)
	}

	assert.Equal(t, len(starts), p.Count)
	require.Len(t, p.StartIndex, len(starts))
	require.Len(t, p.EndIndex, len(starts))
	for j := range starts {
		assert.Equal(t, p.StartIndex[j]+p.Length, p.EndIndex[j])
	}
	assert.Equal(t, [][2]int{{0, 3}, {5, 8}, {9, 12}, {20, 23}}, p.Occurrences())
}

func TestTracker_GetOrCreate(t *testing.T) {
	tracker := NewTracker()

	a := tracker.GetOrCreate("MatMul->Add", 2, 1, 1)
	b := tracker.GetOrCreate("MatMul->Add", 2, 1, 1)
	assert.Same(t, a, b)

	// Same tokens, different boundary connectivity: a distinct pattern
	c := tracker.GetOrCreate("MatMul->Add", 2, 2, 1)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, tracker.Len())

	tracker.Insert(a, 0)
	tracker.Insert(c, 3)
	assert.Equal(t, 1, a.Count)
	assert.Equal(t, 1, c.Count)

	got, ok := tracker.Lookup(Key{Pattern: "MatMul->Add", InDegree: 2, OutDegree: 1})
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, c.Key(), got.Key())

	assert.Equal(t, []*Pattern{a, c}, tracker.Patterns())
}

func TestScan(t *testing.T) {
	tokens := []string{"MatMul", "Add", "Relu", "MatMul", "Add", "Relu", "Softmax"}
	tracker := NewTracker()

	require.NoError(t, Scan(tracker, tokens, ScanOptions{MinLength: 2, MaxLength: 3}))

	p, ok := tracker.Lookup(Key{Pattern: "MatMul->Add->Relu"})
	require.True(t, ok)
	assert.Equal(t, 2, p.Count)
	assert.Equal(t, []int{0, 3}, p.StartIndex)
	assert.Equal(t, []int{3, 6}, p.EndIndex)

	tail, ok := tracker.Lookup(Key{Pattern: "Relu->Softmax"})
	require.True(t, ok)
	assert.Equal(t, 1, tail.Count)
}

func TestScan_SkipsOverlaps(t *testing.T) {
	tracker := NewTracker()
	require.NoError(t, Scan(tracker, []string{"Relu", "Relu", "Relu"}, ScanOptions{MinLength: 2, MaxLength: 2}))

	p, ok := tracker.Lookup(Key{Pattern: "Relu->Relu"})
	require.True(t, ok)
	assert.Equal(t, 1, p.Count)
	assert.Equal(t, []int{0}, p.StartIndex)
}

func TestScan_Degrees(t *testing.T) {
	tracker := NewTracker()
	degrees := func(start, end int) (int, int) {
		if start == 0 {
			return 1, 1
		}
		return 2, 1
	}

	tokens := []string{"Add", "Relu", "Add", "Relu"}
	require.NoError(t, Scan(tracker, tokens, ScanOptions{MinLength: 2, MaxLength: 2, Degrees: degrees}))

	first, ok := tracker.Lookup(Key{Pattern: "Add->Relu", InDegree: 1, OutDegree: 1})
	require.True(t, ok)
	second, ok := tracker.Lookup(Key{Pattern: "Add->Relu", InDegree: 2, OutDegree: 1})
	require.True(t, ok)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 1, second.Count)
}

func TestScan_InvalidOptions(t *testing.T) {
	assert.Error(t, Scan(NewTracker(), []string{"Add"}, ScanOptions{MinLength: 0, MaxLength: 2}))
	assert.Error(t, Scan(NewTracker(), []string{"Add"}, ScanOptions{MinLength: 3, MaxLength: 2}))
}

func TestAssignModuleNames(t *testing.T) {
	tokens := []string{"MatMul", "Add", "Relu", "MatMul", "Add", "Relu"}
	tracker := NewTracker()
	require.NoError(t, Scan(tracker, tokens, ScanOptions{MinLength: 2, MaxLength: 3}))

	named := AssignModuleNames(tracker.Patterns(), 2)
	require.NotEmpty(t, named)

	assert.Equal(t, "MatMul->Add->Relu", named[0].Pattern)
	assert.Equal(t, "Module0", named[0].ModuleName)
	assert.Equal(t, "Ptn: MatMul->Add->Relu[Module0], count=2", named[0].String())

	for _, p := range named {
		assert.GreaterOrEqual(t, p.Count, 2)
	}
	for _, p := range tracker.Patterns() {
		if p.Count < 2 {
			assert.Empty(t, p.ModuleName)
		}
	}
}

func TestAssignModuleNames_NonPositiveThreshold(t *testing.T) {
	tracker := NewTracker()
	tracker.GetOrCreate("Add->Relu", 2, 1, 1)
	tracker.GetOrCreate("Sub->Relu", 2, 1, 1)
	used := tracker.GetOrCreate("Mul->Relu", 2, 1, 1)
	tracker.Insert(used, 4)

	var named []*Pattern
	require.NotPanics(t, func() { named = AssignModuleNames(tracker.Patterns(), 0) })
	require.Len(t, named, 1)
	assert.Equal(t, "Mul->Relu", named[0].Pattern)
	assert.Equal(t, "Module0", named[0].ModuleName)
}
