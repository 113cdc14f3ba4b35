package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGraph = `{
  "name": "tiny",
  "inputs": ["x"],
  "outputs": ["y"],
  "nodes": [
    {
      "name": "MatMul_0",
      "op_type": "MatMul",
      "inputs": ["x", "W"],
      "outputs": ["t0"],
      "weights": [
        {"index": 0, "name": "W", "location": 1, "shape": [2, 2], "dtype": "float32", "data": [1, 2, 3, 4]}
      ]
    },
    {
      "op_type": "Relu",
      "inputs": ["t0"],
      "outputs": ["y"],
      "output_shape": [1, 2]
    }
  ]
}`

func TestDecode(t *testing.T) {
	g, err := Decode(strings.NewReader(sampleGraph))
	require.NoError(t, err)

	assert.Equal(t, "tiny", g.Name)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, []string{"MatMul", "Relu"}, g.OpTypes())

	mm := g.Nodes[0]
	w, ok := mm.Weight(0)
	require.True(t, ok)
	assert.Equal(t, "W", w.SourceName)
	assert.Equal(t, 1, w.Location)
	assert.Equal(t, []int{2, 2}, w.Tensor.Shape)

	relu := g.Nodes[1]
	assert.Equal(t, "Relu_1", relu.Name)
	assert.Equal(t, []int{1, 2}, relu.OutputShape)
	shape, ok := relu.IntsParam("output_shape")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, shape)
}

func TestDecode_DefaultLocation(t *testing.T) {
	g, err := Decode(strings.NewReader(`{"nodes":[{"op_type":"Sub","weights":[{"index":0,"data":[1]}]}]}`))
	require.NoError(t, err)

	w, ok := g.Nodes[0].Weight(0)
	require.True(t, ok)
	assert.Equal(t, NoLocation, w.Location)
	assert.Equal(t, "float32", w.Tensor.DType)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"nodes":[{"name":"n"}]}`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`{"nodes":[{"op_type":"Add","weights":[{"index":0},{"index":0}]}]}`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestTensorList(t *testing.T) {
	scalar := Tensor{DType: "float32", Data: []float64{0.5}}
	assert.Equal(t, 0.5, scalar.List())

	ints := Tensor{Shape: []int{3}, DType: "int64", Data: []float64{1, 2, 3}}
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, ints.List())

	matrix := Tensor{Shape: []int{2, 2}, DType: "float32", Data: []float64{1, 2, 3, 4}}
	assert.Equal(t, []interface{}{
		[]interface{}{1.0, 2.0},
		[]interface{}{3.0, 4.0},
	}, matrix.List())
	assert.Equal(t, 4, matrix.NumElements())
}

func TestGraphDegrees(t *testing.T) {
	g := &Graph{
		Inputs:  []string{"x"},
		Outputs: []string{"z"},
		Nodes: []*Node{
			{OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}},
			{OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"b"}},
			{OpType: "Add", Inputs: []string{"b", "x"}, Outputs: []string{"z"}},
		},
	}

	in, out := g.Degrees(0, 2)
	assert.Equal(t, 1, in)
	assert.Equal(t, 1, out)

	in, out = g.Degrees(1, 3)
	assert.Equal(t, 2, in)
	assert.Equal(t, 1, out)
}

func TestNodeParams(t *testing.T) {
	n := &Node{Params: map[string]interface{}{
		"axis": float64(1),
		"perm": []interface{}{float64(0), float64(2), float64(1)},
		"frac": 1.7,
		"bad":  []interface{}{float64(0), 0.5},
	}}

	assert.Equal(t, 1, n.IntParam("axis", -1))
	assert.Equal(t, -1, n.IntParam("missing", -1))
	assert.Equal(t, -1, n.IntParam("frac", -1))

	_, ok := n.IntsParam("bad")
	assert.False(t, ok)

	perm, ok := n.IntsParam("perm")
	require.True(t, ok)
	assert.Equal(t, []int{0, 2, 1}, perm)
}
