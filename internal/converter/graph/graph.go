// Package graph defines the operator graph consumed by the converter.
// Nodes are produced by an external front end and are treated as read-only.
package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
)

// NoLocation marks a weight that must not be inserted into the positional
// argument list of the generated forward call.
const NoLocation = -1

// Tensor is a dense tensor in row-major order
type Tensor struct {
	Shape []int     `json:"shape"`
	DType string    `json:"dtype"`
	Data  []float64 `json:"data"`
}

// HasShape reports whether the tensor carries shape information
func (t Tensor) HasShape() bool {
	return len(t.Shape) > 0
}

// NumElements returns the number of elements described by the shape
func (t Tensor) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// List returns the tensor contents as nested slices. A shape-less tensor
// yields its single scalar value.
func (t Tensor) List() interface{} {
	if !t.HasShape() {
		if len(t.Data) == 0 {
			return nil
		}
		return t.scalar(t.Data[0])
	}
	v, _ := t.nest(0, 0)
	return v
}

// Ints returns the flattened data converted to integers
func (t Tensor) Ints() []int {
	out := make([]int, len(t.Data))
	for i, v := range t.Data {
		out[i] = int(v)
	}
	return out
}

func (t Tensor) nest(dim, offset int) (interface{}, int) {
	size := t.Shape[dim]
	out := make([]interface{}, 0, size)
	for i := 0; i < size; i++ {
		if dim == len(t.Shape)-1 {
			var v float64
			if offset < len(t.Data) {
				v = t.Data[offset]
			}
			out = append(out, t.scalar(v))
			offset++
			continue
		}
		var child interface{}
		child, offset = t.nest(dim+1, offset)
		out = append(out, child)
	}
	return out, offset
}

func (t Tensor) scalar(v float64) interface{} {
	switch t.DType {
	case "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64":
		return int64(v)
	case "bool":
		return v != 0
	default:
		return v
	}
}

// WeightEntry is one weight slot of a node
type WeightEntry struct {
	Tensor     Tensor
	SourceName string
	Location   int
}

// Node is a single operator instance
type Node struct {
	Name        string
	OpType      string
	Inputs      []string
	Outputs     []string
	Params      map[string]interface{}
	Weights     map[int]WeightEntry
	OutputShape []int
}

// Weight returns the weight stored at slot index
func (n *Node) Weight(index int) (WeightEntry, bool) {
	w, ok := n.Weights[index]
	return w, ok
}

// WeightIndices returns the populated weight slots in ascending order
func (n *Node) WeightIndices() []int {
	indices := make([]int, 0, len(n.Weights))
	for i := range n.Weights {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Param returns a raw parameter value
func (n *Node) Param(name string) (interface{}, bool) {
	v, ok := n.Params[name]
	return v, ok
}

// IntParam returns an integer parameter or defaultVal when absent or not numeric
func (n *Node) IntParam(name string, defaultVal int) int {
	v, ok := n.Params[name]
	if !ok {
		return defaultVal
	}
	if i, ok := toInt(v); ok {
		return i
	}
	return defaultVal
}

// IntsParam returns an integer list parameter
func (n *Node) IntsParam(name string) ([]int, bool) {
	v, ok := n.Params[name]
	if !ok {
		return nil, false
	}
	return toInts(v)
}

// Graph is an ordered list of nodes with named graph-level inputs and outputs.
// Nodes are expected in topological order.
type Graph struct {
	Name    string
	Inputs  []string
	Outputs []string
	Nodes   []*Node
}

// OpTypes returns the operator-kind token of every node in scan order
func (g *Graph) OpTypes() []string {
	tokens := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		tokens[i] = n.OpType
	}
	return tokens
}

// Degrees returns the number of edges entering and leaving the node range
// [start, end) from the rest of the graph. Graph inputs and outputs count
// as external endpoints.
func (g *Graph) Degrees(start, end int) (in, out int) {
	inside := make(map[string]bool)
	for i := start; i < end && i < len(g.Nodes); i++ {
		for _, o := range g.Nodes[i].Outputs {
			inside[o] = true
		}
	}

	seenIn := make(map[string]bool)
	for i := start; i < end && i < len(g.Nodes); i++ {
		for _, name := range g.Nodes[i].Inputs {
			if !inside[name] && !seenIn[name] {
				seenIn[name] = true
				in++
			}
		}
	}

	consumedOutside := make(map[string]bool)
	for i, n := range g.Nodes {
		if i >= start && i < end {
			continue
		}
		for _, name := range n.Inputs {
			if inside[name] {
				consumedOutside[name] = true
			}
		}
	}
	for _, name := range g.Outputs {
		if inside[name] {
			consumedOutside[name] = true
		}
	}
	return in, len(consumedOutside)
}

type tensorJSON struct {
	Index    int       `json:"index"`
	Name     string    `json:"name"`
	Location *int      `json:"location"`
	Shape    []int     `json:"shape"`
	DType    string    `json:"dtype"`
	Data     []float64 `json:"data"`
}

type nodeJSON struct {
	Name        string                 `json:"name"`
	OpType      string                 `json:"op_type"`
	Inputs      []string               `json:"inputs"`
	Outputs     []string               `json:"outputs"`
	Params      map[string]interface{} `json:"params"`
	Weights     []tensorJSON           `json:"weights"`
	OutputShape []int                  `json:"output_shape"`
}

type graphJSON struct {
	Name    string     `json:"name"`
	Inputs  []string   `json:"inputs"`
	Outputs []string   `json:"outputs"`
	Nodes   []nodeJSON `json:"nodes"`
}

// Decode reads a JSON graph description
func Decode(r io.Reader) (*Graph, error) {
	var raw graphJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	g := &Graph{
		Name:    raw.Name,
		Inputs:  raw.Inputs,
		Outputs: raw.Outputs,
		Nodes:   make([]*Node, 0, len(raw.Nodes)),
	}

	for i, rn := range raw.Nodes {
		if rn.OpType == "" {
			return nil, fmt.Errorf("node %d (%s) has no op_type", i, rn.Name)
		}
		node := &Node{
			Name:        rn.Name,
			OpType:      rn.OpType,
			Inputs:      rn.Inputs,
			Outputs:     rn.Outputs,
			Params:      rn.Params,
			Weights:     make(map[int]WeightEntry, len(rn.Weights)),
			OutputShape: rn.OutputShape,
		}
		if node.Name == "" {
			node.Name = fmt.Sprintf("%s_%d", rn.OpType, i)
		}
		if node.Params == nil {
			node.Params = make(map[string]interface{})
		}
		if node.OutputShape == nil {
			if shape, ok := node.IntsParam("output_shape"); ok {
				node.OutputShape = shape
			}
		} else if _, ok := node.Params["output_shape"]; !ok {
			node.Params["output_shape"] = node.OutputShape
		}

		for _, w := range rn.Weights {
			if _, dup := node.Weights[w.Index]; dup {
				return nil, fmt.Errorf("node %s: duplicate weight index %d", node.Name, w.Index)
			}
			loc := NoLocation
			if w.Location != nil {
				loc = *w.Location
			}
			dtype := w.DType
			if dtype == "" {
				dtype = "float32"
			}
			node.Weights[w.Index] = WeightEntry{
				Tensor:     Tensor{Shape: w.Shape, DType: dtype, Data: w.Data},
				SourceName: w.Name,
				Location:   loc,
			}
		}
		g.Nodes = append(g.Nodes, node)
	}

	return g, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// floatToInt accepts only integral values; JSON numbers decode as float64
func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func toInts(v interface{}) ([]int, bool) {
	switch list := v.(type) {
	case []int:
		return list, true
	case []int64:
		out := make([]int, len(list))
		for i, x := range list {
			out[i] = int(x)
		}
		return out, true
	case []interface{}:
		out := make([]int, len(list))
		for i, x := range list {
			n, ok := toInt(x)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}
