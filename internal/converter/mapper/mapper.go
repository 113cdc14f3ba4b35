// Package mapper converts ONNX operator nodes into MindSpore code templates.
//
// Each supported operator kind has a Mapper implementing four steps: resolve
// the target operator name, convert parameters, extract trainable weights,
// and build the template snippet. Convert composes the steps for one node;
// the Registry resolves the Mapper for a node's operator kind.
package mapper

import (
	stderrors "errors"

	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/template"
)

// Mapper translates one kind of source operator
type Mapper interface {
	// TargetName maps the node to the MindSpore operator identifier
	TargetName(node *graph.Node) (string, error)
	// ConvertParams converts raw node parameters into keyword arguments
	ConvertParams(node *graph.Node) (*template.Args, error)
	// ConvertWeights selects the weights that become persistent tensors
	ConvertWeights(node *graph.Node) (map[string]template.WeightBinding, error)
	// BuildSnippet composes the code template for the node
	BuildSnippet(req *SnippetRequest) (*template.Snippet, error)
}

// SnippetRequest carries everything BuildSnippet needs for one node
type SnippetRequest struct {
	Node      *graph.Node
	Slot      string
	Operation string
	Args      *template.Args
	Weights   map[string]template.WeightBinding
	Trainable map[string]template.WeightBinding
}

// Convert runs the full mapping protocol of m for node. The slot is taken
// from slots, which must be scoped to a single generation pass.
func Convert(
	m Mapper,
	node *graph.Node,
	slots *template.SlotAllocator,
	trainable map[string]template.WeightBinding,
) (*template.Snippet, error) {
	op, err := m.TargetName(node)
	if err != nil {
		return nil, annotate(err, node)
	}
	if op == "" {
		return nil, converrors.NewMissingTargetOperator(node.OpType).WithNode(node.Name, node.OpType)
	}

	args, err := m.ConvertParams(node)
	if err != nil {
		return nil, annotate(err, node)
	}
	if args == nil {
		args = template.NewArgs()
	}

	weights, err := m.ConvertWeights(node)
	if err != nil {
		return nil, annotate(err, node)
	}
	if weights == nil {
		weights = map[string]template.WeightBinding{}
	}
	if trainable == nil {
		trainable = map[string]template.WeightBinding{}
	}

	snippet, err := m.BuildSnippet(&SnippetRequest{
		Node:      node,
		Slot:      slots.Next(),
		Operation: op,
		Args:      args,
		Weights:   weights,
		Trainable: trainable,
	})
	if err != nil {
		return nil, annotate(err, node)
	}
	return snippet, nil
}

// annotate attaches the node to conversion errors that lack one
func annotate(err error, node *graph.Node) error {
	var convErr *converrors.ConversionError
	if stderrors.As(err, &convErr) && convErr.Node == "" {
		convErr.WithNode(node.Name, node.OpType)
	}
	return err
}

// InsertWeight places ref at position location of inputs, shifting later
// entries right. graph.NoLocation leaves inputs untouched.
func InsertWeight(inputs []string, location int, ref string) ([]string, error) {
	if location == graph.NoLocation {
		return inputs, nil
	}
	if location < 0 || location > len(inputs) {
		return nil, converrors.NewMalformedWeight("weight", "location out of range")
	}
	out := make([]string, 0, len(inputs)+1)
	out = append(out, inputs[:location]...)
	out = append(out, ref)
	out = append(out, inputs[location:]...)
	return out, nil
}
