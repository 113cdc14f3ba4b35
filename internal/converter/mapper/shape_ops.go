package mapper

import (
	"sort"

	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/template"
)

// SliceMapper maps Slice to P.Slice. The begin offsets come from the
// starts/ends/axes constants, the size from the declared output shape.
type SliceMapper struct {
	Base
}

// NewSliceMapper creates the Slice mapper
func NewSliceMapper() *SliceMapper {
	return &SliceMapper{Base: Base{Operation: "P.Slice"}}
}

// BuildSnippet implements Mapper
func (m *SliceMapper) BuildSnippet(req *SnippetRequest) (*template.Snippet, error) {
	snippet, err := BaseSnippet(req)
	if err != nil {
		return nil, err
	}

	node := req.Node
	slots := node.WeightIndices()
	if len(slots) == 0 {
		return nil, converrors.NewMalformedWeight(node.OpType, "no starts/ends/axes weights")
	}
	if len(node.OutputShape) == 0 {
		return nil, converrors.NewUnsupportedParameterValue("output_shape", nil)
	}

	// Weights are ordered starts, ends, axes.
	starts := node.Weights[slots[0]].Tensor.Ints()
	axes := make([]int, len(starts))
	for i := range axes {
		axes[i] = i
	}
	if len(slots) >= 3 {
		axes = node.Weights[slots[2]].Tensor.Ints()
	}
	if len(axes) != len(starts) {
		return nil, converrors.NewMalformedWeight(node.OpType, "starts and axes differ in length")
	}

	type startAxis struct{ start, axis int }
	pairs := make([]startAxis, len(starts))
	for i := range starts {
		pairs[i] = startAxis{start: starts[i], axis: axes[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].axis < pairs[j].axis })

	begin := make([]int, len(pairs))
	for i, p := range pairs {
		begin[i] = p.start
	}

	snippet.Fragment.SetLines(template.PhaseConstruct, []string{
		forwardLine(req.Slot, []string{
			template.Ref(template.InputsKey),
			template.FormatValue(begin),
			template.FormatValue(node.OutputShape),
		}),
	})
	return snippet, nil
}

// ReshapeMapper maps Reshape to P.Reshape with the target shape embedded
// in the forward call
type ReshapeMapper struct {
	Base
}

// NewReshapeMapper creates the Reshape mapper
func NewReshapeMapper() *ReshapeMapper {
	return &ReshapeMapper{Base: Base{Operation: "P.Reshape"}}
}

// BuildSnippet implements Mapper
func (m *ReshapeMapper) BuildSnippet(req *SnippetRequest) (*template.Snippet, error) {
	snippet, err := BaseSnippet(req)
	if err != nil {
		return nil, err
	}

	node := req.Node
	shape := node.OutputShape
	if len(shape) == 0 {
		slots := node.WeightIndices()
		if len(slots) == 0 {
			return nil, converrors.NewMalformedWeight(node.OpType, "no output shape and no shape weight")
		}
		shape = node.Weights[slots[0]].Tensor.Ints()
	}

	snippet.Fragment.SetLines(template.PhaseConstruct, []string{
		forwardLine(req.Slot, []string{template.Ref(template.InputsKey), template.FormatValue(shape)}),
	})
	return snippet, nil
}

// TransposeMapper maps Transpose to P.Transpose
type TransposeMapper struct {
	Base
}

// NewTransposeMapper creates the Transpose mapper
func NewTransposeMapper() *TransposeMapper {
	return &TransposeMapper{Base: Base{Operation: "P.Transpose"}}
}

// ConvertParams implements Mapper. Without a perm attribute the axes are
// reversed, which requires the declared output rank.
func (m *TransposeMapper) ConvertParams(node *graph.Node) (*template.Args, error) {
	perm, ok := node.IntsParam("perm")
	if !ok {
		if len(node.OutputShape) == 0 {
			return nil, converrors.NewUnsupportedParameterValue("perm", nil)
		}
		rank := len(node.OutputShape)
		perm = make([]int, rank)
		for i := range perm {
			perm[i] = rank - 1 - i
		}
	}

	args := template.NewArgs()
	args.Set("perm", perm)
	return args, nil
}

// BuildSnippet implements Mapper
func (m *TransposeMapper) BuildSnippet(req *SnippetRequest) (*template.Snippet, error) {
	if req.Operation == "" {
		return nil, converrors.NewMissingTargetOperator(opType(req.Node))
	}

	slot := req.Slot
	frag := template.NewFragment(slot)
	frag.Init = []string{constructorLine(slot, req.Operation, nil)}
	frag.Construct = []string{forwardLine(slot, []string{template.Ref(template.InputsKey), template.Ref("perm")})}

	return newSnippet(frag, req), nil
}
