package mapper

import (
	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/template"
)

// BinaryMapper maps element-wise binary operators whose second operand may
// be a constant stored in weight slot 0
type BinaryMapper struct {
	Base
	// Operand names the constant operand member, e.g. "bias"
	Operand string
}

// NewBinaryMapper creates a binary operator mapper
func NewBinaryMapper(op, operand string) *BinaryMapper {
	return &BinaryMapper{Base: Base{Operation: op}, Operand: operand}
}

// ConvertWeights implements Mapper. Only shaped constants are trainable;
// scalars are embedded as literals by BuildSnippet.
func (m *BinaryMapper) ConvertWeights(node *graph.Node) (map[string]template.WeightBinding, error) {
	w, ok := node.Weight(0)
	if !ok || !w.Tensor.HasShape() {
		return map[string]template.WeightBinding{}, nil
	}
	return map[string]template.WeightBinding{
		m.Operand: {Data: w.Tensor, Type: template.WeightParameter, SourceName: w.SourceName},
	}, nil
}

// BuildSnippet implements Mapper
func (m *BinaryMapper) BuildSnippet(req *SnippetRequest) (*template.Snippet, error) {
	snippet, err := BaseSnippet(req)
	if err != nil {
		return nil, err
	}
	if len(req.Node.Weights) == 0 {
		return snippet, nil
	}

	w, ok := req.Node.Weight(0)
	if !ok {
		return nil, converrors.NewMalformedWeight(req.Node.OpType, "constant operand must be in weight slot 0")
	}

	slot := req.Slot
	operandRef := memberRef(slot, m.Operand)
	inputs, err := InsertWeight([]string{template.Ref(template.InputsKey)}, w.Location, operandRef)
	if err != nil {
		return nil, err
	}

	var initTensor string
	if w.Tensor.HasShape() {
		shapeKey := m.Operand + "_shape"
		dtypeKey := m.Operand + "_dtype"
		req.Args.Set(shapeKey, w.Tensor.Shape)
		req.Args.Set(dtypeKey, template.Expr(w.Tensor.DType))
		initTensor = operandRef + " = Parameter(Tensor(np.random.uniform(0, 1, " + template.Ref(shapeKey) +
			").astype(np." + template.Ref(dtypeKey) + ")), name=None)"
	} else {
		valueKey := m.Operand + "_value"
		req.Args.Set(valueKey, w.Tensor.List())
		initTensor = operandRef + " = " + template.Ref(valueKey)
	}

	frag := template.NewFragment(slot)
	frag.Init = []string{constructorLine(slot, req.Operation, nil), initTensor}
	frag.Construct = []string{forwardLine(slot, inputs)}

	return newSnippet(frag, req), nil
}
