package mapper

import (
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/template"
)

// MatMulMapper maps MatMul to nn.MatMul. A constant right-hand operand in
// weight slot 0 becomes the learned parameter "w".
type MatMulMapper struct {
	Base
}

// NewMatMulMapper creates the MatMul mapper
func NewMatMulMapper() *MatMulMapper {
	return &MatMulMapper{Base: Base{Operation: "nn.MatMul"}}
}

// ConvertWeights implements Mapper
func (m *MatMulMapper) ConvertWeights(node *graph.Node) (map[string]template.WeightBinding, error) {
	w, ok := node.Weight(0)
	if !ok {
		return map[string]template.WeightBinding{}, nil
	}
	return map[string]template.WeightBinding{
		"w": {Data: w.Tensor, Type: template.WeightParameter, SourceName: w.SourceName},
	}, nil
}

// BuildSnippet implements Mapper
func (m *MatMulMapper) BuildSnippet(req *SnippetRequest) (*template.Snippet, error) {
	snippet, err := BaseSnippet(req)
	if err != nil {
		return nil, err
	}
	if len(req.Weights) == 0 {
		return snippet, nil
	}

	slot := req.Slot
	w, _ := req.Node.Weight(0)

	// The weight is a required operand, so it is appended when the front
	// end recorded no position for it.
	inputs := []string{template.Ref(template.InputsKey)}
	weightRef := memberRef(slot, "w")
	if w.Location == graph.NoLocation {
		inputs = append(inputs, weightRef)
	} else if inputs, err = InsertWeight(inputs, w.Location, weightRef); err != nil {
		return nil, err
	}

	frag := template.NewFragment(slot)
	frag.Init = []string{
		constructorLine(slot, req.Operation, req.Args),
		weightRef + " = " + template.ParamRef(slot, "w"),
	}
	frag.Construct = []string{forwardLine(slot, inputs)}

	snippet = newSnippet(frag, req)
	snippet.Exchange.ParametersDeclared = map[string]string{"w": ""}
	return snippet, nil
}
