package mapper

import (
	"fmt"
	"strings"

	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/template"
)

// Base is a mapper for operators that have no parameters or weights. It
// is embedded by the concrete mappers, which override the steps they need.
type Base struct {
	Operation string
}

// TargetName implements Mapper
func (b *Base) TargetName(node *graph.Node) (string, error) {
	return b.Operation, nil
}

// ConvertParams implements Mapper
func (b *Base) ConvertParams(node *graph.Node) (*template.Args, error) {
	return template.NewArgs(), nil
}

// ConvertWeights implements Mapper
func (b *Base) ConvertWeights(node *graph.Node) (map[string]template.WeightBinding, error) {
	return map[string]template.WeightBinding{}, nil
}

// BuildSnippet implements Mapper
func (b *Base) BuildSnippet(req *SnippetRequest) (*template.Snippet, error) {
	return BaseSnippet(req)
}

// BaseSnippet builds the default template: one constructor call with the
// converted keyword arguments and one forward call on the wired inputs.
func BaseSnippet(req *SnippetRequest) (*template.Snippet, error) {
	if req.Operation == "" {
		return nil, converrors.NewMissingTargetOperator(opType(req.Node))
	}

	slot := req.Slot
	frag := template.NewFragment(slot)
	frag.Init = []string{constructorLine(slot, req.Operation, req.Args)}
	frag.Construct = []string{forwardLine(slot, []string{template.Ref(template.InputsKey)})}

	return newSnippet(frag, req), nil
}

func newSnippet(frag *template.Fragment, req *SnippetRequest) *template.Snippet {
	msg := template.NewExchange(req.Slot, req.Operation, req.Args)
	msg.Weights = req.Weights
	msg.TrainableParams = req.Trainable

	return &template.Snippet{
		Fragment:       frag,
		Exchange:       msg,
		Outputs:        []string{outputRef(req.Slot)},
		OutputsMapping: template.SingleOutput(),
	}
}

// constructorLine renders "self.{slot} = op(k={k}, ...)"
func constructorLine(slot, op string, args *template.Args) string {
	kw := ""
	if args != nil {
		kw = args.Keyword()
	}
	return fmt.Sprintf("self.%s = %s(%s)", template.Ref(slot), op, kw)
}

// forwardLine renders "opt_{slot} = self.{slot}(inputs...)"
func forwardLine(slot string, inputs []string) string {
	return fmt.Sprintf("%s = self.%s(%s)", outputRef(slot), template.Ref(slot), strings.Join(inputs, ", "))
}

func outputRef(slot string) string {
	return "opt_" + template.Ref(slot)
}

// memberRef returns "self.{slot}_suffix"
func memberRef(slot, suffix string) string {
	return "self." + template.Ref(slot) + "_" + suffix
}

func opType(node *graph.Node) string {
	if node == nil {
		return ""
	}
	return node.OpType
}
