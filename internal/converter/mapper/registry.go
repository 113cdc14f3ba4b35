package mapper

import (
	"sort"

	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/template"
)

// Registry maps ONNX operator types to mappers
type Registry struct {
	mappers map[string]Mapper
}

// NewRegistry creates a registry with all supported operators
func NewRegistry() *Registry {
	r := &Registry{
		mappers: make(map[string]Mapper),
	}

	r.Register("MatMul", NewMatMulMapper())
	r.Register("Cast", NewCastMapper(NewDTypeTable()))

	r.Register("Add", NewBinaryMapper("P.Add", "bias"))
	r.Register("Sub", NewBinaryMapper("P.Sub", "bias"))
	r.Register("Mul", NewBinaryMapper("P.Mul", "w"))
	r.Register("Div", NewBinaryMapper("P.Div", "w"))

	r.Register("Slice", NewSliceMapper())
	r.Register("Reshape", NewReshapeMapper())
	r.Register("Transpose", NewTransposeMapper())

	r.Register("Relu", NewActivationMapper("nn.ReLU"))
	r.Register("Sigmoid", NewActivationMapper("nn.Sigmoid"))
	r.Register("Tanh", NewActivationMapper("nn.Tanh"))
	r.Register("Flatten", NewActivationMapper("nn.Flatten"))
	r.Register("Softmax", NewSoftmaxMapper())

	return r
}

// Register adds or replaces the mapper for an operator type
func (r *Registry) Register(opType string, m Mapper) {
	r.mappers[opType] = m
}

// Get returns the mapper for an operator type
func (r *Registry) Get(opType string) (Mapper, error) {
	m, ok := r.mappers[opType]
	if !ok {
		return nil, converrors.NewUnsupportedOperator(opType)
	}
	return m, nil
}

// Has reports whether an operator type is supported
func (r *Registry) Has(opType string) bool {
	_, ok := r.mappers[opType]
	return ok
}

// SupportedOps returns all supported operator types, sorted
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.mappers))
	for op := range r.mappers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Convert looks up the mapper for node and runs it
func (r *Registry) Convert(
	node *graph.Node,
	slots *template.SlotAllocator,
	trainable map[string]template.WeightBinding,
) (*template.Snippet, error) {
	m, err := r.Get(node.OpType)
	if err != nil {
		return nil, annotate(err, node)
	}
	return Convert(m, node, slots, trainable)
}
