package mapper

import (
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/template"
)

// NewActivationMapper creates a mapper for a parameterless cell such as nn.ReLU
func NewActivationMapper(op string) *Base {
	return &Base{Operation: op}
}

// SoftmaxMapper maps Softmax to nn.Softmax
type SoftmaxMapper struct {
	Base
}

// NewSoftmaxMapper creates the Softmax mapper
func NewSoftmaxMapper() *SoftmaxMapper {
	return &SoftmaxMapper{Base: Base{Operation: "nn.Softmax"}}
}

// ConvertParams implements Mapper
func (m *SoftmaxMapper) ConvertParams(node *graph.Node) (*template.Args, error) {
	args := template.NewArgs()
	args.Set("axis", node.IntParam("axis", -1))
	return args, nil
}
