package mapper

import (
	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/template"
)

// UnsupportedType is emitted for ONNX type codes with no MindSpore type
const UnsupportedType = "UNSUPPORTED"

// DTypeTable maps ONNX TensorProto data type codes to MindSpore types.
// It is closed: codes outside the table are rejected.
type DTypeTable struct {
	types map[int]string
}

// NewDTypeTable builds the ONNX to MindSpore type table
func NewDTypeTable() DTypeTable {
	return DTypeTable{types: map[int]string{
		1:  "mindspore.float32",
		2:  "mindspore.uint8",
		3:  "mindspore.int8",
		4:  "mindspore.uint16",
		5:  "mindspore.int16",
		6:  "mindspore.int32",
		7:  "mindspore.int64",
		8:  "mindspore.string",
		9:  "mindspore.bool_",
		10: "mindspore.float16",
		11: "mindspore.double",
		12: "mindspore.uint32",
		13: "mindspore.uint64",
		14: UnsupportedType, // complex64
		15: UnsupportedType, // complex128
		16: UnsupportedType, // bfloat16
	}}
}

// Lookup returns the MindSpore type for code
func (t DTypeTable) Lookup(code int) (string, error) {
	name, ok := t.types[code]
	if !ok {
		return "", converrors.NewUnsupportedParameterValue("to", code)
	}
	return name, nil
}

// CastMapper maps Cast to P.Cast
type CastMapper struct {
	Base
	table DTypeTable
}

// NewCastMapper creates the Cast mapper using table
func NewCastMapper(table DTypeTable) *CastMapper {
	return &CastMapper{Base: Base{Operation: "P.Cast"}, table: table}
}

// ConvertParams implements Mapper
func (m *CastMapper) ConvertParams(node *graph.Node) (*template.Args, error) {
	raw, ok := node.Param("to")
	if !ok {
		return nil, converrors.NewUnsupportedParameterValue("to", nil)
	}
	code := node.IntParam("to", -1)
	if code < 0 {
		return nil, converrors.NewUnsupportedParameterValue("to", raw)
	}
	name, err := m.table.Lookup(code)
	if err != nil {
		return nil, err
	}

	args := template.NewArgs()
	args.Set("to", template.Expr(name))
	return args, nil
}

// BuildSnippet implements Mapper
func (m *CastMapper) BuildSnippet(req *SnippetRequest) (*template.Snippet, error) {
	if req.Operation == "" {
		return nil, converrors.NewMissingTargetOperator(opType(req.Node))
	}

	slot := req.Slot
	frag := template.NewFragment(slot)
	frag.Init = []string{
		constructorLine(slot, req.Operation, nil),
		memberRef(slot, "to") + " = " + template.Ref("to"),
	}
	frag.Construct = []string{
		forwardLine(slot, []string{template.Ref(template.InputsKey), memberRef(slot, "to")}),
	}

	return newSnippet(frag, req), nil
}
