package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/conduit-lang/opconvert/internal/converter/pattern"
)

const indentUnit = "    "

// emitter writes indented target source
type emitter struct {
	buf    *bytes.Buffer
	indent int
}

func newEmitter() *emitter {
	return &emitter{buf: &bytes.Buffer{}}
}

func (e *emitter) writeLine(format string, args ...interface{}) {
	if format == "" {
		e.buf.WriteString("\n")
		return
	}

	for i := 0; i < e.indent; i++ {
		e.buf.WriteString(indentUnit)
	}

	if len(args) > 0 {
		e.buf.WriteString(fmt.Sprintf(format, args...))
	} else {
		e.buf.WriteString(format)
	}
	e.buf.WriteString("\n")
}

// EmitModule renders the converted nodes of r as a MindSpore nn.Cell class
func EmitModule(r *Result, className string) string {
	e := newEmitter()

	e.writeLine("import numpy as np")
	e.writeLine("import mindspore")
	e.writeLine("from mindspore import nn, Tensor, Parameter")
	e.writeLine("from mindspore.ops import operations as P")
	e.writeLine("")

	if len(r.Patterns) > 0 {
		e.writeLine("# Repeated operator patterns:")
		for _, p := range r.Patterns {
			e.writeLine("#   %s: %s at %s", p.ModuleName, p.Pattern, formatRanges(p))
		}
		e.writeLine("")
	}

	for _, err := range r.Errors {
		e.writeLine("# %s", err.Error())
	}
	if len(r.Errors) > 0 {
		e.writeLine("")
	}

	e.writeLine("")
	e.writeLine("class %s(nn.Cell):", className)
	e.indent++

	e.writeLine("def __init__(self):")
	e.indent++
	e.writeLine("super(%s, self).__init__()", className)
	for _, n := range r.Nodes {
		for _, line := range n.Rendered.Init {
			e.writeLine(line)
		}
	}
	e.indent--
	e.writeLine("")

	params := []string{"self"}
	for _, in := range r.Graph.Inputs {
		params = append(params, identifier(in))
	}
	e.writeLine("def construct(%s):", strings.Join(params, ", "))
	e.indent++
	for _, n := range r.Nodes {
		for _, line := range n.Rendered.Construct {
			e.writeLine(line)
		}
	}
	switch len(r.Outputs) {
	case 0:
		e.writeLine("return None")
	default:
		e.writeLine("return %s", strings.Join(r.Outputs, ", "))
	}
	e.indent -= 2

	return e.buf.String()
}

func formatRanges(p *pattern.Pattern) string {
	parts := make([]string, 0, p.Count)
	for _, occ := range p.Occurrences() {
		parts = append(parts, fmt.Sprintf("[%d, %d)", occ[0], occ[1]))
	}
	return strings.Join(parts, ", ")
}
