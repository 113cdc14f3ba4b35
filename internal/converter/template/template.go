// Package template holds the slot-addressed code templates produced by
// operator mappers, together with the exchange messages that describe how a
// template is wired into the rest of the generated module.
//
// Template lines contain {name} placeholders. Building a template and
// rendering it are separate steps: mappers only emit Fragments, and Render
// resolves placeholders against the accompanying Exchange.
package template

import (
	"fmt"

	"github.com/conduit-lang/opconvert/internal/converter/graph"
)

// Phase selects one of the two line sequences of a fragment
type Phase string

const (
	// PhaseInit lines run once and build persistent state
	PhaseInit Phase = "init"
	// PhaseConstruct lines run on every forward pass
	PhaseConstruct Phase = "construct"
)

// InputsKey is the placeholder replaced by the wired upstream inputs
const InputsKey = "inputs"

// Fragment is the code skeleton generated for one node
type Fragment struct {
	Slot      string
	Init      []string
	Construct []string
}

// NewFragment creates an empty fragment for a variable slot
func NewFragment(slot string) *Fragment {
	return &Fragment{
		Slot:      slot,
		Init:      []string{},
		Construct: []string{},
	}
}

// Lines returns the lines of the given phase
func (f *Fragment) Lines(phase Phase) []string {
	if phase == PhaseInit {
		return f.Init
	}
	return f.Construct
}

// SetLines replaces the lines of the given phase
func (f *Fragment) SetLines(phase Phase, lines []string) {
	if phase == PhaseInit {
		f.Init = lines
		return
	}
	f.Construct = lines
}

// WeightType classifies an extracted weight
type WeightType string

// WeightParameter marks a learned weight, as opposed to an attribute
const WeightParameter WeightType = "PARAMETER"

// WeightBinding is a weight extracted by a mapper
type WeightBinding struct {
	Data       graph.Tensor
	Type       WeightType
	SourceName string
}

// OutputType is the declared kind of a node's output
type OutputType string

const (
	OutputTensor OutputType = "tensor"
	OutputOther  OutputType = "other"
)

// Exchange describes a fragment's operation, arguments, weights and wiring
type Exchange struct {
	Slot      string
	Operation string
	// VariableName stays nil until the assembler names the variable
	VariableName       *string
	OutputType         OutputType
	Inputs             []string
	Args               *Args
	Weights            map[string]WeightBinding
	TrainableParams    map[string]WeightBinding
	ParametersDeclared map[string]string
}

// NewExchange creates an exchange message with empty wiring
func NewExchange(slot, operation string, args *Args) *Exchange {
	if args == nil {
		args = NewArgs()
	}
	return &Exchange{
		Slot:            slot,
		Operation:       operation,
		OutputType:      OutputTensor,
		Inputs:          []string{},
		Args:            args,
		Weights:         map[string]WeightBinding{},
		TrainableParams: map[string]WeightBinding{},
	}
}

// Name returns the assigned variable name, or the slot when unnamed
func (e *Exchange) Name() string {
	if e.VariableName != nil && *e.VariableName != "" {
		return *e.VariableName
	}
	return e.Slot
}

// SetName assigns the variable name
func (e *Exchange) SetName(name string) {
	e.VariableName = &name
}

// OutputPair maps a source output index to a target output index
type OutputPair struct {
	Source int
	Target int
}

// OutputsMapping renumbers operator outputs between the two frameworks
type OutputsMapping []OutputPair

// SingleOutput is the mapping of every single-output operator
func SingleOutput() OutputsMapping {
	return OutputsMapping{{Source: 0, Target: 0}}
}

// Snippet is the complete result of generating code for one node
type Snippet struct {
	Fragment       *Fragment
	Exchange       *Exchange
	Outputs        []string
	OutputsMapping OutputsMapping
}

// SlotAllocator hands out variable slots for one generation pass
type SlotAllocator struct {
	next int
}

// NewSlotAllocator creates an allocator starting at var_0
func NewSlotAllocator() *SlotAllocator {
	return &SlotAllocator{}
}

// Next returns a fresh slot identifier
func (s *SlotAllocator) Next() string {
	slot := fmt.Sprintf("var_%d", s.next)
	s.next++
	return slot
}

// Count returns the number of slots handed out so far
func (s *SlotAllocator) Count() int {
	return s.next
}

// Ref returns the placeholder token for name
func Ref(name string) string {
	return "{" + name + "}"
}

// ParamRef returns the placeholder token of a declared parameter of slot
func ParamRef(slot, param string) string {
	return "{" + slot + "/" + param + "}"
}
