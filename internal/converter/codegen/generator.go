// Package codegen runs one generation pass over an operator graph: every
// node is mapped to a template snippet, wired to its upstream producers and
// rendered, and the operator sequence is scanned for repeated patterns.
package codegen

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/mapper"
	"github.com/conduit-lang/opconvert/internal/converter/pattern"
	"github.com/conduit-lang/opconvert/internal/converter/template"
)

// Policy decides what happens when a node fails to convert
type Policy string

const (
	// PolicyAbort stops the pass at the first failing node
	PolicyAbort Policy = "abort"
	// PolicySkip records the failure and continues
	PolicySkip Policy = "skip"
	// PolicyPrompt asks the Resolver for every failing node
	PolicyPrompt Policy = "prompt"
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(s)); p {
	case PolicyAbort, PolicySkip, PolicyPrompt:
		return p, nil
	default:
		return "", fmt.Errorf("unknown unsupported-node policy %q (want abort, skip or prompt)", s)
	}
}

// Resolver reports whether a failed node should be skipped. Returning an
// error aborts the pass.
type Resolver func(node *graph.Node, err *converrors.ConversionError) (bool, error)

// Options configures a Generator
type Options struct {
	Policy   Policy
	Resolver Resolver
	// MinPatternLength and MaxPatternLength bound the scanned sequences.
	// A zero MaxPatternLength disables pattern scanning.
	MinPatternLength int
	MaxPatternLength int
	ReuseThreshold   int
}

// DefaultOptions returns the default generator options
func DefaultOptions() Options {
	return Options{
		Policy:           PolicyAbort,
		MinPatternLength: 2,
		MaxPatternLength: 8,
		ReuseThreshold:   2,
	}
}

// NodeResult is the converted form of one graph node
type NodeResult struct {
	Node     *graph.Node
	Snippet  *template.Snippet
	Rendered *template.Rendered
	// Outputs are the rendered output references, one per target output
	Outputs []string
}

// Result is the outcome of a generation pass
type Result struct {
	SessionID string
	Graph     *graph.Graph
	Nodes     []*NodeResult
	Errors    converrors.ErrorList
	Patterns  []*pattern.Pattern
	// Outputs are the references returned by the generated construct
	Outputs []string
}

// Generator drives the mappers over a graph
type Generator struct {
	registry *mapper.Registry
	logger   *zap.Logger
	opts     Options
}

// NewGenerator creates a generator. A nil logger disables logging.
func NewGenerator(registry *mapper.Registry, logger *zap.Logger, opts Options) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	return &Generator{
		registry: registry,
		logger:   logger,
		opts:     opts,
	}
}

// Generate converts every node of g in order
func (gen *Generator) Generate(g *graph.Graph) (*Result, error) {
	pass := &generationPass{
		gen:       gen,
		graph:     g,
		slots:     template.NewSlotAllocator(),
		producers: make(map[string]string),
		names:     make(map[string]int),
		result: &Result{
			SessionID: uuid.New().String(),
			Graph:     g,
		},
	}
	log := gen.logger.With(zap.String("session", pass.result.SessionID), zap.String("graph", g.Name))
	pass.log = log

	log.Info("starting conversion", zap.Int("nodes", len(g.Nodes)))

	for _, input := range g.Inputs {
		pass.producers[input] = identifier(input)
	}

	for _, node := range g.Nodes {
		if err := pass.convertNode(node); err != nil {
			return pass.result, err
		}
	}

	for _, name := range g.Outputs {
		pass.result.Outputs = append(pass.result.Outputs, pass.inputRef(name))
	}

	if err := pass.scanPatterns(); err != nil {
		return pass.result, err
	}

	errCount, warnCount := pass.result.Errors.ErrorCount()
	log.Info("conversion finished",
		zap.Int("converted", len(pass.result.Nodes)),
		zap.Int("errors", errCount),
		zap.Int("warnings", warnCount),
		zap.Int("patterns", len(pass.result.Patterns)),
	)
	return pass.result, nil
}

// generationPass holds the state scoped to one Generate call
type generationPass struct {
	gen       *Generator
	graph     *graph.Graph
	log       *zap.Logger
	slots     *template.SlotAllocator
	producers map[string]string
	names     map[string]int
	result    *Result
}

func (p *generationPass) convertNode(node *graph.Node) error {
	snippet, err := p.gen.registry.Convert(node, p.slots, nil)
	if err != nil {
		return p.handleFailure(node, err)
	}

	msg := snippet.Exchange
	msg.SetName(p.variableName(msg.Operation))
	msg.Inputs = p.wireInputs(node)

	rendered, err := template.Render(snippet.Fragment, msg)
	if err != nil {
		return p.handleFailure(node, err)
	}

	outputs := make([]string, len(snippet.Outputs))
	slotRef := template.Ref(snippet.Fragment.Slot)
	for i, out := range snippet.Outputs {
		outputs[i] = strings.ReplaceAll(out, slotRef, msg.Name())
	}
	for _, pair := range snippet.OutputsMapping {
		if pair.Source < len(node.Outputs) && pair.Target < len(outputs) {
			p.producers[node.Outputs[pair.Source]] = outputs[pair.Target]
		}
	}

	for _, key := range msg.Args.Keys() {
		if v, _ := msg.Args.Get(key); v == template.Expr(mapper.UnsupportedType) {
			warn := converrors.NewUnsupportedDType(key).WithNode(node.Name, node.OpType)
			p.result.Errors = append(p.result.Errors, warn)
			p.log.Warn("unsupported type marker emitted", zap.String("node", node.Name), zap.String("param", key))
		}
	}

	p.log.Debug("converted node",
		zap.String("node", node.Name),
		zap.String("op_type", node.OpType),
		zap.String("slot", snippet.Fragment.Slot),
		zap.String("variable", msg.Name()),
	)

	p.result.Nodes = append(p.result.Nodes, &NodeResult{
		Node:     node,
		Snippet:  snippet,
		Rendered: rendered,
		Outputs:  outputs,
	})
	return nil
}

func (p *generationPass) handleFailure(node *graph.Node, err error) error {
	var convErr *converrors.ConversionError
	if !stderrors.As(err, &convErr) {
		return fmt.Errorf("failed to convert node %s: %w", node.Name, err)
	}

	skip := false
	switch p.gen.opts.Policy {
	case PolicySkip:
		skip = true
	case PolicyPrompt:
		if p.gen.opts.Resolver == nil {
			break
		}
		var rerr error
		skip, rerr = p.gen.opts.Resolver(node, convErr)
		if rerr != nil {
			return fmt.Errorf("failed to resolve node %s: %w", node.Name, rerr)
		}
	}

	p.result.Errors = append(p.result.Errors, convErr)
	if !skip {
		p.log.Error("conversion aborted", zap.String("node", node.Name), zap.Error(convErr))
		return convErr
	}

	p.log.Warn("node skipped", zap.String("node", node.Name), zap.String("code", string(convErr.Code)))
	return nil
}

// wireInputs maps the node's dynamic inputs to upstream output references.
// Inputs backed by weights are constants and are not wired.
func (p *generationPass) wireInputs(node *graph.Node) []string {
	constants := make(map[string]bool)
	for _, w := range node.Weights {
		if w.SourceName != "" {
			constants[w.SourceName] = true
		}
	}

	inputs := make([]string, 0, len(node.Inputs))
	for _, name := range node.Inputs {
		if constants[name] || name == "" {
			continue
		}
		inputs = append(inputs, p.inputRef(name))
	}
	return inputs
}

func (p *generationPass) inputRef(name string) string {
	if ref, ok := p.producers[name]; ok {
		return ref
	}
	return identifier(name)
}

// variableName derives "<op>_<n>" from a target operator such as nn.MatMul
func (p *generationPass) variableName(op string) string {
	base := op
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	base = strings.ToLower(identifier(base))
	n := p.names[base]
	p.names[base] = n + 1
	return fmt.Sprintf("%s_%d", base, n)
}

func (p *generationPass) scanPatterns() error {
	opts := p.gen.opts
	if opts.MaxPatternLength == 0 {
		return nil
	}

	tracker := pattern.NewTracker()
	err := pattern.Scan(tracker, p.graph.OpTypes(), pattern.ScanOptions{
		MinLength: opts.MinPatternLength,
		MaxLength: opts.MaxPatternLength,
		Degrees:   p.graph.Degrees,
	})
	if err != nil {
		return err
	}

	p.result.Patterns = pattern.AssignModuleNames(tracker.Patterns(), opts.ReuseThreshold)
	for _, ptn := range p.result.Patterns {
		p.log.Debug("repeated pattern", zap.Stringer("pattern", ptn))
	}
	return nil
}

// identifier turns a tensor name into a valid target-language identifier
func identifier(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
