package template

import (
	"fmt"
	"sort"
	"strings"

	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
)

// Rendered is a fragment with every placeholder substituted
type Rendered struct {
	Slot      string
	Variable  string
	Init      []string
	Construct []string
}

// Placeholders returns the placeholder names referenced by line, in order
// of first appearance
func Placeholders(line string) []string {
	var names []string
	seen := make(map[string]bool)
	scanPlaceholders(line, func(name string, _, _ int) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	return names
}

// Validate reports the placeholders of frag that msg cannot resolve
func Validate(frag *Fragment, msg *Exchange) error {
	r := newResolver(frag, msg)
	var missing []string
	seen := make(map[string]bool)
	for _, line := range append(append([]string{}, frag.Init...), frag.Construct...) {
		for _, name := range Placeholders(line) {
			if _, ok := r.resolve(name); !ok && !seen[name] {
				seen[name] = true
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return converrors.NewUnresolvedPlaceholder(frag.Slot, missing)
	}
	return nil
}

// Render substitutes every placeholder of frag using msg
func Render(frag *Fragment, msg *Exchange) (*Rendered, error) {
	if err := Validate(frag, msg); err != nil {
		return nil, err
	}

	r := newResolver(frag, msg)
	out := &Rendered{
		Slot:      frag.Slot,
		Variable:  msg.Name(),
		Init:      make([]string, len(frag.Init)),
		Construct: make([]string, len(frag.Construct)),
	}
	for i, line := range frag.Init {
		out.Init[i] = r.substitute(line)
	}
	for i, line := range frag.Construct {
		out.Construct[i] = r.substitute(line)
	}
	return out, nil
}

// ParameterDeclaration renders a randomly initialised Parameter sized and
// typed from the weight tensor
func ParameterDeclaration(w WeightBinding) string {
	return fmt.Sprintf("Parameter(Tensor(np.random.uniform(0, 1, %s).astype(np.%s)), name=None)",
		FormatValue(w.Data.Shape), w.Data.DType)
}

type resolver struct {
	frag *Fragment
	msg  *Exchange
}

func newResolver(frag *Fragment, msg *Exchange) *resolver {
	return &resolver{frag: frag, msg: msg}
}

func (r *resolver) resolve(name string) (string, bool) {
	if name == r.frag.Slot {
		return r.msg.Name(), true
	}
	if name == InputsKey {
		return strings.Join(r.msg.Inputs, ", "), true
	}
	if slot, param, ok := strings.Cut(name, "/"); ok {
		if slot != r.frag.Slot {
			return "", false
		}
		return r.declaredParam(param)
	}
	if v, ok := r.msg.Args.Get(name); ok {
		return FormatValue(v), true
	}
	return "", false
}

func (r *resolver) declaredParam(param string) (string, bool) {
	if declared, ok := r.msg.ParametersDeclared[param]; ok && declared != "" {
		return declared, true
	}
	if w, ok := r.msg.TrainableParams[param]; ok {
		return weightValue(w), true
	}
	if w, ok := r.msg.Weights[param]; ok {
		return weightValue(w), true
	}
	return "", false
}

// weightValue embeds a shape-less tensor as its literal value
func weightValue(w WeightBinding) string {
	if !w.Data.HasShape() {
		return FormatValue(w.Data.List())
	}
	return ParameterDeclaration(w)
}

func (r *resolver) substitute(line string) string {
	var b strings.Builder
	last := 0
	scanPlaceholders(line, func(name string, start, end int) {
		value, ok := r.resolve(name)
		if !ok {
			return
		}
		b.WriteString(line[last:start])
		b.WriteString(value)
		last = end
	})
	b.WriteString(line[last:])
	return b.String()
}

// scanPlaceholders calls fn for every {name} token of line, where name is
// made of letters, digits, '_' and '/'. start and end delimit the braces.
func scanPlaceholders(line string, fn func(name string, start, end int)) {
	for i := 0; i < len(line); i++ {
		if line[i] != '{' {
			continue
		}
		j := i + 1
		for j < len(line) && isNameChar(line[j]) {
			j++
		}
		if j > i+1 && j < len(line) && line[j] == '}' {
			fn(line[i+1:j], i, j+1)
			i = j
		}
	}
}

func isNameChar(c byte) bool {
	return c == '_' || c == '/' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
