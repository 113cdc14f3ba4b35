package commands

import (
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"

	"github.com/conduit-lang/opconvert/internal/cli/ui"
	"github.com/conduit-lang/opconvert/internal/converter/codegen"
	converrors "github.com/conduit-lang/opconvert/internal/converter/errors"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
)

// askOne is replaced in tests
var askOne = survey.AskOne

// newPromptResolver asks on the terminal whether each failing node should
// be skipped. Declining aborts the conversion.
func newPromptResolver(w io.Writer, supported []string, noColor bool) codegen.Resolver {
	return func(node *graph.Node, err *converrors.ConversionError) (bool, error) {
		fmt.Fprint(w, ui.ConversionError(err, supported, noColor))

		skip := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Skip node %s (%s) and continue?", node.Name, node.OpType),
			Default: true,
			Help:    "Skipped nodes are left out of the generated class; their outputs stay unresolved.",
		}
		if askErr := askOne(prompt, &skip); askErr != nil {
			return false, askErr
		}
		return skip, nil
	}
}
