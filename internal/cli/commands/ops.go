package commands

import (
	"github.com/spf13/cobra"

	"github.com/conduit-lang/opconvert/internal/cli/ui"
	"github.com/conduit-lang/opconvert/internal/converter/graph"
	"github.com/conduit-lang/opconvert/internal/converter/mapper"
)

func newOpsCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List supported ONNX operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := mapper.NewRegistry()
			table := ui.NewTable(cmd.OutOrStdout(), global.noColor, "ONNX OPERATOR", "MINDSPORE OPERATOR")
			for _, op := range registry.SupportedOps() {
				m, err := registry.Get(op)
				if err != nil {
					return err
				}
				target, err := m.TargetName(&graph.Node{Name: op, OpType: op})
				if err != nil {
					return err
				}
				table.AddRow(op, target)
			}
			table.Render()
			return nil
		},
	}
}
