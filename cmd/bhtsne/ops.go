package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/bhtsne/tsne"
)

// newOpsCmd lists the registered operators and their documentation.
func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List supported operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := tsne.NewOperatorRegistry()
			out := cmd.OutOrStdout()
			for _, op := range registry.SupportedOps() {
				schema, _ := registry.Schema(op)
				if _, err := fmt.Fprintf(out, "%s\n\n%s\n\n", op, schema.Doc); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
