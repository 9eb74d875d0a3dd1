package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bhtsne",
		Short: "Barnes-Hut t-SNE embeddings",
		Long: `bhtsne embeds high-dimensional data into two or three dimensions with
Barnes-Hut t-SNE.

Examples:
  bhtsne embed -i data.csv -o embedding.csv          # numeric CSV, 2D output
  bhtsne embed -i data.csv --dims 3 --theta 0        # exact t-SNE in 3D
  bhtsne embed --text -i sentences.txt --seed 42     # one document per line
  bhtsne embed -i data.csv --config tsne.yaml        # hyperparameters from YAML
  bhtsne ops                                         # list operators`,
		SilenceUsage: true,
	}

	root.AddCommand(newEmbedCmd())
	root.AddCommand(newOpsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "bhtsne %s\n", version)
			return err
		},
	}
}
