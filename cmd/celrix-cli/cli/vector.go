package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	celrix "github.com/celrix/celrix-go"
)

func addVectorCommands(root *cobra.Command) {
	vaddCmd := &cobra.Command{
		Use:   "vadd <key> <f1> [f2...]",
		Short: "Store a vector under a key",
		Long:  "Store a vector under a key. Components may be separate arguments or one comma-separated list.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vec, err := parseVector(args[1:])
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				ok, err := c.VectorAdd(ctx, args[0], vec)
				return printBool(cmd, ok, err, "stored", "not stored")
			})
		},
	}

	vsearchCmd := &cobra.Command{
		Use:   "vsearch <f1> [f2...]",
		Short: "Find the keys of the vectors nearest to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _ := cmd.Flags().GetUint32("k")
			vec, err := parseVector(args)
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				keys, err := c.VectorSearch(ctx, vec, k)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(bulkArray(keys)))
				return nil
			})
		},
	}
	vsearchCmd.Flags().Uint32P("k", "k", 10, "number of results")

	root.AddCommand(vaddCmd, vsearchCmd)
}
