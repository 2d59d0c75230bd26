package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/celrix/celrix-go/admin"
)

func adminClient() (*admin.Client, error) {
	var opts []admin.Option
	if key := viper.GetString("api-key"); key != "" {
		opts = append(opts, admin.WithAPIKey(key))
	}
	return admin.NewClient(viper.GetString("admin-url"), opts...)
}

func addAdminCommands(root *cobra.Command) {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Query the admin health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wait, _ := cmd.Flags().GetDuration("wait")

			ac, err := adminClient()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			if wait > 0 {
				if err := ac.WaitHealthy(ctx, wait); err != nil {
					return err
				}
			}

			h, err := ac.Health(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), printOK("%s", h.Status))
			return nil
		},
	}
	healthCmd.Flags().Duration("wait", 0, "poll at this interval until the server is healthy (bounded by --timeout)")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Query the admin info endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := adminClient()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			info, err := ac.Info(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", color.CyanString("version:"), info.Version)

			keys := make([]string, 0, len(info.Extra))
			for k := range info.Extra {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s %v\n", color.CyanString(k+":"), info.Extra[k])
			}
			return nil
		},
	}

	root.AddCommand(healthCmd, infoCmd)
}
