package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	celrix "github.com/celrix/celrix-go"
	"github.com/celrix/celrix-go/wire"
)

func addKVCommands(root *cobra.Command) {
	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				if err := c.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(wire.StatusPong))
				return nil
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				value, found, err := c.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintln(cmd.OutOrStdout(), formatValue(wire.Nil{}))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(wire.Bulk(value)))
				return nil
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set the value of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				ok, err := c.Set(ctx, args[0], []byte(args[1]), ttl)
				return printBool(cmd, ok, err, "stored", "not stored")
			})
		},
	}
	setCmd.Flags().Duration("ttl", 0, "expire the key after this duration (whole seconds)")

	delCmd := &cobra.Command{
		Use:   "del <key> [key...]",
		Short: "Delete keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				if len(args) == 1 {
					ok, err := c.Del(ctx, args[0])
					return printBool(cmd, ok, err, "deleted", "not found")
				}
				n, err := c.MDel(ctx, args...)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(wire.Integer(n)))
				return nil
			})
		},
	}

	existsCmd := &cobra.Command{
		Use:   "exists <key>",
		Short: "Check whether a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				ok, err := c.Exists(ctx, args[0])
				return printBool(cmd, ok, err, "exists", "not found")
			})
		},
	}

	incrCmd := &cobra.Command{
		Use:   "incr <key>",
		Short: "Increment an integer key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetInt64("by")
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				var (
					n   int64
					err error
				)
				if by == 1 {
					n, err = c.Incr(ctx, args[0])
				} else {
					n, err = c.IncrBy(ctx, args[0], by)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(wire.Integer(n)))
				return nil
			})
		},
	}
	incrCmd.Flags().Int64("by", 1, "increment")

	decrCmd := &cobra.Command{
		Use:   "decr <key>",
		Short: "Decrement an integer key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetInt64("by")
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				var (
					n   int64
					err error
				)
				if by == 1 {
					n, err = c.Decr(ctx, args[0])
				} else {
					n, err = c.DecrBy(ctx, args[0], by)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(wire.Integer(n)))
				return nil
			})
		},
	}
	decrCmd.Flags().Int64("by", 1, "decrement")

	msetCmd := &cobra.Command{
		Use:   "mset <key> <value> [key value...]",
		Short: "Set several keys at once",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("mset takes key/value pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs := make([]wire.KeyValue, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				pairs = append(pairs, wire.KeyValue{Key: args[i], Value: []byte(args[i+1])})
			}
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				ok, err := c.MSet(ctx, pairs...)
				return printBool(cmd, ok, err, "stored", "not stored")
			})
		},
	}

	keysCmd := &cobra.Command{
		Use:   "keys [pattern]",
		Short: "List keys matching a glob pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			return withClient(cmd, func(ctx context.Context, c *celrix.Client) error {
				keys, err := c.Keys(ctx, pattern)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(bulkArray(keys)))
				return nil
			})
		},
	}

	root.AddCommand(pingCmd, getCmd, setCmd, delCmd, existsCmd, incrCmd, decrCmd, msetCmd, keysCmd)
}

func printBool(cmd *cobra.Command, ok bool, err error, yes, no string) error {
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(cmd.OutOrStdout(), printOK("%s", yes))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), printErr("%s", no))
	}
	return nil
}

func bulkArray(items []string) wire.Array {
	arr := make(wire.Array, len(items))
	for i, s := range items {
		arr[i] = wire.Bulk(s)
	}
	return arr
}

// parseVector parses float arguments, accepting "1,2,3" as well as "1 2 3".
func parseVector(args []string) ([]float32, error) {
	var vec []float32
	for _, a := range args {
		for _, f := range strings.FieldsFunc(a, func(r rune) bool { return r == ',' || r == ' ' }) {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid vector component %q", f)
			}
			vec = append(vec, float32(v))
		}
	}
	return vec, nil
}
