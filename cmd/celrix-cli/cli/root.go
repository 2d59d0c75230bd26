package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	celrix "github.com/celrix/celrix-go"
	"github.com/celrix/celrix-go/admin"
	"github.com/celrix/celrix-go/resp"
)

const (
	Version = "0.1.0"
)

// RootCmd is the base command. Without a subcommand it starts the REPL.
var RootCmd = &cobra.Command{
	Use:   "celrix-cli",
	Short: "client for the CELRIX key-value and vector store",
	Long: fmt.Sprintf(`celrix-cli (v%s)

Talks to a CELRIX server over the binary or the text protocol.
Run without a command for an interactive prompt.`, Version),
	PersistentPreRunE: initConfig,
	RunE:              runREPL,
	SilenceUsage:      true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of celrix-cli",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "celrix-cli v%s\n", Version)
	},
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringP("host", "H", celrix.DefaultHost, "server host")
	flags.IntP("port", "p", celrix.DefaultPort, "server port")
	flags.String("protocol", "binary", "wire protocol (binary, text)")
	flags.Duration("dial-timeout", celrix.DefaultDialTimeout, "TCP connect timeout")
	flags.Duration("timeout", 10*time.Second, "timeout of each command")
	flags.Int("max-depth", resp.DefaultMaxDepth, "maximum array nesting accepted from text responses")
	flags.String("admin-url", admin.DefaultURL, "base URL of the admin API")
	flags.String("api-key", "", "bearer token for the admin API")
	flags.Bool("no-color", false, "disable colored output")

	RootCmd.AddCommand(versionCmd)
	addKVCommands(RootCmd)
	addVectorCommands(RootCmd)
	addAdminCommands(RootCmd)
	RootCmd.AddCommand(benchCmd)
	RootCmd.AddCommand(replCmd)
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// initConfig binds flags, CELRIX_* environment variables and .env files.
// Flags set on the command line win over the environment.
func initConfig(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("celrix")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if viper.GetBool("no-color") {
		color.NoColor = true
	}
	return nil
}

// clientConfig builds a celrix.Config from flags and environment.
func clientConfig() (celrix.Config, error) {
	cfg := celrix.DefaultConfig()
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.DialTimeout = viper.GetDuration("dial-timeout")
	cfg.MaxDepth = viper.GetInt("max-depth")

	p, err := celrix.ParseProtocol(viper.GetString("protocol"))
	if err != nil {
		return celrix.Config{}, err
	}
	cfg.Protocol = p

	return cfg, cfg.Validate()
}

// commandContext bounds one command by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := viper.GetDuration("timeout")
	if timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

// withClient connects, runs fn and closes the client.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *celrix.Client) error) error {
	cfg, err := clientConfig()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	c, err := celrix.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}
