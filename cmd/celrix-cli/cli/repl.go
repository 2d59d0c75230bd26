package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	celrix "github.com/celrix/celrix-go"
	"github.com/celrix/celrix-go/resp"
	"github.com/celrix/celrix-go/wire"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive prompt (the default)",
	Args:  cobra.NoArgs,
	RunE:  runREPL,
}

const replHelp = `Available commands:

  PING                          - Check server connectivity
  GET <key>                     - Get value for key
  SET <key> <value> [ttl]       - Set key-value pair with optional TTL in seconds
  DEL <key>                     - Delete a key
  EXISTS <key>                  - Check if key exists
  INCR/DECR <key>               - Add or subtract one
  INCRBY/DECRBY <key> <delta>   - Add or subtract delta
  MSET <k1> <v1> [k2 v2 ...]    - Set several keys
  MDEL <k1> [k2 ...]            - Delete several keys
  KEYS [pattern]                - List keys matching a glob
  VADD <key> <f1> [f2 ...]      - Store a vector
  VSEARCH <f1> [f2 ...] <k>     - Find the k nearest vectors

  help                          - Show this help
  quit / exit                   - Exit the CLI

Examples:
  SET mykey myvalue
  SET tempkey value 60   (expires in 60 seconds)
  VADD doc:1 0.1 0.2 0.3
  VSEARCH 0.1 0.2 0.3 5`

func runREPL(cmd *cobra.Command, _ []string) error {
	cfg, err := clientConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connecting to CELRIX at %s (%s)...\n", cfg.Addr(), cfg.Protocol)

	ctx, cancel := commandContext(cmd)
	session, err := celrix.Dial(ctx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Fprintln(out, "Connected! Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(out)

	return repl(cmd, session, cmd.InOrStdin(), out)
}

// repl reads one command per line until EOF, quit or a closed session.
func repl(cmd *cobra.Command, session *celrix.Session, in io.Reader, out io.Writer) error {
	prompt := color.New(color.FgCyan).Sprint("celrix> ")
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "help":
			fmt.Fprintln(out, replHelp)
			continue
		}

		c, err := parseLine(line)
		if err != nil {
			fmt.Fprintln(out, printErr("Error: %v", err))
			continue
		}

		ctx, cancel := commandContext(cmd)
		start := time.Now()
		v, err := session.Do(ctx, c)
		took := time.Since(start)
		cancel()

		if err != nil {
			fmt.Fprintln(out, printErr("Error: %v", err))
			if session.IsClosed() {
				return err
			}
			continue
		}

		fmt.Fprintf(out, "%s %s\n", formatValue(v), color.HiBlackString("(took %v)", took.Round(time.Microsecond)))
	}

	return scanner.Err()
}

// parseLine turns a prompt line into a command. It accepts the text
// protocol argument forms, plus "SET key value <seconds>" without EX.
func parseLine(line string) (wire.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	if strings.EqualFold(fields[0], "SET") && len(fields) == 4 {
		fields = []string{fields[0], fields[1], fields[2], "EX", fields[3]}
	}

	args := make([][]byte, len(fields))
	for i, f := range fields {
		args[i] = []byte(f)
	}

	c, err := resp.ParseCommand(args)
	if err != nil {
		return nil, err
	}
	if err := wire.Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}
