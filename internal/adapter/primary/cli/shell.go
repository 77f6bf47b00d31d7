package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"maclock/internal/logging"
)

func (a *app) newShellCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell that keeps one lock runtime across commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.inShell {
				fmt.Fprintln(cmd.OutOrStdout(), "already in the shell; type 'exit' to leave")
				return nil
			}
			return a.runInteractiveShell(prompt)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "maclock> ", "shell prompt")
	return cmd
}

func (a *app) runInteractiveShell(prompt string) error {
	historyFile := filepath.Join(os.TempDir(), "maclock-shell.history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	a.inShell = true
	defer func() { a.inShell = false }()

	fmt.Println("maclock shell. 'help' for examples, 'exit' to quit.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Println()
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		if quit := a.runShellLine(os.Stdout, line); quit {
			fmt.Println("Bye!")
			return nil
		}
	}
}

// runShellLine executes one line and reports whether the shell should exit.
func (a *app) runShellLine(out io.Writer, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case "exit", "quit":
		return true
	case "help":
		printShellHelp(out)
		return false
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		fmt.Fprintf(out, "parse error: %v\n", err)
		return false
	}
	if len(tokens) == 0 {
		return false
	}
	if tokens[0] == "log" {
		if err := a.handleShellLog(out, tokens[1:]); err != nil {
			fmt.Fprintf(out, "log: %v\n", err)
		}
		return false
	}

	root := a.rootCmd()
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(tokens)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(out, "command error: %v\n", err)
	}
	return false
}

func (a *app) handleShellLog(out io.Writer, args []string) error {
	fs := pflag.NewFlagSet("log", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var vcount int
	var level string
	var show bool
	fs.CountVarP(&vcount, "verbose", "v", "increase verbosity (-v... up to 4)")
	fs.StringVar(&level, "level", "", "set level (error|warn|info|debug|trace)")
	fs.BoolVarP(&show, "show", "s", false, "print the current level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case level != "":
		_, count, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}
		a.verbosity = count
	case vcount > 0:
		a.verbosity = vcount
	default:
		fmt.Fprintf(out, "log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	}

	logging.SetVerbosity(a.verbosity)
	fmt.Fprintf(out, "log level set to %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
	return nil
}

func printShellHelp(out io.Writer) {
	fmt.Fprintln(out, `Examples:
  lock --wait=false           # lock and return to the prompt
  status                      # power, lock state and outputs
  devices                     # list audio devices
  audio switch                # toggle built-in / previous outputs
  unlock                      # disarm and restore audio
  sim power battery           # simulate unplugging (--platform sim)
  sim unlock                  # simulate the user unlocking
  serve --addr 127.0.0.1:7071 # control API until Ctrl-C
  config get                  # show configuration
  config set --restore-retries 5
  log -vv                     # more logging
  log --show                  # current log level
  exit / quit                 # leave (unlocks if locked)`)
}
