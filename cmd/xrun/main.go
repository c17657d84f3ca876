// Command xrun is a thin demonstration CLI over cmdrunner, in the style
// of the reference tool's cobra-based command tree (internal/cli):
// one root command, flags bound with the root command's Flags(), colored
// status output via fatih/color.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/riftproc/cmdrunner"
)

var (
	timeoutSeconds float64
	shell          bool
	splitStreams   bool
	liveOutput     bool
	silent         bool
)

var rootCmd = &cobra.Command{
	Use:           "xrun -- <command> [args...]",
	Short:         "Run a command through cmdrunner and print its result",
	SilenceErrors: true,
	SilenceUsage:  true,
	Args:          cobra.MinimumNArgs(1),
	RunE:          runE,
}

func init() {
	rootCmd.Flags().Float64Var(&timeoutSeconds, "timeout", 0, "wall-clock timeout in seconds (0 disables)")
	rootCmd.Flags().BoolVar(&shell, "shell", false, "run the command line through the platform shell")
	rootCmd.Flags().BoolVar(&splitStreams, "split", false, "report stdout and stderr separately")
	rootCmd.Flags().BoolVar(&liveOutput, "live", false, "duplicate captured output to this process's stdout as it arrives")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "suppress non-debug logging for this run")
}

func runE(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	opts := []cmdrunner.Option{
		cmdrunner.WithShell(shell),
		cmdrunner.WithSplitStreams(splitStreams),
		cmdrunner.WithLiveOutput(liveOutput),
		cmdrunner.WithSilent(silent),
	}
	if timeoutSeconds > 0 {
		opts = append(opts, cmdrunner.WithTimeout(time.Duration(timeoutSeconds*float64(time.Second))))
	}

	var command cmdrunner.Command
	if shell {
		command = cmdrunner.Shell(strings.Join(args, " "))
	} else {
		command = cmdrunner.New(args[0], args[1:]...)
	}

	result := cmdrunner.Run(ctx, command, opts...)
	printResult(result)
	if result.ExitCode != 0 {
		os.Exit(exitCodeForShell(result.ExitCode))
	}
	return nil
}

func printResult(r *cmdrunner.Result) {
	statusColor := color.New(color.FgGreen, color.Bold)
	if r.ExitCode != 0 {
		statusColor = color.New(color.FgRed, color.Bold)
	}
	statusColor.Fprintf(os.Stderr, "exit_code=%d", r.ExitCode)
	fmt.Fprintf(os.Stderr, " pid=%d duration=%s", r.PID, r.Duration)
	if cmdrunner.IsReservedExitCode(r.ExitCode) {
		color.New(color.FgYellow).Fprint(os.Stderr, " (reserved)")
	}
	fmt.Fprintln(os.Stderr)

	if splitStreams {
		if r.Stdout != "" {
			fmt.Fprint(os.Stdout, r.Stdout)
		}
		if r.Stderr != "" {
			color.New(color.FgRed).Fprint(os.Stderr, r.Stderr)
		}
		return
	}
	fmt.Fprint(os.Stdout, r.Output)
}

// exitCodeForShell folds the engine's reserved negative taxonomy into a
// process exit status a POSIX/Windows shell can actually report.
func exitCodeForShell(code int) int {
	if code < 0 {
		return 1
	}
	if code > 255 {
		return 255
	}
	return code
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "xrun: %v\n", err)
		os.Exit(1)
	}
}
