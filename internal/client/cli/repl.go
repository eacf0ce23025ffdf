package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// executor runs one parsed command line.
type executor func(ctx context.Context, args []string) error

// runREPL reads command lines from scanner and hands them to exec until EOF,
// "exit" or "quit". Errors are reported and the loop continues.
func runREPL(ctx context.Context, exec executor, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("plantcare (%s)> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "help":
			args = []string{"--help"}
		case "shell", "daemon":
			printlnFn("Not available inside the shell:", args[0])
			continue
		}

		if err := exec(ctx, args); err != nil {
			printlnFn(Describe(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func newShellCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell; type 'help' for commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			printlnFn("Welcome to plantcare (type 'help' for commands)")

			stop := a.watchConnectivity(ctx)
			defer stop()

			exec := func(ctx context.Context, args []string) error {
				return Execute(ctx, a, args)
			}
			runREPL(ctx, exec, a.getStatus, bufio.NewScanner(a.in))
			return nil
		},
	}
}

// watchConnectivity keeps the monitor current and syncs on reconnect while
// the shell is open.
func (a *App) watchConnectivity(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	a.monitor.OnReconnect(a.syncOnce)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.monitor.Run(ctx, a.cfg.OnlineCheckInterval)
	}()
	return func() {
		cancel()
		<-done
	}
}
