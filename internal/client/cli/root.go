package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/client/client"
	"github.com/dmitrijs2005/plantcare/internal/client/services"
	"github.com/dmitrijs2005/plantcare/internal/common"
)

// localOnly marks commands that never talk to the server, so no
// connectivity probe is made before they run.
const localOnly = "local-only"

// NewRootCommand builds the command tree bound to a. A fresh tree is built
// for every invocation so flag values never leak between shell lines.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "plantcare",
		Short:         "Offline-first plant care assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cmd.Annotations[localOnly] == "" {
				a.ensureMode(cmd.Context())
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", OutputAuto, "output format: auto, text or json")

	root.AddCommand(
		newGuideCommand(a),
		newIdentifyCommand(a),
		newCollectionCommand(a),
		newSyncCommand(a),
		newCacheCommand(a),
		newAuthCommand(a),
		newDaemonCommand(a),
		newShellCommand(a),
	)
	return root
}

// Execute runs one command line against a.
func Execute(ctx context.Context, a *App, args []string) error {
	root := NewRootCommand(a)
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.ExecuteContext(ctx)
}

// Describe turns an error into a message for the user.
func Describe(err error) string {
	var (
		pe *api.ParseError
		re *client.RemoteError
	)
	switch {
	case errors.Is(err, services.ErrOffline):
		return "You are offline and nothing is cached for this request yet. Try again when connected."
	case errors.Is(err, common.ErrorNotFound):
		return "Not found."
	case errors.As(err, &pe):
		return "Invalid input: " + pe.Error()
	case errors.As(err, &re) && re.Kind == client.KindRateLimited:
		if re.RetryAfter > 0 {
			return fmt.Sprintf("Rate limited by the server, retry in %s.", re.RetryAfter)
		}
		return "Rate limited by the server, retry later."
	case errors.As(err, &re) && re.Kind == client.KindUnauthorized:
		return "The server rejected the token. Set one with: plantcare auth token"
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	default:
		return "Error: " + err.Error()
	}
}
