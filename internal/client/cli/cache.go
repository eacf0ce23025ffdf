package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "cache",
		Short:       "Inspect and prune cached results",
		Annotations: map[string]string{localOnly: "true"},
	}

	cleanup := &cobra.Command{
		Use:         "cleanup",
		Short:       "Remove expired entries (they are no longer available offline)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{localOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.cache.CleanupExpired(cmd.Context())
			fmt.Fprintf(a.out, "Removed %d expired entr%s.\n", n, plural(n, "y", "ies"))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:         "clear [pattern]",
		Short:       "Remove entries matching a glob pattern (default all)",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{localOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			n := a.cache.Invalidate(cmd.Context(), pattern)
			fmt.Fprintf(a.out, "Removed %d entr%s.\n", n, plural(n, "y", "ies"))
			return nil
		},
	}

	cmd.AddCommand(cleanup, clearCmd)
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
