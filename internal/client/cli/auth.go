package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "auth",
		Short:       "Manage the API token",
		Annotations: map[string]string{localOnly: "true"},
	}

	token := &cobra.Command{
		Use:         "token [token]",
		Short:       "Save the bearer token used for collection requests",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{localOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				v, err := readSecret(a.in, "Token", a.out)
				if err != nil {
					return err
				}
				value = v
			}
			if value == "" {
				return errors.New("empty token")
			}
			if err := a.meta.Set(cmd.Context(), TokenKey, []byte(value)); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Token saved. It is used from the next command on.")
			return nil
		},
	}

	logout := &cobra.Command{
		Use:         "logout",
		Short:       "Forget the saved token",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{localOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.meta.Delete(cmd.Context(), TokenKey); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Token removed.")
			return nil
		},
	}

	cmd.AddCommand(token, logout)
	return cmd
}
