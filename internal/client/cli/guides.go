package cli

import (
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

func newGuideCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Care and treatment guides",
	}

	get := &cobra.Command{
		Use:   "get <guide-id>",
		Short: "Show a guide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.guides.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(a, res, printGuide)
		},
	}

	var (
		disease string
		page    api.Page
	)
	list := &cobra.Command{
		Use:   "list <plant-id>",
		Short: "List guides for a plant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.guides.ListByPlant(cmd.Context(), args[0], api.GuideFilter{DiseaseName: disease}, page)
			if err != nil {
				return err
			}
			return printResult(a, res, printGuidePage)
		},
	}
	list.Flags().StringVar(&disease, "disease", "", "only guides for this disease")
	list.Flags().IntVar(&page.Limit, "limit", 10, "page size (max 100)")
	list.Flags().IntVar(&page.Offset, "offset", 0, "page offset")

	cmd.AddCommand(get, list)
	return cmd
}
