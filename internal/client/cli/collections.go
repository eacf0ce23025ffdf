package cli

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/patch"
)

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newCollectionCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"c"},
		Short:   "Your plants",
	}
	cmd.AddCommand(
		newCollectionAddCommand(a),
		newCollectionListCommand(a),
		newCollectionShowCommand(a),
		newCollectionUpdateCommand(a),
		newCollectionCareCommand(a),
		newCollectionImageCommand(a),
	)
	return cmd
}

func newCollectionAddCommand(a *App) *cobra.Command {
	var (
		rec                           api.CollectionRecord
		scientific, notes, identified string
	)
	cmd := &cobra.Command{
		Use:         "add",
		Short:       "Add a plant (works offline)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{localOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rec.ScientificName = optional(scientific)
			rec.Notes = optional(notes)
			if identified != "" {
				t, err := parseDate(identified)
				if err != nil {
					return err
				}
				rec.IdentifiedAt = &t
			}

			row, err := a.collections.Add(cmd.Context(), rec)
			if err != nil {
				return err
			}
			return a.printCollection(row)
		},
	}
	cmd.Flags().StringVar(&rec.PlantID, "plant-id", "", "plant identifier (required)")
	cmd.Flags().StringVar(&rec.CommonName, "name", "", "common name (required)")
	cmd.Flags().StringVar(&scientific, "scientific-name", "", "scientific name")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().IntVar(&rec.CareFrequencyDays, "frequency", api.DefaultCareFrequencyDays, "days between care")
	cmd.Flags().StringVar(&rec.HealthStatus, "health", api.HealthHealthy, "healthy, needs_attention or sick")
	cmd.Flags().StringVar(&identified, "identified-at", "", "identification date")
	_ = cmd.MarkFlagRequired("plant-id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCollectionListCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:         "list",
		Short:       "List plants, soonest care first",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{localOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.collections.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.printCollections(list)
		},
	}
}

func newCollectionShowCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:         "show <key>",
		Short:       "Show one plant by local or server id",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{localOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := a.collections.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printCollection(row)
		},
	}
}

func newCollectionUpdateCommand(a *App) *cobra.Command {
	var (
		name, scientific, notes, health, nextCare string
		frequency                                 int
		clearNotes, clearImage                    bool
	)
	cmd := &cobra.Command{
		Use:   "update <key>",
		Short: "Change a plant's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var p api.CollectionPatch
			if flags.Changed("name") {
				p.CommonName = patch.Set(name)
			}
			if flags.Changed("scientific-name") {
				p.ScientificName = patch.Set(optional(scientific))
			}
			if flags.Changed("notes") {
				p.Notes = patch.Set(optional(notes))
			}
			if clearNotes {
				p.Notes = patch.Null[string]()
			}
			if clearImage {
				p.ImageURL = patch.Null[string]()
			}
			if flags.Changed("health") {
				p.HealthStatus = patch.Set(health)
			}
			if flags.Changed("frequency") {
				p.CareFrequencyDays = patch.Set(frequency)
			}
			if flags.Changed("next-care") {
				t, err := parseDate(nextCare)
				if err != nil {
					return err
				}
				p.NextCareDate = patch.Set(&t)
			}
			if p.Empty() {
				return fmt.Errorf("nothing to update, see --help")
			}

			row, err := a.collections.Update(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			return a.printCollection(row)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "common name")
	cmd.Flags().StringVar(&scientific, "scientific-name", "", "scientific name (empty clears)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes (empty clears)")
	cmd.Flags().BoolVar(&clearNotes, "clear-notes", false, "remove the notes")
	cmd.Flags().BoolVar(&clearImage, "clear-image", false, "remove the image")
	cmd.Flags().StringVar(&health, "health", "", "healthy, needs_attention or sick")
	cmd.Flags().IntVar(&frequency, "frequency", 0, "days between care")
	cmd.Flags().StringVar(&nextCare, "next-care", "", "next care date")
	return cmd
}

func newCollectionCareCommand(a *App) *cobra.Command {
	var (
		req        api.CareRequest
		date, note string
	)
	cmd := &cobra.Command{
		Use:   "care <key>",
		Short: "Record watering, fertilizing and other care",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				t, err := parseDate(date)
				if err != nil {
					return err
				}
				req.CareDate = t
			}
			req.Notes = optional(note)

			row, err := a.collections.RecordCare(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return a.printCollection(row)
		},
	}
	cmd.Flags().StringVar(&req.CareType, "type", "watering", "watering, fertilizing, pruning, repotting, pest_control or other")
	cmd.Flags().StringVar(&date, "date", "", "when the care happened (default now)")
	cmd.Flags().StringVar(&note, "notes", "", "notes")
	return cmd
}

func newCollectionImageCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "image <key> <file>",
		Short: "Upload a photo of a plant (needs a connection)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			contentType := http.DetectContentType(data)
			if !strings.HasPrefix(contentType, "image/") {
				return fmt.Errorf("%s does not look like an image (%s)", args[1], contentType)
			}

			row, err := a.collections.AttachImage(cmd.Context(), args[0], contentType, data)
			if err != nil {
				return err
			}
			return a.printCollection(row)
		},
	}
}
