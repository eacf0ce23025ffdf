package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/client/models"
	"github.com/dmitrijs2005/plantcare/internal/client/services"
)

const (
	OutputAuto = "auto"
	OutputText = "text"
	OutputJSON = "json"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// useJSON resolves the --output flag: auto means text on a terminal and JSON
// when stdout is piped.
func useJSON(mode string, w io.Writer) bool {
	switch mode {
	case OutputJSON:
		return true
	case OutputText:
		return false
	}
	f, ok := w.(*os.File)
	return !ok || !isTerminal(int(f.Fd()))
}

type envelope struct {
	Data      any        `json:"data"`
	FromCache bool       `json:"from_cache"`
	IsOffline bool       `json:"is_offline"`
	IsStale   bool       `json:"is_stale"`
	CachedAt  *time.Time `json:"cached_at,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult renders an orchestrated result with its provenance.
func printResult[T any](a *App, res *services.Result[T], text func(io.Writer, *T)) error {
	if a.jsonOutput() {
		env := envelope{Data: res.Value, FromCache: res.FromCache, IsOffline: res.IsOffline, IsStale: res.IsStale}
		if res.FromCache {
			at := res.CachedAt
			env.CachedAt = &at
		}
		return writeJSON(a.out, env)
	}

	text(a.out, &res.Value)
	if note := provenance(res.FromCache, res.IsOffline, res.IsStale, res.CachedAt); note != "" {
		fmt.Fprintln(a.out, note)
	}
	return nil
}

func provenance(fromCache, offline, stale bool, cachedAt time.Time) string {
	if !fromCache {
		return ""
	}
	parts := []string{"cached " + cachedAt.Local().Format("2006-01-02 15:04")}
	if offline {
		parts = append(parts, "offline")
	}
	if stale {
		parts = append(parts, "may be outdated")
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func printGuide(w io.Writer, g *api.Guide) {
	fmt.Fprintf(w, "Guide %s  plant=%s  type=%s  severity=%s\n", g.ID, g.PlantID, g.GuideType, g.Severity)
	if g.DiseaseName != nil {
		fmt.Fprintf(w, "Disease: %s\n", *g.DiseaseName)
	}
	if g.EstimatedDuration != nil {
		fmt.Fprintf(w, "Estimated duration: %s\n", *g.EstimatedDuration)
	}
	if len(g.Materials) > 0 {
		fmt.Fprintf(w, "Materials: %s\n", strings.Join(g.Materials, ", "))
	}
	for _, s := range g.Steps {
		marker := " "
		if s.IsCritical {
			marker = "!"
		}
		fmt.Fprintf(w, "%s %2d. %s\n", marker, s.StepNumber, s.Title)
		if s.Description != "" {
			fmt.Fprintf(w, "      %s\n", s.Description)
		}
	}
}

func printGuidePage(w io.Writer, p *api.GuidePage) {
	fmt.Fprintf(w, "%d guide(s) for plant %s (showing %d from offset %d)\n", p.TotalResults, p.PlantID, len(p.Guides), p.Offset)
	for _, g := range p.Guides {
		disease := "-"
		if g.DiseaseName != nil {
			disease = *g.DiseaseName
		}
		fmt.Fprintf(w, "  %-36s  %-18s  %-8s  %s\n", g.ID, g.GuideType, g.Severity, disease)
	}
}

func printIdentification(w io.Writer, r *api.IdentifyResult) {
	fmt.Fprintf(w, "%s (%s)  confidence %.0f%%\n", r.ScientificName, r.CommonName, r.Confidence*100)
	if r.Description != nil {
		fmt.Fprintln(w, *r.Description)
	}
	if r.Care != nil {
		if r.Care.Watering != nil {
			fmt.Fprintf(w, "Watering: %s\n", r.Care.Watering.Text)
		}
		if r.Care.Light != nil {
			fmt.Fprintf(w, "Light: %s\n", r.Care.Light.Text)
		}
	}
	if h := r.HealthAssessment; h != nil {
		state := "healthy"
		if !h.IsHealthy {
			state = "not healthy"
		}
		fmt.Fprintf(w, "Health: %s (%.0f%%)\n", state, h.Probability*100)
		for _, d := range h.Diseases {
			fmt.Fprintf(w, "  - %s (%.0f%%)\n", d.Name, d.Probability*100)
		}
	}
	if len(r.Suggestions) > 1 {
		fmt.Fprintln(w, "Other candidates:")
		for _, s := range r.Suggestions[1:] {
			fmt.Fprintf(w, "  - %s (%.0f%%)\n", s.ScientificName, s.Probability*100)
		}
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func syncState(c *models.LocalCollection) string {
	if c.Pending() {
		return "pending"
	}
	return "synced"
}

func printCollection(w io.Writer, c *models.LocalCollection) {
	fmt.Fprintf(w, "%s  %s\n", c.Key(), c.CommonName)
	if c.ScientificName != nil {
		fmt.Fprintf(w, "  scientific name: %s\n", *c.ScientificName)
	}
	fmt.Fprintf(w, "  plant:           %s\n", c.PlantID)
	fmt.Fprintf(w, "  health:          %s\n", c.HealthStatus)
	fmt.Fprintf(w, "  care every:      %d day(s)\n", c.CareFrequencyDays)
	fmt.Fprintf(w, "  last care:       %s\n", formatDate(c.LastCareDate))
	fmt.Fprintf(w, "  next care:       %s\n", formatDate(c.NextCareDate))
	if c.ImageURL != nil {
		fmt.Fprintf(w, "  image:           %s\n", *c.ImageURL)
	}
	if c.Notes != nil {
		fmt.Fprintf(w, "  notes:           %s\n", *c.Notes)
	}
	fmt.Fprintf(w, "  state:           %s\n", syncState(c))
}

func printCollections(w io.Writer, list []*models.LocalCollection) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No plants yet. Add one with: collection add --plant-id ID --name NAME")
		return
	}
	for _, c := range list {
		fmt.Fprintf(w, "%-42s  %-24s  next %-10s  %-15s  %s\n",
			c.Key(), c.CommonName, formatDate(c.NextCareDate), c.HealthStatus, syncState(c))
	}
}

// collectionView is the JSON shape of a local row.
type collectionView struct {
	LocalID string `json:"local_id"`
	api.CollectionRecord
	Pending bool `json:"pending"`
}

func viewOf(c *models.LocalCollection) collectionView {
	return collectionView{LocalID: c.LocalID, CollectionRecord: c.CollectionRecord, Pending: c.Pending()}
}

func (a *App) printCollection(c *models.LocalCollection) error {
	if a.jsonOutput() {
		return writeJSON(a.out, viewOf(c))
	}
	printCollection(a.out, c)
	return nil
}

func (a *App) printCollections(list []*models.LocalCollection) error {
	if a.jsonOutput() {
		views := make([]collectionView, 0, len(list))
		for _, c := range list {
			views = append(views, viewOf(c))
		}
		return writeJSON(a.out, views)
	}
	printCollections(a.out, list)
	return nil
}
