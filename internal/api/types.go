// Package api holds the JSON wire types shared by the plantcare server and
// client, their validation rules, the cache key scheme, and a strict decoder.
package api

import (
	"strings"
	"time"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"

	GuideTypeIdentification   = "identification"
	GuideTypeDiseaseTreatment = "disease_treatment"

	MaxGuideSteps = 10
)

type GuideStep struct {
	StepNumber    int      `json:"step_number"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ImageURL      *string  `json:"image_url,omitempty"`
	Materials     []string `json:"materials"`
	IsCritical    bool     `json:"is_critical"`
	EstimatedTime *string  `json:"estimated_time,omitempty"`
}

// Guide is a treatment or identification guide for a plant, optionally
// scoped to a disease.
type Guide struct {
	ID                       string      `json:"id"`
	PlantID                  string      `json:"plant_id"`
	DiseaseName              *string     `json:"disease_name"`
	Severity                 string      `json:"severity"`
	GuideType                string      `json:"guide_type"`
	Steps                    []GuideStep `json:"steps"`
	Materials                []string    `json:"materials"`
	EstimatedDurationMinutes *int        `json:"estimated_duration_minutes"`
	EstimatedDuration        *string     `json:"estimated_duration"`
	CreatedAt                time.Time   `json:"created_at"`
	UpdatedAt                time.Time   `json:"updated_at"`
}

func (g *Guide) Validate() error {
	if strings.TrimSpace(g.PlantID) == "" {
		return FieldError("plant_id", "required")
	}
	switch g.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return FieldError("severity", "must be one of low, medium, high")
	}
	switch g.GuideType {
	case GuideTypeIdentification, GuideTypeDiseaseTreatment:
	default:
		return FieldError("guide_type", "must be identification or disease_treatment")
	}
	if len(g.Steps) == 0 || len(g.Steps) > MaxGuideSteps {
		return FieldError("steps", "must contain 1 to %d steps", MaxGuideSteps)
	}
	for i, s := range g.Steps {
		if s.StepNumber != i+1 {
			return FieldError("steps", "step numbers must be sequential from 1, got %d at position %d", s.StepNumber, i+1)
		}
		if strings.TrimSpace(s.Title) == "" {
			return FieldError("steps.title", "required")
		}
	}
	if g.EstimatedDurationMinutes != nil && *g.EstimatedDurationMinutes < 0 {
		return FieldError("estimated_duration_minutes", "must not be negative")
	}
	return nil
}

// GuideFilter narrows a by-plant listing. An empty DiseaseName means all.
type GuideFilter struct {
	DiseaseName string
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page: a non-positive limit becomes def, limits above
// max become max, and negative offsets become 0.
func (p Page) Normalize(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type GuidePage struct {
	PlantID       string   `json:"plant_id"`
	DiseaseFilter *string  `json:"disease_filter"`
	TotalResults  int      `json:"total_results"`
	Limit         int      `json:"limit"`
	Offset        int      `json:"offset"`
	Guides        []*Guide `json:"guides"`
}

type PresignResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
	ImageURL  string `json:"image_url"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
