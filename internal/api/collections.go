package api

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/patch"
)

const (
	HealthHealthy        = "healthy"
	HealthNeedsAttention = "needs_attention"
	HealthSick           = "sick"

	DefaultCareFrequencyDays = 7
	MaxCareFrequencyDays     = 365
	MaxNotesLength           = 2000
	MaxCareNotesLength       = 1000
)

var careTypes = map[string]struct{}{
	"watering":     {},
	"fertilizing":  {},
	"pruning":      {},
	"repotting":    {},
	"pest_control": {},
	"other":        {},
}

func validHealth(s string) bool {
	switch s {
	case HealthHealthy, HealthNeedsAttention, HealthSick:
		return true
	}
	return false
}

// CollectionRecord is a plant in a user's collection. On the client, ID is
// empty until the server has acknowledged the record, and ClientRef carries
// the local key so push results can be correlated.
type CollectionRecord struct {
	ID                string     `json:"id,omitempty"`
	ClientRef         string     `json:"client_ref,omitempty"`
	UserID            string     `json:"user_id,omitempty"`
	PlantID           string     `json:"plant_id"`
	CommonName        string     `json:"common_name"`
	ScientificName    *string    `json:"scientific_name"`
	ImageURL          *string    `json:"image_url"`
	IdentifiedAt      *time.Time `json:"identified_at"`
	LastCareDate      *time.Time `json:"last_care_date"`
	NextCareDate      *time.Time `json:"next_care_date"`
	CareFrequencyDays int        `json:"care_frequency_days"`
	HealthStatus      string     `json:"health_status"`
	Notes             *string    `json:"notes"`
	IsSynced          bool       `json:"is_synced"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Normalize fills defaults and trims free text. It does not validate.
func (c *CollectionRecord) Normalize() {
	c.CommonName = strings.TrimSpace(c.CommonName)
	c.PlantID = strings.TrimSpace(c.PlantID)
	if c.CareFrequencyDays == 0 {
		c.CareFrequencyDays = DefaultCareFrequencyDays
	}
	if c.HealthStatus == "" {
		c.HealthStatus = HealthHealthy
	}
	if c.NextCareDate == nil && c.IdentifiedAt != nil {
		next := NextCareDate(*c.IdentifiedAt, c.CareFrequencyDays)
		c.NextCareDate = &next
	}
}

func (c *CollectionRecord) Validate() error {
	if c.PlantID == "" {
		return FieldError("plant_id", "required")
	}
	if strings.TrimSpace(c.CommonName) == "" {
		return FieldError("common_name", "required")
	}
	if c.CareFrequencyDays != 0 && (c.CareFrequencyDays < 1 || c.CareFrequencyDays > MaxCareFrequencyDays) {
		return FieldError("care_frequency_days", "must be between 1 and %d", MaxCareFrequencyDays)
	}
	if c.HealthStatus != "" && !validHealth(c.HealthStatus) {
		return FieldError("health_status", "must be healthy, needs_attention or sick")
	}
	if c.Notes != nil && len(*c.Notes) > MaxNotesLength {
		return FieldError("notes", "must be at most %d characters", MaxNotesLength)
	}
	return nil
}

// NextCareDate is from plus the care interval in whole days.
func NextCareDate(from time.Time, frequencyDays int) time.Time {
	return from.AddDate(0, 0, frequencyDays)
}

// CollectionPatch is a partial update. Absent keys leave the record alone;
// null clears nullable attributes.
type CollectionPatch struct {
	CommonName        patch.Field[string]     `json:"common_name,omitzero"`
	ScientificName    patch.Field[*string]    `json:"scientific_name,omitzero"`
	ImageURL          patch.Field[*string]    `json:"image_url,omitzero"`
	LastCareDate      patch.Field[*time.Time] `json:"last_care_date,omitzero"`
	NextCareDate      patch.Field[*time.Time] `json:"next_care_date,omitzero"`
	CareFrequencyDays patch.Field[int]        `json:"care_frequency_days,omitzero"`
	HealthStatus      patch.Field[string]     `json:"health_status,omitzero"`
	Notes             patch.Field[*string]    `json:"notes,omitzero"`
}

func (p *CollectionPatch) Validate() error {
	if v, ok := p.CommonName.Get(); ok && strings.TrimSpace(v) == "" {
		return FieldError("common_name", "must not be empty")
	}
	if v, ok := p.CareFrequencyDays.Get(); ok && (v < 1 || v > MaxCareFrequencyDays) {
		return FieldError("care_frequency_days", "must be between 1 and %d", MaxCareFrequencyDays)
	}
	if v, ok := p.HealthStatus.Get(); ok && !validHealth(v) {
		return FieldError("health_status", "must be healthy, needs_attention or sick")
	}
	if v, ok := p.Notes.Get(); ok && v != nil && len(*v) > MaxNotesLength {
		return FieldError("notes", "must be at most %d characters", MaxNotesLength)
	}
	return nil
}

// Empty reports whether no field is set.
func (p *CollectionPatch) Empty() bool {
	return !p.CommonName.IsSet() && !p.ScientificName.IsSet() && !p.ImageURL.IsSet() &&
		!p.LastCareDate.IsSet() && !p.NextCareDate.IsSet() && !p.CareFrequencyDays.IsSet() &&
		!p.HealthStatus.IsSet() && !p.Notes.IsSet()
}

// Apply writes the set fields into c and reports whether anything changed.
func (p *CollectionPatch) Apply(c *CollectionRecord) bool {
	changed := false
	if p.CommonName.Apply(&c.CommonName) {
		c.CommonName = strings.TrimSpace(c.CommonName)
		changed = true
	}
	changed = p.ScientificName.Apply(&c.ScientificName) || changed
	changed = p.ImageURL.Apply(&c.ImageURL) || changed
	changed = p.LastCareDate.Apply(&c.LastCareDate) || changed
	changed = p.NextCareDate.Apply(&c.NextCareDate) || changed
	changed = p.CareFrequencyDays.Apply(&c.CareFrequencyDays) || changed
	changed = p.HealthStatus.Apply(&c.HealthStatus) || changed
	changed = p.Notes.Apply(&c.Notes) || changed
	return changed
}

type CollectionPage struct {
	Collections []CollectionRecord `json:"collections"`
	Total       int                `json:"total"`
	Limit       int                `json:"limit"`
	Offset      int                `json:"offset"`
	HasMore     bool               `json:"has_more"`
}

// SyncRequest is a push batch. Items are validated one by one on the
// server so a bad item never rejects the rest.
type SyncRequest struct {
	Collections []CollectionRecord `json:"collections"`
}

type SyncFailure struct {
	ClientRef string `json:"client_ref,omitempty"`
	ID        string `json:"id,omitempty"`
	Error     string `json:"error"`
}

// SyncAck is the server's answer to a push. ServerState holds the
// authoritative copy of every accepted item, echoing its client_ref.
type SyncAck struct {
	SyncedCount int                `json:"synced_count"`
	FailedCount int                `json:"failed_count"`
	ServerState []CollectionRecord `json:"server_state"`
	Failures    []SyncFailure      `json:"failures,omitempty"`
}

// CareRequest records a care event. A zero CareDate means now.
type CareRequest struct {
	CareDate time.Time `json:"care_date,omitzero"`
	CareType string    `json:"care_type"`
	Notes    *string   `json:"notes,omitempty"`
}

func (r *CareRequest) Validate() error {
	if _, ok := careTypes[r.CareType]; !ok {
		return FieldError("care_type", "must be one of watering, fertilizing, pruning, repotting, pest_control, other")
	}
	if r.Notes != nil && len(*r.Notes) > MaxCareNotesLength {
		return FieldError("notes", "must be at most %d characters", MaxCareNotesLength)
	}
	return nil
}

type CareHistory struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	CareDate     time.Time `json:"care_date"`
	CareType     string    `json:"care_type"`
	Notes        *string   `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

type CareResponse struct {
	CareHistory CareHistory      `json:"care_history"`
	Collection  CollectionRecord `json:"collection"`
}
