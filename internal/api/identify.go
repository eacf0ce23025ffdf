package api

import "strings"

// IdentifyRequest asks for a species identification. Exactly one of
// ImageURL and ImageBase64 must be set.
type IdentifyRequest struct {
	ImageURL    string   `json:"image_url,omitempty"`
	ImageBase64 string   `json:"image_base64,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Health      bool     `json:"health,omitempty"`
}

func (r *IdentifyRequest) Validate() error {
	hasURL := strings.TrimSpace(r.ImageURL) != ""
	hasData := r.ImageBase64 != ""
	if hasURL == hasData {
		return FieldError("image", "exactly one of image_url and image_base64 is required")
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		return FieldError("latitude", "must be between -90 and 90")
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		return FieldError("longitude", "must be between -180 and 180")
	}
	return nil
}

// CitedText is a text attribute with an optional source.
type CitedText struct {
	Text     string `json:"text"`
	Citation string `json:"citation,omitempty"`
}

type CareInfo struct {
	Watering *CitedText `json:"watering,omitempty"`
	Light    *CitedText `json:"light,omitempty"`
}

type Disease struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

type HealthAssessment struct {
	IsHealthy   bool      `json:"is_healthy"`
	Probability float64   `json:"probability"`
	Diseases    []Disease `json:"diseases"`
}

type Suggestion struct {
	ScientificName string   `json:"scientific_name"`
	CommonNames    []string `json:"common_names,omitempty"`
	Probability    float64  `json:"probability"`
}

// IdentifyResult is the provider-neutral identification outcome.
type IdentifyResult struct {
	Provider         string            `json:"provider"`
	ScientificName   string            `json:"scientific_name"`
	CommonName       string            `json:"common_name"`
	Confidence       float64           `json:"confidence"`
	Description      *string           `json:"description,omitempty"`
	Care             *CareInfo         `json:"care,omitempty"`
	HealthAssessment *HealthAssessment `json:"health_assessment,omitempty"`
	Suggestions      []Suggestion      `json:"suggestions"`
}
