package api

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantPath string
		reason   string
	}{
		{name: "empty body", in: ``, reason: "empty body"},
		{name: "syntax", in: `{"plant_id": }`, reason: "invalid character"},
		{name: "truncated", in: `{"plant_id": "p1"`, reason: "unexpected end"},
		{name: "wrong type", in: `{"plant_id": 5, "common_name": "Fern"}`, wantPath: "plant_id", reason: "expected string"},
		{name: "unknown field", in: `{"plant_id":"p1","common_name":"Fern","colour":"green"}`, wantPath: "colour", reason: "unknown field"},
		{name: "trailing data", in: `{"plant_id":"p1","common_name":"Fern"} {}`, reason: "unexpected data"},
		{name: "validation", in: `{"plant_id":"p1","common_name":"  "}`, wantPath: "common_name", reason: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec CollectionRecord
			err := Decode(strings.NewReader(tt.in), &rec)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.wantPath, pe.Path)
			assert.Contains(t, pe.Reason, tt.reason)
		})
	}
}

func TestDecode_OK(t *testing.T) {
	var rec CollectionRecord
	err := DecodeBytes([]byte(`{"plant_id":"p1","common_name":"Fern","care_frequency_days":3}`+"\n"), &rec)
	require.NoError(t, err)
	assert.Equal(t, "p1", rec.PlantID)
	assert.Equal(t, 3, rec.CareFrequencyDays)
}

func TestDecode_AllowUnknownFields(t *testing.T) {
	var s Suggestion
	err := DecodeBytes([]byte(`{"scientific_name":"Ficus","probability":0.9,"extra":1}`), &s, AllowUnknownFields())
	require.NoError(t, err)
	assert.Equal(t, "Ficus", s.ScientificName)
}

func TestParseError_Error(t *testing.T) {
	err := &ParseError{Path: "notes", Reason: "too long", Offset: -1}
	assert.Equal(t, "parse error at notes: too long", err.Error())

	err = &ParseError{Reason: "bad", Offset: 12}
	assert.Equal(t, "parse error (offset 12): bad", err.Error())
}

func TestCollectionPatch_DecodeAndApply(t *testing.T) {
	notes := "old notes"
	rec := CollectionRecord{CommonName: "Fern", Notes: &notes, CareFrequencyDays: 7, HealthStatus: HealthHealthy}

	var p CollectionPatch
	require.NoError(t, DecodeBytes([]byte(`{"notes": null, "health_status": "sick"}`), &p))
	assert.False(t, p.CommonName.IsSet())
	assert.False(t, p.Empty())

	assert.True(t, p.Apply(&rec))
	assert.Nil(t, rec.Notes)
	assert.Equal(t, HealthSick, rec.HealthStatus)
	assert.Equal(t, "Fern", rec.CommonName)
	assert.Equal(t, 7, rec.CareFrequencyDays)
}

func TestCollectionPatch_Validate(t *testing.T) {
	var p CollectionPatch
	err := DecodeBytes([]byte(`{"care_frequency_days": 400}`), &p)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "care_frequency_days", pe.Path)

	p = CollectionPatch{}
	require.NoError(t, DecodeBytes([]byte(`{}`), &p))
	assert.True(t, p.Empty())
}

func TestCollectionRecord_Normalize(t *testing.T) {
	identified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := CollectionRecord{PlantID: " p1 ", CommonName: "  Monstera ", IdentifiedAt: &identified}
	rec.Normalize()

	assert.Equal(t, "p1", rec.PlantID)
	assert.Equal(t, "Monstera", rec.CommonName)
	assert.Equal(t, DefaultCareFrequencyDays, rec.CareFrequencyDays)
	assert.Equal(t, HealthHealthy, rec.HealthStatus)
	require.NotNil(t, rec.NextCareDate)
	assert.Equal(t, identified.AddDate(0, 0, 7), *rec.NextCareDate)
}

func TestCareRequest_Validate(t *testing.T) {
	assert.NoError(t, (&CareRequest{CareType: "watering"}).Validate())
	assert.Error(t, (&CareRequest{CareType: "singing"}).Validate())

	long := strings.Repeat("x", MaxCareNotesLength+1)
	assert.Error(t, (&CareRequest{CareType: "other", Notes: &long}).Validate())
}

func TestIdentifyRequest_Validate(t *testing.T) {
	assert.Error(t, (&IdentifyRequest{}).Validate())
	assert.Error(t, (&IdentifyRequest{ImageURL: "http://x", ImageBase64: "aGk="}).Validate())
	assert.NoError(t, (&IdentifyRequest{ImageURL: "http://x"}).Validate())

	lat := 120.0
	assert.Error(t, (&IdentifyRequest{ImageBase64: "aGk=", Latitude: &lat}).Validate())
}

func TestGuide_Validate(t *testing.T) {
	g := Guide{
		PlantID:   "p1",
		Severity:  SeverityLow,
		GuideType: GuideTypeDiseaseTreatment,
		Steps:     []GuideStep{{StepNumber: 1, Title: "Remove leaves"}, {StepNumber: 2, Title: "Spray"}},
	}
	require.NoError(t, g.Validate())

	g.Steps[1].StepNumber = 3
	assert.Error(t, g.Validate())

	g.Steps[1].StepNumber = 2
	g.Severity = "extreme"
	assert.Error(t, g.Validate())
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, Page{Limit: 10}, Page{}.Normalize(10, 100))
	assert.Equal(t, Page{Limit: 100, Offset: 0}, Page{Limit: 500, Offset: -3}.Normalize(10, 100))
	assert.Equal(t, Page{Limit: 5, Offset: 20}, Page{Limit: 5, Offset: 20}.Normalize(10, 100))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "guide:id:g1", GuideKey("g1"))
	assert.Equal(t, "guide:plant:p1:disease:all:limit:10:offset:0",
		GuidesByPlantKey("p1", GuideFilter{}, Page{Limit: 10}))
	assert.Equal(t, "guide:plant:p1:disease:rust:limit:5:offset:10",
		GuidesByPlantKey("p1", GuideFilter{DiseaseName: " Rust "}, Page{Limit: 5, Offset: 10}))
	assert.Equal(t, "guide:plant:p1:*", GuidesByPlantPattern("p1"))
	assert.Equal(t, "identify:abc", IdentifyKey("abc"))
}

func TestIdentifyFingerprint(t *testing.T) {
	lat := 52.52
	a := IdentifyFingerprint(IdentifyRequest{ImageBase64: "aGk=", Latitude: &lat})
	b := IdentifyFingerprint(IdentifyRequest{ImageBase64: "aGk=", Latitude: &lat})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, IdentifyFingerprint(IdentifyRequest{ImageBase64: "aGk=", Latitude: &lat, Health: true}))
	assert.NotEqual(t, a, IdentifyFingerprint(IdentifyRequest{ImageBase64: "aGk="}))
}
