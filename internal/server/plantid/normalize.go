package plantid

import (
	"encoding/json"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

const provider = "plant.id"

// healthyThreshold is the is_healthy probability at or above which a plant
// is reported healthy.
const healthyThreshold = 0.5

// citedValue accepts either {"value": ..., "citation": ...} or a bare string.
type citedValue struct {
	Value    string `json:"value"`
	Citation string `json:"citation"`
}

func (c *citedValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		c.Value = s
		return nil
	}
	type plain citedValue
	return json.Unmarshal(b, (*plain)(c))
}

func (c *citedValue) toCited() *api.CitedText {
	if c == nil || c.Value == "" {
		return nil
	}
	return &api.CitedText{Text: c.Value, Citation: c.Citation}
}

type v3Suggestion struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Details     *struct {
		CommonNames        []string    `json:"common_names"`
		Description        *citedValue `json:"description"`
		BestWatering       *citedValue `json:"best_watering"`
		BestLightCondition *citedValue `json:"best_light_condition"`
	} `json:"details"`
}

type v3Response struct {
	Result *struct {
		Classification struct {
			Suggestions []v3Suggestion `json:"suggestions"`
		} `json:"classification"`
		IsHealthy *struct {
			Probability float64 `json:"probability"`
		} `json:"is_healthy"`
		Disease *struct {
			Suggestions []struct {
				Name        string  `json:"name"`
				Probability float64 `json:"probability"`
			} `json:"suggestions"`
		} `json:"disease"`
	} `json:"result"`
}

type legacyResponse struct {
	Suggestions []struct {
		ScientificName string  `json:"scientific_name"`
		PlantName      string  `json:"plant_name"`
		Probability    float64 `json:"probability"`
		PlantDetails   *struct {
			CommonNames []string `json:"common_names"`
		} `json:"plant_details"`
	} `json:"suggestions"`
}

// Normalize converts a provider body in either the v3 shape
// ({"result": {"classification": ...}}) or the legacy flat shape
// ({"suggestions": [...]}) into an IdentifyResult.
func Normalize(body []byte) (*api.IdentifyResult, error) {
	var probe map[string]json.RawMessage
	if err := api.DecodeBytes(body, &probe, api.AllowUnknownFields()); err != nil {
		return nil, err
	}

	if _, ok := probe["result"]; ok {
		var r v3Response
		if err := api.DecodeBytes(body, &r, api.AllowUnknownFields()); err != nil {
			return nil, err
		}
		return fromV3(&r)
	}
	if _, ok := probe["suggestions"]; ok {
		var r legacyResponse
		if err := api.DecodeBytes(body, &r, api.AllowUnknownFields()); err != nil {
			return nil, err
		}
		return fromLegacy(&r)
	}
	return nil, api.FieldError("result", "response has neither result nor suggestions")
}

func fromV3(r *v3Response) (*api.IdentifyResult, error) {
	if r.Result == nil || len(r.Result.Classification.Suggestions) == 0 {
		return nil, api.FieldError("result.classification.suggestions", "no suggestions")
	}
	sugg := r.Result.Classification.Suggestions
	top := sugg[0]

	out := &api.IdentifyResult{
		Provider:       provider,
		ScientificName: top.Name,
		Confidence:     top.Probability,
		Suggestions:    make([]api.Suggestion, 0, len(sugg)),
	}
	if d := top.Details; d != nil {
		if len(d.CommonNames) > 0 {
			out.CommonName = d.CommonNames[0]
		}
		if desc := d.Description.toCited(); desc != nil {
			out.Description = &desc.Text
		}
		care := &api.CareInfo{Watering: d.BestWatering.toCited(), Light: d.BestLightCondition.toCited()}
		if care.Watering != nil || care.Light != nil {
			out.Care = care
		}
	}
	for _, s := range sugg {
		var names []string
		if s.Details != nil {
			names = s.Details.CommonNames
		}
		out.Suggestions = append(out.Suggestions, api.Suggestion{ScientificName: s.Name, CommonNames: names, Probability: s.Probability})
	}

	if h := r.Result.IsHealthy; h != nil {
		ha := &api.HealthAssessment{
			IsHealthy:   h.Probability >= healthyThreshold,
			Probability: h.Probability,
			Diseases:    make([]api.Disease, 0),
		}
		if r.Result.Disease != nil {
			for _, d := range r.Result.Disease.Suggestions {
				ha.Diseases = append(ha.Diseases, api.Disease{Name: d.Name, Probability: d.Probability})
			}
		}
		out.HealthAssessment = ha
	}
	return out, nil
}

func fromLegacy(r *legacyResponse) (*api.IdentifyResult, error) {
	if len(r.Suggestions) == 0 {
		return nil, api.FieldError("suggestions", "no suggestions")
	}
	out := &api.IdentifyResult{Provider: provider, Suggestions: make([]api.Suggestion, 0, len(r.Suggestions))}

	for i, s := range r.Suggestions {
		var names []string
		if s.PlantName != "" {
			names = append(names, s.PlantName)
		}
		if s.PlantDetails != nil {
			for _, n := range s.PlantDetails.CommonNames {
				if n != s.PlantName {
					names = append(names, n)
				}
			}
		}
		if i == 0 {
			out.ScientificName = s.ScientificName
			out.Confidence = s.Probability
			if len(names) > 0 {
				out.CommonName = names[0]
			}
		}
		out.Suggestions = append(out.Suggestions, api.Suggestion{ScientificName: s.ScientificName, CommonNames: names, Probability: s.Probability})
	}
	return out, nil
}
