package engine

import (
	"strconv"
	"strings"

	"mediaforge/internal/domain"
)

// Providers that address reference assets by opaque media identifier rather
// than by public URL.
const providerFXLab = "fxlab"

// JobRequest is the wire payload for the job creation endpoint.
type JobRequest struct {
	Type          string        `json:"type"`
	Input         JobInput      `json:"input"`
	Config        JobConfig     `json:"config"`
	Engine        JobEngine     `json:"engine"`
	EnginePayload EnginePayload `json:"enginePayload"`
}

type JobInput struct {
	Images []string `json:"images"`
}

type JobConfig struct {
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspectRatio"`
	Resolution  string `json:"resolution"`
}

type JobEngine struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type EnginePayload struct {
	Prompt        string `json:"prompt"`
	Privacy       string `json:"privacy"`
	TranslateToEn bool   `json:"translateToEn"`
	ProjectID     string `json:"projectId"`
	Mode          string `json:"mode"`
}

// BuildJobRequest maps a creative spec and engine selection onto the wire
// schema. Validation happens upstream; this mapping never fails.
func BuildJobRequest(spec domain.CreativeSpec, eng domain.EngineConfig, projectID string) JobRequest {
	return JobRequest{
		Type: spec.Mode,
		Input: JobInput{
			Images: referenceInputs(spec.References, eng.Provider),
		},
		Config: JobConfig{
			Duration:    durationSeconds(spec.Duration),
			AspectRatio: spec.AspectRatio,
			Resolution:  spec.Resolution,
		},
		Engine: JobEngine{
			Provider: eng.Provider,
			Model:    eng.Model,
		},
		EnginePayload: EnginePayload{
			Prompt:        spec.Prompt,
			Privacy:       "PRIVATE",
			TranslateToEn: spec.TranslateToEn,
			ProjectID:     projectID,
			Mode:          spec.Mode,
		},
	}
}

// referenceInputs picks the provider's addressing scheme: fxlab consumes
// media identifiers, everything else public URLs.
func referenceInputs(refs []domain.AssetRef, provider string) []string {
	images := make([]string, 0, len(refs))
	for _, ref := range refs {
		if strings.EqualFold(provider, providerFXLab) {
			images = append(images, ref.MediaID)
			continue
		}
		images = append(images, ref.URL)
	}
	return images
}

// durationSeconds parses duration strings like "8s" or "8". Unparseable
// values fall back to zero and let the backend apply its default.
func durationSeconds(raw string) int {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "s")
	if trimmed == "" {
		return 0
	}
	seconds, err := strconv.Atoi(trimmed)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
