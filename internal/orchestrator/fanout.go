package orchestrator

import (
	"strings"

	"mediaforge/internal/domain"
)

// BatchFromBeats expands a storyboard into one task request per non-empty
// beat. Empty beats are skipped, not submitted as blanks. Each unit inherits
// the base request's engine, cost and funding; references apply to every
// beat.
func BatchFromBeats(beats []string, base TaskRequest) []TaskRequest {
	reqs := make([]TaskRequest, 0, len(beats))
	for _, beat := range beats {
		prompt := strings.TrimSpace(beat)
		if prompt == "" {
			continue
		}
		unit := base
		unit.Spec.Prompt = prompt
		unit.Spec.References = append([]domain.AssetRef(nil), base.Spec.References...)
		reqs = append(reqs, unit)
	}
	return reqs
}

// BatchFromKeyframes turns N ordered keyframes into N-1 interpolation
// segments, each referencing its start and end frame. Fewer than two frames
// yields no segments.
func BatchFromKeyframes(frames []domain.AssetRef, base TaskRequest) []TaskRequest {
	if len(frames) < 2 {
		return nil
	}
	reqs := make([]TaskRequest, 0, len(frames)-1)
	for i := 0; i < len(frames)-1; i++ {
		unit := base
		unit.Spec.Mode = "start-end-image"
		unit.Spec.References = []domain.AssetRef{frames[i], frames[i+1]}
		reqs = append(reqs, unit)
	}
	return reqs
}
