package agent

import "strings"

// Stage identifies one phase of the scripted four-step dialogue.
type Stage string

const (
	StageProfiler   Stage = "profiler"
	StageSpecialist Stage = "specialist"
	StageCritic     Stage = "critic"
	StageHost       Stage = "host"
)

// Completion markers the model is instructed to emit verbatim. Text before the
// marker is user-facing, text after it is the extracted payload.
const (
	MarkerProfileReady = "||PROFILE_READY||"
	MarkerDemandLocked = "||DEMAND_LOCKED||"
)

// DisplayName returns the agent name shown for messages from this stage.
func (s Stage) DisplayName() string {
	switch s {
	case StageProfiler:
		return "观影顾问"
	case StageSpecialist:
		return "类型专家"
	case StageCritic:
		return "评审影评人"
	case StageHost:
		return "放映主持人"
	}
	return string(s)
}

// SplitMarker splits raw model output at the first occurrence of marker.
// reply is the trimmed text before the marker and payload the trimmed text
// after it. When the marker is absent, reply is the whole trimmed input.
// The payload is not validated beyond trimming.
func SplitMarker(raw, marker string) (reply, payload string, found bool) {
	before, after, ok := strings.Cut(raw, marker)
	if !ok {
		return strings.TrimSpace(raw), "", false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}
