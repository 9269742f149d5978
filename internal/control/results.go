package control

// ResultKind distinguishes exact captures from timing-only fallbacks.
type ResultKind string

const (
	// KindNormal is a full capture produced by a profiler backend.
	KindNormal ResultKind = "normal"

	// KindApproximate is a timing-only measurement taken when overlapping
	// profiling requests could not be serviced exactly.
	KindApproximate ResultKind = "approximate"
)

// ResultEntry is one profiling outcome relayed from the external tool.
// The manager never holds profiling state itself; entries arrive by value
// and the ordered set is cleared remotely whenever profiling is re-enabled
// or explicitly disabled.
type ResultEntry struct {
	// Kind is normal or approximate.
	Kind ResultKind `json:"kind"`

	// Label is the label that triggered this capture, or "*" for any.
	Label string `json:"label"`

	// ArtifactPath points at the raw results on the tool's filesystem.
	ArtifactPath string `json:"artifact_path"`

	// Backend names the profiler engine that produced the capture,
	// or "none" for approximate entries.
	Backend string `json:"backend"`

	// Data is the formatted result text.
	Data string `json:"data"`
}
