package control

// TransitionMode is the remote-side policy for re-arming profiling after a
// label in a multi-label request matches.
type TransitionMode string

const (
	// ModeOneOf means the first matching label wins and consumes the whole
	// request; remaining labels are ignored.
	ModeOneOf TransitionMode = "one-of"

	// ModeSequential means each match removes itself from the pending set
	// and re-arms the remainder. Order-independent, but only one call path
	// is profiled at a time.
	ModeSequential TransitionMode = "sequential"
)

// LabelSpec names which call sites a profiling request targets: a single
// label, any label, or an ordered label set with a transition mode.
type LabelSpec struct {
	// Labels is the ordered label set. Ignored when Any is set.
	Labels []string

	// Any matches every label.
	Any bool

	// Mode applies when Labels has more than one entry.
	Mode TransitionMode
}

// Label targets one specific label.
func Label(label string) LabelSpec {
	return LabelSpec{Labels: []string{label}, Mode: ModeOneOf}
}

// AnyLabel targets whichever label matches first.
func AnyLabel() LabelSpec {
	return LabelSpec{Any: true, Mode: ModeOneOf}
}

// LabelSet targets an ordered set of labels with the given transition mode.
func LabelSet(mode TransitionMode, labels ...string) LabelSpec {
	return LabelSpec{Labels: labels, Mode: mode}
}
