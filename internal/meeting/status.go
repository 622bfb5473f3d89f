package meeting

// NoteStatus tracks a meeting through the recording pipeline.
type NoteStatus string

const (
	StatusNone        NoteStatus = "NONE"
	StatusRecording   NoteStatus = "RECORDING"
	StatusRecorded    NoteStatus = "RECORDED"
	StatusTranscribed NoteStatus = "TRANSCRIBED"
	StatusSummarized  NoteStatus = "SUMMARIZED"
	StatusFailed      NoteStatus = "FAILED"
)

func (s NoteStatus) Valid() bool {
	switch s {
	case StatusNone, StatusRecording, StatusRecorded, StatusTranscribed,
		StatusSummarized, StatusFailed:
		return true
	}
	return false
}

// TransitionKind classifies a requested status change against the current
// persisted status.
type TransitionKind int

const (
	// TransitionInvalid is any edge outside the lifecycle graph: backward
	// moves, skipped stages, out-of-order callbacks.
	TransitionInvalid TransitionKind = iota
	// TransitionAdvance moves the meeting forward along the graph.
	TransitionAdvance
	// TransitionNoop re-requests the current status. Duplicate webhook
	// deliveries and re-issued upload authorizations land here.
	TransitionNoop
)

// advances holds the forward edges of the lifecycle graph, keyed by current
// status. FAILED is reachable from every non-terminal status and handled
// separately in Classify.
var advances = map[NoteStatus]NoteStatus{
	StatusNone:        StatusRecording,
	StatusRecording:   StatusRecorded,
	StatusRecorded:    StatusTranscribed,
	StatusTranscribed: StatusSummarized,
}

// Classify decides what applying requested on top of current would mean.
// It is the sole ordering guard for the pipeline: callers get no ordering
// guarantees from the outside world.
func Classify(current, requested NoteStatus) TransitionKind {
	if requested == current {
		return TransitionNoop
	}
	if requested == StatusFailed {
		// any stage may report an unrecoverable error
		return TransitionAdvance
	}
	if next, ok := advances[current]; ok && next == requested {
		return TransitionAdvance
	}
	return TransitionInvalid
}
