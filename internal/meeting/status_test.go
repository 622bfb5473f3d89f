package meeting

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		current   NoteStatus
		requested NoteStatus
		want      TransitionKind
	}{
		{"create to recording", StatusNone, StatusRecording, TransitionAdvance},
		{"recording to recorded", StatusRecording, StatusRecorded, TransitionAdvance},
		{"recorded to transcribed", StatusRecorded, StatusTranscribed, TransitionAdvance},
		{"transcribed to summarized", StatusTranscribed, StatusSummarized, TransitionAdvance},

		{"reissued authorization", StatusRecording, StatusRecording, TransitionNoop},
		{"duplicate recorded callback", StatusRecorded, StatusRecorded, TransitionNoop},
		{"duplicate transcribed callback", StatusTranscribed, StatusTranscribed, TransitionNoop},
		{"callback after failure", StatusFailed, StatusFailed, TransitionNoop},
		{"duplicate summarize", StatusSummarized, StatusSummarized, TransitionNoop},

		{"failure from none", StatusNone, StatusFailed, TransitionAdvance},
		{"failure from recording", StatusRecording, StatusFailed, TransitionAdvance},
		{"failure from recorded", StatusRecorded, StatusFailed, TransitionAdvance},
		{"failure from transcribed", StatusTranscribed, StatusFailed, TransitionAdvance},

		{"skip recording", StatusNone, StatusRecorded, TransitionInvalid},
		{"transcribed before recorded committed", StatusRecording, StatusTranscribed, TransitionInvalid},
		{"summarize before transcription", StatusRecorded, StatusSummarized, TransitionInvalid},
		{"backward to none", StatusRecording, StatusNone, TransitionInvalid},
		{"backward to recording", StatusRecorded, StatusRecording, TransitionInvalid},
		{"resurrect failed", StatusFailed, StatusRecording, TransitionInvalid},
		{"summarized cannot regress", StatusSummarized, StatusTranscribed, TransitionInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.current, tc.requested); got != tc.want {
				t.Errorf("Classify(%s, %s) = %v, want %v", tc.current, tc.requested, got, tc.want)
			}
		})
	}
}

func TestNoteStatusValid(t *testing.T) {
	for _, s := range []NoteStatus{StatusNone, StatusRecording, StatusRecorded, StatusTranscribed, StatusSummarized, StatusFailed} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []NoteStatus{"", "none", "DONE", "RECORDING "} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
