package meeting

// TranscriptDocument is the JSON document the transcription job writes to
// the transcript bucket.
type TranscriptDocument struct {
	Status  string            `json:"status"`
	Results TranscriptResults `json:"results"`
}

// transcription job statuses as reported by the upstream service
const transcriptJobCompleted = "COMPLETED"

type TranscriptResults struct {
	Transcripts   []TranscriptText `json:"transcripts"`
	AudioSegments []AudioSegment   `json:"audio_segments"`
}

type TranscriptText struct {
	Transcript string `json:"transcript"`
}

type AudioSegment struct {
	SpeakerLabel string `json:"speaker_label"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Transcript   string `json:"transcript"`
}
