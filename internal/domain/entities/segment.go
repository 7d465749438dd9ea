package entities

import "strings"

// TranscriptSegment is one utterance unit produced by the transcription
// collaborator. Segments are read-only inside the pipeline; timestamps are
// seconds relative to the start of the source audio file.
type TranscriptSegment struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns the segment length in seconds, never negative.
func (s TranscriptSegment) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Transcription is the payload the transcription collaborator supplies for
// one audio file.
type Transcription struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments" validate:"dive"`
	Language string              `json:"language,omitempty"`
}

// PlainText returns the full transcript text, falling back to the
// concatenated segment texts when the collaborator left Text empty.
func (t *Transcription) PlainText() string {
	if strings.TrimSpace(t.Text) != "" {
		return t.Text
	}
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if txt := strings.TrimSpace(seg.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// SegmentCharacteristics is a derived, ephemeral feature view over one
// TranscriptSegment, recomputed on demand and never persisted.
type SegmentCharacteristics struct {
	Index              int
	Start              float64
	End                float64
	Duration           float64
	Text               string
	WordCount          int
	WordsPerSecond     float64
	HasQuestion        bool
	HasExclamation     bool
	IsShort            bool
	IsLong             bool
	StartsWithGreeting bool
	EndsWithGoodbye    bool
}
