package entities

// SpeakerTurn is a time range attributed to one speaker. Turns come either
// from the learned diarization collaborator or from the heuristic assigner.
type SpeakerTurn struct {
	Speaker  string  `json:"speaker" validate:"required"`
	Start    float64 `json:"start" validate:"gte=0"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// NewSpeakerTurn builds a turn with the derived duration filled in.
func NewSpeakerTurn(speaker string, start, end float64) SpeakerTurn {
	d := end - start
	if d < 0 {
		d = 0
	}
	return SpeakerTurn{Speaker: speaker, Start: start, End: end, Duration: d}
}

// MergedTurn is the final output unit after speaker attribution and
// consecutive-merge: time-ordered, non-overlapping, with concatenated text.
type MergedTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// SpeakerStats aggregates one speaker's share of a conversation.
type SpeakerStats struct {
	TotalTime     float64 `json:"total_time_seconds"`
	Turns         int     `json:"turns"`
	Words         int     `json:"words"`
	AvgTurnLength float64 `json:"avg_turn_length_seconds"`
	Percentage    float64 `json:"percentage"`
}

// SpeakerPatterns summarizes the speaker dynamics of one conversation.
type SpeakerPatterns struct {
	Stats                map[string]SpeakerStats `json:"speaker_stats"`
	TotalDuration        float64                 `json:"total_duration"`
	DominantSpeaker      string                  `json:"dominant_speaker"`
	SpeakerCount         int                     `json:"speaker_count"`
	ConversationBalance  string                  `json:"conversation_balance"`
	DominantSharePercent float64                 `json:"dominant_speaker_percentage"`
}
