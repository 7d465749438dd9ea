package diarize

import (
	"sort"
	"strings"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
)

// ComputeSpeakerPatterns aggregates per-speaker talk time, turn counts and
// word counts from merged turns, plus conversation-level balance figures.
func ComputeSpeakerPatterns(turns []entities.MergedTurn) entities.SpeakerPatterns {
	stats := make(map[string]*entities.SpeakerStats)
	total := 0.0

	for _, t := range turns {
		dur := t.End - t.Start
		if dur < 0 {
			dur = 0
		}
		total += dur

		s, ok := stats[t.Speaker]
		if !ok {
			s = &entities.SpeakerStats{}
			stats[t.Speaker] = s
		}
		s.TotalTime += dur
		s.Turns++
		s.Words += len(strings.Fields(t.Text))
	}

	patterns := entities.SpeakerPatterns{
		Stats:         make(map[string]entities.SpeakerStats, len(stats)),
		TotalDuration: total,
		SpeakerCount:  len(stats),
	}

	// Sorted iteration keeps tie-breaking on equal shares deterministic.
	speakers := make([]string, 0, len(stats))
	for speaker := range stats {
		speakers = append(speakers, speaker)
	}
	sort.Strings(speakers)

	dominantShare := -1.0
	for _, speaker := range speakers {
		s := stats[speaker]
		if s.Turns > 0 {
			s.AvgTurnLength = s.TotalTime / float64(s.Turns)
		}
		if total > 0 {
			s.Percentage = s.TotalTime / total * 100
		}
		patterns.Stats[speaker] = *s

		if s.Percentage > dominantShare {
			dominantShare = s.Percentage
			patterns.DominantSpeaker = speaker
			patterns.DominantSharePercent = s.Percentage
		}
	}

	patterns.ConversationBalance = classifyBalance(patterns.SpeakerCount, patterns.DominantSharePercent)
	return patterns
}

// classifyBalance labels how evenly talk time is split relative to a
// perfectly even share.
func classifyBalance(speakerCount int, dominantShare float64) string {
	if speakerCount < 2 {
		return "monologue"
	}
	even := 100.0 / float64(speakerCount)
	switch {
	case dominantShare <= even*1.2:
		return "balanced"
	case dominantShare <= even*1.5:
		return "uneven"
	default:
		return "dominated"
	}
}
