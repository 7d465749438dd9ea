package diarize

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
	"github.com/calltriage/call-analyzer/pkg/config"
)

// AssignerOptions tunes the heuristic change point detector.
type AssignerOptions struct {
	// MaxSpeakers bounds the label pool; the counter wraps back to
	// SPEAKER_00 once it is exhausted.
	MaxSpeakers int
	// PauseThreshold is the silence gap in seconds that signals a turn
	// change on its own.
	PauseThreshold float64
	// SimilarityThreshold is the minimum feature similarity below which
	// adjacent segments are attributed to different speakers.
	SimilarityThreshold float64
	// MinSpeakerDuration is the longest a turn may be and still be
	// absorbed into its neighbour during consolidation.
	MinSpeakerDuration float64
	// ConsolidateGap is the widest silence across which same-speaker
	// turns are consolidated.
	ConsolidateGap float64
}

// DefaultAssignerOptions returns the thresholds tuned for short support calls.
func DefaultAssignerOptions() AssignerOptions {
	return AssignerOptions{
		MaxSpeakers:         4,
		PauseThreshold:      1.2,
		SimilarityThreshold: 0.7,
		MinSpeakerDuration:  1.5,
		ConsolidateGap:      0.5,
	}
}

// OptionsFromConfig maps diarization config onto assigner options.
func OptionsFromConfig(cfg *config.DiarizationConfig) AssignerOptions {
	return AssignerOptions{
		MaxSpeakers:         cfg.MaxSpeakers,
		PauseThreshold:      cfg.PauseThreshold,
		SimilarityThreshold: cfg.SimilarityThreshold,
		MinSpeakerDuration:  cfg.MinSpeakerDuration,
		ConsolidateGap:      cfg.ConsolidateGap,
	}
}

// HeuristicAssigner attributes transcript segments to speaker labels using
// pause, similarity and conversational-marker signals. It never needs the
// audio itself, only the segment timings and text.
type HeuristicAssigner struct {
	opts   AssignerOptions
	logger *zap.Logger
}

// NewHeuristicAssigner creates an assigner with the given options.
func NewHeuristicAssigner(opts AssignerOptions, logger *zap.Logger) *HeuristicAssigner {
	if opts.MaxSpeakers <= 0 {
		opts.MaxSpeakers = 1
	}
	return &HeuristicAssigner{opts: opts, logger: logger}
}

// Assign produces consolidated speaker turns covering every input segment.
// Segments are assumed ordered by start time.
func (a *HeuristicAssigner) Assign(segments []entities.TranscriptSegment) []entities.SpeakerTurn {
	if len(segments) == 0 {
		return nil
	}

	chars := make([]entities.SegmentCharacteristics, len(segments))
	for i, seg := range segments {
		chars[i] = Characterize(i, seg)
	}

	changes := a.detectChanges(chars)
	turns := a.assignLabels(chars, changes)
	consolidated := a.consolidate(turns)

	if a.logger != nil {
		a.logger.Info("🔊 speaker assignment complete",
			zap.Int("segments", len(segments)),
			zap.Int("change_points", len(changes)),
			zap.Int("turns", len(consolidated)),
		)
	}
	return consolidated
}

// detectChanges returns the set of segment indexes at which a new speaker is
// assumed to start. Index 0 is never a change point.
func (a *HeuristicAssigner) detectChanges(chars []entities.SegmentCharacteristics) map[int]bool {
	changes := make(map[int]bool)

	for i := 1; i < len(chars); i++ {
		prev, curr := chars[i-1], chars[i]

		pause := curr.Start - prev.End
		switch {
		case pause > a.opts.PauseThreshold:
			changes[i] = true
		case similarity(prev, curr) < a.opts.SimilarityThreshold:
			changes[i] = true
		case prev.IsShort != curr.IsShort:
			changes[i] = true
		case prev.HasQuestion != curr.HasQuestion:
			changes[i] = true
		case curr.StartsWithGreeting || prev.EndsWithGoodbye:
			changes[i] = true
		}
	}
	return changes
}

// assignLabels walks the segments in order, advancing the speaker counter at
// every change point and wrapping once the pool is exhausted.
func (a *HeuristicAssigner) assignLabels(chars []entities.SegmentCharacteristics, changes map[int]bool) []entities.SpeakerTurn {
	turns := make([]entities.SpeakerTurn, 0, len(chars))
	counter := 0

	for i, ch := range chars {
		if i > 0 && changes[i] {
			counter++
			if counter >= a.opts.MaxSpeakers {
				counter = 0
			}
		}
		turns = append(turns, entities.NewSpeakerTurn(speakerLabel(counter), ch.Start, ch.End))
	}
	return turns
}

func speakerLabel(n int) string {
	return fmt.Sprintf("SPEAKER_%02d", n)
}

// consolidate absorbs very short same-speaker turns into the preceding group
// when the gap between them is small. Absorbed turns keep their own entries
// and boundaries; the pass only pins them to the group's speaker and never
// drops or collapses segments. The downstream consecutive-merge does the
// actual concatenation.
func (a *HeuristicAssigner) consolidate(turns []entities.SpeakerTurn) []entities.SpeakerTurn {
	if len(turns) == 0 {
		return turns
	}

	out := make([]entities.SpeakerTurn, 0, len(turns))
	out = append(out, turns[0])
	groupSpeaker := turns[0].Speaker

	for _, t := range turns[1:] {
		prev := out[len(out)-1]
		gap := t.Start - prev.End
		if t.Speaker == groupSpeaker && gap < a.opts.ConsolidateGap && t.Duration < a.opts.MinSpeakerDuration {
			t.Speaker = groupSpeaker
		} else {
			groupSpeaker = t.Speaker
		}
		out = append(out, t)
	}
	return out
}
