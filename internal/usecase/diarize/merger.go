package diarize

import (
	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
	"github.com/calltriage/call-analyzer/pkg/config"
)

// UnknownSpeaker labels segments that no speaker turn could claim.
const UnknownSpeaker = "Unknown"

// MergerOptions tunes speaker attribution and consecutive-turn merging.
type MergerOptions struct {
	// WeakOverlapThreshold is the minimum fraction of a segment that must
	// overlap a turn before the overlap wins over midpoint proximity.
	WeakOverlapThreshold float64
	// MergeGap is the widest silence in seconds across which consecutive
	// same-speaker segments are merged into one attributed turn.
	MergeGap float64
}

// DefaultMergerOptions returns the attribution thresholds used in production.
func DefaultMergerOptions() MergerOptions {
	return MergerOptions{
		WeakOverlapThreshold: 0.5,
		MergeGap:             1.0,
	}
}

// MergerOptionsFromConfig maps diarization config onto merger options.
func MergerOptionsFromConfig(cfg *config.DiarizationConfig) MergerOptions {
	return MergerOptions{
		WeakOverlapThreshold: cfg.WeakOverlapThreshold,
		MergeGap:             cfg.TurnMergeGap,
	}
}

// AttributionMerger attaches speaker labels to transcript segments by
// overlapping them against diarization turns, then merges consecutive
// segments of the same speaker into readable turns.
type AttributionMerger struct {
	opts   MergerOptions
	logger *zap.Logger
}

// NewAttributionMerger creates a merger with the given options.
func NewAttributionMerger(opts MergerOptions, logger *zap.Logger) *AttributionMerger {
	return &AttributionMerger{opts: opts, logger: logger}
}

// Merge attributes each segment to the turn it overlaps best and merges
// consecutive same-speaker segments. Segment order and text are preserved.
func (m *AttributionMerger) Merge(segments []entities.TranscriptSegment, turns []entities.SpeakerTurn) []entities.MergedTurn {
	attributed := make([]entities.MergedTurn, 0, len(segments))
	for _, seg := range segments {
		attributed = append(attributed, entities.MergedTurn{
			Speaker: m.resolveSpeaker(seg, turns),
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
		})
	}

	merged := m.MergeConsecutive(attributed)
	if m.logger != nil {
		m.logger.Info("🔗 speaker attribution complete",
			zap.Int("segments", len(segments)),
			zap.Int("merged_turns", len(merged)),
		)
	}
	return merged
}

// resolveSpeaker picks the turn with the highest overlap ratio relative to
// the segment's own duration. When even the best overlap is weak, the turn
// whose midpoint lies closest to the segment's midpoint wins instead.
func (m *AttributionMerger) resolveSpeaker(seg entities.TranscriptSegment, turns []entities.SpeakerTurn) string {
	if len(turns) == 0 {
		return UnknownSpeaker
	}

	segDur := seg.Duration()
	best := turns[0].Speaker
	bestRatio := -1.0

	for _, t := range turns {
		overlap := minFloat(seg.End, t.End) - maxFloat(seg.Start, t.Start)
		if overlap < 0 {
			overlap = 0
		}
		ratio := 0.0
		if segDur > 0 {
			ratio = overlap / segDur
		}
		if ratio > bestRatio {
			bestRatio = ratio
			best = t.Speaker
		}
	}

	if bestRatio >= m.opts.WeakOverlapThreshold {
		return best
	}

	segMid := (seg.Start + seg.End) / 2
	nearest := turns[0].Speaker
	nearestDist := -1.0
	for _, t := range turns {
		dist := absFloat(segMid - (t.Start+t.End)/2)
		if nearestDist < 0 || dist < nearestDist {
			nearestDist = dist
			nearest = t.Speaker
		}
	}
	return nearest
}

// MergeConsecutive collapses adjacent same-speaker segments separated by less
// than the merge gap, concatenating their text with a single space.
func (m *AttributionMerger) MergeConsecutive(segments []entities.MergedTurn) []entities.MergedTurn {
	if len(segments) == 0 {
		return nil
	}

	out := make([]entities.MergedTurn, 0, len(segments))
	group := segments[0]

	for _, seg := range segments[1:] {
		if seg.Speaker == group.Speaker && seg.Start-group.End < m.opts.MergeGap {
			group.End = seg.End
			group.Text += " " + seg.Text
			continue
		}
		out = append(out, group)
		group = seg
	}
	return append(out, group)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
