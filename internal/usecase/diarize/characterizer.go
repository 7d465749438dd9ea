package diarize

import (
	"strings"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
)

// Conversational markers checked case-insensitively against trimmed text.
// Polish and English entries cover the call corpus this pipeline serves.
var (
	greetingPrefixes = []string{
		"dzień dobry", "dobry", "cześć", "witam", "hej",
		"hello", "hi", "good morning", "good afternoon", "good evening",
	}
	goodbyeSuffixes = []string{
		"do widzenia", "pa", "cześć", "nara",
		"goodbye", "bye", "see you", "dziękuję", "dzięki", "thank you", "thanks",
	}
)

const (
	shortSegmentThreshold = 1.0
	longSegmentThreshold  = 5.0
)

// Characterize derives per-segment speech features used by the change point
// detector. The index refers to the segment's position in the transcript.
func Characterize(index int, seg entities.TranscriptSegment) entities.SegmentCharacteristics {
	duration := seg.Duration()
	words := strings.Fields(seg.Text)

	wps := 0.0
	if duration > 0 {
		wps = float64(len(words)) / duration
	}

	normalized := strings.ToLower(strings.TrimSpace(seg.Text))

	return entities.SegmentCharacteristics{
		Index:              index,
		Start:              seg.Start,
		End:                seg.End,
		Duration:           duration,
		Text:               seg.Text,
		WordCount:          len(words),
		WordsPerSecond:     wps,
		HasQuestion:        strings.Contains(seg.Text, "?"),
		HasExclamation:     strings.Contains(seg.Text, "!"),
		IsShort:            duration < shortSegmentThreshold,
		IsLong:             duration > longSegmentThreshold,
		StartsWithGreeting: startsWithAny(normalized, greetingPrefixes),
		EndsWithGoodbye:    endsWithAny(normalized, goodbyeSuffixes),
	}
}

func startsWithAny(text string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

func endsWithAny(text string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(text, s) {
			return true
		}
	}
	return false
}

// similarity scores how alike two segments sound as the mean of three ratio
// comparisons: duration, speech rate and word count. Small floors keep the
// ratios stable for near-zero values.
func similarity(a, b entities.SegmentCharacteristics) float64 {
	durSim := 1.0 - absFloat(a.Duration-b.Duration)/maxFloat(a.Duration, b.Duration, 0.1)
	wpsSim := 1.0 - absFloat(a.WordsPerSecond-b.WordsPerSecond)/maxFloat(a.WordsPerSecond, b.WordsPerSecond, 0.1)
	wcSim := 1.0 - absFloat(float64(a.WordCount)-float64(b.WordCount))/maxFloat(float64(a.WordCount), float64(b.WordCount), 1.0)
	return (durSim + wpsSim + wcSim) / 3.0
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxFloat(vals ...float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
