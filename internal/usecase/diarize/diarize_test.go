package diarize

import (
	"reflect"
	"strings"
	"testing"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
)

func seg(start, end float64, text string) entities.TranscriptSegment {
	return entities.TranscriptSegment{Start: start, End: end, Text: text}
}

func TestCharacterize(t *testing.T) {
	c := Characterize(0, seg(0, 0.5, "Dzień dobry, czy mogę pomóc?"))

	if !c.IsShort {
		t.Error("0.5s segment should be short")
	}
	if c.IsLong {
		t.Error("0.5s segment should not be long")
	}
	if !c.HasQuestion {
		t.Error("expected question mark detection")
	}
	if !c.StartsWithGreeting {
		t.Error("expected greeting prefix detection")
	}
	if c.WordCount != 5 {
		t.Errorf("expected 5 words, got %d", c.WordCount)
	}
	if c.WordsPerSecond != 10 {
		t.Errorf("expected 10 wps, got %v", c.WordsPerSecond)
	}
}

func TestCharacterizeZeroDuration(t *testing.T) {
	c := Characterize(0, seg(2, 2, "hello there"))
	if c.WordsPerSecond != 0 {
		t.Errorf("zero duration should yield 0 wps, got %v", c.WordsPerSecond)
	}
}

func TestCharacterizeGoodbyeCaseInsensitive(t *testing.T) {
	c := Characterize(0, seg(0, 2, "  No dobrze, DZIĘKUJĘ  "))
	if !c.EndsWithGoodbye {
		t.Error("expected goodbye suffix detection after trim and lowercase")
	}
}

func TestSimilarityIdenticalSegments(t *testing.T) {
	a := Characterize(0, seg(0, 2, "one two three four"))
	b := Characterize(1, seg(2, 4, "one two three four"))
	if got := similarity(a, b); got < 0.999 {
		t.Errorf("identical segments should score ~1.0, got %v", got)
	}
}

func TestAssignScenario(t *testing.T) {
	segments := []entities.TranscriptSegment{
		seg(0, 1, "Dzień dobry"),
		seg(1.2, 3, "mam problem"),
		seg(5, 6, "Dobrze, już to naprawiam"),
	}

	a := NewHeuristicAssigner(DefaultAssignerOptions(), nil)
	turns := a.Assign(segments)

	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}

	labels := map[string]bool{}
	for i, turn := range turns {
		labels[turn.Speaker] = true
		if turn.Start != segments[i].Start || turn.End != segments[i].End {
			t.Errorf("turn %d boundaries %v-%v should match segment %v-%v",
				i, turn.Start, turn.End, segments[i].Start, segments[i].End)
		}
	}
	if len(labels) < 2 {
		t.Errorf("expected at least 2 distinct speakers, got %v", labels)
	}
	// The long pause before the third segment forces a change point there.
	if turns[2].Speaker == turns[1].Speaker {
		t.Error("pause above threshold should start a new speaker")
	}
}

func TestAssignDeterminism(t *testing.T) {
	segments := []entities.TranscriptSegment{
		seg(0, 1.5, "cześć, dzwonię w sprawie faktury"),
		seg(1.6, 2.0, "tak?"),
		seg(3.5, 6.0, "nie dostałem jej w tym miesiącu wcale"),
		seg(6.1, 9.0, "już sprawdzam w systemie proszę chwilę poczekać"),
		seg(9.2, 9.8, "dobrze"),
	}

	a := NewHeuristicAssigner(DefaultAssignerOptions(), nil)
	first := a.Assign(segments)
	second := a.Assign(segments)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("assignment should be deterministic:\n%v\n%v", first, second)
	}
}

func TestSpeakerLabelWrapsAtMaxSpeakers(t *testing.T) {
	// Alternating question marks force a change point at every boundary.
	segments := make([]entities.TranscriptSegment, 6)
	for i := range segments {
		text := "statement here"
		if i%2 == 1 {
			text = "a question?"
		}
		segments[i] = seg(float64(i)*3, float64(i)*3+2, text)
	}

	opts := DefaultAssignerOptions()
	opts.MaxSpeakers = 2
	a := NewHeuristicAssigner(opts, nil)
	turns := a.Assign(segments)

	for i, turn := range turns {
		want := "SPEAKER_00"
		if i%2 == 1 {
			want = "SPEAKER_01"
		}
		if turn.Speaker != want {
			t.Errorf("turn %d: expected %s, got %s", i, want, turn.Speaker)
		}
	}
}

func TestConsolidateKeepsEveryEntry(t *testing.T) {
	a := NewHeuristicAssigner(DefaultAssignerOptions(), nil)
	turns := []entities.SpeakerTurn{
		entities.NewSpeakerTurn("SPEAKER_00", 0, 3),
		entities.NewSpeakerTurn("SPEAKER_00", 3.2, 4.0),
		entities.NewSpeakerTurn("SPEAKER_01", 4.1, 6),
	}

	got := a.consolidate(turns)
	if len(got) != len(turns) {
		t.Fatalf("consolidation must never drop or collapse entries, got %d of %d", len(got), len(turns))
	}
	for i := range turns {
		if got[i].Start != turns[i].Start || got[i].End != turns[i].End {
			t.Errorf("entry %d boundaries changed: %+v vs %+v", i, got[i], turns[i])
		}
	}
	if got[1].Speaker != "SPEAKER_00" {
		t.Errorf("absorbed short turn should stay in its group: %+v", got[1])
	}
	if got[2].Speaker != "SPEAKER_01" {
		t.Errorf("unexpected third turn: %+v", got[2])
	}
}

func TestMergeAttribution(t *testing.T) {
	segments := []entities.TranscriptSegment{
		seg(0, 2, "dzień dobry"),
		seg(2.1, 4, "w czym mogę pomóc"),
		seg(6, 8, "mam problem z routerem"),
	}
	turns := []entities.SpeakerTurn{
		entities.NewSpeakerTurn("SPEAKER_00", 0, 4.5),
		entities.NewSpeakerTurn("SPEAKER_01", 5.5, 8),
	}

	m := NewAttributionMerger(DefaultMergerOptions(), nil)
	merged := m.Merge(segments, turns)

	if len(merged) != 2 {
		t.Fatalf("expected 2 merged turns, got %d", len(merged))
	}
	if merged[0].Speaker != "SPEAKER_00" || merged[0].Text != "dzień dobry w czym mogę pomóc" {
		t.Errorf("unexpected first turn: %+v", merged[0])
	}
	if merged[1].Speaker != "SPEAKER_01" {
		t.Errorf("unexpected second turn: %+v", merged[1])
	}
}

func TestMergeNoTurnsYieldsUnknown(t *testing.T) {
	m := NewAttributionMerger(DefaultMergerOptions(), nil)
	merged := m.Merge([]entities.TranscriptSegment{seg(0, 1, "halo")}, nil)

	if len(merged) != 1 || merged[0].Speaker != UnknownSpeaker {
		t.Errorf("expected single Unknown turn, got %+v", merged)
	}
}

func TestMergeWeakOverlapFallsBackToNearestMidpoint(t *testing.T) {
	// Neither turn covers half the segment, so the nearer midpoint wins.
	segments := []entities.TranscriptSegment{seg(0, 10, "to jest dłuższa wypowiedź klienta")}
	turns := []entities.SpeakerTurn{
		entities.NewSpeakerTurn("SPEAKER_00", 0, 2),
		entities.NewSpeakerTurn("SPEAKER_01", 7, 9),
	}

	m := NewAttributionMerger(DefaultMergerOptions(), nil)
	merged := m.Merge(segments, turns)

	if merged[0].Speaker != "SPEAKER_01" {
		t.Errorf("expected midpoint fallback to SPEAKER_01, got %s", merged[0].Speaker)
	}
}

func TestMergeConsecutiveIdempotent(t *testing.T) {
	m := NewAttributionMerger(DefaultMergerOptions(), nil)
	input := []entities.MergedTurn{
		{Speaker: "SPEAKER_00", Start: 0, End: 1, Text: "a"},
		{Speaker: "SPEAKER_00", Start: 1.2, End: 2, Text: "b"},
		{Speaker: "SPEAKER_01", Start: 2.1, End: 3, Text: "c"},
		{Speaker: "SPEAKER_00", Start: 3.1, End: 4, Text: "d"},
	}

	once := m.MergeConsecutive(input)
	twice := m.MergeConsecutive(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second merge pass changed the result:\n%v\n%v", once, twice)
	}
}

func TestMergePreservesTextAndOrder(t *testing.T) {
	segments := []entities.TranscriptSegment{
		seg(0, 1, "raz"),
		seg(1.1, 2, "dwa"),
		seg(2.1, 3, "trzy"),
		seg(9, 10, "cztery"),
	}
	turns := []entities.SpeakerTurn{
		entities.NewSpeakerTurn("SPEAKER_00", 0, 3),
		entities.NewSpeakerTurn("SPEAKER_01", 8.5, 10),
	}

	m := NewAttributionMerger(DefaultMergerOptions(), nil)
	merged := m.Merge(segments, turns)

	if len(merged) > len(segments) {
		t.Errorf("merged turn count %d exceeds segment count %d", len(merged), len(segments))
	}

	var inputText, mergedText []string
	for _, s := range segments {
		inputText = append(inputText, s.Text)
	}
	for _, mt := range merged {
		mergedText = append(mergedText, mt.Text)
	}
	if strings.Join(inputText, " ") != strings.Join(mergedText, " ") {
		t.Errorf("text not preserved: %q vs %q", strings.Join(inputText, " "), strings.Join(mergedText, " "))
	}

	for i := 1; i < len(merged); i++ {
		if merged[i].Start < merged[i-1].End {
			t.Errorf("turns %d and %d overlap", i-1, i)
		}
	}
}

func TestComputeSpeakerPatterns(t *testing.T) {
	turns := []entities.MergedTurn{
		{Speaker: "SPEAKER_00", Start: 0, End: 6, Text: "jedna dłuższa wypowiedź agenta wsparcia"},
		{Speaker: "SPEAKER_01", Start: 6, End: 8, Text: "krótka odpowiedź"},
		{Speaker: "SPEAKER_00", Start: 8, End: 10, Text: "i jeszcze jedna"},
	}

	p := ComputeSpeakerPatterns(turns)

	if p.SpeakerCount != 2 {
		t.Errorf("expected 2 speakers, got %d", p.SpeakerCount)
	}
	if p.TotalDuration != 10 {
		t.Errorf("expected total duration 10, got %v", p.TotalDuration)
	}
	if p.DominantSpeaker != "SPEAKER_00" {
		t.Errorf("expected SPEAKER_00 dominant, got %s", p.DominantSpeaker)
	}

	s0 := p.Stats["SPEAKER_00"]
	if s0.TotalTime != 8 || s0.Turns != 2 || s0.Words != 8 {
		t.Errorf("unexpected SPEAKER_00 stats: %+v", s0)
	}
	if s0.Percentage != 80 {
		t.Errorf("expected 80%% share, got %v", s0.Percentage)
	}
	if p.ConversationBalance != "dominated" {
		t.Errorf("80%% share of two speakers should read dominated, got %q", p.ConversationBalance)
	}
}

func TestComputeSpeakerPatternsTieBreaksDeterministically(t *testing.T) {
	turns := []entities.MergedTurn{
		{Speaker: "SPEAKER_01", Start: 0, End: 5, Text: "równy udział"},
		{Speaker: "SPEAKER_00", Start: 5, End: 10, Text: "równy udział"},
	}

	for i := 0; i < 20; i++ {
		p := ComputeSpeakerPatterns(turns)
		if p.DominantSpeaker != "SPEAKER_00" {
			t.Fatalf("equal shares must resolve to the first speaker in sorted order, got %s", p.DominantSpeaker)
		}
	}
}
