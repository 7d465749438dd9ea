package analysis

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
)

// DefaultReasoningTags lists the tag pairs, start then end, that chain-of-
// thought models wrap their internal reasoning in.
var DefaultReasoningTags = []string{
	"<think>", "</think>",
	"<reasoning>", "</reasoning>",
	"<thought>", "</thought>",
	"<analysis>", "</analysis>",
	"<process>", "</process>",
	"<step>", "</step>",
	"<consider>", "</consider>",
}

var blankLineRun = regexp.MustCompile(`\n\s*\n`)

// ReasoningFilter strips model reasoning blocks out of LLM responses while
// keeping the removed sections available for optional side-channel output.
type ReasoningFilter struct {
	patterns []reasoningPattern
	logger   *zap.Logger
}

type reasoningPattern struct {
	startTag string
	endTag   string
	re       *regexp.Regexp
}

// NewReasoningFilter compiles matchers for the given tag pairs. Tags are
// consumed two at a time; nil falls back to the default tag set.
func NewReasoningFilter(tags []string, logger *zap.Logger) *ReasoningFilter {
	if len(tags) == 0 {
		tags = DefaultReasoningTags
	}

	patterns := make([]reasoningPattern, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		patterns = append(patterns, reasoningPattern{
			startTag: tags[i],
			endTag:   tags[i+1],
			re:       regexp.MustCompile(`(?is)` + regexp.QuoteMeta(tags[i]) + `(.*?)` + regexp.QuoteMeta(tags[i+1])),
		})
	}
	return &ReasoningFilter{patterns: patterns, logger: logger}
}

// Detect finds every reasoning block in the text without modifying it.
func (f *ReasoningFilter) Detect(text string) []entities.ReasoningSection {
	var sections []entities.ReasoningSection

	for _, p := range f.patterns {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			sections = append(sections, entities.ReasoningSection{
				FullMatch: text[idx[0]:idx[1]],
				Content:   strings.TrimSpace(text[idx[2]:idx[3]]),
				StartTag:  p.startTag,
				EndTag:    p.endTag,
				StartPos:  idx[0],
				EndPos:    idx[1],
			})
		}
	}
	return sections
}

// Filter removes the given sections from the text. Sections are removed back
// to front so earlier offsets stay valid, then leftover blank line runs are
// collapsed and the result trimmed.
func (f *ReasoningFilter) Filter(text string, sections []entities.ReasoningSection) string {
	ordered := make([]entities.ReasoningSection, len(sections))
	copy(ordered, sections)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartPos > ordered[j].StartPos
	})

	for _, s := range ordered {
		if s.StartPos < 0 || s.EndPos > len(text) || s.StartPos > s.EndPos {
			continue
		}
		text = text[:s.StartPos] + text[s.EndPos:]
	}

	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Apply detects and removes reasoning blocks in one step, returning the
// cleaned text together with the removed sections.
func (f *ReasoningFilter) Apply(text string) (string, []entities.ReasoningSection) {
	sections := f.Detect(text)
	if len(sections) == 0 {
		return text, nil
	}

	filtered := f.Filter(text, sections)
	if f.logger != nil {
		f.logger.Debug("removed reasoning sections from response",
			zap.Int("sections", len(sections)),
			zap.Int("removed_chars", len(text)-len(filtered)),
		)
	}
	return filtered, sections
}
