package analysis

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultInjectionPatterns lists the phrases treated as prompt injection
// attempts when they appear inside a transcript sent to the LLM.
var DefaultInjectionPatterns = []string{
	"ignore previous instructions",
	"forget previous instructions",
	"reset system prompt",
	"run command",
	"execute code",
	"shell command",
	"```bash",
	"```python",
	"call api",
	"exfiltrate",
	"transfer data",
	"z transkrypcji",
}

// Guard sanitizes transcript text before it reaches the model and flags
// suspected prompt injection attempts inside it. Detection never blocks the
// analysis, it only marks the result for integrity review.
type Guard struct {
	patterns  []string
	maxLength int
	logger    *zap.Logger
}

// NewGuard creates a guard with the given pattern list and length cap. A nil
// or empty pattern list falls back to the defaults.
func NewGuard(patterns []string, maxLength int, logger *zap.Logger) *Guard {
	if len(patterns) == 0 {
		patterns = DefaultInjectionPatterns
	}
	return &Guard{patterns: patterns, maxLength: maxLength, logger: logger}
}

// Sanitize strips control characters, trims surrounding whitespace and hard
// truncates the text to the configured maximum. Tabs and newlines survive.
func (g *Guard) Sanitize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r == '\t' || r == '\n' || r == '\r' {
			sb.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7F {
			continue
		}
		sb.WriteRune(r)
	}

	clean := strings.TrimSpace(sb.String())
	if g.maxLength > 0 && len([]rune(clean)) > g.maxLength {
		if g.logger != nil {
			g.logger.Warn("transcript truncated before analysis",
				zap.Int("original_length", len([]rune(clean))),
				zap.Int("max_length", g.maxLength),
			)
		}
		clean = string([]rune(clean)[:g.maxLength])
	}
	return clean
}

// Detect returns the patterns found in the text using case-insensitive
// substring matching. An empty slice means the text looks clean.
func (g *Guard) Detect(text string) []string {
	lowered := strings.ToLower(text)

	var matches []string
	for _, p := range g.patterns {
		if strings.Contains(lowered, strings.ToLower(p)) {
			matches = append(matches, p)
		}
	}

	if len(matches) > 0 && g.logger != nil {
		g.logger.Warn("⚠️ possible prompt injection in transcript",
			zap.Strings("patterns", matches),
		)
	}
	return matches
}
