package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
	"github.com/calltriage/call-analyzer/internal/usecase/diarize"
)

// Writer renders speaker-attributed transcripts and analysis reports as
// plain text files in the output directory.
type Writer struct {
	outputDir string
	logger    *zap.Logger
}

// NewWriter creates a writer targeting outputDir.
func NewWriter(outputDir string, logger *zap.Logger) *Writer {
	return &Writer{outputDir: outputDir, logger: logger}
}

// WriteTranscript writes the speaker-attributed transcript with per-speaker
// statistics and returns the path of the created file.
func (w *Writer) WriteTranscript(stem string, turns []entities.MergedTurn) (string, error) {
	var sb strings.Builder

	sb.WriteString("CALL TRANSCRIPT\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, t := range turns {
		sb.WriteString(fmt.Sprintf("[%s-%s] %s: %s\n",
			formatTimestamp(t.Start), formatTimestamp(t.End), t.Speaker, t.Text))
	}

	patterns := diarize.ComputeSpeakerPatterns(turns)
	if patterns.SpeakerCount > 0 {
		sb.WriteString("\n" + strings.Repeat("-", 60) + "\n")
		sb.WriteString("SPEAKER STATISTICS\n\n")

		speakers := make([]string, 0, len(patterns.Stats))
		for s := range patterns.Stats {
			speakers = append(speakers, s)
		}
		sort.Strings(speakers)

		for _, speaker := range speakers {
			s := patterns.Stats[speaker]
			avgWords := 0.0
			if s.Turns > 0 {
				avgWords = float64(s.Words) / float64(s.Turns)
			}
			sb.WriteString(fmt.Sprintf("%s:\n", speaker))
			sb.WriteString(fmt.Sprintf("  speaking time: %.1fs (%.1f min)\n", s.TotalTime, s.TotalTime/60))
			sb.WriteString(fmt.Sprintf("  segments: %d\n", s.Turns))
			sb.WriteString(fmt.Sprintf("  words: %d (%.1f per segment)\n", s.Words, avgWords))
			sb.WriteString(fmt.Sprintf("  share: %.1f%%\n\n", s.Percentage))
		}
	}

	filename := fmt.Sprintf("%s %s.txt", stem, time.Now().Format("20060102150405"))
	return w.write(filename, sb.String())
}

// WriteAnalysis writes the analysis report for a batch and returns the path
// of the created file. Failed prompts keep their section with the error text
// instead of being omitted.
func (w *Writer) WriteAnalysis(stem string, batch *entities.AnalysisBatchResult) (string, error) {
	var sb strings.Builder

	sb.WriteString("CALL ANALYSIS REPORT\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString(fmt.Sprintf("generated: %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("prompts: %d successful of %d total\n\n",
		batch.SuccessfulPrompts, batch.TotalPrompts))

	for _, res := range batch.Results {
		sb.WriteString(strings.Repeat("-", 60) + "\n")
		sb.WriteString(fmt.Sprintf("PROMPT %02d (%s)  request %s  %.1fs\n\n",
			res.PromptNumber, res.PromptFilename, res.RequestID, res.DurationSeconds))

		if res.InjectionDetected {
			sb.WriteString("!! INTEGRITY WARNING: possible prompt injection in transcript\n")
			sb.WriteString(fmt.Sprintf("   matched: %s\n\n", strings.Join(res.InjectionMatches, ", ")))
		}

		if !res.Success {
			sb.WriteString(fmt.Sprintf("FAILED: %s\n\n", res.Error))
			continue
		}
		if res.ValidationError != "" {
			sb.WriteString(fmt.Sprintf("response could not be parsed as JSON: %s\n\n", res.ValidationError))
		}
		sb.WriteString(formatParsedResult(res.ParsedResult))
		sb.WriteString("\n")
	}

	filename := fmt.Sprintf("%s ANALYSIS %s.txt", stem, time.Now().Format("20060102150405"))
	return w.write(filename, sb.String())
}

// WriteReasoning writes the reasoning sections removed from a batch to a
// side file next to the reports. Nothing is written when no reasoning was
// removed, and the returned path is empty in that case.
func (w *Writer) WriteReasoning(stem string, batch *entities.AnalysisBatchResult) (string, error) {
	var sb strings.Builder

	for _, res := range batch.Results {
		if len(res.ReasoningSections) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("PROMPT %02d (%s)\n", res.PromptNumber, res.PromptFilename))
		for i, sec := range res.ReasoningSections {
			sb.WriteString(fmt.Sprintf("--- section %d (%s) ---\n%s\n\n", i+1, sec.StartTag, sec.Content))
		}
	}

	if sb.Len() == 0 {
		return "", nil
	}
	return w.write(stem+"_reasoning.txt", sb.String())
}

func (w *Writer) write(filename, content string) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", filename, err)
	}

	if w.logger != nil {
		w.logger.Info("📄 report written", zap.String("path", path))
	}
	return path, nil
}

// formatParsedResult renders the parsed analysis as indented JSON with
// brief_summary pulled out first when present, since readers scan for it.
func formatParsedResult(parsed map[string]interface{}) string {
	var sb strings.Builder

	if summary, ok := parsed["brief_summary"].(string); ok {
		sb.WriteString("SUMMARY: " + summary + "\n\n")
	}

	rest := make(map[string]interface{}, len(parsed))
	for k, v := range parsed {
		if k == "brief_summary" {
			continue
		}
		rest[k] = v
	}
	if len(rest) == 0 {
		return sb.String()
	}

	pretty, err := json.MarshalIndent(rest, "", "  ")
	if err != nil {
		return sb.String() + fmt.Sprintf("%v\n", rest)
	}
	sb.Write(pretty)
	sb.WriteString("\n")
	return sb.String()
}

// formatTimestamp renders seconds as mm:ss.
func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
