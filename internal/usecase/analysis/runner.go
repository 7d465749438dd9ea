package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
	uerrors "github.com/calltriage/call-analyzer/internal/usecase/errors"
)

// Generator produces a model completion for a prompt. Satisfied by the
// ollama client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// defaultPromptTemplate is used when no prompt files are configured, so a
// call always gets at least one analysis pass.
const defaultPromptTemplate = `Analyze the following customer call transcript and respond with a single JSON object containing the keys "brief_summary", "topics", "customer_sentiment" and "follow_up_required".

Transcript:
{text}`

// Runner executes a batch of analysis prompts against a single transcript.
// Prompts run sequentially in ascending number order; a failed call is
// recorded as data and never stops the rest of the batch.
type Runner struct {
	generator    Generator
	guard        *Guard
	filter       *ReasoningFilter
	systemPrompt string
	logger       *zap.Logger
}

// NewRunner wires a runner from its collaborators. The system prompt may be
// empty, in which case prompts are sent unwrapped.
func NewRunner(generator Generator, guard *Guard, filter *ReasoningFilter, systemPrompt string, logger *zap.Logger) *Runner {
	return &Runner{
		generator:    generator,
		guard:        guard,
		filter:       filter,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Run sanitizes the transcript, screens it for injection attempts and
// executes every prompt against it. The returned batch always holds one
// result per prompt, in prompt number order.
func (r *Runner) Run(ctx context.Context, jobs []entities.PromptJob, transcript string) *entities.AnalysisBatchResult {
	text := r.guard.Sanitize(transcript)
	injectionMatches := r.guard.Detect(text)

	if len(jobs) == 0 {
		jobs = []entities.PromptJob{{Number: 0, Filename: "builtin", Content: defaultPromptTemplate}}
		if r.logger != nil {
			r.logger.Info("no prompts configured, using built-in analysis prompt")
		}
	}

	ordered := make([]entities.PromptJob, len(jobs))
	copy(ordered, jobs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	batch := &entities.AnalysisBatchResult{TotalPrompts: len(ordered)}
	for _, job := range ordered {
		result := r.runOne(ctx, job, text, injectionMatches)
		batch.Results = append(batch.Results, result)
		if result.Success {
			batch.SuccessfulPrompts++
		} else {
			batch.FailedPrompts++
		}
	}

	if r.logger != nil {
		r.logger.Info("📊 analysis batch finished",
			zap.String("model", r.generator.Model()),
			zap.Int("total", batch.TotalPrompts),
			zap.Int("successful", batch.SuccessfulPrompts),
			zap.Int("failed", batch.FailedPrompts),
		)
	}
	return batch
}

func (r *Runner) runOne(ctx context.Context, job entities.PromptJob, text string, injectionMatches []string) entities.AnalysisResult {
	result := entities.AnalysisResult{
		PromptNumber:      job.Number,
		PromptFilename:    job.Filename,
		RequestID:         newRequestID(),
		InjectionDetected: len(injectionMatches) > 0,
		InjectionMatches:  injectionMatches,
	}

	prompt := strings.ReplaceAll(job.Content, "{text}", text)
	if r.systemPrompt != "" {
		prompt = fmt.Sprintf("[SYSTEM]\n%s\n[/SYSTEM]\n[USER]\n%s\n[/USER]", r.systemPrompt, prompt)
	}

	if r.logger != nil {
		r.logger.Info("🤖 running analysis prompt",
			zap.String("request_id", result.RequestID),
			zap.Int("prompt_number", job.Number),
			zap.String("prompt_file", job.Filename),
		)
	}

	started := time.Now()
	raw, err := r.generator.Generate(ctx, prompt)
	result.DurationSeconds = time.Since(started).Seconds()

	if err != nil {
		result.Success = false
		result.Error = err.Error()
		if r.logger != nil {
			r.logger.Error("analysis prompt failed",
				zap.String("request_id", result.RequestID),
				zap.Int("prompt_number", job.Number),
				zap.Error(err),
			)
		}
		return result
	}

	result.Success = true

	// The raw response is stored post-filter so serialized results never
	// leak the model's chain of thought.
	filtered := raw
	if r.filter != nil {
		var sections []entities.ReasoningSection
		filtered, sections = r.filter.Apply(raw)
		result.ReasoningRemoved = len(sections) > 0
		result.ReasoningCount = len(sections)
		result.ReasoningSections = sections
	}
	result.RawResponse = filtered

	parsed, parseErr := extractJSON(filtered)
	if parseErr != nil {
		result.ValidationError = parseErr.Error()
		result.ParsedResult = map[string]interface{}{"raw_analysis": filtered}
		return result
	}

	// A flagged transcript overrides whatever the model claimed about its
	// own input integrity.
	if result.InjectionDetected {
		parsed["integrity_alert"] = true
	} else if _, ok := parsed["integrity_alert"]; !ok {
		parsed["integrity_alert"] = false
	}
	result.ParsedResult = parsed
	return result
}

// extractJSON parses the first top-level JSON object in the response,
// tolerating prose the model wrapped around it.
func extractJSON(text string) (map[string]interface{}, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, uerrors.ErrNoJSONInResponse
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON in response: %w", err)
	}
	return parsed, nil
}

// newRequestID returns a short uppercase hex ID for log correlation.
func newRequestID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
