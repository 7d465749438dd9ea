package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/internal/adapter/promptstore"
	"github.com/calltriage/call-analyzer/internal/adapter/report"
	"github.com/calltriage/call-analyzer/internal/domain/entities"
	"github.com/calltriage/call-analyzer/internal/infrastructure/queue"
	"github.com/calltriage/call-analyzer/internal/usecase/analysis"
	"github.com/calltriage/call-analyzer/internal/usecase/diarize"
	uerrors "github.com/calltriage/call-analyzer/internal/usecase/errors"
	"github.com/calltriage/call-analyzer/pkg/config"
	"github.com/calltriage/call-analyzer/pkg/jobcontext"
	"github.com/calltriage/call-analyzer/pkg/validator"
)

// perFileTimeout bounds one file's transcription, diarization and analysis.
const perFileTimeout = 30 * time.Minute

// Transcriber converts an audio file into timed transcript segments. It is
// an external collaborator, typically a whisper-style speech-to-text system.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*entities.Transcription, error)
}

// Diarizer optionally provides learned speaker turns for an audio file. A
// nil or empty result falls back to the heuristic assigner.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]entities.SpeakerTurn, error)
}

// FileResult summarises one processed audio file.
type FileResult struct {
	JobID          string
	AudioPath      string
	TranscriptPath string
	AnalysisPath   string
	ReasoningPath  string
	Turns          []entities.MergedTurn
	Batch          *entities.AnalysisBatchResult
}

// Service orchestrates the full call pipeline for audio files.
type Service interface {
	ProcessFile(ctx context.Context, audioPath string) (*FileResult, error)
	ProcessFiles(ctx context.Context, audioPaths []string) []error
	Queue() *queue.MemoryQueue
}

type pipelineService struct {
	transcriber Transcriber
	diarizer    Diarizer
	assigner    *diarize.HeuristicAssigner
	merger      *diarize.AttributionMerger
	runner      *analysis.Runner
	prompts     *promptstore.Store
	reports     *report.Writer
	jobs        *queue.MemoryQueue
	validate    *validator.CustomValidator
	cfg         *config.Config
	logger      *zap.Logger
	// semaphore limits concurrent file processing.
	semaphore chan struct{}
}

// NewService constructs the pipeline service. The diarizer may be nil, in
// which case speaker turns always come from the heuristic assigner.
func NewService(
	transcriber Transcriber,
	diarizer Diarizer,
	runner *analysis.Runner,
	prompts *promptstore.Store,
	reports *report.Writer,
	jobs *queue.MemoryQueue,
	cfg *config.Config,
	logger *zap.Logger,
) Service {
	maxConcurrent := cfg.Pipeline.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &pipelineService{
		transcriber: transcriber,
		diarizer:    diarizer,
		assigner:    diarize.NewHeuristicAssigner(diarize.OptionsFromConfig(&cfg.Diarization), logger),
		merger:      diarize.NewAttributionMerger(diarize.MergerOptionsFromConfig(&cfg.Diarization), logger),
		runner:      runner,
		prompts:     prompts,
		reports:     reports,
		jobs:        jobs,
		validate:    validator.New(),
		cfg:         cfg,
		logger:      logger,
		semaphore:   make(chan struct{}, maxConcurrent),
	}
}

// Queue exposes the job tracker for status inspection.
func (s *pipelineService) Queue() *queue.MemoryQueue {
	return s.jobs
}

// ProcessFiles runs every file through the pipeline. Each file's error is
// reported in its slot; one failure never stops the rest.
func (s *pipelineService) ProcessFiles(ctx context.Context, audioPaths []string) []error {
	errs := make([]error, len(audioPaths))
	for i, path := range audioPaths {
		if _, err := s.ProcessFile(ctx, path); err != nil {
			errs[i] = err
			if s.logger != nil {
				s.logger.Error("file processing failed",
					zap.String("file", path),
					zap.Error(err),
				)
			}
		}
	}
	return errs
}

// ProcessFile transcribes one audio file, attributes speakers, runs the
// analysis prompts and writes the reports.
func (s *pipelineService) ProcessFile(ctx context.Context, audioPath string) (*FileResult, error) {
	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	jobID := s.jobs.Enqueue(audioPath)
	if err := s.jobs.Start(jobID); err != nil {
		return nil, err
	}

	jobCtx, cancel := jobcontext.JobBegin(ctx, jobID, audioPath, perFileTimeout, s.cfg.Pipeline.MaxRetries)
	defer cancel()

	if s.logger != nil {
		s.logger.Info("🎙️ processing call recording",
			zap.String("job_id", jobID),
			zap.String("file", audioPath),
		)
	}

	result, err := s.process(jobCtx, jobID, audioPath)
	if err != nil {
		s.jobs.Fail(jobID, err.Error())
		return nil, err
	}

	var produced []string
	for _, p := range []string{result.TranscriptPath, result.AnalysisPath, result.ReasoningPath} {
		if p != "" {
			produced = append(produced, p)
		}
	}
	s.jobs.Complete(jobID, produced)
	return result, nil
}

func (s *pipelineService) process(ctx context.Context, jobID, audioPath string) (*FileResult, error) {
	transcription, err := s.transcribe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	if err := s.validateSegments(transcription.Segments); err != nil {
		return nil, fmt.Errorf("invalid transcript payload: %w", err)
	}

	turns := s.speakerTurns(ctx, audioPath, transcription.Segments)
	merged := s.merger.Merge(transcription.Segments, turns)

	stem := fileStem(audioPath)
	result := &FileResult{JobID: jobID, AudioPath: audioPath, Turns: merged}

	result.TranscriptPath, err = s.reports.WriteTranscript(stem, merged)
	if err != nil {
		return nil, err
	}

	if !s.cfg.Analysis.Enabled {
		return result, nil
	}

	batch, err := s.analyze(ctx, transcription)
	if err != nil {
		return nil, err
	}
	result.Batch = batch

	result.AnalysisPath, err = s.reports.WriteAnalysis(stem, batch)
	if err != nil {
		return nil, err
	}
	if s.cfg.Analysis.SaveReasoning {
		result.ReasoningPath, err = s.reports.WriteReasoning(stem, batch)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// transcribe calls the external transcriber, retrying transient failures.
func (s *pipelineService) transcribe(ctx context.Context, audioPath string) (*entities.Transcription, error) {
	var transcription *entities.Transcription

	err := jobcontext.Run(ctx, s.cfg.Pipeline.RetryDelayBase, func(ctx context.Context) error {
		t, err := s.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			return err
		}
		transcription = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transcription == nil || len(transcription.Segments) == 0 {
		return nil, fmt.Errorf("%s: %w", audioPath, uerrors.ErrNoSegments)
	}
	return transcription, nil
}

// speakerTurns prefers learned diarization and falls back to the heuristic
// assigner when diarization is disabled, unavailable or empty.
func (s *pipelineService) speakerTurns(ctx context.Context, audioPath string, segments []entities.TranscriptSegment) []entities.SpeakerTurn {
	if s.cfg.Diarization.Enabled && s.diarizer != nil {
		turns, err := s.diarizer.Diarize(ctx, audioPath)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("diarizer failed, falling back to heuristics",
					zap.String("file", audioPath),
					zap.Error(err),
				)
			}
		} else if len(turns) > 0 {
			return turns
		}
	}
	return s.assigner.Assign(segments)
}

// analyze runs the prompt batch over the raw transcript text. Speaker labels
// stay out of the model input so they never eat into the truncation budget.
func (s *pipelineService) analyze(ctx context.Context, transcription *entities.Transcription) (*entities.AnalysisBatchResult, error) {
	jobs, err := s.prompts.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return s.runner.Run(ctx, jobs, transcription.PlainText()), nil
}

func (s *pipelineService) validateSegments(segments []entities.TranscriptSegment) error {
	for i, seg := range segments {
		if err := s.validate.Validate(seg); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if seg.End < seg.Start {
			return fmt.Errorf("segment %d: end %.2f before start %.2f", i, seg.End, seg.Start)
		}
	}
	return nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
