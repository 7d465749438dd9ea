package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/internal/adapter/promptstore"
	"github.com/calltriage/call-analyzer/internal/adapter/report"
	"github.com/calltriage/call-analyzer/internal/infrastructure/external/whisper"
	"github.com/calltriage/call-analyzer/internal/infrastructure/queue"
	"github.com/calltriage/call-analyzer/internal/usecase/analysis"
	"github.com/calltriage/call-analyzer/internal/usecase/pipeline"
	"github.com/calltriage/call-analyzer/pkg/config"
	"github.com/calltriage/call-analyzer/pkg/ollama"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		logger.Fatal("usage: analyzer <audio-file> [audio-file...]")
	}
	files := os.Args[1:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("🔧 initializing call analyzer",
		zap.String("model", cfg.Ollama.Model),
		zap.String("prompt_dir", cfg.Analysis.PromptDir),
		zap.String("output_dir", cfg.Pipeline.OutputDir),
		zap.Int("files", len(files)),
	)

	client := ollama.NewClient(&cfg.Ollama, logger)
	if cfg.Analysis.Enabled {
		if err := client.CheckModel(ctx); err != nil {
			// Transcripts are still worth producing without a model.
			logger.Warn("disabling analysis, LLM unavailable", zap.Error(err))
			cfg.Analysis.Enabled = false
		}
	}

	prompts := promptstore.NewStore(cfg.Analysis.PromptDir, logger)
	systemPrompt, err := prompts.SystemPrompt()
	if err != nil {
		logger.Warn("failed to read system prompt", zap.Error(err))
	}

	guard := analysis.NewGuard(nil, cfg.Analysis.MaxTranscriptLength, logger)
	filter := analysis.NewReasoningFilter(nil, logger)
	runner := analysis.NewRunner(client, guard, filter, systemPrompt, logger)

	svc := pipeline.NewService(
		whisper.NewFileTranscriber(logger),
		nil,
		runner,
		prompts,
		report.NewWriter(cfg.Pipeline.OutputDir, logger),
		queue.NewMemoryQueue(),
		cfg,
		logger,
	)

	errs := svc.ProcessFiles(ctx, files)
	failed := 0
	for _, e := range errs {
		if e != nil {
			failed++
		}
	}

	logger.Info("✅ run finished",
		zap.Int("processed", len(files)-failed),
		zap.Int("failed", failed),
	)
	if failed == len(files) {
		os.Exit(1)
	}
}
