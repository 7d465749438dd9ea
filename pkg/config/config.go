package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration.
type Config struct {
	Ollama      OllamaConfig
	Diarization DiarizationConfig
	Analysis    AnalysisConfig
	Pipeline    PipelineConfig
}

// OllamaConfig holds connection and generation settings for the LLM server.
type OllamaConfig struct {
	BaseURL        string        `envconfig:"BASE_URL" default:"http://localhost:11434"`
	Model          string        `envconfig:"MODEL" default:"gemma3:12b"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"180s"`
	Stream         bool          `envconfig:"STREAM_RESPONSES" default:"false"`
	Temperature    float64       `envconfig:"TEMPERATURE" default:"0.7"`
	TopP           float64       `envconfig:"TOP_P" default:"0.9"`
	TopK           int           `envconfig:"TOP_K" default:"40"`
	RepeatPenalty  float64       `envconfig:"REPEAT_PENALTY" default:"1.1"`
	NumPredict     int           `envconfig:"NUM_PREDICT" default:"-1"`
	StopSequence   string        `envconfig:"STOP_SEQUENCE" default:""`
}

// DiarizationConfig holds the heuristic speaker-attribution thresholds.
// The similarity and overlap thresholds are hand-tuned values carried over
// from production use; they are configuration, not constants, so deployments
// can re-tune them empirically.
type DiarizationConfig struct {
	Enabled              bool    `envconfig:"ENABLED" default:"true"`
	MaxSpeakers          int     `envconfig:"MAX_SPEAKERS" default:"4"`
	PauseThreshold       float64 `envconfig:"PAUSE_THRESHOLD" default:"1.2"`
	SimilarityThreshold  float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.7"`
	MinSpeakerDuration   float64 `envconfig:"MIN_SPEAKER_DURATION" default:"1.5"`
	ConsolidateGap       float64 `envconfig:"CONSOLIDATE_GAP" default:"0.5"`
	TurnMergeGap         float64 `envconfig:"TURN_MERGE_GAP" default:"1.0"`
	WeakOverlapThreshold float64 `envconfig:"WEAK_OVERLAP_THRESHOLD" default:"0.5"`
}

// AnalysisConfig holds LLM analysis settings.
type AnalysisConfig struct {
	Enabled             bool   `envconfig:"ENABLED" default:"true"`
	PromptDir           string `envconfig:"PROMPT_DIR" default:"prompt"`
	MaxTranscriptLength int    `envconfig:"MAX_TRANSCRIPT_LENGTH" default:"8000"`
	SaveReasoning       bool   `envconfig:"SAVE_REASONING" default:"false"`
}

// PipelineConfig holds per-file processing settings.
type PipelineConfig struct {
	OutputDir      string        `envconfig:"OUTPUT_DIR" default:"output"`
	MaxConcurrent  int           `envconfig:"MAX_CONCURRENT_PROCESSES" default:"1"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelayBase time.Duration `envconfig:"RETRY_DELAY_BASE" default:"2s"`
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	cfg := &Config{}
	if err := envconfig.Process("OLLAMA", &cfg.Ollama); err != nil {
		return nil, fmt.Errorf("failed to parse OLLAMA config: %w", err)
	}
	if err := envconfig.Process("DIARIZATION", &cfg.Diarization); err != nil {
		return nil, fmt.Errorf("failed to parse DIARIZATION config: %w", err)
	}
	if err := envconfig.Process("ANALYSIS", &cfg.Analysis); err != nil {
		return nil, fmt.Errorf("failed to parse ANALYSIS config: %w", err)
	}
	if err := envconfig.Process("PIPELINE", &cfg.Pipeline); err != nil {
		return nil, fmt.Errorf("failed to parse PIPELINE config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("OLLAMA_BASE_URL is required")
	}
	if c.Diarization.MaxSpeakers < 1 {
		return fmt.Errorf("DIARIZATION_MAX_SPEAKERS must be at least 1")
	}
	if c.Analysis.MaxTranscriptLength < 1 {
		return fmt.Errorf("ANALYSIS_MAX_TRANSCRIPT_LENGTH must be positive")
	}
	if c.Pipeline.MaxConcurrent < 1 {
		return fmt.Errorf("PIPELINE_MAX_CONCURRENT_PROCESSES must be at least 1")
	}
	return nil
}
