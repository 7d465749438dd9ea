package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
	uerrors "github.com/calltriage/call-analyzer/internal/usecase/errors"
)

// FileTranscriber reads whisper-style transcription payloads from sidecar
// JSON files next to the audio. For call.wav it expects call.wav.json or
// call.json with {"text", "segments": [{"start","end","text"}], "language"}.
type FileTranscriber struct {
	logger *zap.Logger
}

// NewFileTranscriber creates a sidecar file transcriber.
func NewFileTranscriber(logger *zap.Logger) *FileTranscriber {
	return &FileTranscriber{logger: logger}
}

// Transcribe loads the sidecar payload for the given audio file.
func (t *FileTranscriber) Transcribe(ctx context.Context, audioPath string) (*entities.Transcription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := t.sidecarPath(audioPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcription %s: %w", path, err)
	}

	var transcription entities.Transcription
	if err := json.Unmarshal(data, &transcription); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, uerrors.ErrMalformedPayload, err)
	}

	if t.logger != nil {
		t.logger.Info("📝 transcription loaded",
			zap.String("file", path),
			zap.Int("segments", len(transcription.Segments)),
			zap.String("language", transcription.Language),
		)
	}
	return &transcription, nil
}

func (t *FileTranscriber) sidecarPath(audioPath string) (string, error) {
	candidates := []string{
		audioPath + ".json",
		strings.TrimSuffix(audioPath, extOf(audioPath)) + ".json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%s: %w", audioPath, uerrors.ErrSidecarNotFound)
}

func extOf(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 && !strings.Contains(path[i:], "/") {
		return path[i:]
	}
	return ""
}
