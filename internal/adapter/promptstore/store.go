package promptstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/calltriage/call-analyzer/internal/domain/entities"
	uerrors "github.com/calltriage/call-analyzer/internal/usecase/errors"
)

const (
	// SystemPromptFile holds the optional system prompt applied to every
	// analysis request.
	SystemPromptFile = "system_prompt.txt"

	maxPromptLength = 50000
	minPromptNumber = 1
	maxPromptNumber = 99
)

var promptFilePattern = regexp.MustCompile(`^prompt(\d{2})\.txt$`)

// Store manages numbered analysis prompt files in a single directory.
// Filenames follow promptNN.txt with NN between 01 and 99.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a store rooted at dir. The directory is created on first
// save, not here.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// List returns every valid prompt file in ascending number order. Files that
// fail validation are skipped with a warning rather than aborting the scan.
func (s *Store) List() ([]entities.PromptJob, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read prompt directory %s: %w", s.dir, err)
	}

	var jobs []entities.PromptJob
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		m := promptFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num < minPromptNumber || num > maxPromptNumber {
			continue
		}

		job, err := s.Load(num)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping invalid prompt file",
					zap.String("file", e.Name()),
					zap.Error(err),
				)
			}
			continue
		}
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Number < jobs[j].Number })
	return jobs, nil
}

// Load reads and validates a single prompt by number.
func (s *Store) Load(number int) (entities.PromptJob, error) {
	filename := promptFilename(number)
	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return entities.PromptJob{}, fmt.Errorf("prompt %d: %w", number, uerrors.ErrPromptNotFound)
		}
		return entities.PromptJob{}, fmt.Errorf("failed to read prompt %d: %w", number, err)
	}

	content := string(data)
	if err := validatePrompt(content); err != nil {
		return entities.PromptJob{}, fmt.Errorf("prompt %s is invalid: %w", filename, err)
	}

	return entities.PromptJob{Number: number, Filename: filename, Content: content}, nil
}

// Save validates and writes a prompt under the given number, creating the
// directory if needed.
func (s *Store) Save(number int, content string) error {
	if number < minPromptNumber || number > maxPromptNumber {
		return fmt.Errorf("prompt number %d out of range %d-%d", number, minPromptNumber, maxPromptNumber)
	}
	if err := validatePrompt(content); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create prompt directory: %w", err)
	}

	path := filepath.Join(s.dir, promptFilename(number))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write prompt %d: %w", number, err)
	}

	if s.logger != nil {
		s.logger.Info("💾 prompt saved", zap.String("file", path))
	}
	return nil
}

// Delete removes a prompt file. Deleting a missing prompt is an error.
func (s *Store) Delete(number int) error {
	path := filepath.Join(s.dir, promptFilename(number))
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete prompt %d: %w", number, err)
	}
	return nil
}

// NextAvailableNumber returns the lowest unused prompt number, or an error
// when all 99 slots are taken.
func (s *Store) NextAvailableNumber() (int, error) {
	jobs, err := s.List()
	if err != nil {
		return 0, err
	}

	used := make(map[int]bool, len(jobs))
	for _, j := range jobs {
		used[j.Number] = true
	}
	for n := minPromptNumber; n <= maxPromptNumber; n++ {
		if !used[n] {
			return n, nil
		}
	}
	return 0, uerrors.ErrPromptSlotsInUse
}

// SystemPrompt returns the trimmed system prompt, or empty when the file is
// absent. Absence is not an error.
func (s *Store) SystemPrompt() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, SystemPromptFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read system prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func promptFilename(number int) string {
	return fmt.Sprintf("prompt%02d.txt", number)
}

func validatePrompt(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("prompt is empty")
	}
	if len(content) > maxPromptLength {
		return fmt.Errorf("prompt exceeds %d characters", maxPromptLength)
	}
	if !strings.Contains(content, "{text}") {
		return uerrors.ErrMissingPlaceholder
	}
	return nil
}
