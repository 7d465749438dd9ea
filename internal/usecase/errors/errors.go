package errors

import "errors"

// Transcription errors
var (
	ErrNoSegments       = errors.New("transcription contains no segments")
	ErrSidecarNotFound  = errors.New("transcription sidecar not found")
	ErrMalformedPayload = errors.New("malformed transcription payload")
)

// Prompt errors
var (
	ErrPromptNotFound     = errors.New("prompt not found")
	ErrPromptSlotsInUse   = errors.New("all prompt numbers are in use")
	ErrMissingPlaceholder = errors.New("prompt is missing the {text} placeholder")
)

// Analysis errors
var (
	ErrNoJSONInResponse = errors.New("no JSON object found in response")
)
