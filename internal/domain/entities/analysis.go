package entities

// PromptJob is one unit of analysis work loaded from the prompt store.
// Content is a template carrying a {text} placeholder for the transcript.
type PromptJob struct {
	Number   int    `json:"number" validate:"min=0,max=99"`
	Filename string `json:"filename"`
	Content  string `json:"content" validate:"required"`
}

// ReasoningSection records one reasoning-tag span removed from a model
// response, kept so it can optionally be persisted to a side file.
type ReasoningSection struct {
	FullMatch string `json:"full_match"`
	Content   string `json:"content"`
	StartTag  string `json:"start_tag"`
	EndTag    string `json:"end_tag"`
	StartPos  int    `json:"start_pos"`
	EndPos    int    `json:"end_pos"`
}

// AnalysisResult is the outcome of running one PromptJob against the LLM
// endpoint. Failures are data, not control flow: a failed call still yields
// a populated result with Success=false.
type AnalysisResult struct {
	PromptNumber      int                    `json:"prompt_number"`
	PromptFilename    string                 `json:"prompt_filename"`
	Success           bool                   `json:"success"`
	Error             string                 `json:"error,omitempty"`
	RawResponse       string                 `json:"raw_response,omitempty"`
	ParsedResult      map[string]interface{} `json:"parsed_result,omitempty"`
	InjectionDetected bool                   `json:"injection_detected"`
	InjectionMatches  []string               `json:"injection_matches,omitempty"`
	ValidationError   string                 `json:"validation_error,omitempty"`
	RequestID         string                 `json:"request_id"`
	DurationSeconds   float64                `json:"duration_seconds"`
	ReasoningRemoved  bool                   `json:"reasoning_removed"`
	ReasoningCount    int                    `json:"reasoning_count"`
	ReasoningSections []ReasoningSection     `json:"-"`
}

// AnalysisBatchResult aggregates the ordered results of one analysis round.
type AnalysisBatchResult struct {
	Results           []AnalysisResult `json:"prompt_results"`
	TotalPrompts      int              `json:"total_prompts"`
	SuccessfulPrompts int              `json:"successful_prompts"`
	FailedPrompts     int              `json:"failed_prompts"`
}
