package summary_engine

import (
	"errors"
	"fmt"
	"time"
)

// Errors carried in Result.Err. Callers see only the fixed messages below.
var (
	ErrInvalidReference  = errors.New("invalid report identifier")
	ErrExtractionFailed  = errors.New("report text extraction failed")
	ErrServiceFailure    = errors.New("text generation failed")
	ErrNothingToCondense = errors.New("no chunk summaries to condense")
)

// Messages returned to callers. They never carry internal error detail.
const (
	MsgNoContent        = "No content to summarize."
	MsgNotFound         = "Report not found."
	MsgInvalidReference = "Invalid report identifier."
	MsgFailed           = "Error summarizing report."
)

// ChunkError records which chunk's generation call failed.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%v: chunk %d: %v", ErrServiceFailure, e.Index, e.Err)
}

func (e *ChunkError) Unwrap() []error {
	return []error{ErrServiceFailure, e.Err}
}

// Stage is a state of the summarization pipeline.
type Stage string

const (
	StageStart             Stage = "START"
	StageExtracting        Stage = "EXTRACTING"
	StageChunking          Stage = "CHUNKING"
	StageSummarizingChunks Stage = "SUMMARIZING_CHUNKS"
	StageCondensing        Stage = "CONDENSING"
	StageDone              Stage = "DONE"
	StageFailed            Stage = "FAILED"
)

// Outcome classifies how a pipeline run ended.
type Outcome int

const (
	OutcomeSummarized Outcome = iota
	OutcomeNoContent
	OutcomeNotFound
	OutcomeInvalidReference
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSummarized:
		return "summarized"
	case OutcomeNoContent:
		return "no_content"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalidReference:
		return "invalid_reference"
	default:
		return "failed"
	}
}

// Result is the full record of one pipeline run.
type Result struct {
	Outcome Outcome
	Summary string

	// Stage is DONE or FAILED; FailedAt is the stage that failed.
	Stage    Stage
	FailedAt Stage
	Err      error

	Chunks   int
	Duration time.Duration
}

// Message is what callers may show: the summary or a fixed sanitized string.
func (r *Result) Message() string {
	switch r.Outcome {
	case OutcomeSummarized:
		return r.Summary
	case OutcomeNoContent:
		return MsgNoContent
	case OutcomeNotFound:
		return MsgNotFound
	case OutcomeInvalidReference:
		return MsgInvalidReference
	default:
		return MsgFailed
	}
}
