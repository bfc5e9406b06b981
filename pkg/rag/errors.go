package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrExpansion is recoverable: callers fall back to the original query.
	ErrExpansion = errors.New("query expansion failed")
	// ErrRetrieval means every retrieval in a fan-out failed.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrRerank is recoverable unless the reranker is configured fail-closed.
	ErrRerank = errors.New("rerank failed")
	// ErrGeneration means generation failed after its single retry.
	ErrGeneration = errors.New("text generation failed")
	// ErrCollapseLimit means the collapse loop hit its round cap.
	ErrCollapseLimit = errors.New("summary collapse did not converge")
	// ErrUnitExceedsCeiling means one summary unit alone is above the mode ceiling.
	ErrUnitExceedsCeiling = errors.New("summary unit exceeds token ceiling")
)

// GenerationError wraps the last failure of a generation call.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s after %d attempt(s)", ErrGeneration, e.Attempts)
	}
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrGeneration, e.Attempts, e.Err)
}

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

func (e *GenerationError) Unwrap() error { return e.Err }

// CollapseState is the in-flight state of one summary mode.
type CollapseState struct {
	Mode    string
	Pending []string
	Round   int
	Tokens  int
}

// CollapseLimitError carries the partial state at the moment the cap hit.
type CollapseLimitError struct {
	State CollapseState
	Limit int
}

func (e *CollapseLimitError) Error() string {
	return fmt.Sprintf("%s: mode %s still at %d tokens across %d units after %d rounds",
		ErrCollapseLimit, e.State.Mode, e.State.Tokens, len(e.State.Pending), e.Limit)
}

func (e *CollapseLimitError) Is(target error) bool { return target == ErrCollapseLimit }
