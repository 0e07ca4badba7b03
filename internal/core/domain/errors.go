package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a configuration value that cannot be used.
	// Configuration errors are fatal at startup.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedType indicates an unknown provider or document type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Parse Errors.

	// ErrMissingCourseTitle indicates a course document without a "Course Title:" header.
	ErrMissingCourseTitle = errors.New("missing course title")

	// ErrMissingLessonNumber indicates a lesson marker without an integer number.
	ErrMissingLessonNumber = errors.New("lesson marker without number")

	// Service Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGeneration indicates the LLM failed while producing an answer.
	// It is never retried internally.
	ErrGeneration = errors.New("generation failed")

	// ErrToolNotFound indicates the model requested a tool that is not registered.
	ErrToolNotFound = errors.New("tool not found")
)
