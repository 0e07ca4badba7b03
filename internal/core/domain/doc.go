// Package domain defines the core business entities for Lectern.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Course, Lesson: An ingested course document and its ordered lessons
//   - Chunk: A retrievable slice of lesson text
//   - CourseOutline: The catalog record kept per course
//   - Message, ToolCall, History: Conversation state for the generation loop
//   - Settings: The explicit configuration passed into every component
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
