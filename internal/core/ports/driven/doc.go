// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorCollection: Semantic record storage (one for the catalog, one for content)
//   - EmbeddingService: Generates vector embeddings for records and queries
//   - SessionStore: Bounded conversation history keyed by session ID
//   - DocumentSource: Lists and reads course documents
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Without it, ingestion and catalog commands still work but questions cannot be answered.
//   - PromptStore: Without it, built-in prompts are used.
//   - TokenProvider: Without it, static API keys are used.
//   - ExpertService: Without it, no expert tool is offered to the model.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
