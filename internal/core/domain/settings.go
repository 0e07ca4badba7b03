package domain

import (
	"fmt"
	"regexp"
	"time"
)

const unknownDescription = "Unknown"

const defaultExpertDescription = "Ask an external subject-matter expert a question that the " +
	"course materials do not cover. Use it only for questions outside the courses."

// toolName is the name format every provider accepts for function tools.
var toolName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// DefaultAzureAPIVersion is the Azure OpenAI REST API version used when none is configured.
const DefaultAzureAPIVersion = "2024-02-01"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAzure is an Azure OpenAI deployment.
	AIProviderAzure AIProvider = "azure"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHashing is the built-in offline embedder.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAzure, AIProviderAnthropic, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresCredential returns true if this provider needs an API key or token.
func (p AIProvider) RequiresCredential() bool {
	return p == AIProviderOpenAI || p == AIProviderAzure || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs without network access to a cloud API.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAzure:
		return "Azure OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHashing:
		return "Hashing (built-in, offline)"
	default:
		return unknownDescription
	}
}

// ChunkingSettings controls how lesson text is split.
type ChunkingSettings struct {
	// Size is the target chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// RetrievalSettings controls content search.
type RetrievalSettings struct {
	// MaxResults caps the number of chunks returned per search.
	MaxResults int

	// ResolveMaxDistance is the largest cosine distance at which a fuzzy
	// course name still resolves to a catalog entry.
	ResolveMaxDistance float64
}

// ConversationSettings controls the generation loop.
type ConversationSettings struct {
	// MaxHistory is the number of exchanges retained per session.
	MaxHistory int

	// MaxToolRounds bounds the tool-calling rounds per query.
	MaxToolRounds int
}

// ClientCredentials configures an OAuth client-credentials token source.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// IsConfigured returns true if a token can be requested.
func (c ClientCredentials) IsConfigured() bool {
	return c.TokenURL != "" && c.ClientID != "" && c.ClientSecret != ""
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the model name (deployment name for Azure).
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the static API key.
	APIKey string

	// APIVersion is the Azure OpenAI API version.
	APIVersion string

	// Auth configures a dynamic bearer token instead of a static key.
	Auth ClientCredentials

	// MaxTokens caps the generated answer length.
	MaxTokens int

	// Temperature controls randomness (0 = deterministic).
	Temperature float64

	// Timeout is the per-request timeout.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHashing {
		return false
	}
	if l.Provider.RequiresCredential() && l.APIKey == "" && !l.Auth.IsConfigured() {
		return false
	}
	return true
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key.
	APIKey string

	// Dimensions overrides the model's default vector size.
	Dimensions int

	// RequestsPerSecond limits embedding API calls. Zero means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic || e.Provider == AIProviderAzure {
		return false
	}
	if e.Provider.RequiresCredential() && e.APIKey == "" {
		return false
	}
	return true
}

// ExpertSettings configures the optional external expert tool. The expert
// authenticates with the LLM client credentials when those are configured.
type ExpertSettings struct {
	// URL is the expert answer endpoint. Empty disables the tool.
	URL string

	// Name is the tool name offered to the model.
	Name string

	// Description tells the model when to call the expert.
	Description string

	// Timeout is the per-request timeout.
	Timeout time.Duration
}

// IsConfigured returns true if the expert tool should be registered.
func (e ExpertSettings) IsConfigured() bool {
	return e.URL != ""
}

// StorageSettings locates persisted state.
type StorageSettings struct {
	// DataDir holds the vector index database.
	DataDir string
}

// DocumentSettings locates course documents.
type DocumentSettings struct {
	// Dir is the folder scanned on ingest.
	Dir string
}

// Settings is the explicit configuration passed to every component.
type Settings struct {
	Chunking     ChunkingSettings
	Retrieval    RetrievalSettings
	Conversation ConversationSettings
	LLM          LLMSettings
	Embedding    EmbeddingSettings
	Expert       ExpertSettings
	Storage      StorageSettings
	Documents    DocumentSettings
}

// DefaultSettings returns settings with sensible defaults.
// The LLM is left unconfigured; embeddings default to the offline hashing provider.
func DefaultSettings() Settings {
	return Settings{
		Chunking: ChunkingSettings{
			Size:    800,
			Overlap: 100,
		},
		Retrieval: RetrievalSettings{
			MaxResults:         5,
			ResolveMaxDistance: 0.75,
		},
		Conversation: ConversationSettings{
			MaxHistory:    2,
			MaxToolRounds: 2,
		},
		LLM: LLMSettings{
			MaxTokens:   800,
			Temperature: 0,
			Timeout:     120 * time.Second,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderHashing,
		},
		Expert: ExpertSettings{
			Name:        "ask_expert",
			Description: defaultExpertDescription,
			Timeout:     30 * time.Second,
		},
		Documents: DocumentSettings{
			Dir: "docs",
		},
	}
}

// Validate rejects settings that would let a zero or negative value
// propagate into the pipeline. Errors wrap ErrInvalidConfig.
func (s Settings) Validate() error {
	switch {
	case s.Chunking.Size <= 0:
		return fmt.Errorf("%w: chunking.size must be positive, got %d", ErrInvalidConfig, s.Chunking.Size)
	case s.Chunking.Overlap < 0:
		return fmt.Errorf("%w: chunking.overlap must not be negative, got %d", ErrInvalidConfig, s.Chunking.Overlap)
	case s.Chunking.Overlap >= s.Chunking.Size:
		return fmt.Errorf("%w: chunking.overlap (%d) must be smaller than chunking.size (%d)",
			ErrInvalidConfig, s.Chunking.Overlap, s.Chunking.Size)
	case s.Retrieval.MaxResults <= 0:
		return fmt.Errorf("%w: retrieval.max_results must be positive, got %d", ErrInvalidConfig, s.Retrieval.MaxResults)
	case s.Retrieval.ResolveMaxDistance <= 0 || s.Retrieval.ResolveMaxDistance > 2:
		return fmt.Errorf("%w: retrieval.resolve_max_distance must be in (0, 2], got %g",
			ErrInvalidConfig, s.Retrieval.ResolveMaxDistance)
	case s.Conversation.MaxHistory < 0:
		return fmt.Errorf("%w: conversation.max_history must not be negative, got %d",
			ErrInvalidConfig, s.Conversation.MaxHistory)
	case s.Conversation.MaxToolRounds <= 0:
		return fmt.Errorf("%w: conversation.max_tool_rounds must be positive, got %d",
			ErrInvalidConfig, s.Conversation.MaxToolRounds)
	}

	if s.LLM.Provider != "" {
		if !s.LLM.Provider.IsValid() || s.LLM.Provider == AIProviderHashing {
			return fmt.Errorf("%w: unknown llm.provider %q", ErrInvalidConfig, s.LLM.Provider)
		}
		if !s.LLM.IsConfigured() {
			return fmt.Errorf("%w: llm.provider %s requires an API key or client credentials",
				ErrInvalidConfig, s.LLM.Provider)
		}
		if s.LLM.Provider == AIProviderAzure && s.LLM.BaseURL == "" {
			return fmt.Errorf("%w: llm.base_url is required for azure", ErrInvalidConfig)
		}
	}

	if s.Embedding.Provider != "" && !s.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding.provider %s is not usable", ErrInvalidConfig, s.Embedding.Provider)
	}
	if s.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: embedding.requests_per_second must not be negative", ErrInvalidConfig)
	}

	if s.Expert.IsConfigured() {
		if !toolName.MatchString(s.Expert.Name) {
			return fmt.Errorf("%w: expert.name %q must be 1-64 letters, digits, '_' or '-'",
				ErrInvalidConfig, s.Expert.Name)
		}
		if s.Expert.Timeout <= 0 {
			return fmt.Errorf("%w: expert.timeout must be positive", ErrInvalidConfig)
		}
	}

	return nil
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAzure:     "gpt-4",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderHashing: "hashing-512",
	}
}
