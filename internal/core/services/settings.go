package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
	"github.com/custodia-labs/lectern/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize          = "chunking.size"
	keyChunkOverlap       = "chunking.overlap"
	keyMaxResults         = "retrieval.max_results"
	keyResolveMaxDistance = "retrieval.resolve_max_distance"
	keyMaxHistory         = "conversation.max_history"
	keyMaxToolRounds      = "conversation.max_tool_rounds"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyLLMAPIVersion      = "llm.api_version"
	keyLLMMaxTokens       = "llm.max_tokens"
	keyLLMTemperature     = "llm.temperature"
	keyLLMTimeout         = "llm.timeout"
	keyAuthTokenURL       = "llm.auth.token_url"
	keyAuthClientID       = "llm.auth.client_id"
	keyAuthClientSecret   = "llm.auth.client_secret"
	keyAuthScopes         = "llm.auth.scopes"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDimensions    = "embedding.dimensions"
	keyEmbedRPS           = "embedding.requests_per_second"
	keyExpertURL          = "expert.url"
	keyExpertName         = "expert.name"
	keyExpertDescription  = "expert.description"
	keyExpertTimeout      = "expert.timeout"
	keyDataDir            = "storage.data_dir"
	keyDocumentsDir       = "documents.dir"
)

// settingKind is the value type of a setting.
type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindDuration
	kindList
	kindSecret
)

// settingKinds lists every recognised key and its type.
var settingKinds = map[string]settingKind{
	keyChunkSize:          kindInt,
	keyChunkOverlap:       kindInt,
	keyMaxResults:         kindInt,
	keyResolveMaxDistance: kindFloat,
	keyMaxHistory:         kindInt,
	keyMaxToolRounds:      kindInt,
	keyLLMProvider:        kindString,
	keyLLMModel:           kindString,
	keyLLMBaseURL:         kindString,
	keyLLMAPIKey:          kindSecret,
	keyLLMAPIVersion:      kindString,
	keyLLMMaxTokens:       kindInt,
	keyLLMTemperature:     kindFloat,
	keyLLMTimeout:         kindDuration,
	keyAuthTokenURL:       kindString,
	keyAuthClientID:       kindString,
	keyAuthClientSecret:   kindSecret,
	keyAuthScopes:         kindList,
	keyEmbedProvider:      kindString,
	keyEmbedModel:         kindString,
	keyEmbedBaseURL:       kindString,
	keyEmbedAPIKey:        kindSecret,
	keyEmbedDimensions:    kindInt,
	keyEmbedRPS:           kindFloat,
	keyExpertURL:          kindString,
	keyExpertName:         kindString,
	keyExpertDescription:  kindString,
	keyExpertTimeout:      kindDuration,
	keyDataDir:            kindString,
	keyDocumentsDir:       kindString,
}

// SettingKeys returns every recognised setting key in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecretSetting returns true if the key holds a credential.
func IsSecretSetting(key string) bool {
	return settingKinds[key] == kindSecret
}

// SettingsService loads, validates and updates application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
	validator   driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// If getenv is nil, os.Getenv is used.
func NewSettingsService(configStore driven.ConfigStore, getenv func(string) string) *SettingsService {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &SettingsService{
		configStore: configStore,
		getenv:      getenv,
	}
}

// WithValidator sets the validator used to ping configured providers.
func (s *SettingsService) WithValidator(v driven.AIConfigValidator) *SettingsService {
	s.validator = v
	return s
}

// Check loads the settings and pings the configured providers.
// Without a validator only the settings themselves are checked.
func (s *SettingsService) Check(ctx context.Context) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if s.validator == nil {
		return nil
	}
	if err := s.validator.ValidateEmbedding(ctx, &settings.Embedding); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if err := s.validator.ValidateLLM(ctx, &settings.LLM); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return nil
}

// Get returns validated settings: defaults, then stored values, then
// environment overrides. Invalid settings wrap ErrInvalidConfig.
func (s *SettingsService) Get() (domain.Settings, error) {
	return LoadSettings(s.configStore, s.getenv)
}

// Set parses and persists one setting. The value is rejected if it does not
// parse for the key's type or would make the settings invalid.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidConfig, key)
	}

	typed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, key, err)
	}

	candidate := overlayStore{ConfigStore: s.configStore, key: key, value: typed}
	if _, err := LoadSettings(candidate, s.getenv); err != nil {
		return err
	}

	return s.configStore.Set(key, typed)
}

// Display returns every setting as a printable string, with secrets masked.
func (s *SettingsService) Display() map[string]string {
	out := make(map[string]string, len(settingKinds))
	for _, key := range s.configStore.Keys() {
		kind, known := settingKinds[key]
		if !known {
			continue
		}
		raw, ok := s.configStore.Get(key)
		if !ok {
			continue
		}
		value := fmt.Sprint(raw)
		if kind == kindSecret && value != "" {
			value = maskSecret(value)
		}
		out[key] = value
	}
	return out
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// LoadSettings builds settings from defaults, the config store and the
// environment, then validates them.
func LoadSettings(store driven.ConfigStore, getenv func(string) string) (domain.Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	settings := domain.DefaultSettings()

	if store != nil {
		r := reader{store: store}
		r.int(keyChunkSize, &settings.Chunking.Size)
		r.int(keyChunkOverlap, &settings.Chunking.Overlap)
		r.int(keyMaxResults, &settings.Retrieval.MaxResults)
		r.float(keyResolveMaxDistance, &settings.Retrieval.ResolveMaxDistance)
		r.int(keyMaxHistory, &settings.Conversation.MaxHistory)
		r.int(keyMaxToolRounds, &settings.Conversation.MaxToolRounds)

		r.provider(keyLLMProvider, &settings.LLM.Provider)
		r.string(keyLLMModel, &settings.LLM.Model)
		r.string(keyLLMBaseURL, &settings.LLM.BaseURL)
		r.string(keyLLMAPIKey, &settings.LLM.APIKey)
		r.string(keyLLMAPIVersion, &settings.LLM.APIVersion)
		r.int(keyLLMMaxTokens, &settings.LLM.MaxTokens)
		r.float(keyLLMTemperature, &settings.LLM.Temperature)
		r.duration(keyLLMTimeout, &settings.LLM.Timeout)
		r.string(keyAuthTokenURL, &settings.LLM.Auth.TokenURL)
		r.string(keyAuthClientID, &settings.LLM.Auth.ClientID)
		r.string(keyAuthClientSecret, &settings.LLM.Auth.ClientSecret)
		r.list(keyAuthScopes, &settings.LLM.Auth.Scopes)

		r.provider(keyEmbedProvider, &settings.Embedding.Provider)
		r.string(keyEmbedModel, &settings.Embedding.Model)
		r.string(keyEmbedBaseURL, &settings.Embedding.BaseURL)
		r.string(keyEmbedAPIKey, &settings.Embedding.APIKey)
		r.int(keyEmbedDimensions, &settings.Embedding.Dimensions)
		r.float(keyEmbedRPS, &settings.Embedding.RequestsPerSecond)

		r.string(keyExpertURL, &settings.Expert.URL)
		r.string(keyExpertName, &settings.Expert.Name)
		r.string(keyExpertDescription, &settings.Expert.Description)
		r.duration(keyExpertTimeout, &settings.Expert.Timeout)

		r.string(keyDataDir, &settings.Storage.DataDir)
		r.string(keyDocumentsDir, &settings.Documents.Dir)
		if r.err != nil {
			return domain.Settings{}, r.err
		}
	}

	applyEnv(&settings, getenv)
	applyModelDefaults(&settings)

	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// applyEnv overlays environment variables onto settings.
func applyEnv(s *domain.Settings, getenv func(string) string) {
	set := func(dst *string, names ...string) {
		for _, name := range names {
			if v := strings.TrimSpace(getenv(name)); v != "" {
				*dst = v
				return
			}
		}
	}

	if endpoint := getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" && s.LLM.Provider == "" {
		s.LLM.Provider = domain.AIProviderAzure
	}
	if p := getenv("LECTERN_LLM_PROVIDER"); p != "" {
		s.LLM.Provider = domain.AIProvider(strings.ToLower(p))
	}

	switch s.LLM.Provider {
	case domain.AIProviderAzure:
		set(&s.LLM.BaseURL, "AZURE_OPENAI_ENDPOINT")
		set(&s.LLM.APIKey, "LECTERN_LLM_API_KEY", "AZURE_OPENAI_API_KEY")
		set(&s.LLM.APIVersion, "AZURE_OPENAI_API_VERSION")
		set(&s.LLM.Model, "AZURE_OPENAI_DEPLOYMENT")
		if s.LLM.APIVersion == "" {
			s.LLM.APIVersion = domain.DefaultAzureAPIVersion
		}
	case domain.AIProviderOpenAI:
		set(&s.LLM.APIKey, "LECTERN_LLM_API_KEY", "OPENAI_API_KEY")
	case domain.AIProviderAnthropic:
		set(&s.LLM.APIKey, "LECTERN_LLM_API_KEY", "ANTHROPIC_API_KEY")
	default:
		set(&s.LLM.APIKey, "LECTERN_LLM_API_KEY")
	}

	set(&s.LLM.Auth.ClientID, "LECTERN_CLIENT_ID")
	set(&s.LLM.Auth.ClientSecret, "LECTERN_CLIENT_SECRET")
	set(&s.LLM.Auth.TokenURL, "LECTERN_TOKEN_URL")

	if s.Embedding.Provider == domain.AIProviderOpenAI {
		set(&s.Embedding.APIKey, "LECTERN_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	}
	set(&s.Expert.URL, "LECTERN_EXPERT_URL")
	set(&s.Storage.DataDir, "LECTERN_DATA_DIR")
	set(&s.Documents.Dir, "LECTERN_DOCS_DIR")
}

// applyModelDefaults fills in provider default models.
func applyModelDefaults(s *domain.Settings) {
	if s.LLM.Provider != "" && s.LLM.Model == "" {
		s.LLM.Model = domain.DefaultLLMModels()[s.LLM.Provider]
	}
	if s.Embedding.Provider != "" && s.Embedding.Model == "" {
		s.Embedding.Model = domain.DefaultEmbeddingModels()[s.Embedding.Provider]
	}
}

// reader reads typed values from a config store, recording the first type error.
type reader struct {
	store driven.ConfigStore
	err   error
}

func (r *reader) fail(key string, raw any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s has unexpected value %v", domain.ErrInvalidConfig, key, raw)
	}
}

func (r *reader) string(key string, dst *string) {
	if v := r.store.GetString(key); v != "" {
		*dst = v
	}
}

func (r *reader) provider(key string, dst *domain.AIProvider) {
	if v := r.store.GetString(key); v != "" {
		*dst = domain.AIProvider(strings.ToLower(v))
	}
}

func (r *reader) int(key string, dst *int) {
	raw, ok := r.store.Get(key)
	if !ok {
		return
	}
	switch v := raw.(type) {
	case int, int64:
		*dst = r.store.GetInt(key)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(key, raw)
			return
		}
		*dst = n
	default:
		r.fail(key, raw)
	}
}

func (r *reader) float(key string, dst *float64) {
	raw, ok := r.store.Get(key)
	if !ok {
		return
	}
	switch v := raw.(type) {
	case float64, int, int64:
		*dst = r.store.GetFloat(key)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(key, raw)
			return
		}
		*dst = f
	default:
		r.fail(key, raw)
	}
}

func (r *reader) duration(key string, dst *time.Duration) {
	raw, ok := r.store.Get(key)
	if !ok {
		return
	}
	switch v := raw.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			r.fail(key, raw)
			return
		}
		*dst = d
	case int, int64:
		*dst = time.Duration(r.store.GetInt(key)) * time.Second
	default:
		r.fail(key, raw)
	}
}

func (r *reader) list(key string, dst *[]string) {
	if v := r.store.GetStringSlice(key); len(v) > 0 {
		*dst = v
		return
	}
	if v := r.store.GetString(key); v != "" {
		*dst = splitList(v)
	}
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return nil, err
		}
		return value, nil
	case kindList:
		return splitList(value), nil
	default:
		return value, nil
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func maskSecret(v string) string {
	if len(v) <= 8 {
		return "********"
	}
	return v[:4] + "..." + v[len(v)-4:]
}

// overlayStore shows one pending value over a config store without writing it.
type overlayStore struct {
	driven.ConfigStore
	key   string
	value any
}

func (o overlayStore) Get(key string) (any, bool) {
	if key == o.key {
		return o.value, true
	}
	return o.ConfigStore.Get(key)
}

func (o overlayStore) GetString(key string) string {
	if key == o.key {
		s, _ := o.value.(string)
		return s
	}
	return o.ConfigStore.GetString(key)
}

func (o overlayStore) GetInt(key string) int {
	if key == o.key {
		n, _ := o.value.(int)
		return n
	}
	return o.ConfigStore.GetInt(key)
}

func (o overlayStore) GetFloat(key string) float64 {
	if key == o.key {
		switch v := o.value.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
		return 0
	}
	return o.ConfigStore.GetFloat(key)
}

func (o overlayStore) GetStringSlice(key string) []string {
	if key == o.key {
		s, _ := o.value.([]string)
		return s
	}
	return o.ConfigStore.GetStringSlice(key)
}
