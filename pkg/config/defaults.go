package config

const (
	defaultEmbeddingEndpoint = "https://api.edenai.run/v2/image/embeddings"
	defaultEmbeddingProvider = "google"
	defaultAPIKeyEnv         = "EDENAI_API_KEY"
	defaultEmbeddingTimeout  = 120

	defaultRowWidth = 32

	defaultAPIListen = ":8081"

	defaultThumbMaxWidth = 256
	defaultThumbWorkers  = 4
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Embedding: EmbeddingConfig{
			Endpoint:       defaultEmbeddingEndpoint,
			Providers:      []string{defaultEmbeddingProvider},
			APIKeyEnv:      defaultAPIKeyEnv,
			TimeoutSeconds: defaultEmbeddingTimeout,
		},
		Projector: ProjectorConfig{
			RowWidth: defaultRowWidth,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Thumbs: ThumbsConfig{
			MaxWidth: defaultThumbMaxWidth,
			Workers:  defaultThumbWorkers,
		},
	}
}
