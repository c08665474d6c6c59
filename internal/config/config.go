package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Backend providers accepted by the embedding and generation sections.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Vector store implementations.
const (
	VectorStorePGVector = "pgvector"
	VectorStoreMemory   = "memory"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `yaml:"app"`
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Logging     LoggingConfig     `yaml:"logging"`
	Worker      WorkerConfig      `yaml:"worker"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Generation  GenerationConfig  `yaml:"generation"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Google      GoogleConfig      `yaml:"google"`
	Telegram    TelegramConfig    `yaml:"telegram"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	DeadLetter DeadLetterConfig `yaml:"dead_letter"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// DeadLetterConfig names where permanently failed jobs are parked.
type DeadLetterConfig struct {
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int    `yaml:"prefetch_count"`
	Tag           string `yaml:"tag"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableSource bool   `yaml:"enable_source"`
	TimeFormat   string `yaml:"time_format"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
	// JobTimeout bounds one job execution; zero disables the bound.
	JobTimeout      time.Duration `yaml:"job_timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PipelineConfig holds ingestion and retrieval parameters
type PipelineConfig struct {
	UploadDir    string `yaml:"upload_dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	SearchTopK   int    `yaml:"search_top_k"`
}

// EmbeddingConfig selects the embedding backend
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GenerationConfig selects the generation backend
type GenerationConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	AnswerTemperature float32       `yaml:"answer_temperature"`
	ScoreTemperature  float32       `yaml:"score_temperature"`
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Timeout           time.Duration `yaml:"timeout"`
}

// VectorStoreConfig selects the vector store implementation
type VectorStoreConfig struct {
	Type string `yaml:"type"`
}

// GoogleConfig holds the Calendar and Gmail collaborator settings
type GoogleConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
	Timezone        string `yaml:"timezone"`
	CalendarID      string `yaml:"calendar_id"`
}

// TelegramConfig holds the failure reporter settings
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// Load reads and parses the configuration file, fills defaults and applies
// environment overrides for secrets.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Pipeline.ChunkSize == 0 {
		c.Pipeline.ChunkSize = 1000
	}
	if c.Pipeline.ChunkOverlap == 0 {
		c.Pipeline.ChunkOverlap = 200
	}
	if c.Pipeline.SearchTopK == 0 {
		c.Pipeline.SearchTopK = 4
	}
	if c.Pipeline.UploadDir == "" {
		c.Pipeline.UploadDir = "uploads"
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = 384
	}
	if c.Generation.AnswerTemperature == 0 {
		c.Generation.AnswerTemperature = 0.1
	}
	if c.VectorStore.Type == "" {
		c.VectorStore.Type = VectorStorePGVector
	}
	if c.Worker.MaxAttempts == 0 {
		c.Worker.MaxAttempts = 3
	}
	if c.Google.Timezone == "" {
		c.Google.Timezone = "UTC"
	}
	if c.Google.CalendarID == "" {
		c.Google.CalendarID = "primary"
	}
	if c.RabbitMQ.Exchange.Type == "" {
		c.RabbitMQ.Exchange.Type = "direct"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 32 << 20
	}
}

// applyEnv lets secrets live outside the YAML file.
func (c *Config) applyEnv() error {
	overrides := []struct {
		env    string
		target *string
	}{
		{"DATABASE_PASSWORD", &c.Database.Password},
		{"RABBITMQ_PASSWORD", &c.RabbitMQ.Password},
		{"EMBEDDING_API_KEY", &c.Embedding.APIKey},
		{"GENERATION_API_KEY", &c.Generation.APIKey},
		{"GOOGLE_CREDENTIALS_FILE", &c.Google.CredentialsFile},
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.Token},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}

	if v, ok := os.LookupEnv("TELEGRAM_CHAT_ID"); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

// Validate checks the sections shared by every service
func (c *Config) Validate() error {
	if c.Server.Port != 0 && (c.Server.Port < MinPort || c.Server.Port > MaxPort) {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return errors.New("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return errors.New("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return errors.New("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return errors.New("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return errors.New("rabbitmq queue name is required")
	}

	if (c.RabbitMQ.DeadLetter.Exchange == "") != (c.RabbitMQ.DeadLetter.Queue == "") {
		return errors.New("rabbitmq dead_letter exchange and queue must be set together")
	}

	return c.ValidateLocal()
}

// ValidateLocal checks only what an in-process pipeline needs: chunking,
// retrieval and the AI backends. ragctl uses it when no broker or database
// is involved.
func (c *Config) ValidateLocal() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}

	if err := validateProvider("embedding", c.Embedding.Provider, c.Embedding.Model, c.Embedding.BaseURL); err != nil {
		return err
	}

	if c.Embedding.Dimension <= 0 {
		return errors.New("embedding dimension must be greater than 0")
	}

	if err := validateProvider("generation", c.Generation.Provider, c.Generation.Model, c.Generation.BaseURL); err != nil {
		return err
	}

	switch c.VectorStore.Type {
	case VectorStorePGVector, VectorStoreMemory:
	default:
		return fmt.Errorf("unsupported vector_store type: %q", c.VectorStore.Type)
	}

	return nil
}

func (c *Config) validatePipeline() error {
	p := c.Pipeline
	if p.ChunkSize <= 0 {
		return errors.New("pipeline chunk_size must be greater than 0")
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("pipeline chunk_overlap must be in [0, %d)", p.ChunkSize)
	}
	if p.SearchTopK <= 0 {
		return errors.New("pipeline search_top_k must be greater than 0")
	}
	return nil
}

func validateProvider(section, provider, model, baseURL string) error {
	switch provider {
	case ProviderGemini:
	case ProviderOpenAI:
		if baseURL == "" {
			return fmt.Errorf("%s base_url is required for provider %q", section, provider)
		}
	default:
		return fmt.Errorf("unsupported %s provider: %q", section, provider)
	}
	if model == "" {
		return fmt.Errorf("%s model is required", section)
	}
	return nil
}

// ValidateAPIConfig checks what the API service needs on top of Validate
func (c *Config) ValidateAPIConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Pipeline.UploadDir == "" {
		return errors.New("pipeline upload_dir is required")
	}

	return c.requireSharedVectorStore()
}

// ValidateWorkerConfig checks what the worker service needs on top of Validate
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := c.requireSharedVectorStore(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be greater than 0")
	}

	if c.Worker.MaxAttempts <= 0 {
		return errors.New("worker max_attempts must be greater than 0")
	}

	if c.Worker.JobTimeout < 0 {
		return errors.New("worker job_timeout must not be negative")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return errors.New("worker shutdown_timeout must be greater than 0")
	}

	if c.Google.Enabled && c.Google.CredentialsFile == "" {
		return errors.New("google credentials_file is required when google is enabled")
	}

	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return errors.New("telegram token and chat_id are required when telegram is enabled")
	}

	return nil
}

// requireSharedVectorStore rejects the in-process store for the services:
// the worker writes vectors the API must be able to read.
func (c *Config) requireSharedVectorStore() error {
	if c.VectorStore.Type == VectorStoreMemory {
		return fmt.Errorf("vector_store type %q is only available to ragctl", VectorStoreMemory)
	}
	return nil
}
