package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	LLM       LLMConfig
	TTS       TTSConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Debug     bool
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string // empty uses the embedded migrations
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	JobTTL   time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LLMConfig configures the text-transform providers. A provider takes part
// in the chain only when its credentials (or URL, for Ollama) are set.
type LLMConfig struct {
	GeminiKey      string
	GeminiModel    string
	OpenAIKey      string
	OpenAIModel    string
	OpenAIBaseURL  string
	GroqKey        string
	GroqModel      string
	GroqBaseURL    string
	AnthropicKey   string
	AnthropicModel string
	OllamaURL      string
	OllamaModel    string

	Order       []string // provider names, highest priority first
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
}

// TTSConfig configures the voice-synthesis providers.
type TTSConfig struct {
	ElevenLabsKey     string
	ElevenLabsBaseURL string
	VoiceID           string
	MonolingualModel  string
	MultilingualModel string
	Stability         float64
	SimilarityBoost   float64
	Style             float64
	SpeakerBoost      bool
	OutputFormat      string
	OpenAIKey         string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIVoice       string

	Order         []string
	Timeout       time.Duration
	DefaultFormat string // reported for empty audio
}

type PipelineConfig struct {
	MaxTranscriptChars int
}

func Load() (*Config, error) {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jobTTL, err := getEnvDuration("JOB_RESULT_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_RESULT_TTL: %w", err)
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	topP, err := getEnvFloat("LLM_TOP_P", 0.8)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TOP_P: %w", err)
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
	}

	llmTimeout, err := getEnvDuration("LLM_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}

	stability, err := getEnvFloat("ELEVENLABS_STABILITY", 0.5)
	if err != nil {
		return nil, fmt.Errorf("invalid ELEVENLABS_STABILITY: %w", err)
	}

	similarity, err := getEnvFloat("ELEVENLABS_SIMILARITY_BOOST", 0.75)
	if err != nil {
		return nil, fmt.Errorf("invalid ELEVENLABS_SIMILARITY_BOOST: %w", err)
	}

	style, err := getEnvFloat("ELEVENLABS_STYLE", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid ELEVENLABS_STYLE: %w", err)
	}

	ttsTimeout, err := getEnvDuration("TTS_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_TIMEOUT: %w", err)
	}

	maxChars, err := getEnvInt("PIPELINE_MAX_TRANSCRIPT_CHARS", 50000)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_MAX_TRANSCRIPT_CHARS: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("HOST", "0.0.0.0"),
			Port:        port,
			CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173", "http://127.0.0.1:3000"}),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			JobTTL:   jobTTL,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			GeminiKey:      apiKey("GEMINI_API_KEY"),
			GeminiModel:    getEnv("MODEL_NAME", "gemini-2.0-flash"),
			OpenAIKey:      openAIKey,
			OpenAIModel:    getEnv("OPENAI_MODEL_NAME", "gpt-3.5-turbo"),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
			GroqKey:        apiKey("GROQ_API_KEY"),
			GroqModel:      getEnv("GROQ_MODEL_NAME", "llama-3.1-8b-instant"),
			GroqBaseURL:    getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			AnthropicKey:   apiKey("ANTHROPIC_API_KEY"),
			AnthropicModel: getEnv("ANTHROPIC_MODEL_NAME", "claude-3-haiku-20240307"),
			OllamaURL:      getEnv("OLLAMA_URL", ""),
			OllamaModel:    getEnv("OLLAMA_MODEL_NAME", "llama3"),
			Order:          getEnvList("TEXT_PROVIDER_ORDER", []string{"gemini", "openai", "groq", "anthropic", "ollama"}),
			Temperature:    temperature,
			TopP:           topP,
			MaxTokens:      maxTokens,
			Timeout:        llmTimeout,
		},
		TTS: TTSConfig{
			ElevenLabsKey:     apiKey("ELEVENLABS_API_KEY"),
			ElevenLabsBaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
			VoiceID:           getEnv("VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
			MonolingualModel:  getEnv("ELEVENLABS_MONOLINGUAL_MODEL", "eleven_monolingual_v1"),
			MultilingualModel: getEnv("ELEVENLABS_MULTILINGUAL_MODEL", "eleven_multilingual_v2"),
			Stability:         stability,
			SimilarityBoost:   similarity,
			Style:             style,
			SpeakerBoost:      getEnvBool("ELEVENLABS_SPEAKER_BOOST", true),
			OutputFormat:      getEnv("ELEVENLABS_OUTPUT_FORMAT", "mp3_44100_128"),
			OpenAIKey:         getEnv("TTS_OPENAI_API_KEY", openAIKey),
			OpenAIBaseURL:     getEnv("TTS_OPENAI_BASE_URL", ""),
			OpenAIModel:       getEnv("TTS_OPENAI_MODEL", "tts-1"),
			OpenAIVoice:       getEnv("TTS_OPENAI_VOICE", "alloy"),
			Order:             getEnvList("VOICE_PROVIDER_ORDER", []string{"elevenlabs", "openai-tts"}),
			Timeout:           ttsTimeout,
			DefaultFormat:     getEnv("AUDIO_FORMAT", "mp3"),
		},
		Pipeline: PipelineConfig{
			MaxTranscriptChars: maxChars,
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		Debug: getEnvBool("DEBUG", false),
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports keys that leave a capability with no provider at all.
func (c *Config) Validate() error {
	var missing []string
	if c.LLM.GeminiKey == "" && c.LLM.OpenAIKey == "" && c.LLM.GroqKey == "" &&
		c.LLM.AnthropicKey == "" && c.LLM.OllamaURL == "" {
		missing = append(missing, "GEMINI_API_KEY (or OPENAI_API_KEY, GROQ_API_KEY, ANTHROPIC_API_KEY, OLLAMA_URL)")
	}
	if c.TTS.ElevenLabsKey == "" && c.TTS.OpenAIKey == "" {
		missing = append(missing, "ELEVENLABS_API_KEY (or TTS_OPENAI_API_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

// apiKey ignores the placeholder values shipped in .env.example.
func apiKey(key string) string {
	v := getEnv(key, "")
	if strings.HasPrefix(v, "your_") && strings.HasSuffix(v, "_here") {
		return ""
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
