package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort          string  `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL       string  `env:"DATABASE_URL,required"`
	LLMAPIKey         string  `env:"LLM_API_KEY"`
	LLMBaseURL        string  `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string  `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMEmbeddingModel string  `env:"LLM_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	SMTPHost          string  `env:"SMTP_HOST"`
	SMTPPort          int     `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser          string  `env:"SMTP_USER"`
	SMTPPass          string  `env:"SMTP_PASS"`
	SMTPFrom          string  `env:"SMTP_FROM"`
	SMTPFromName      string  `env:"SMTP_FROM_NAME" envDefault:"Interview Hub"`
	SMTPUseTLS        bool    `env:"SMTP_USE_TLS" envDefault:"false"`
	RedisAddr         string  `env:"REDIS_ADDR"`
	RedisPassword     string  `env:"REDIS_PASSWORD"`
	RedisDB           int     `env:"REDIS_DB" envDefault:"0"`
	UploadDir         string  `env:"UPLOAD_DIR" envDefault:"uploads"`
	UploadMaxBytes    int64   `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	ContactInbox      string  `env:"CONTACT_INBOX"`
	ChatEmailNotify   bool    `env:"CHAT_EMAIL_NOTIFY" envDefault:"true"`
	WSMessagesPerSec  float64 `env:"WS_MESSAGES_PER_SECOND" envDefault:"5"`
	WSBurst           int     `env:"WS_BURST" envDefault:"10"`
	PublicBaseURL     string  `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
