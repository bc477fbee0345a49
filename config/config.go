package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Configuration struct {
	ApiPort  string `json:"api_port"`
	LogLevel string `json:"log_level"`
	DevMode  bool   `json:"dev_mode"`

	Database string `json:"database"` // "sqlite3" or "postgres"
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`
	DbSSL    string `json:"db_sslmode"`
	DbPath   string `json:"db_path"`

	Security struct {
		JwtSecret        string `json:"jwt_secret"`
		AccessTTLMinutes int    `json:"access_ttl_minutes"`
		RefreshTTLDays   int    `json:"refresh_ttl_days"`
		RefreshTokenLen  int    `json:"refresh_token_len"`
	} `json:"security"`

	// PublicURL is used to build links inside emails (unsubscribe, shared tests).
	PublicURL string `json:"public_url"`

	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`

	NatsURL string `json:"nats_url"`

	AI struct {
		Providers        []string `json:"providers"` // fallback order
		OpenAIKey        string   `json:"openai_api_key"`
		OpenAIModel      string   `json:"openai_model"`
		AnthropicKey     string   `json:"anthropic_api_key"`
		AnthropicModel   string   `json:"anthropic_model"`
		GeminiKey        string   `json:"gemini_api_key"`
		GeminiModel      string   `json:"gemini_model"`
		TimeoutSeconds   int      `json:"timeout_seconds"`
		FreeDailyChats   int      `json:"free_daily_chats"`
		SystemPromptChat string   `json:"system_prompt_chat"`
	} `json:"ai"`

	Email struct {
		ResendKey     string `json:"resend_api_key"`
		WebhookSecret string `json:"webhook_secret"`
		From          string `json:"from"`
	} `json:"email"`

	Storage struct {
		S3Bucket   string `json:"s3_bucket"`
		S3Region   string `json:"s3_region"`
		S3Endpoint string `json:"s3_endpoint"`
		LocalDir   string `json:"local_dir"`
	} `json:"storage"`

	Workers struct {
		Enabled              bool `json:"enabled"`
		TickSeconds          int  `json:"tick_seconds"`
		VerificationBatch    int  `json:"verification_batch"`
		VerificationAttempts int  `json:"verification_attempts"`
		ReminderHourUTC      int  `json:"reminder_hour_utc"`
		BOESyncHourUTC       int  `json:"boe_sync_hour_utc"`
	} `json:"workers"`

	Plans struct {
		FreeMonthlyTests int `json:"free_monthly_tests"`
	} `json:"plans"`
}

// Get reads the configuration file and aborts the process when it cannot be parsed.
// A missing file is accepted: defaults and environment variables are used instead.
func Get(path string) Configuration {
	c, err := Load(path)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

// Load reads an optional .env file, then the JSON file at path, then applies
// environment overrides and defaults.
func Load(path string) (Configuration, error) {
	_ = godotenv.Load()

	var c Configuration
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&c)
	applyDefaults(&c)
	return c, nil
}

func applyEnv(c *Configuration) {
	setString(&c.ApiPort, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Database, "DB_TYPE")
	setString(&c.DbHost, "DB_HOST")
	setString(&c.DbPort, "DB_PORT")
	setString(&c.DbUser, "DB_USER")
	setString(&c.DbName, "DB_NAME")
	setString(&c.DbPass, "DB_PASS")
	setString(&c.DbSSL, "DB_SSLMODE")
	setString(&c.DbPath, "DB_PATH")
	setString(&c.Security.JwtSecret, "JWT_SECRET")
	setString(&c.PublicURL, "PUBLIC_URL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.NatsURL, "NATS_URL")
	setString(&c.AI.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.AI.OpenAIModel, "OPENAI_MODEL")
	setString(&c.AI.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&c.AI.AnthropicModel, "ANTHROPIC_MODEL")
	setString(&c.AI.GeminiKey, "GEMINI_API_KEY")
	setString(&c.AI.GeminiModel, "GEMINI_MODEL")
	setString(&c.Email.ResendKey, "RESEND_API_KEY")
	setString(&c.Email.WebhookSecret, "RESEND_WEBHOOK_SECRET")
	setString(&c.Email.From, "EMAIL_FROM")
	setString(&c.Storage.S3Bucket, "S3_BUCKET")
	setString(&c.Storage.S3Region, "S3_REGION")
	setString(&c.Storage.S3Endpoint, "S3_ENDPOINT")

	if v := strings.TrimSpace(os.Getenv("AI_PROVIDERS")); v != "" {
		c.AI.Providers = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("DEV_MODE")); v != "" {
		c.DevMode = strings.EqualFold(v, "true") || v == "1"
	}
	if v := strings.TrimSpace(os.Getenv("WORKERS_ENABLED")); v != "" {
		c.Workers.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("REDIS_DB"))); err == nil {
		c.Redis.DB = n
	}
}

func applyDefaults(c *Configuration) {
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.DbPath == "" {
		c.DbPath = "db/database.db"
	}
	if c.DbSSL == "" {
		c.DbSSL = "disable"
	}
	if c.Security.JwtSecret == "" {
		c.Security.JwtSecret = "CHANGE_ME"
	}
	if c.Security.AccessTTLMinutes <= 0 {
		c.Security.AccessTTLMinutes = 24 * 60
	}
	if c.Security.RefreshTTLDays <= 0 {
		c.Security.RefreshTTLDays = 30
	}
	if c.Security.RefreshTokenLen <= 0 {
		c.Security.RefreshTokenLen = 48
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost:" + c.ApiPort
	}
	if len(c.AI.Providers) == 0 {
		c.AI.Providers = []string{"openai", "anthropic", "gemini"}
	}
	if c.AI.OpenAIModel == "" {
		c.AI.OpenAIModel = "gpt-4.1-mini"
	}
	if c.AI.AnthropicModel == "" {
		c.AI.AnthropicModel = "claude-3-5-haiku-latest"
	}
	if c.AI.GeminiModel == "" {
		c.AI.GeminiModel = "gemini-2.0-flash"
	}
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = 60
	}
	if c.AI.FreeDailyChats <= 0 {
		c.AI.FreeDailyChats = 10
	}
	if c.AI.SystemPromptChat == "" {
		c.AI.SystemPromptChat = "Eres un preparador de oposiciones. Responde en español, de forma breve y citando el artículo cuando sea posible."
	}
	if c.Email.From == "" {
		c.Email.From = "Oposiciones <no-reply@localhost>"
	}
	if c.Storage.S3Region == "" {
		c.Storage.S3Region = "eu-west-1"
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = "data/snapshots"
	}
	if c.Workers.TickSeconds <= 0 {
		c.Workers.TickSeconds = 5
	}
	if c.Workers.VerificationBatch <= 0 {
		c.Workers.VerificationBatch = 20
	}
	if c.Workers.VerificationAttempts <= 0 {
		c.Workers.VerificationAttempts = 3
	}
	if c.Workers.ReminderHourUTC <= 0 || c.Workers.ReminderHourUTC > 23 {
		c.Workers.ReminderHourUTC = 8
	}
	if c.Workers.BOESyncHourUTC <= 0 || c.Workers.BOESyncHourUTC > 23 {
		c.Workers.BOESyncHourUTC = 3
	}
	if c.Plans.FreeMonthlyTests <= 0 {
		c.Plans.FreeMonthlyTests = 5
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
