package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Security     SecurityConfig
	Redis        RedisConfig
	AI           AIConfig
	Integrations IntegrationsConfig
	Log          LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	security, err := loadSecurityConfig()
	if err != nil {
		return nil, err
	}

	redis, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:       server,
		Database:     DatabaseConfig{Path: getEnvOrDefault("DATABASE_PATH", "./backoffice.db")},
		Security:     security,
		Redis:        redis,
		AI:           ai,
		Integrations: loadIntegrationsConfig(),
		Log:          logCfg,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := splitList(getEnvOrDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, CORSOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, CORSOrigins: origins}, nil
}

// DatabaseConfig points at the sqlite file.
type DatabaseConfig struct {
	Path string
}

// SecurityConfig carries token signing, vault and bootstrap secrets.
type SecurityConfig struct {
	SecretKey        string
	EncryptionSecret string
	TokenTTL         time.Duration
	Issuer           string
	AdminPassword    string
}

func loadSecurityConfig() (SecurityConfig, error) {
	ttlMinutes := 60 * 12
	if override, err := parseOptionalIntEnv("ACCESS_TOKEN_EXPIRE_MINUTES"); err != nil {
		return SecurityConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return SecurityConfig{}, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES value %d", *override)
		}
		ttlMinutes = *override
	}

	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" || secret == "change-this-secret" {
		// 本地开发保留可用的默认值。
		secret = "development-secret-key"
	}

	return SecurityConfig{
		SecretKey:        secret,
		EncryptionSecret: getEnvOrDefault("ENCRYPTION_SECRET", "twocards-encryption-key-please-change"),
		TokenTTL:         time.Duration(ttlMinutes) * time.Minute,
		Issuer:           getEnvOrDefault("JWT_ISSUER", "twocards-backoffice"),
		AdminPassword:    getEnvOrDefault("ADMIN_PASSWORD", "Admin@123"),
	}, nil
}

// RedisConfig 描述登录限流所用的 Redis。Addr 为空时禁用限流。
type RedisConfig struct {
	Addr             string
	Password         string
	DB               int
	MaxLoginAttempts int
	LoginCooldown    time.Duration
}

// Enabled 表示是否配置了 Redis。
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func loadRedisConfig() (RedisConfig, error) {
	db := 0
	if override, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return RedisConfig{}, err
	} else if override != nil {
		db = *override
	}

	attempts := 5
	if override, err := parseOptionalIntEnv("LOGIN_MAX_ATTEMPTS"); err != nil {
		return RedisConfig{}, err
	} else if override != nil {
		if *override < 1 {
			attempts = 1
		} else {
			attempts = *override
		}
	}

	cooldown, err := parseDurationEnv("LOGIN_COOLDOWN", 15*time.Minute)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Addr:             strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		Password:         os.Getenv("REDIS_PASSWORD"),
		DB:               db,
		MaxLoginAttempts: attempts,
		LoginCooldown:    cooldown,
	}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider    string
	OpenAIKey   string
	OpenAIURL   string
	OpenAIModel string
	ImageModel  string

	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
}

// ArkEnabled 表示是否提供了 Ark 必需的密钥。
func (c AIConfig) ArkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", "openai"))
	if provider != "openai" && provider != "ark" {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: expected openai or ark", provider)
	}

	return AIConfig{
		Provider:    provider,
		OpenAIKey:   strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIURL:   strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		OpenAIModel: getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		ImageModel:  getEnvOrDefault("OPENAI_IMAGE_MODEL", "dall-e-3"),
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

// IntegrationsConfig 保存第三方集成的环境变量回退值。
// 设置页面中保存的加密值优先于这里的值。
type IntegrationsConfig struct {
	ZidBaseURL      string
	ZidToken        string
	WhatsAppBaseURL string
	WhatsAppToken   string
	WhatsAppPhoneID string
	EmailTokens     string
}

// Env 以设置键名返回环境变量回退值。
func (c *Config) Env() map[string]string {
	return map[string]string{
		"ZID_TOKEN":      c.Integrations.ZidToken,
		"OPENAI_API_KEY": c.AI.OpenAIKey,
		"ARK_API_KEY":    c.AI.APIKey,
		"WA_TOKEN":       c.Integrations.WhatsAppToken,
		"WA_PHONE_ID":    c.Integrations.WhatsAppPhoneID,
		"EMAIL_TOKENS":   c.Integrations.EmailTokens,
	}
}

func loadIntegrationsConfig() IntegrationsConfig {
	return IntegrationsConfig{
		ZidBaseURL:      getEnvOrDefault("ZID_BASE_URL", "https://api.zid.store/v1"),
		ZidToken:        strings.TrimSpace(os.Getenv("ZID_TOKEN")),
		WhatsAppBaseURL: getEnvOrDefault("WA_BASE_URL", "https://graph.facebook.com/v19.0"),
		WhatsAppToken:   strings.TrimSpace(os.Getenv("WA_TOKEN")),
		WhatsAppPhoneID: strings.TrimSpace(os.Getenv("WA_PHONE_ID")),
		EmailTokens:     strings.TrimSpace(os.Getenv("EMAIL_TOKENS")),
	}
}

// LogConfig 控制日志级别与 JSON 日志文件。
type LogConfig struct {
	Level slog.Level
	File  string
}

func loadLogConfig() (LogConfig, error) {
	var level slog.Level
	raw := getEnvOrDefault("LOG_LEVEL", "info")
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q: %w", raw, err)
	}
	return LogConfig{Level: level, File: strings.TrimSpace(os.Getenv("LOG_FILE"))}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
