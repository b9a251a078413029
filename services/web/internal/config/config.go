package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location. WEB_CONFIG overrides it.
var ConfigPath = "config.yaml"

const (
	UploadBackendAPI   = "api"
	UploadBackendMinio = "minio"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                       string   `yaml:"port"`
	LogLevel                   string   `yaml:"logLevel"`
	APIBaseURL                 string   `yaml:"apiBaseURL"`
	RequestTimeoutSeconds      int      `yaml:"requestTimeoutSeconds"`
	SessionFetchTimeoutSeconds int      `yaml:"sessionFetchTimeoutSeconds"`
	VisitorSecret              string   `yaml:"visitorSecret"`
	VisitorTTL                 string   `yaml:"visitorTTL"`
	CookieSecure               bool     `yaml:"cookieSecure"`
	CSRFAuthKey                string   `yaml:"csrfAuthKey"`
	RedisAddr                  string   `yaml:"redisAddr"`
	RedisPassword              string   `yaml:"redisPassword"`
	LoginRateLimitPerMinute    int      `yaml:"loginRateLimitPerMinute"`
	RegisterGateID             string   `yaml:"registerGateID"`
	RegisterGatePasswordHash   string   `yaml:"registerGatePasswordHash"`
	UploadBackend              string   `yaml:"uploadBackend"`
	MaxUploadBytes             int64    `yaml:"maxUploadBytes"`
	AllowedImageExtensions     []string `yaml:"allowedImageExtensions"`
	MinioEndpoint              string   `yaml:"minioEndpoint"`
	MinioAccessKey             string   `yaml:"minioAccessKey"`
	MinioSecretKey             string   `yaml:"minioSecretKey"`
	MinioBucket                string   `yaml:"minioBucket"`
	MinioUseSSL                bool     `yaml:"minioUseSSL"`
	MinioPublicBaseURL         string   `yaml:"minioPublicBaseURL"`
	TrustedProxyCIDRs          []string `yaml:"trustedProxyCidrs"`
	TimeZone                   string   `yaml:"timeZone"`
}

// Load reads config from path (defaults to ConfigPath), applies env overrides
// and validates the result.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
		if v := os.Getenv("WEB_CONFIG"); v != "" {
			path = v
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	if cfg.UploadBackend == "" {
		cfg.UploadBackend = UploadBackendAPI
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("WEB_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("WEB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("WEB_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("WEB_REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.RequestTimeoutSeconds = n
		}
	}
	if v := os.Getenv("WEB_SESSION_FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.SessionFetchTimeoutSeconds = n
		}
	}
	if v := os.Getenv("WEB_VISITOR_SECRET"); v != "" {
		cfg.VisitorSecret = v
	}
	if v := os.Getenv("WEB_VISITOR_TTL"); v != "" {
		cfg.VisitorTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("WEB_COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.CookieSecure = b
		}
	}
	if v := os.Getenv("WEB_CSRF_AUTH_KEY"); v != "" {
		cfg.CSRFAuthKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("WEB_LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("WEB_REGISTER_GATE_ID"); v != "" {
		cfg.RegisterGateID = v
	}
	if v := os.Getenv("WEB_REGISTER_GATE_PASSWORD_HASH"); v != "" {
		cfg.RegisterGatePasswordHash = v
	}
	if v := os.Getenv("WEB_UPLOAD_BACKEND"); v != "" {
		cfg.UploadBackend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("WEB_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("WEB_ALLOWED_IMAGE_EXTENSIONS"); v != "" {
		cfg.AllowedImageExtensions = splitCSV(v)
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("MINIO_PUBLIC_BASE_URL"); v != "" {
		cfg.MinioPublicBaseURL = v
	}
	if v := os.Getenv("WEB_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("WEB_TIME_ZONE"); v != "" {
		cfg.TimeZone = strings.TrimSpace(v)
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return errors.New("config: apiBaseURL is required (set in config.yaml or WEB_API_BASE_URL)")
	}
	if u, err := url.Parse(cfg.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: apiBaseURL must be an absolute URL, got %q", cfg.APIBaseURL)
	}
	if len(cfg.VisitorSecret) < 32 {
		return errors.New("config: visitorSecret must be at least 32 bytes (set in config.yaml or WEB_VISITOR_SECRET)")
	}
	if _, err := ParseVisitorTTL(cfg.VisitorTTL); err != nil {
		return err
	}
	if _, err := ParseCSRFKey(cfg.CSRFAuthKey); err != nil {
		return err
	}
	if cfg.RequestTimeoutSeconds < 0 || cfg.SessionFetchTimeoutSeconds < 0 {
		return errors.New("config: timeouts must be >= 0")
	}
	if cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must be >= 0")
	}
	if (cfg.RegisterGateID == "") != (cfg.RegisterGatePasswordHash == "") {
		return errors.New("config: registerGateID and registerGatePasswordHash must be set together")
	}
	switch cfg.UploadBackend {
	case UploadBackendAPI:
	case UploadBackendMinio:
		if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint and minioBucket are required when uploadBackend is minio")
		}
	default:
		return fmt.Errorf("config: unknown uploadBackend %q (api or minio)", cfg.UploadBackend)
	}
	if _, err := ParseLocation(cfg.TimeZone); err != nil {
		return err
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseVisitorTTL parses the visitor cookie lifetime. Empty means 7 days.
func ParseVisitorTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 7 * 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid visitorTTL duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("config: visitorTTL must be positive")
	}
	return dur, nil
}

// ParseCSRFKey decodes the 32-byte hex CSRF key. Empty disables CSRF protection.
func ParseCSRFKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid csrfAuthKey: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("config: csrfAuthKey must decode to 32 bytes")
	}
	return key, nil
}

// ParseLocation resolves the zone used for report dates. Empty means local time.
func ParseLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timeZone: %w", err)
	}
	return loc, nil
}

// Seconds converts a seconds setting to a duration, using def when unset.
func Seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
