// Package config 应用配置：默认值 -> YAML 文件 -> 环境变量
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gonglijing/alertfi/internal/logger"
)

var log = logger.Named("config")

// ConfigPathEnv 显式指定配置文件的环境变量
const ConfigPathEnv = "ALERTFI_CONFIG"

// Config 应用配置
type Config struct {
	// 服务器配置
	ListenAddr string `json:"listen_addr"`
	// TLS/证书配置
	TLSCertFile string `json:"tls_cert_file"`
	TLSKeyFile  string `json:"tls_key_file"`
	TLSAuto     bool   `json:"tls_auto"`      // 是否启用自动申请（Let's Encrypt）
	TLSDomain   string `json:"tls_domain"`    // 自动证书域名
	TLSCacheDir string `json:"tls_cache_dir"` // 自动证书缓存目录

	// HTTP超时配置
	HTTPReadTimeout  time.Duration `json:"http_read_timeout"`
	HTTPWriteTimeout time.Duration `json:"http_write_timeout"`
	HTTPIdleTimeout  time.Duration `json:"http_idle_timeout"`

	// CORS配置
	AllowedOrigins string `json:"allowed_origins"`

	// 上报接口限流（每 IP 每分钟），0 表示不限流
	IngestRateLimit int `json:"ingest_rate_limit"`

	// 登录防爆破：连续失败次数与封禁时长
	LoginMaxFailures   int           `json:"login_max_failures"`
	LoginBlockDuration time.Duration `json:"login_block_duration"`

	// 数据库配置
	DBPath         string `json:"db_path"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`

	// 认证配置
	JWTSecret     string        `json:"-"`
	TokenTTL      time.Duration `json:"token_ttl"`
	AdminEmail    string        `json:"admin_email"`
	AdminPassword string        `json:"-"`

	// 日志配置
	LogLevel        string `json:"log_level"`
	LogJSON         bool   `json:"log_json"`
	LogFile         string `json:"log_file"`
	LogMaxSizeBytes int    `json:"log_max_size_bytes"`
	LogMaxBackups   int    `json:"log_max_backups"`

	// 监控配置
	OfflineThreshold  time.Duration `json:"offline_threshold"`
	RefreshInterval   time.Duration `json:"refresh_interval"`
	RetentionDays     int           `json:"retention_days"` // 0 表示不清理
	RetentionInterval time.Duration `json:"retention_interval"`

	// 导出配置
	ExportEscapeQuotes bool   `json:"export_escape_quotes"`
	ExportTimeLayout   string `json:"export_time_layout"`

	// MQTT 上报配置，Broker 为空时不启用
	MQTTBroker   string `json:"mqtt_broker"`
	MQTTTopic    string `json:"mqtt_topic"`
	MQTTClientID string `json:"mqtt_client_id"`
	MQTTUsername string `json:"mqtt_username"`
	MQTTPassword string `json:"-"`
	MQTTQoS      int    `json:"mqtt_qos"`

	// 告警通知配置
	EmailAPIURL     string `json:"email_api_url"`
	EmailAPIKey     string `json:"-"`
	EmailSender     string `json:"email_sender"`
	EmailSenderName string `json:"email_sender_name"`
	KafkaBrokers    string `json:"kafka_brokers"`
	KafkaTopic      string `json:"kafka_topic"`

	// 远程 AlertFi 服务
	RemoteBaseURL string        `json:"remote_base_url"`
	RemoteTimeout time.Duration `json:"remote_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:         ":8080",
		TLSCacheDir:        "cert-cache",
		HTTPReadTimeout:    30 * time.Second,
		HTTPWriteTimeout:   30 * time.Second,
		HTTPIdleTimeout:    60 * time.Second,
		IngestRateLimit:    120,
		LoginMaxFailures:   5,
		LoginBlockDuration: 15 * time.Minute,
		DBPath:             "alertfi.db",
		DBMaxOpenConns:     1,
		DBMaxIdleConns:     1,
		TokenTTL:           24 * time.Hour,
		AdminEmail:         "admin@gmail.com",
		AdminPassword:      "admin123",
		LogLevel:           "info",
		LogMaxSizeBytes:    2 * 1024 * 1024,
		LogMaxBackups:      3,
		OfflineThreshold:   2 * time.Hour,
		RefreshInterval:    30 * time.Second,
		RetentionDays:      0,
		RetentionInterval:  time.Hour,
		MQTTTopic:          "alertfi/readings/#",
		MQTTClientID:       "alertfi-server",
		MQTTQoS:            1,
		EmailAPIURL:        "https://api.brevo.com/v3/smtp/email",
		EmailSenderName:    "AlertFi",
		KafkaTopic:         "alertfi.alerts",
		RemoteBaseURL:      "https://alertfi.onrender.com/",
		RemoteTimeout:      15 * time.Second,
	}
}

var defaultEnvConfig = DefaultConfig()

// Load 从配置文件和环境变量加载配置
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(ConfigPathEnv))
}

// LoadFrom 使用指定配置文件加载；path 为空时按默认位置查找，找不到不报错
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	configPaths := []string{
		"config/config.yaml",
		"../config/config.yaml",
		"./config.yaml",
	}
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFromFile 从 YAML 文件加载配置
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	flatCfg, err := parseFlatYAML(data)
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setStringIfNotEmpty(&cfg.ListenAddr, flatCfg["server.addr"])
	setDurationFromText(&cfg.HTTPReadTimeout, flatCfg["server.read_timeout"])
	setDurationFromText(&cfg.HTTPWriteTimeout, flatCfg["server.write_timeout"])
	setDurationFromText(&cfg.HTTPIdleTimeout, flatCfg["server.idle_timeout"])
	setStringIfNotEmpty(&cfg.AllowedOrigins, flatCfg["server.allowed_origins"])
	setNonNegativeIntFromText(&cfg.IngestRateLimit, flatCfg["server.ingest_rate_limit"])
	setPositiveIntFromText(&cfg.LoginMaxFailures, flatCfg["server.login_max_failures"])
	setDurationFromText(&cfg.LoginBlockDuration, flatCfg["server.login_block_duration"])
	setStringIfNotEmpty(&cfg.TLSCertFile, flatCfg["server.tls_cert_file"])
	setStringIfNotEmpty(&cfg.TLSKeyFile, flatCfg["server.tls_key_file"])
	setBoolFromText(&cfg.TLSAuto, flatCfg["server.tls_auto"])
	setStringIfNotEmpty(&cfg.TLSDomain, flatCfg["server.tls_domain"])
	setStringIfNotEmpty(&cfg.TLSCacheDir, flatCfg["server.tls_cache_dir"])

	setStringIfNotEmpty(&cfg.DBPath, flatCfg["database.path"])
	setPositiveIntFromText(&cfg.DBMaxOpenConns, flatCfg["database.max_open_conns"])
	setPositiveIntFromText(&cfg.DBMaxIdleConns, flatCfg["database.max_idle_conns"])

	setStringIfNotEmpty(&cfg.JWTSecret, flatCfg["auth.secret"])
	setDurationFromText(&cfg.TokenTTL, flatCfg["auth.token_ttl"])
	setStringIfNotEmpty(&cfg.AdminEmail, flatCfg["auth.admin_email"])
	setStringIfNotEmpty(&cfg.AdminPassword, flatCfg["auth.admin_password"])

	setStringIfNotEmpty(&cfg.LogLevel, flatCfg["log.level"])
	setBoolFromText(&cfg.LogJSON, flatCfg["log.json"])
	setStringIfNotEmpty(&cfg.LogFile, flatCfg["log.file"])
	setPositiveIntFromText(&cfg.LogMaxSizeBytes, flatCfg["log.max_size_bytes"])
	setPositiveIntFromText(&cfg.LogMaxBackups, flatCfg["log.max_backups"])

	setDurationFromText(&cfg.OfflineThreshold, flatCfg["monitor.offline_threshold"])
	setDurationFromText(&cfg.RefreshInterval, flatCfg["monitor.refresh_interval"])
	setNonNegativeIntFromText(&cfg.RetentionDays, flatCfg["monitor.retention_days"])
	setDurationFromText(&cfg.RetentionInterval, flatCfg["monitor.retention_interval"])

	setBoolFromText(&cfg.ExportEscapeQuotes, flatCfg["export.escape_quotes"])
	setStringIfNotEmpty(&cfg.ExportTimeLayout, flatCfg["export.time_layout"])

	setStringIfNotEmpty(&cfg.MQTTBroker, flatCfg["ingest.mqtt.broker"])
	setStringIfNotEmpty(&cfg.MQTTTopic, flatCfg["ingest.mqtt.topic"])
	setStringIfNotEmpty(&cfg.MQTTClientID, flatCfg["ingest.mqtt.client_id"])
	setStringIfNotEmpty(&cfg.MQTTUsername, flatCfg["ingest.mqtt.username"])
	setStringIfNotEmpty(&cfg.MQTTPassword, flatCfg["ingest.mqtt.password"])
	setNonNegativeIntFromText(&cfg.MQTTQoS, flatCfg["ingest.mqtt.qos"])

	setStringIfNotEmpty(&cfg.EmailAPIURL, flatCfg["notify.email.api_url"])
	setStringIfNotEmpty(&cfg.EmailAPIKey, flatCfg["notify.email.api_key"])
	setStringIfNotEmpty(&cfg.EmailSender, flatCfg["notify.email.sender"])
	setStringIfNotEmpty(&cfg.EmailSenderName, flatCfg["notify.email.sender_name"])
	setStringIfNotEmpty(&cfg.KafkaBrokers, flatCfg["notify.kafka.brokers"])
	setStringIfNotEmpty(&cfg.KafkaTopic, flatCfg["notify.kafka.topic"])

	setStringIfNotEmpty(&cfg.RemoteBaseURL, flatCfg["remote.base_url"])
	setDurationFromText(&cfg.RemoteTimeout, flatCfg["remote.timeout"])

	return nil
}

// parseFlatYAML 解析 YAML 并展开为 "a.b.c" 形式的键
// 列表值以逗号连接。
func parseFlatYAML(data []byte) (map[string]string, error) {
	var root map[string]interface{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	result := make(map[string]string)
	flatten("", root, result)
	return result, nil
}

func flatten(prefix string, node interface{}, out map[string]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, child := range v {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			flatten(path, child, out)
		}
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

func setStringIfNotEmpty(dst *string, value string) {
	if dst == nil || value == "" {
		return
	}
	*dst = value
}

func setDurationFromText(dst *time.Duration, value string) {
	if dst == nil || value == "" {
		return
	}
	if parsed, err := parseDuration(value); err == nil {
		*dst = parsed
	} else {
		log.Warn("invalid duration ignored", "value", value, "error", err)
	}
}

// parseDuration 支持 "2h" 这类写法，纯整数按毫秒处理（7200000 即 2h）
func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(value)
}

func setBoolFromText(dst *bool, value string) {
	if dst == nil || value == "" {
		return
	}
	*dst = parseTrueBoolOrOne(value)
}

func setPositiveIntFromText(dst *int, value string) {
	if dst == nil || value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return
	}
	*dst = parsed
}

func setNonNegativeIntFromText(dst *int, value string) {
	if dst == nil || value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return
	}
	*dst = parsed
}

// loadFromEnv 从环境变量加载配置（会覆盖文件配置）
func loadFromEnv(cfg *Config) {
	if cfg == nil {
		return
	}

	defaults := defaultEnvConfig

	setStringFromEnv(&cfg.ListenAddr, "LISTEN_ADDR")
	setDurationFromEnvWithFallback(&cfg.HTTPReadTimeout, "HTTP_READ_TIMEOUT", defaults.HTTPReadTimeout, true)
	setDurationFromEnvWithFallback(&cfg.HTTPWriteTimeout, "HTTP_WRITE_TIMEOUT", defaults.HTTPWriteTimeout, true)
	setDurationFromEnv(&cfg.HTTPIdleTimeout, "HTTP_IDLE_TIMEOUT")
	setStringFromEnv(&cfg.AllowedOrigins, "ALLOWED_ORIGINS")
	setIntFromEnv(&cfg.IngestRateLimit, "INGEST_RATE_LIMIT")
	setIntFromEnv(&cfg.LoginMaxFailures, "LOGIN_MAX_FAILURES")
	setDurationFromEnv(&cfg.LoginBlockDuration, "LOGIN_BLOCK_DURATION")

	setStringFromEnv(&cfg.TLSCertFile, "TLS_CERT_FILE")
	setStringFromEnv(&cfg.TLSKeyFile, "TLS_KEY_FILE")
	setBoolFromEnvAllowOne(&cfg.TLSAuto, "TLS_AUTO")
	setStringFromEnv(&cfg.TLSDomain, "TLS_DOMAIN")
	setStringFromEnv(&cfg.TLSCacheDir, "TLS_CACHE_DIR")

	setStringFromEnv(&cfg.DBPath, "DB_PATH")
	setIntFromEnvWithFallback(&cfg.DBMaxOpenConns, "DB_MAX_OPEN_CONNS", defaults.DBMaxOpenConns)
	setIntFromEnvWithFallback(&cfg.DBMaxIdleConns, "DB_MAX_IDLE_CONNS", defaults.DBMaxIdleConns)

	setStringFromEnv(&cfg.JWTSecret, "JWT_SECRET")
	setDurationFromEnvWithFallback(&cfg.TokenTTL, "TOKEN_TTL", defaults.TokenTTL, true)
	setStringFromEnv(&cfg.AdminEmail, "ADMIN_EMAIL")
	setStringFromEnv(&cfg.AdminPassword, "ADMIN_PASSWORD")

	setStringFromEnv(&cfg.LogLevel, "LOG_LEVEL")
	setBoolFromEnv(&cfg.LogJSON, "LOG_JSON")
	setStringFromEnv(&cfg.LogFile, "LOG_FILE")

	setDurationFromEnvWithFallback(&cfg.OfflineThreshold, "OFFLINE_THRESHOLD", defaults.OfflineThreshold, true)
	setDurationFromEnvWithFallback(&cfg.RefreshInterval, "REFRESH_INTERVAL", defaults.RefreshInterval, true)
	setIntFromEnv(&cfg.RetentionDays, "RETENTION_DAYS")
	setDurationFromEnvWithFallback(&cfg.RetentionInterval, "RETENTION_INTERVAL", defaults.RetentionInterval, true)

	setBoolFromEnvAllowOne(&cfg.ExportEscapeQuotes, "EXPORT_ESCAPE_QUOTES")
	setStringFromEnv(&cfg.ExportTimeLayout, "EXPORT_TIME_LAYOUT")

	setStringFromEnv(&cfg.MQTTBroker, "MQTT_BROKER")
	setStringFromEnv(&cfg.MQTTTopic, "MQTT_TOPIC")
	setStringFromEnv(&cfg.MQTTClientID, "MQTT_CLIENT_ID")
	setStringFromEnv(&cfg.MQTTUsername, "MQTT_USERNAME")
	setStringFromEnv(&cfg.MQTTPassword, "MQTT_PASSWORD")
	setIntFromEnv(&cfg.MQTTQoS, "MQTT_QOS")

	setStringFromEnv(&cfg.EmailAPIURL, "EMAIL_API_URL")
	setStringFromEnv(&cfg.EmailAPIKey, "BREVO_API_KEY")
	setStringFromEnv(&cfg.EmailSender, "EMAIL_SENDER")
	setStringFromEnv(&cfg.EmailSenderName, "EMAIL_SENDER_NAME")
	setStringFromEnv(&cfg.KafkaBrokers, "KAFKA_BROKERS")
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setStringFromEnv(&cfg.RemoteBaseURL, "ALERTFI_URL")
	setDurationFromEnvWithFallback(&cfg.RemoteTimeout, "ALERTFI_TIMEOUT", defaults.RemoteTimeout, true)
}

func setStringFromEnv(dst *string, key string) {
	if dst == nil {
		return
	}
	if value, ok := envValue(key); ok {
		*dst = value
	}
}

func setBoolFromEnv(dst *bool, key string) {
	if dst == nil {
		return
	}
	if value, ok := envValue(key); ok {
		*dst = parseTrueBool(value)
	}
}

func setBoolFromEnvAllowOne(dst *bool, key string) {
	if dst == nil {
		return
	}
	if value, ok := envValue(key); ok {
		*dst = parseTrueBoolOrOne(value)
	}
}

func setIntFromEnv(dst *int, key string) {
	if dst == nil {
		return
	}
	value, ok := envValue(key)
	if !ok {
		return
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		*dst = parsed
	}
}

func setIntFromEnvWithFallback(dst *int, key string, fallback int) {
	if dst == nil {
		return
	}
	value, ok := envValue(key)
	if !ok {
		return
	}
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		*dst = parsed
		return
	}
	if *dst == 0 {
		*dst = fallback
	}
}

func setDurationFromEnv(dst *time.Duration, key string) {
	if dst == nil {
		return
	}
	value, ok := envValue(key)
	if !ok {
		return
	}
	parsed, err := parseDuration(value)
	if err != nil {
		log.Warn("invalid duration in environment ignored", "key", key, "value", value, "error", err)
		return
	}
	*dst = parsed
}

func setDurationFromEnvWithFallback(dst *time.Duration, key string, fallback time.Duration, mustPositive bool) {
	if dst == nil {
		return
	}
	value, ok := envValue(key)
	if !ok {
		return
	}
	parsed, err := parseDuration(value)
	if err == nil && (!mustPositive || parsed > 0) {
		*dst = parsed
		return
	}
	log.Warn("invalid duration in environment ignored", "key", key, "value", value)
	if *dst == 0 {
		*dst = fallback
	}
}

func envValue(key string) (string, bool) {
	value := os.Getenv(key)
	if value == "" {
		return "", false
	}
	return value, true
}

func parseTrueBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

func parseTrueBoolOrOne(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.EqualFold(trimmed, "true") || trimmed == "1"
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	if c.OfflineThreshold <= 0 {
		errs = append(errs, fmt.Errorf("offline_threshold must be positive, got %v", c.OfflineThreshold))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %v", c.RefreshInterval))
	}
	if c.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("retention_days must not be negative"))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, fmt.Errorf("tls_cert_file and tls_key_file must be set together"))
	}
	if c.TLSAuto && c.TLSDomain == "" {
		errs = append(errs, fmt.Errorf("tls_auto requires tls_domain"))
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt qos must be 0, 1 or 2"))
	}
	return errors.Join(errs...)
}

// GetAllowedOrigins 获取允许的跨域来源列表
func (c *Config) GetAllowedOrigins() []string {
	if c.AllowedOrigins == "" {
		return []string{"http://localhost:3000", "http://localhost:8080", "http://127.0.0.1:8080"}
	}
	return splitList(c.AllowedOrigins)
}

// GetKafkaBrokers Kafka broker 列表，未配置时为空
func (c *Config) GetKafkaBrokers() []string {
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String 返回配置的字符串表示（不含密钥）
func (c *Config) String() string {
	return fmt.Sprintf("Config{ListenAddr=%s, DBPath=%s, LogLevel=%s, OfflineThreshold=%v, MQTTBroker=%s, KafkaTopic=%s}",
		c.ListenAddr, c.DBPath, c.LogLevel, c.OfflineThreshold, c.MQTTBroker, c.KafkaTopic)
}
