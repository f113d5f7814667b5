package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultProvider 取值与 collector.ProviderHN 一致
const defaultProvider = "HN"

type Config struct {
	AppPort string
	WebRoot string

	// Provider 数据源选择：HN / NEWSAPI / GNEWS，未知值在 collector 中回落到 HN
	Provider    string
	NewsAPIKey  string
	GNewsAPIKey string

	// MockMode 配置层面的 mock 开关
	MockMode bool
	// ForcedMock 启动参数强制 mock（演示/离线），进程内只解析一次
	ForcedMock bool
	LaunchURL  string

	WindowHours     int
	HTTPTimeout     time.Duration
	MockFixturePath string

	LogLevel string

	// Warnings 加载过程中被忽略的非法取值，logger 就绪后由调用方输出
	Warnings []string
}

// Load 先加载 .env 文件（不存在则忽略），再读取环境变量
func Load() *Config {
	cfg := &Config{}
	cfg.loadEnvFiles()

	cfg.WindowHours = cfg.getEnvInt("DEVPULSE_WINDOW_HOURS", 48)
	cfg.HTTPTimeout = cfg.getEnvDuration("HTTP_TIMEOUT", 30*time.Second)
	cfg.AppPort = getEnv("APP_PORT", "9000")
	cfg.WebRoot = getEnv("WEB_ROOT", "")
	cfg.Provider = strings.ToUpper(strings.TrimSpace(getEnv("DEVPULSE_PROVIDER", defaultProvider)))
	cfg.NewsAPIKey = getEnv("NEWSAPI_KEY", "")
	cfg.GNewsAPIKey = getEnv("GNEWS_API_KEY", "")
	cfg.MockMode = getEnvBool("DEVPULSE_USE_MOCK", false)
	cfg.LaunchURL = getEnv("DEVPULSE_LAUNCH_URL", "")
	cfg.MockFixturePath = getEnv("MOCK_FIXTURE_PATH", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.ForcedMock = ForcedMockFromLaunchURL(cfg.LaunchURL)
	return cfg
}

// ApplyLaunchOverride 命令行传入的启动参数：--mock 或 --launch-url，只会把 ForcedMock 置为 true
func (c *Config) ApplyLaunchOverride(forceMock bool, launchURL string) {
	if launchURL != "" {
		c.LaunchURL = launchURL
	}
	if forceMock || ForcedMockFromLaunchURL(c.LaunchURL) {
		c.ForcedMock = true
	}
}

// ForcedMockFromLaunchURL 判断启动 URL 是否携带 mock 标记：
// 查询参数 mock（无值或 1/true/yes/on），或 fragment 中出现 mock（如 #mock、#/list?mock=1）
func ForcedMockFromLaunchURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if vals, ok := u.Query()["mock"]; ok {
		return mockValueEnabled(vals)
	}

	frag := u.Fragment
	if frag == "" {
		return false
	}
	if i := strings.Index(frag, "?"); i >= 0 {
		if q, err := url.ParseQuery(frag[i+1:]); err == nil {
			if vals, ok := q["mock"]; ok {
				return mockValueEnabled(vals)
			}
		}
	}
	return strings.Contains(strings.ToLower(frag), "mock")
}

// mockValueEnabled 无值的 mock 参数也算开启
func mockValueEnabled(vals []string) bool {
	if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return true
	}
	return isTruthy(vals[0])
}

// isTruthy 环境变量与启动 URL 共用的开关取值：1 / true / yes / on
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// loadEnvFiles ENV_FILE 优先；否则 .env.local 覆盖 .env
func (c *Config) loadEnvFiles() {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			c.warnf("load env file %s: %v", envFile, err)
		}
		return
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			c.warnf("load %s: %v", f, err)
		}
	}
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return isTruthy(v)
}

func (c *Config) getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		c.warnf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func (c *Config) getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		c.warnf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
