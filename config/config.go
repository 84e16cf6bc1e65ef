package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	MysqlDSN   string `json:"mysqldsn"`
	RedisAddr  string `json:"redis_addr"`
	RedisPass  string `json:"redis_pass"`
	RedisDB    int    `json:"redis_db"`
	ListenAddr string `json:"listen_addr"`
	Slat       string `json:"slat"`
	JWTSecret  string `json:"jwt_secret"`
	LogLevel   string `json:"log_level"`
	LogFormat  string `json:"log_format"`

	// 抖音元数据上游，多个端点按顺序回退
	Endpoints      []string `json:"endpoints"`
	RequestTimeout int      `json:"request_timeout"` // 单次请求超时（秒）
	EndpointAbort  int      `json:"endpoint_abort"`  // 单端点总超时（秒）
	MaxRetries     int      `json:"max_retries"`
	CacheTTL       int      `json:"cache_ttl"` // 元数据缓存（秒），0 不缓存

	// 飞书多维表格
	FeishuBaseURL   string `json:"feishu_base_url"`
	FeishuAppID     string `json:"feishu_app_id"`
	FeishuAppSecret string `json:"feishu_app_secret"`
	FeishuAppToken  string `json:"feishu_app_token"` // 多维表格应用token
}

var cfg *Config

func Get() Config {
	return *cfg
}

// LoadConfig 读取配置文件并叠加环境变量，文件不存在时用默认值
func LoadConfig(path string) (*Config, error) {
	temp := defaults()
	if data, err := os.ReadFile(path); err == nil {
		if err = json.Unmarshal(data, temp); err != nil {
			return nil, err
		}
	}
	applyEnv(temp)
	cfg = temp
	return cfg, nil
}

// Set 测试或CLI场景直接注入配置
func Set(c Config) {
	filled := c
	def := defaults()
	if len(filled.Endpoints) == 0 {
		filled.Endpoints = def.Endpoints
	}
	if filled.RequestTimeout == 0 {
		filled.RequestTimeout = def.RequestTimeout
	}
	if filled.EndpointAbort == 0 {
		filled.EndpointAbort = def.EndpointAbort
	}
	if filled.MaxRetries == 0 {
		filled.MaxRetries = def.MaxRetries
	}
	cfg = &filled
}

func defaults() *Config {
	return &Config{
		ListenAddr:     ":8080",
		LogLevel:       "info",
		LogFormat:      "text",
		Endpoints:      []string{"https://douyin.wtf/api/douyin/web/fetch_one_video?aweme_id=%s"},
		RequestTimeout: 15,
		EndpointAbort:  20,
		MaxRetries:     2,
		CacheTTL:       3600,
		FeishuBaseURL:  "https://open.feishu.cn",
	}
}

func applyEnv(c *Config) {
	c.MysqlDSN = envOr("MYSQL_DSN", c.MysqlDSN)
	c.RedisAddr = envOr("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = envOr("REDIS_PASS", c.RedisPass)
	c.ListenAddr = envOr("LISTEN_ADDR", c.ListenAddr)
	c.Slat = envOr("SIGN_SALT", c.Slat)
	c.JWTSecret = envOr("JWT_SECRET", c.JWTSecret)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.FeishuAppID = envOr("FEISHU_APP_ID", c.FeishuAppID)
	c.FeishuAppSecret = envOr("FEISHU_APP_SECRET", c.FeishuAppSecret)
	c.FeishuAppToken = envOr("FEISHU_APP_TOKEN", c.FeishuAppToken)
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("DOUYIN_ENDPOINTS"); v != "" {
		parts := strings.Split(v, ",")
		eps := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				eps = append(eps, p)
			}
		}
		if len(eps) > 0 {
			c.Endpoints = eps
		}
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
