package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，用于存储所有应用程序的配置
var Cfg *Config

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Token    TokenConfig    `mapstructure:"token"`
	Discord  DiscordConfig  `mapstructure:"discord"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode      string     `mapstructure:"mode"`
	Address   string     `mapstructure:"address"`
	PublicURL string     `mapstructure:"publicUrl"`
	Cors      CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	Redis  RedisConfig  `mapstructure:"redis"`
	Sqlite SqliteConfig `mapstructure:"sqlite"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SqliteConfig 定义了SQLite数据库文件的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// TrackerConfig 定义了上游同步引擎的配置
type TrackerConfig struct {
	// UpdateIntervalMins 是同一个Tracker两次上游抓取之间的最小间隔（分钟）
	UpdateIntervalMins int `mapstructure:"updateIntervalMins"`
	// FetchTimeoutSecs 是单次上游HTTP请求的超时（秒）
	FetchTimeoutSecs int `mapstructure:"fetchTimeoutSecs"`
	// UpstreamAllowlist 是允许抓取的上游URL前缀白名单
	UpstreamAllowlist []string `mapstructure:"upstreamAllowlist"`
	// 新建Tracker时的默认不活跃阈值（小时），仅用于前端展示
	InactivityYellowHours int `mapstructure:"inactivityYellowHours"`
	InactivityRedHours    int `mapstructure:"inactivityRedHours"`
}

// UpdateInterval 将配置的分钟数转换为time.Duration
func (t TrackerConfig) UpdateInterval() time.Duration {
	return time.Duration(t.UpdateIntervalMins) * time.Minute
}

// FetchTimeout 将配置的秒数转换为time.Duration
func (t TrackerConfig) FetchTimeout() time.Duration {
	return time.Duration(t.FetchTimeoutSecs) * time.Second
}

// TokenConfig 定义了会话令牌的配置
type TokenConfig struct {
	// Secret 是签名会话JWT使用的共享密钥，留空则启动时随机生成
	Secret string `mapstructure:"secret"`
	// Issuer 是JWT的签发者标识
	Issuer string `mapstructure:"issuer"`
	// ValidityDays 是令牌自签发起的有效天数
	ValidityDays int `mapstructure:"validityDays"`
}

// DiscordConfig 定义了Discord OAuth登录的配置
type DiscordConfig struct {
	ClientID     string `mapstructure:"clientId"`
	ClientSecret string `mapstructure:"clientSecret"`
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. 设置配置文件名和类型
	v.SetConfigName("config") // 文件名 (不带扩展名)
	v.SetConfigType("yaml")   // 文件类型

	// 2. 添加配置文件搜索路径
	v.AddConfigPath("./config") // `config/config.yaml`
	v.AddConfigPath(".")        // `./config.yaml` (如果在根目录)

	// 3. 设置默认值，保证最小配置也能启动
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.sqlite.path", "tracker.db")
	v.SetDefault("tracker.updateIntervalMins", 2)
	v.SetDefault("tracker.fetchTimeoutSecs", 30)
	v.SetDefault("tracker.inactivityYellowHours", 24)
	v.SetDefault("tracker.inactivityRedHours", 48)
	v.SetDefault("token.issuer", "multiworld-tracker")
	v.SetDefault("token.validityDays", 30)

	// 4. 设置环境变量支持
	// 允许通过环境变量覆盖配置，例如 SERVER_ADDRESS=:8888
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 5. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// 6. 将配置反序列化到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 7. 校验与抓取安全相关的配置
	if len(cfg.Tracker.UpstreamAllowlist) == 0 {
		return nil, fmt.Errorf("tracker.upstreamAllowlist 不能为空，否则服务会变成开放的URL抓取器")
	}

	// 8. 将加载的配置赋值给全局变量
	Cfg = &cfg

	return Cfg, nil
}
