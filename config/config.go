// Package config 负责加载应用配置
// 配置来源优先级: 环境变量 > 配置文件 > 默认值
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 JAVANOTES_SERVER_PORT
const EnvPrefix = "JAVANOTES"

// Config 应用总配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	OSS      OSSConfig      `mapstructure:"oss"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Notes    NotesConfig    `mapstructure:"notes"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`          // gin 运行模式: debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`  // 秒
	WriteTimeout int    `mapstructure:"write_timeout"` // 秒
	EnableHTTPS  bool   `mapstructure:"enable_https"`
	EnableHTTP2  bool   `mapstructure:"enable_http2"`
	TLSCertFile  string `mapstructure:"tls_cert_file"`
	TLSKeyFile   string `mapstructure:"tls_key_file"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
}

// StorageConfig 记录列表的持久化配置
type StorageConfig struct {
	// Backend 持久化后端: sqlite, file, memory, oss
	Backend string `mapstructure:"backend"`
	// Key 记录列表在键值存储中的固定键名
	Key string `mapstructure:"key"`
	// Dir file 后端的存储目录
	Dir string `mapstructure:"dir"`
	// Mirror 为 true 时每次写入后额外同步一份到对象存储
	Mirror bool `mapstructure:"mirror"`
	// RetryInterval 写入失败后重试的间隔（秒），0 表示不自动重试
	RetryInterval int `mapstructure:"retry_interval"`
	// RetryMaxInterval 连续失败时退避的最大间隔（秒）
	RetryMaxInterval int `mapstructure:"retry_max_interval"`
}

// OSSConfig 对象存储配置
type OSSConfig struct {
	Provider  string `mapstructure:"provider"` // aliyun, tencent, qiniu, minio
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// IngestConfig 上传入库配置
type IngestConfig struct {
	Extension       string   `mapstructure:"extension"`
	Categories      []string `mapstructure:"categories"`
	DefaultCategory string   `mapstructure:"default_category"`
	MaxFileSize     int64    `mapstructure:"max_file_size"`
	ReadWorkers     int      `mapstructure:"read_workers"`
}

// NotesConfig 笔记查看器配置
type NotesConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// setDefaults 注册所有默认值
// viper 只有在键被注册过时才会从环境变量中读取，所以每个键都需要默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.enable_https", false)
	v.SetDefault("server.enable_http2", false)
	v.SetDefault("server.tls_cert_file", "")
	v.SetDefault("server.tls_key_file", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/javanotes.db")
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.key", "javaFiles")
	v.SetDefault("storage.dir", "data/kv")
	v.SetDefault("storage.mirror", false)
	v.SetDefault("storage.retry_interval", 30)
	v.SetDefault("storage.retry_max_interval", 600)

	v.SetDefault("oss.provider", "")
	v.SetDefault("oss.region", "")
	v.SetDefault("oss.bucket", "")
	v.SetDefault("oss.access_key", "")
	v.SetDefault("oss.secret_key", "")
	v.SetDefault("oss.endpoint", "")
	v.SetDefault("oss.prefix", "javanotes")
	v.SetDefault("oss.use_ssl", true)

	v.SetDefault("ingest.extension", ".java")
	v.SetDefault("ingest.categories", []string{"homework", "project", "practice", "notes"})
	v.SetDefault("ingest.default_category", "homework")
	v.SetDefault("ingest.max_file_size", 1<<20)
	v.SetDefault("ingest.read_workers", 4)

	v.SetDefault("notes.dir", "")
	v.SetDefault("notes.watch", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file_path", "logs/app.log")
}

// Load 加载配置
// 参数:
//   - path: 配置文件路径，为空时只使用环境变量和默认值
//
// 返回值:
//   - *Config: 校验通过的配置
//   - error: 读取或校验失败时的错误
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置的合法性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Server.EnableHTTPS && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
		return errors.New("server.tls_cert_file and server.tls_key_file are required when https is enabled")
	}

	switch c.Storage.Backend {
	case "sqlite":
		if c.Database.Driver != "sqlite" {
			return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
		}
	case "file":
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required for the file backend")
		}
	case "memory":
	case "oss":
		if c.Storage.Mirror {
			return errors.New("storage.mirror cannot be used with the oss backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return errors.New("storage.key must not be empty")
	}
	if c.Storage.RetryInterval < 0 {
		return fmt.Errorf("invalid storage.retry_interval: %d", c.Storage.RetryInterval)
	}

	if c.Storage.Backend == "oss" || c.Storage.Mirror {
		if err := c.OSS.Validate(); err != nil {
			return err
		}
	}

	if !strings.HasPrefix(c.Ingest.Extension, ".") {
		return fmt.Errorf("ingest.extension must start with a dot: %q", c.Ingest.Extension)
	}
	if c.Ingest.MaxFileSize <= 0 {
		return fmt.Errorf("invalid ingest.max_file_size: %d", c.Ingest.MaxFileSize)
	}
	if len(c.Ingest.Categories) > 0 && !slices.Contains(c.Ingest.Categories, c.Ingest.DefaultCategory) {
		return fmt.Errorf("ingest.default_category %q is not in ingest.categories", c.Ingest.DefaultCategory)
	}
	if c.Ingest.ReadWorkers <= 0 {
		c.Ingest.ReadWorkers = 1
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 1
	}
	return nil
}

// Validate 校验对象存储配置
func (c *OSSConfig) Validate() error {
	switch c.Provider {
	case "aliyun", "tencent", "qiniu", "minio":
	case "":
		return errors.New("oss.provider is required when the oss backend or mirror is enabled")
	default:
		return fmt.Errorf("unsupported oss provider: %s", c.Provider)
	}
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("oss.bucket, oss.access_key and oss.secret_key are required")
	}
	if c.Provider == "minio" && c.Endpoint == "" {
		return errors.New("oss.endpoint is required for minio")
	}
	return nil
}
