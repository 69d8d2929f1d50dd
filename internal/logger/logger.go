package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	// Logger 全局日志实例
	Logger *logrus.Logger
	mu     sync.Mutex
)

// Config 日志配置结构体
type Config struct {
	// Level 日志级别 (debug, info, warn, error)
	Level string
	// Format 日志格式 (json, text)
	Format string
	// Output 输出方式 (console, file, both)
	Output string
	// FilePath 日志文件路径，Output 为 file 或 both 时使用
	FilePath string
}

// DefaultConfig 返回默认日志配置
func DefaultConfig() *Config {
	return &Config{
		Level:    "info",
		Format:   "text",
		Output:   "console",
		FilePath: "logs/app.log",
	}
}

// Init 初始化日志系统
// 参数:
//   - config: 日志配置，如果为nil则使用默认配置
//
// 返回值:
//   - error: 初始化错误
func Init(config *Config) error {
	if config == nil {
		config = DefaultConfig()
	}

	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("invalid log level '%s', falling back to 'info'", config.Level)
	}
	l.SetLevel(level)

	switch config.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		l.Warnf("invalid log format '%s', falling back to 'text'", config.Format)
	}

	out, err := openOutput(config)
	if err != nil {
		return err
	}
	l.SetOutput(out)

	SetLogger(l)
	setupGinLogger(l)

	l.Info("logger initialized")
	return nil
}

// openOutput 根据配置打开日志输出
func openOutput(config *Config) (io.Writer, error) {
	switch config.Output {
	case "console", "":
		return os.Stdout, nil
	case "file", "both":
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, err
		}
		logFile, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		if config.Output == "file" {
			return logFile, nil
		}
		return io.MultiWriter(os.Stdout, logFile), nil
	default:
		return os.Stdout, nil
	}
}

// setupGinLogger 把 gin 的默认输出转到 logrus
func setupGinLogger(l *logrus.Logger) {
	ginWriter := &GinLogWriter{logger: l}
	gin.DefaultWriter = ginWriter
	gin.DefaultErrorWriter = ginWriter
}

// GinLogWriter Gin日志写入器
type GinLogWriter struct {
	logger *logrus.Logger
}

// Write 实现io.Writer接口
func (w *GinLogWriter) Write(p []byte) (n int, err error) {
	w.logger.Info(string(p))
	return len(p), nil
}

// SetLogger 替换全局日志实例，测试中用来挂载 hook
func SetLogger(l *logrus.Logger) {
	mu.Lock()
	Logger = l
	mu.Unlock()
}

// GetLogger 获取日志实例，未初始化时使用默认配置
func GetLogger() *logrus.Logger {
	mu.Lock()
	l := Logger
	mu.Unlock()
	if l != nil {
		return l
	}
	if err := Init(nil); err != nil {
		logrus.Error("logger init failed, using logrus standard logger")
		return logrus.StandardLogger()
	}
	return Logger
}

// Debugf 记录格式化调试级别日志
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Info 记录信息级别日志
func Info(args ...interface{}) {
	GetLogger().Info(args...)
}

// Infof 记录格式化信息级别日志
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Warnf 记录格式化警告级别日志
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Error 记录错误级别日志
func Error(args ...interface{}) {
	GetLogger().Error(args...)
}

// Errorf 记录格式化错误级别日志
func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// Fatalf 记录格式化致命级别日志并退出程序
func Fatalf(format string, args ...interface{}) {
	GetLogger().Fatalf(format, args...)
}

// WithField 添加字段到日志条目
func WithField(key string, value interface{}) *logrus.Entry {
	return GetLogger().WithField(key, value)
}

// WithFields 添加多个字段到日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return GetLogger().WithFields(fields)
}
