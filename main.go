// javanotes 保存上传的 .java 文件并提供浏览、搜索、查看、下载和删除页面，
// 以及 Java 参考笔记查看器
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/weiwangfds/javanotes/config"
	"github.com/weiwangfds/javanotes/internal/database"
	"github.com/weiwangfds/javanotes/internal/kv"
	"github.com/weiwangfds/javanotes/internal/logger"
	"github.com/weiwangfds/javanotes/internal/router"
	"github.com/weiwangfds/javanotes/internal/service/ingest"
	"github.com/weiwangfds/javanotes/internal/service/notes"
	"github.com/weiwangfds/javanotes/internal/service/oss"
	"github.com/weiwangfds/javanotes/internal/service/record"
	"github.com/weiwangfds/javanotes/internal/service/watcher"
	"golang.org/x/net/http2"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml/toml/json)")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// 初始化持久化后端
	backend, err := openBackend(cfg)
	if err != nil {
		logger.Fatalf("Failed to open storage backend: %v", err)
	}

	store, err := record.NewStore(backend, cfg.Storage.Key)
	if err != nil {
		logger.Fatalf("Failed to load file records: %v", err)
	}
	for _, w := range store.Warnings() {
		logger.Warnf("startup: %s", w)
	}

	ingestor := ingest.NewIngestor(store, cfg.Ingest)

	noteService, err := notes.NewNoteService(cfg.Notes.Dir)
	if err != nil {
		logger.Fatalf("Failed to load notes: %v", err)
	}

	r, err := router.NewRouter(router.Deps{
		Store:     store,
		Ingestor:  ingestor,
		Notes:     noteService,
		Extension: cfg.Ingest.Extension,
		Mode:      cfg.Server.Mode,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize router: %v", err)
	}

	// 启动后台服务
	bgCtx, cancelBackground := context.WithCancel(context.Background())

	var notesWatcher watcher.NotesWatcher
	if cfg.Notes.Watch && noteService.Dir() != "" {
		notesWatcher = watcher.NewNotesWatcher(noteService.Dir(), noteService, 0)
		if err := notesWatcher.Start(bgCtx); err != nil {
			logger.Errorf("Failed to start notes watcher: %v", err)
			notesWatcher = nil
		}
	}

	var flushWorker watcher.FlushWorker
	if cfg.Storage.RetryInterval > 0 {
		flushWorker = watcher.NewFlushWorker(store,
			time.Duration(cfg.Storage.RetryInterval)*time.Second,
			time.Duration(cfg.Storage.RetryMaxInterval)*time.Second)
		if err := flushWorker.Start(bgCtx); err != nil {
			logger.Errorf("Failed to start flush worker: %v", err)
			flushWorker = nil
		}
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      r.GetEngine(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	if cfg.Server.EnableHTTPS {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			NextProtos: []string{"http/1.1"},
		}
		// 如果启用HTTP/2，配置HTTP/2支持
		if cfg.Server.EnableHTTP2 {
			if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
				logger.Fatalf("Failed to configure HTTP/2: %v", err)
			}
		}
	}

	go func() {
		var err error
		if cfg.Server.EnableHTTPS {
			logger.Infof("HTTPS server listening on %s (HTTP/2: %v)", srv.Addr, cfg.Server.EnableHTTP2)
			err = srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			logger.Infof("HTTP server listening on %s", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cancelBackground()
	if notesWatcher != nil {
		if err := notesWatcher.Stop(); err != nil {
			logger.Errorf("Error stopping notes watcher: %v", err)
		}
	}
	if flushWorker != nil {
		_ = flushWorker.Stop()
	}

	// 优雅关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// 退出前最后尝试一次写入未保存的修改
	if err := store.Flush(); err != nil {
		logger.Errorf("Unsaved file records could not be written: %v", err)
	}

	logger.Info("Server exited")
}

// openBackend 按配置创建记录列表的持久化后端
func openBackend(cfg *config.Config) (kv.Store, error) {
	var primary kv.Store

	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := database.Init(cfg.Database)
		if err != nil {
			return nil, err
		}
		primary = kv.NewDBStore(db)
	case "file":
		fs, err := kv.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		primary = fs
	case "memory":
		logger.Warnf("memory storage backend selected, file records will be lost on exit")
		primary = kv.NewMemory()
	case "oss":
		objects, err := openObjectStore(cfg.OSS)
		if err != nil {
			return nil, err
		}
		return objects, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}

	if !cfg.Storage.Mirror {
		logger.Infof("storage backend: %s", cfg.Storage.Backend)
		return primary, nil
	}

	replica, err := openObjectStore(cfg.OSS)
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	logger.Infof("storage backend: %s, mirrored to %s", cfg.Storage.Backend, cfg.OSS.Provider)
	return kv.NewMirror(primary, replica), nil
}

func openObjectStore(cfg config.OSSConfig) (*kv.ObjectStore, error) {
	provider, err := oss.CreateProvider(cfg)
	if err != nil {
		return nil, err
	}
	if err := provider.TestConnection(); err != nil {
		return nil, fmt.Errorf("%s connection test failed: %w", provider.Name(), err)
	}
	return kv.NewObjectStore(provider, cfg.Prefix), nil
}
