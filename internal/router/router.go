package router

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/javanotes/internal/handler"
	"github.com/weiwangfds/javanotes/internal/middleware"
	"github.com/weiwangfds/javanotes/internal/service/ingest"
	"github.com/weiwangfds/javanotes/internal/service/notes"
	"github.com/weiwangfds/javanotes/internal/service/record"
)

// Deps 路由需要的服务
type Deps struct {
	Store    *record.Store
	Ingestor ingest.Ingestor
	Notes    notes.NoteService
	// Extension 页面上传控件接受的扩展名
	Extension string
	// Mode gin 运行模式，为空时使用 release
	Mode string
}

// Router 路由配置
type Router struct {
	engine *gin.Engine
}

// NewRouter 创建路由实例
func NewRouter(deps Deps) (*Router, error) {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	engine := gin.New()
	engine.MaxMultipartMemory = handler.MaxMultipartMemory

	tmpl, err := handler.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	engine.SetHTMLTemplate(tmpl)

	// 初始化处理器
	recordHandler := handler.NewRecordHandler(deps.Store, deps.Ingestor)
	noteHandler := handler.NewNoteHandler(deps.Notes)
	pageHandler := handler.NewPageHandler(deps.Store, deps.Ingestor, deps.Notes, deps.Extension)

	// 使用中间件
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Language())
	engine.Use(middleware.AccessLog())

	// 配置CORS
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept-Language", middleware.RequestIDHeader},
		ExposeHeaders:   []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		MaxAge:          86400,
	}))

	// 健康检查
	engine.GET("/health", recordHandler.Health)

	// API路由组
	api := engine.Group("/api/v1")
	{
		records := api.Group("/records")
		{
			records.POST("/upload", recordHandler.Upload)
			records.POST("/flush", recordHandler.Flush)
			records.GET("", recordHandler.List)
			records.GET("/:id", recordHandler.Get)
			records.GET("/:id/download", recordHandler.Download)
			records.DELETE("/:id", recordHandler.Delete)
		}

		notesGroup := api.Group("/notes")
		{
			notesGroup.GET("", noteHandler.List)
			notesGroup.GET("/search", noteHandler.Search)
			notesGroup.GET("/:id", noteHandler.Get)
		}
	}

	// 页面路由
	engine.GET("/", pageHandler.Index)
	engine.POST("/upload", pageHandler.Upload)
	engine.GET("/records/:id", pageHandler.View)
	engine.GET("/records/:id/download", pageHandler.Download)
	engine.POST("/records/:id/delete", pageHandler.Delete)
	engine.GET("/notes", pageHandler.Notes)
	engine.GET("/notes/:id", pageHandler.Note)

	engine.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"Title":   http.StatusText(http.StatusNotFound),
			"Message": "The page you requested does not exist.",
		})
	})

	return &Router{engine: engine}, nil
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
