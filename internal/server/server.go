package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plantmerge/internal/config"
	"plantmerge/internal/consolidator"
	"plantmerge/internal/profile"
	"plantmerge/internal/server/handlers"
	"plantmerge/internal/store"
)

//go:embed web/*.html
var webFiles embed.FS

// Server HTTP服务器
type Server struct {
	router   *gin.Engine
	handlers *handlers.Handlers
	logger   *zap.Logger
	maxBody  int64
	http     *http.Server
}

// NewServer 创建服务器；st 为 nil 时不记录历史
func NewServer(cfg *config.AppConfig, st *store.Store, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := template.ParseFS(webFiles, "web/*.html")
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes()
	router.SetHTMLTemplate(tmpl)

	s := &Server{
		router:   router,
		handlers: handlers.NewHandlers(consolidator.NewEngine(logger), st, logger),
		logger:   logger,
		maxBody:  cfg.MaxUploadBytes(),
	}
	s.setupRoutes()
	s.http = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), s.requestLogger())

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Run-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	h := s.handlers
	upload := s.limitBody()

	// 上传页面与表单提交；根路径默认昆山
	s.router.GET("/", h.UploadPage(profile.PlantKunshan))
	s.router.POST("/", upload, h.Consolidate(profile.PlantKunshan))
	for _, plant := range profile.Plants {
		path := "/" + string(plant)
		s.router.GET(path, h.UploadPage(plant))
		s.router.POST(path, upload, h.Consolidate(plant))
	}

	api := s.router.Group("/api")
	{
		api.GET("/status", h.GetStatus)
		api.POST("/consolidate/:plant", upload, h.ConsolidatePlant)
		api.GET("/runs", h.ListRuns)
		api.GET("/runs/:id", h.GetRun)
	}
}

// limitBody 限制上传请求体大小
func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.maxBody > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Handler 返回路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，阻塞直到出错或 Shutdown
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
