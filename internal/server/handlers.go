package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はステータス確認のレスポンス
type StatusResponse struct {
	Status    string        `json:"status"`
	Server    ServerInfo    `json:"server"`
	Stats     StatsSnapshot `json:"stats"`
	Timestamp time.Time     `json:"timestamp"`
}

// ServerInfo はファイルサーバーの情報
type ServerInfo struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Address        string `json:"address,omitempty"` // 実際にリッスンしているアドレス
	Root           string `json:"root"`
	MaxConnections int    `json:"max_connections"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// AdminHandler は管理APIのハンドラ
type AdminHandler struct {
	server *Server
}

// AdminRouter は管理APIのルーターを作成する
func (s *Server) AdminRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	h := &AdminHandler{server: s}

	// ヘルスチェックエンドポイント
	router.GET("/health", h.HealthCheck)

	// APIエンドポイント
	router.GET("/api/status", h.GetStatus)

	router.NoRoute(h.NotFound)

	return router
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// GetStatus はサーバー状態と統計を返す
func (h *AdminHandler) GetStatus(c *gin.Context) {
	cfg := h.server.config

	info := ServerInfo{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Root:           h.server.root.Dir(),
		MaxConnections: cfg.Server.MaxConnections,
	}
	if addr := h.server.Addr(); addr != nil {
		info.Address = addr.String()
	}

	status := "running"
	if h.server.isClosing() {
		status = "stopping"
	}

	c.JSON(http.StatusOK, StatusResponse{
		Status:    status,
		Server:    info,
		Stats:     h.server.stats.Snapshot(),
		Timestamp: time.Now(),
	})
}

// NotFound は未定義のパスへのレスポンス
func (h *AdminHandler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:     "not_found",
		Message:   "指定されたエンドポイントが見つかりません",
		Timestamp: time.Now(),
	})
}
