package gateway

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/authgate/pkg/middleware"
)

// レート制限の設定。1クライアントIPあたりの許容量。
const (
	// rateLimitRPS は1秒あたりの許容リクエスト数。
	rateLimitRPS = 10
	// rateLimitBurst は瞬間的に許容するリクエスト数。
	rateLimitBurst = 100
)

// hopByHopHeaders は転送してはならないホップバイホップヘッダー。
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// client は内部サービスへの転送に使用するHTTPクライアント。
	client *http.Client
	// serviceURLs は内部サービスのURL。
	serviceURLs serviceURLConfig
}

// serviceURLConfig は内部サービスのURL設定。
// 起動時に読み込まれ、以降変更されない。
type serviceURLConfig struct {
	// Auth は認証サービスのベースURL。
	Auth string
	// Backend はバックエンドサービスのベースURL。
	Backend string
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(port string) (*Server, error) {
	urls := serviceURLConfig{
		Auth:    getEnvOr("AUTH_SERVICE_URL", "http://localhost:8081"),
		Backend: getEnvOr("BACKEND_SERVICE_URL", "http://localhost:8082"),
	}

	var origins []string
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		origins = append(origins, frontendURL)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(origins))
	router.Use(middleware.RateLimit(rateLimitRPS, rateLimitBurst))

	s := &Server{
		router:      router,
		port:        port,
		client:      &http.Client{Timeout: 30 * time.Second},
		serviceURLs: urls,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Handler はHTTPハンドラを返す。テストやhttptestでの利用を想定する。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
// プレフィックスは重複しないため、宣言順のマッチで十分。
func (s *Server) setupRoutes() {
	// 認証サービスへの転送: /api/auth/* -> /auth/*
	s.router.Any("/api/auth/*path", s.handleProxy("auth-service", s.serviceURLs.Auth, "/auth"))
	// バックエンドサービスへの転送: /api/backend/* -> /api/*
	s.router.Any("/api/backend/*path", s.handleProxy("backend-service", s.serviceURLs.Backend, "/api"))

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "api-gateway",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// ルート情報
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "API Gateway",
			"version": "1.0.0",
			"endpoints": gin.H{
				"health":  "/health",
				"auth":    "/api/auth/*",
				"backend": "/api/backend/*",
			},
		})
	})

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ルートが見つかりません"})
	})
}

// handleProxy はマッチしたプレフィックスを書き換えて内部サービスに
// 転送するハンドラを返す。
func (s *Server) handleProxy(name, baseURL, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := baseURL + prefix + c.Param("path")
		if c.Request.URL.RawQuery != "" {
			target += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, name, target)
	}
}

// doProxy はリクエストを内部サービスに転送し、レスポンスをそのまま
// クライアントに中継する共通処理。転送先に到達できない場合は503を返す。
// 再試行は行わない（再試行の判断はクライアントに委ねる）。
func (s *Server) doProxy(c *gin.Context, name, url string) {
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, url, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "転送リクエストの作成に失敗しました"})
		log.Printf("転送リクエスト作成エラー: %v", err)
		return
	}

	// 元のリクエストヘッダーをそのまま転送する（Authorizationを含む）
	req.Header = c.Request.Header.Clone()
	for _, h := range hopByHopHeaders {
		req.Header.Del(h)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   fmt.Sprintf("%sが利用できません", name),
			"message": err.Error(),
		})
		log.Printf("転送エラー: service=%s, url=%s, error=%v", name, url, err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "レスポンスの読み取りに失敗しました"})
		log.Printf("レスポンス読み取りエラー: service=%s, error=%v", name, err)
		return
	}

	// レスポンスヘッダーをそのまま中継する
	for key, values := range resp.Header {
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	for _, h := range hopByHopHeaders {
		c.Writer.Header().Del(h)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, body)
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
