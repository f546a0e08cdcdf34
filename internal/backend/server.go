package backend

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/authgate/pkg/middleware"
)

// Server はバックエンドサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はレコードストア。
	store *Store
	// db はSQLiteデータベース接続。
	db *sql.DB
	// verifier は認証サービスへのトークン検証クライアント。
	verifier *middleware.Verifier
}

// NewServer は新しいバックエンドサーバーを生成する。
// レコードストアはインメモリSQLiteで構築するため、プロセス再起動で
// レコードは失われる。
func NewServer(port string) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// :memory: は接続ごとに独立したDBになるため、接続を1本に固定する。
	// これにより書き込みも直列化される。
	sqlDB.SetMaxOpenConns(1)

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	verifyTimeout := 5 * time.Second
	if v := os.Getenv("AUTH_VERIFY_TIMEOUT"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("AUTH_VERIFY_TIMEOUTの解析に失敗: %w", err)
		}
		verifyTimeout = parsed
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(nil))

	s := &Server{
		router:   router,
		port:     port,
		store:    NewStore(sqlDB),
		db:       sqlDB,
		verifier: middleware.NewVerifier(getEnvOr("AUTH_SERVICE_URL", "http://localhost:8081"), verifyTimeout),
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
// /api配下はすべて認証サービスへのトークン検証を通過したリクエストのみ実行できる。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.Use(middleware.RemoteAuth(s.verifier))
	{
		data := api.Group("/data")
		{
			// レコード一覧取得
			data.GET("", s.handleList())
			// レコード作成
			data.POST("", s.handleCreate())
			// レコード詳細取得
			data.GET("/:id", s.handleGetByID())
			// レコード更新（部分更新）
			data.PUT("/:id", s.handleUpdate())
			// レコード削除
			data.DELETE("/:id", s.handleDelete())
		}
	}

	// ヘルスチェック（認証不要）
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "backend-service",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ルートが見つかりません"})
	})
}

// createDataRequest はレコード作成リクエストのJSON構造。
type createDataRequest struct {
	// Title はタイトル。必須。
	Title string `json:"title" binding:"required"`
	// Description は説明。省略時は空文字列。
	Description string `json:"description"`
}

// updateDataRequest はレコード更新リクエストのJSON構造。
// nilのフィールドは更新対象外として既存の値を維持する。
type updateDataRequest struct {
	// Title はタイトル。
	Title *string `json:"title"`
	// Description は説明。
	Description *string `json:"description"`
}

// parseID はパスパラメータのIDを数値に変換する。
// 数値でないIDを持つレコードは存在しないため、変換失敗は404として扱う。
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "レコードが見つかりません"})
		return 0, false
	}
	return id, true
}

// handleList はレコード一覧取得を処理するハンドラを返す。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := s.store.ListRecords(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "レコード一覧の取得に失敗しました"})
			log.Printf("レコード一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"count":   len(records),
			"data":    records,
		})
	}
}

// handleGetByID はレコード詳細取得を処理するハンドラを返す。
func (s *Server) handleGetByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		record, err := s.store.GetRecord(c.Request.Context(), id)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "レコードが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "レコードの取得に失敗しました"})
			log.Printf("レコード取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    record,
		})
	}
}

// handleCreate はレコード作成を処理するハンドラを返す。
// 作成者には認証済みユーザー名を記録する。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createDataRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "タイトルは必須です"})
			return
		}

		record, err := s.store.CreateRecord(c.Request.Context(), req.Title, req.Description, middleware.GetUsername(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "レコードの作成に失敗しました"})
			log.Printf("レコード作成エラー: %v", err)
			return
		}

		log.Printf("レコードを作成しました: id=%d, user=%s", record.ID, record.CreatedBy)
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "レコードを作成しました",
			"data":    record,
		})
	}
}

// handleUpdate はレコードの部分更新を処理するハンドラを返す。
// リクエストに含まれるフィールドのみ変更し、更新日時は常に更新する。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req updateDataRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		var title, description sql.NullString
		if req.Title != nil && *req.Title != "" {
			title = sql.NullString{String: *req.Title, Valid: true}
		}
		if req.Description != nil {
			description = sql.NullString{String: *req.Description, Valid: true}
		}

		record, err := s.store.UpdateRecord(c.Request.Context(), id, title, description)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "レコードが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "レコードの更新に失敗しました"})
			log.Printf("レコード更新エラー: %v", err)
			return
		}

		log.Printf("レコードを更新しました: id=%d, user=%s", id, middleware.GetUsername(c))
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "レコードを更新しました",
			"data":    record,
		})
	}
}

// handleDelete はレコード削除を処理するハンドラを返す。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		err := s.store.DeleteRecord(c.Request.Context(), id)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "レコードが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "レコードの削除に失敗しました"})
			log.Printf("レコード削除エラー: %v", err)
			return
		}

		log.Printf("レコードを削除しました: id=%d, user=%s", id, middleware.GetUsername(c))
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "レコードを削除しました",
		})
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
