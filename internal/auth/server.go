package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/nao1215/authgate/pkg/middleware"
	"github.com/nao1215/authgate/pkg/token"
)

// invalidCredentialsMessage はログイン失敗時のエラーメッセージ。
// ユーザーが存在しない場合とパスワードが誤っている場合で同じ文言を
// 返し、ユーザー名の存在を推測できないようにする。
const invalidCredentialsMessage = "認証情報が正しくありません"

// Server は認証サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は認証情報ストア。
	store *Store
	// db はSQLiteデータベース接続。
	db *sql.DB
	// issuer はJWTトークンの発行・検証を行う。
	issuer *token.Issuer
}

// NewServer は新しい認証サーバーを生成する。
// 認証情報ストアはインメモリSQLiteで構築するため、プロセス再起動で
// 登録済みユーザーは失われる。発行済みトークンは検証時にストアを
// 参照しないため、再起動後も有効期限までは検証を通過する。
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

	ttl := 24 * time.Hour
	if v := os.Getenv("JWT_EXPIRY"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("JWT_EXPIRYの解析に失敗: %w", err)
		}
		ttl = parsed
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(nil))

	s := &Server{
		router: router,
		port:   port,
		store:  NewStore(sqlDB),
		db:     sqlDB,
		issuer: token.NewIssuer(getEnvOr("JWT_SECRET", "dev-secret-key"), ttl),
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
func (s *Server) setupRoutes() {
	auth := s.router.Group("/auth")
	{
		// ユーザー登録
		auth.POST("/register", s.handleRegister())
		// ログイン（トークン発行）
		auth.POST("/login", s.handleLogin())
		// トークン検証
		auth.GET("/verify", s.handleVerify())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "auth-service",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ルートが見つかりません"})
	})
}

// registerRequest はユーザー登録リクエストのJSON構造。
type registerRequest struct {
	// Username はユーザーの一意識別子。
	Username string `json:"username" binding:"required"`
	// Password は平文パスワード。保存前にハッシュ化される。
	Password string `json:"password" binding:"required"`
	// Email はメールアドレス。
	Email string `json:"email" binding:"required"`
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// Username はユーザーの一意識別子。
	Username string `json:"username" binding:"required"`
	// Password は平文パスワード。
	Password string `json:"password" binding:"required"`
}

// handleRegister はユーザー登録を処理するハンドラを返す。
// パスワードはbcryptでハッシュ化して保存し、平文は保持しない。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ユーザー名・パスワード・メールアドレスは必須です"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー登録に失敗しました"})
			log.Printf("パスワードハッシュ化エラー: %v", err)
			return
		}

		err = s.store.CreateUser(c.Request.Context(), User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		})
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "ユーザーは既に存在します"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー登録に失敗しました"})
			log.Printf("ユーザー登録エラー: %v", err)
			return
		}

		log.Printf("ユーザーを登録しました: %s", req.Username)
		c.JSON(http.StatusCreated, gin.H{
			"message":  "ユーザー登録が完了しました",
			"username": req.Username,
			"email":    req.Email,
		})
	}
}

// handleLogin はログインを処理するハンドラを返す。
// 認証情報が一致した場合のみJWTトークンを発行する。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ユーザー名とパスワードは必須です"})
			return
		}

		user, err := s.store.GetUser(c.Request.Context(), req.Username)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				log.Printf("ユーザー取得エラー: %v", err)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentialsMessage})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentialsMessage})
			return
		}

		tokenStr, err := s.issuer.Issue(user.Username, user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ログインに失敗しました"})
			log.Printf("トークン発行エラー: %v", err)
			return
		}

		log.Printf("ユーザーがログインしました: %s", user.Username)
		c.JSON(http.StatusOK, gin.H{
			"message": "ログインに成功しました",
			"token":   tokenStr,
			"user": gin.H{
				"username": user.Username,
				"email":    user.Email,
			},
		})
	}
}

// handleVerify はトークン検証を処理するハンドラを返す。
// 署名と有効期限のみを確認し、認証情報ストアには問い合わせない。
// 副作用はない。
func (s *Server) handleVerify() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "トークンがありません"})
			return
		}

		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "Bearer トークン形式が不正です"})
			return
		}

		claims, err := s.issuer.Verify(tokenStr)
		if err != nil {
			log.Printf("トークン検証エラー: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "トークンが無効または期限切れです"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"valid": true,
			"user": gin.H{
				"username": claims.Username,
				"email":    claims.Email,
			},
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
