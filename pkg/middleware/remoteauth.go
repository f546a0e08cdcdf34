package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/authgate/pkg/httpclient"
)

// VerifiedUser は認証サービスが検証したユーザー情報。
// 1リクエストの処理中のみ存在し、永続化されない。
type VerifiedUser struct {
	// Username はユーザーの一意識別子。
	Username string `json:"username"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
}

// Verifier は認証サービスにトークン検証を委譲するクライアント。
// 検証結果はキャッシュせず、呼び出しごとに認証サービスへ問い合わせる。
type Verifier struct {
	// client は認証サービスへのHTTPクライアント。
	client *httpclient.Client
}

// NewVerifier は新しいVerifierを生成する。
// authURLには認証サービスのベースURL、timeoutには検証呼び出しの
// 待ち時間上限を指定する。タイムアウト超過は検証失敗として扱う。
func NewVerifier(authURL string, timeout time.Duration) *Verifier {
	return &Verifier{client: httpclient.New(authURL, timeout)}
}

// verifyResponse は認証サービスの検証APIのレスポンス構造。
type verifyResponse struct {
	// Valid はトークンが有効かどうか。
	Valid bool `json:"valid"`
	// User は検証済みユーザー情報。
	User VerifiedUser `json:"user"`
}

// Verify はAuthorizationヘッダーの値を認証サービスに送り、検証結果を返す。
// トークンが無効な場合も認証サービスに到達できない場合も一律エラーを返す
// （不確実な状態は拒否に倒す）。
func (v *Verifier) Verify(ctx context.Context, authHeader string) (*VerifiedUser, error) {
	ctx = httpclient.WithAuthorization(ctx, authHeader)

	var resp verifyResponse
	if err := v.client.GetJSON(ctx, "/auth/verify", &resp); err != nil {
		return nil, fmt.Errorf("トークン検証の呼び出しに失敗: %w", err)
	}
	if !resp.Valid || resp.User.Username == "" {
		return nil, fmt.Errorf("トークンが無効と判定された")
	}
	return &resp.User, nil
}

// RemoteAuth は認証サービスへの問い合わせでトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "username" と "email" を設定する。
// ヘッダーの欠落・検証失敗・認証サービスへの到達失敗はいずれも401を返す。
func RemoteAuth(verifier *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		user, err := verifier.Verify(c.Request.Context(), authHeader)
		if err != nil {
			log.Printf("トークン検証エラー: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "認証に失敗しました",
			})
			return
		}

		c.Set("username", user.Username)
		c.Set("email", user.Email)
		c.Next()
	}
}

// GetUsername はGinコンテキストから認証済みユーザー名を取得する。
// RemoteAuthミドルウェアが事前に適用されている必要がある。
func GetUsername(c *gin.Context) string {
	username, _ := c.Get("username")
	if name, ok := username.(string); ok {
		return name
	}
	return ""
}
