package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims はJWTトークンのクレーム（ペイロード）を表す。
// 認証済みユーザーの情報をサービス間で伝播するために使用する。
type Claims struct {
	jwt.RegisteredClaims
	// Username は認証済みユーザーの一意識別子。
	Username string `json:"username"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
}

// issuerName は発行者（iss クレーム）として埋め込むサービス名。
const issuerName = "authgate-auth"

// Issuer はJWTトークンの発行・検証を行う。
// 署名鍵と有効期限を保持し、認証サービスが所有する。
type Issuer struct {
	// secret はHMAC署名用の秘密鍵。
	secret []byte
	// ttl はトークンの有効期間。
	ttl time.Duration
}

// NewIssuer は新しいIssuerを生成する。
// ttlが0以下の場合はデフォルトの24時間を使用する。
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue はユーザー情報から署名付きJWTトークンを生成する。
// 有効期限は発行時刻からIssuerのttlが経過した時点。
func (i *Issuer) Issue(username, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			ID:        uuid.New().String(),
		},
		Username: username,
		Email:    email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Verify はトークン文字列を検証し、デコードしたクレームを返す。
// 署名が一致しない、形式が不正、または有効期限切れの場合はエラーを返す。
// ユーザーストアには一切問い合わせない（トークンと現在時刻と署名鍵のみで決まる）。
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("トークンの検証に失敗: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("トークンが無効")
	}
	return claims, nil
}
