// Package token はJWTアクセストークンの発行と検証を提供する。
//
// 認証サービスがログイン成功時にトークンを発行し、後続のリクエストで
// 検証する。検証は署名と有効期限のみで完結する純粋関数であり、
// ユーザーストアへの問い合わせは行わない。そのためトークンの失効
// （ログアウト・漏洩時の無効化）は有効期限切れ以外に手段がない。
// これは検証をステートレスに保つための意図的な制約である。
package token
