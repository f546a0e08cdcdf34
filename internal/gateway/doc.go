// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、パスプレフィックスに
// 応じて認証サービスとバックエンドサービスにリクエストを転送する。
// ステートレスな中継器であり、トークンの検査や書き換えは行わない。
// Authorizationヘッダーはそのまま転送する。
package gateway
