// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 認証サービスへのリモートトークン検証、パニックリカバリ、CORS設定、
// レート制限など、複数サービスで共通して使用するミドルウェアを含む。
package middleware
