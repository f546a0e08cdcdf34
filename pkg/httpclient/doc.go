// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// バックエンドサービスが認証サービスのトークン検証APIを呼び出す際に
// 使用する。呼び出し元のAuthorizationヘッダーをコンテキスト経由で
// 伝播し、タイムアウトで待ち時間を制限する。
package httpclient
