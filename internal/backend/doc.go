// Package backend はバックエンドサービスの内部実装を提供する。
//
// レコードのCRUDを担当する。すべての操作は認証サービスへの
// トークン検証を通過したリクエストのみが実行でき、ハンドラ自身は
// トークンを再検証しない。レコードストアはこのサービスのみが
// 所有・更新する。
package backend
