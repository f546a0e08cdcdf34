// Package auth は認証サービスの内部実装を提供する。
//
// ユーザー登録・ログイン・トークン検証を担当する。認証情報の
// 唯一の管理者であり、JWTトークンの発行元。トークンの検証は
// 署名と有効期限のみで完結するため、他サービスは認証情報の
// ストアを共有せずに検証を委譲できる。
package auth
