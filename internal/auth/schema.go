package auth

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。usernameの一意性はこの主キー制約で保証する。
const schema = `
CREATE TABLE IF NOT EXISTS users (
    -- ユーザーの一意識別子
    username TEXT PRIMARY KEY,
    -- メールアドレス
    email TEXT NOT NULL,
    -- bcryptでハッシュ化したパスワード
    password_hash TEXT NOT NULL,
    -- 作成日時（RFC3339形式）
    created_at TEXT NOT NULL
);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
