package backend

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。AUTOINCREMENTにより、削除後もIDは再利用されない。
const schema = `
CREATE TABLE IF NOT EXISTS records (
    -- レコードの一意識別子（単調増加）
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    -- タイトル
    title TEXT NOT NULL,
    -- 説明
    description TEXT NOT NULL DEFAULT '',
    -- 作成したユーザー名
    created_by TEXT NOT NULL,
    -- 作成日時（RFC3339形式）
    created_at TEXT NOT NULL,
    -- 更新日時（RFC3339形式）
    updated_at TEXT NOT NULL
);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
