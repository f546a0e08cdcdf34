package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound は指定したIDのレコードが存在しない場合のエラー。
var ErrNotFound = errors.New("レコードが存在しない")

// Record はレコードストアに保存するレコード。
type Record struct {
	// ID はレコードの一意識別子。サービスが採番し、削除後も再利用しない。
	ID int64 `json:"id"`
	// Title はタイトル。
	Title string `json:"title"`
	// Description は説明。
	Description string `json:"description"`
	// CreatedBy は作成したユーザー名。
	CreatedBy string `json:"created_by"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
	// UpdatedAt は更新日時（RFC3339形式）。
	UpdatedAt string `json:"updated_at"`
}

// Store はレコードストア。バックエンドサービスのみが所有・更新する。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewStore は新しいレコードストアを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListRecords はすべてのレコードをID昇順で取得する。
func (s *Store) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, created_by, created_at, updated_at FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("レコード一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("レコードの読み取りに失敗: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レコード一覧の走査に失敗: %w", err)
	}
	return records, nil
}

// GetRecord はIDでレコードを取得する。
// 存在しない場合はErrNotFoundを返す。
func (s *Store) GetRecord(ctx context.Context, id int64) (Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, created_by, created_at, updated_at FROM records WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Title, &r.Description, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("レコードの取得に失敗: %w", err)
	}
	return r, nil
}

// CreateRecord は新しいレコードを登録し、採番されたIDを含むレコードを返す。
// IDの採番はINSERTと同一文で行われるため、同時に複数のレコードを
// 作成しても同じIDが割り当てられることはない。
func (s *Store) CreateRecord(ctx context.Context, title, description, createdBy string) (Record, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (title, description, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		title, description, createdBy, now, now,
	)
	if err != nil {
		return Record{}, fmt.Errorf("レコードの登録に失敗: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("採番されたIDの取得に失敗: %w", err)
	}
	return Record{
		ID:          id,
		Title:       title,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateRecord はレコードを部分更新する。
// titleまたはdescriptionが無効（NULL）の場合は既存の値を維持する。
// 更新日時は常に更新される。存在しない場合はErrNotFoundを返す。
func (s *Store) UpdateRecord(ctx context.Context, id int64, title, description sql.NullString) (Record, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records
		    SET title = COALESCE(?, title),
		        description = COALESCE(?, description),
		        updated_at = ?
		  WHERE id = ?`,
		title, description, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return Record{}, fmt.Errorf("レコードの更新に失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Record{}, fmt.Errorf("更新行数の取得に失敗: %w", err)
	}
	if affected == 0 {
		return Record{}, ErrNotFound
	}
	return s.GetRecord(ctx, id)
}

// DeleteRecord はIDでレコードを削除する。
// 存在しない場合はErrNotFoundを返す。
func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("レコードの削除に失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除行数の取得に失敗: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
