package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicate は同じユーザー名が既に登録されている場合のエラー。
var ErrDuplicate = errors.New("ユーザーは既に存在する")

// ErrNotFound はユーザーが存在しない場合のエラー。
var ErrNotFound = errors.New("ユーザーが存在しない")

// User は認証情報ストアに保存するユーザーレコード。
// 登録後に更新・削除されることはない。
type User struct {
	// Username はユーザーの一意識別子。
	Username string
	// Email はメールアドレス。
	Email string
	// PasswordHash はbcryptでハッシュ化したパスワード。
	PasswordHash string
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string
}

// Store は認証情報ストア。認証サービスのみが所有・更新する。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewStore は新しい認証情報ストアを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateUser はユーザーレコードを登録する。
// 同じユーザー名が既に存在する場合はErrDuplicateを返す。
// 一意性は主キー制約で保証されるため、同時に同じユーザー名を
// 登録しても成功するのは1件のみ。
func (s *Store) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}
	return nil
}

// GetUser はユーザー名でユーザーレコードを取得する。
// 存在しない場合はErrNotFoundを返す。
func (s *Store) GetUser(ctx context.Context, username string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT username, email, password_hash, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return user, nil
}
