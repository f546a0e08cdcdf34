package backend

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
)

// newTestStore はテスト用のレコードストアをインメモリSQLiteで構築する。
func newTestStore(t *testing.T) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := initSchema(sqlDB); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}
	return NewStore(sqlDB)
}

// TestStoreCreateRecord はCreateRecordメソッドを検証する。
func TestStoreCreateRecord(t *testing.T) {
	t.Parallel()

	t.Run("作成したレコードが採番されたIDで取得できること", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		created, err := store.CreateRecord(t.Context(), "t1", "d1", "alice")
		if err != nil {
			t.Fatalf("CreateRecord()でエラーが発生: %v", err)
		}
		if created.ID != 1 {
			t.Errorf("ID = %d, want 1", created.ID)
		}

		got, err := store.GetRecord(t.Context(), created.ID)
		if err != nil {
			t.Fatalf("GetRecord()でエラーが発生: %v", err)
		}
		if got.Title != "t1" || got.Description != "d1" || got.CreatedBy != "alice" {
			t.Errorf("取得したレコード = %+v", got)
		}
	})

	t.Run("同時に作成してもIDが重複しないこと", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		const workers = 20

		var wg sync.WaitGroup
		ids := make(chan int64, workers)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				record, err := store.CreateRecord(t.Context(), "title", "", "alice")
				if err != nil {
					t.Errorf("CreateRecord()でエラーが発生: %v", err)
					return
				}
				ids <- record.ID
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[int64]struct{}, workers)
		for id := range ids {
			if _, ok := seen[id]; ok {
				t.Errorf("IDが重複した: %d", id)
			}
			seen[id] = struct{}{}
		}
		if len(seen) != workers {
			t.Errorf("採番されたID数 = %d, want %d", len(seen), workers)
		}
	})

	t.Run("削除後に作成してもIDが再利用されないこと", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		first, err := store.CreateRecord(t.Context(), "t1", "", "alice")
		if err != nil {
			t.Fatalf("CreateRecord()でエラーが発生: %v", err)
		}
		if err := store.DeleteRecord(t.Context(), first.ID); err != nil {
			t.Fatalf("DeleteRecord()でエラーが発生: %v", err)
		}

		second, err := store.CreateRecord(t.Context(), "t2", "", "alice")
		if err != nil {
			t.Fatalf("CreateRecord()でエラーが発生: %v", err)
		}
		if second.ID <= first.ID {
			t.Errorf("2件目のID = %d, want %dより大きい値", second.ID, first.ID)
		}
	})
}

// TestStoreUpdateRecord はUpdateRecordメソッドを検証する。
func TestStoreUpdateRecord(t *testing.T) {
	t.Parallel()

	t.Run("説明のみの更新でタイトルが維持されること", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		created, err := store.CreateRecord(t.Context(), "original-title", "original-desc", "alice")
		if err != nil {
			t.Fatalf("CreateRecord()でエラーが発生: %v", err)
		}

		updated, err := store.UpdateRecord(t.Context(), created.ID,
			sql.NullString{}, sql.NullString{String: "new-desc", Valid: true})
		if err != nil {
			t.Fatalf("UpdateRecord()でエラーが発生: %v", err)
		}
		if updated.Title != "original-title" {
			t.Errorf("Title = %q, want %q", updated.Title, "original-title")
		}
		if updated.Description != "new-desc" {
			t.Errorf("Description = %q, want %q", updated.Description, "new-desc")
		}
		if updated.CreatedAt != created.CreatedAt {
			t.Errorf("CreatedAt = %q, want %q", updated.CreatedAt, created.CreatedAt)
		}
	})

	t.Run("存在しないIDの更新がErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		_, err := store.UpdateRecord(t.Context(), 999,
			sql.NullString{String: "t", Valid: true}, sql.NullString{})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateRecord() = %v, want ErrNotFound", err)
		}
	})
}

// TestStoreDeleteRecord はDeleteRecordメソッドを検証する。
func TestStoreDeleteRecord(t *testing.T) {
	t.Parallel()

	t.Run("存在しないIDの削除がErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		if err := store.DeleteRecord(t.Context(), 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteRecord() = %v, want ErrNotFound", err)
		}
	})

	t.Run("二重削除の2回目がErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		created, err := store.CreateRecord(t.Context(), "t1", "", "alice")
		if err != nil {
			t.Fatalf("CreateRecord()でエラーが発生: %v", err)
		}

		if err := store.DeleteRecord(t.Context(), created.ID); err != nil {
			t.Fatalf("1回目のDeleteRecord()でエラーが発生: %v", err)
		}
		if err := store.DeleteRecord(t.Context(), created.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("2回目のDeleteRecord() = %v, want ErrNotFound", err)
		}
	})
}

// TestStoreListRecords はListRecordsメソッドを検証する。
func TestStoreListRecords(t *testing.T) {
	t.Parallel()

	t.Run("レコードがない場合は空のスライスが返ること", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		records, err := store.ListRecords(t.Context())
		if err != nil {
			t.Fatalf("ListRecords()でエラーが発生: %v", err)
		}
		if records == nil {
			t.Fatal("ListRecords()がnilを返した")
		}
		if len(records) != 0 {
			t.Errorf("レコード数 = %d, want 0", len(records))
		}
	})

	t.Run("作成した順にID昇順で返ること", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		for _, title := range []string{"t1", "t2", "t3"} {
			if _, err := store.CreateRecord(t.Context(), title, "", "alice"); err != nil {
				t.Fatalf("CreateRecord()でエラーが発生: %v", err)
			}
		}

		records, err := store.ListRecords(t.Context())
		if err != nil {
			t.Fatalf("ListRecords()でエラーが発生: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("レコード数 = %d, want 3", len(records))
		}
		for i, r := range records {
			if r.ID != int64(i+1) {
				t.Errorf("records[%d].ID = %d, want %d", i, r.ID, i+1)
			}
		}
	})
}
