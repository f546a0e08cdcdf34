package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("クライアントが正常に生成されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8081", 3*time.Second)
		if client == nil {
			t.Fatal("New()がnilを返した")
		}
		if client.baseURL != "http://localhost:8081" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8081")
		}
		if client.httpClient.Timeout != 3*time.Second {
			t.Errorf("Timeout = %v, want %v", client.httpClient.Timeout, 3*time.Second)
		}
	})

	t.Run("タイムアウトに0以下を指定した場合はデフォルトの5秒になること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8081", 0)
		if client.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", client.httpClient.Timeout, 5*time.Second)
		}
	})
}

// TestClientGetJSON はGetJSONメソッドを検証する。
func TestClientGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("レスポンスボディがデシリアライズされること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("Method = %q, want %q", r.Method, http.MethodGet)
			}
			if r.URL.Path != "/auth/verify" {
				t.Errorf("Path = %q, want %q", r.URL.Path, "/auth/verify")
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"valid":true}`))
		}))
		t.Cleanup(ts.Close)

		var result struct {
			Valid bool `json:"valid"`
		}
		client := New(ts.URL, time.Second)
		if err := client.GetJSON(t.Context(), "/auth/verify", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if !result.Valid {
			t.Error("validフィールドがデシリアライズされていない")
		}
	})

	t.Run("コンテキストのAuthorizationヘッダーが転送されること", func(t *testing.T) {
		t.Parallel()

		var gotAuth string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{}`))
		}))
		t.Cleanup(ts.Close)

		client := New(ts.URL, time.Second)
		ctx := WithAuthorization(t.Context(), "Bearer token-123")
		if err := client.GetJSON(ctx, "/auth/verify", nil); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if gotAuth != "Bearer token-123" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer token-123")
		}
	})

	t.Run("2xx以外のステータスでStatusErrorが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"valid":false}`))
		}))
		t.Cleanup(ts.Close)

		client := New(ts.URL, time.Second)
		err := client.GetJSON(t.Context(), "/auth/verify", nil)
		if err == nil {
			t.Fatal("GetJSON()がエラーを返さなかった")
		}

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("StatusErrorではないエラーが返った: %v", err)
		}
		if statusErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusUnauthorized)
		}
	})

	t.Run("接続先が存在しない場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
		ts.Close() // 即座に閉じて到達不能にする

		client := New(ts.URL, time.Second)
		if err := client.GetJSON(t.Context(), "/auth/verify", nil); err == nil {
			t.Error("到達不能なサービスへのGetJSON()が成功してしまった")
		}
	})

	t.Run("タイムアウトを超えた場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(300 * time.Millisecond)
			w.Write([]byte(`{}`))
		}))
		t.Cleanup(ts.Close)

		client := New(ts.URL, 50*time.Millisecond)
		if err := client.GetJSON(context.Background(), "/auth/verify", nil); err == nil {
			t.Error("タイムアウトすべきGetJSON()が成功してしまった")
		}
	})
}
