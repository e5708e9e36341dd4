package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestAdminEndpoints は管理APIのエンドポイントをテストする
func TestAdminEndpoints(t *testing.T) {
	srv, err := New(testConfig(newTestRoot(t)))
	if err != nil {
		t.Fatalf("サーバーの作成に失敗しました: %v", err)
	}
	router := srv.AdminRouter()

	// テストケース
	testCases := []struct {
		name           string
		endpoint       string
		expectedStatus int
	}{
		{"ヘルスチェックエンドポイント", "/health", http.StatusOK},
		{"ステータスエンドポイント", "/api/status", http.StatusOK},
		{"未定義のエンドポイント", "/api/unknown", http.StatusNotFound},
	}

	// 各エンドポイントをテスト
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.endpoint, nil)
			router.ServeHTTP(w, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("予期しないステータスコード: got %d, want %d", w.Code, tc.expectedStatus)
			}
		})
	}
}

// TestAdminStatus はステータスに統計が含まれることをテストする
func TestAdminStatus(t *testing.T) {
	srv, addr := startTestServer(t, testConfig(newTestRoot(t)))

	get(t, addr, "/index.html")
	get(t, addr, "/missing")

	// 接続の記録は応答の送信後に行われる
	waitConnections(t, srv, 2)

	w := httptest.NewRecorder()
	srv.AdminRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("JSONのパースに失敗しました: %v", err)
	}

	if resp.Status != "running" {
		t.Errorf("状態が一致しません: got %s, want running", resp.Status)
	}
	if resp.Server.Address != addr {
		t.Errorf("アドレスが一致しません: got %s, want %s", resp.Server.Address, addr)
	}
	if resp.Server.Root == "" {
		t.Error("ルートが設定されていません")
	}
	if resp.Stats.Connections != 2 {
		t.Errorf("接続数が一致しません: got %d, want 2", resp.Stats.Connections)
	}
	if resp.Stats.Results["ok"] != 1 || resp.Stats.Results["not_found"] != 1 {
		t.Errorf("結果の件数が一致しません: %v", resp.Stats.Results)
	}
}

// waitConnections は記録された接続数が n に達するまで待つ
func waitConnections(t *testing.T, srv *Server, n int64) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for srv.Stats().Snapshot().Connections < n {
		if time.Now().After(deadline) {
			t.Fatalf("接続の記録がタイムアウトしました: got %d, want %d", srv.Stats().Snapshot().Connections, n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
