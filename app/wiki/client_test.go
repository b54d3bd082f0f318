package wiki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestServer(t *testing.T, pageHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/auth", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if payload["api_key_id"] != "key" || payload["secret"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-1", "status": "ok"})
	})
	mux.HandleFunc("/w/page/", pageHandler)
	return httptest.NewServer(mux)
}

func newTestClient(serverURL string) *Client {
	return NewClient(Config{WikiID: "w", BaseURL: serverURL}, "key", "secret", "wiki-watch-test")
}

func TestGetPage(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(PageData{
			Page:      "テストページ",
			Timestamp: "2024-01-02T03:04:05",
			Source:    "* 見出し\n本文",
		})
	})
	defer server.Close()

	page, err := newTestClient(server.URL).GetPage(context.Background(), "テストページ")
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if page.Page != "テストページ" {
		t.Errorf("Expected page title, got: %q", page.Page)
	}
	if page.Source != "* 見出し\n本文" {
		t.Errorf("Expected page source, got: %q", page.Source)
	}
}

func TestGetPageHTTPError(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	if _, err := newTestClient(server.URL).GetPage(context.Background(), "Missing"); err == nil {
		t.Error("Expected error for 404 response")
	}
}

func TestGetPageRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(PageData{Page: "P", Timestamp: "t", Source: "body"})
	})
	defer server.Close()

	page, err := newTestClient(server.URL).GetPage(context.Background(), "P")
	if err != nil {
		t.Fatalf("Expected retry to succeed, got: %v", err)
	}
	if page.Source != "body" {
		t.Errorf("Expected body from retried request, got: %q", page.Source)
	}
	if calls.Load() < 2 {
		t.Errorf("Expected at least 2 page requests, got: %d", calls.Load())
	}
}

func TestTokenReusedAcrossRequests(t *testing.T) {
	var authCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/w/auth", func(w http.ResponseWriter, r *http.Request) {
		authCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	})
	mux.HandleFunc("/w/page/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PageData{Page: "P", Timestamp: "t", Source: "s"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 3; i++ {
		if _, err := client.GetPage(context.Background(), "P"); err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
	}
	if authCalls.Load() != 1 {
		t.Errorf("Expected a single auth call, got: %d", authCalls.Load())
	}
}

func TestListPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/w/auth", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-1", "status": "ok"})
	})
	mux.HandleFunc("/w/pages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PageList{Pages: []PageSummary{
			{Page: "イベント一覧", Timestamp: "2024-01-02T03:04:05"},
			{Page: "お知らせ", Timestamp: "2024-01-03T00:00:00"},
		}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	list, err := newTestClient(server.URL).ListPages(context.Background())
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if len(list.Pages) != 2 {
		t.Fatalf("Expected 2 pages, got: %d", len(list.Pages))
	}
	if list.Pages[0].Page != "イベント一覧" {
		t.Errorf("Expected first page name, got: %q", list.Pages[0].Page)
	}
}
