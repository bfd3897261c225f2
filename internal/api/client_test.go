package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	apperrors "pengaduan/internal/errors"
	"pengaduan/internal/model"
	"pengaduan/internal/ratelimit"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestUpdateTindakan(t *testing.T) {
	var received model.Tindakan
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/tindakan/rep1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"status":"Verifikasi Situasi","processed_by":"65a1b2c3d4e5f60718293a4b"}}`)
	})

	c := New(srv.URL+"/api/", WithToken("secret"))
	stored, err := c.UpdateTindakan(context.Background(), "rep1", &model.Tindakan{Status: model.StatusVerifikasiSituasi})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Status != model.StatusVerifikasiSituasi {
		t.Errorf("server received status %q", received.Status)
	}
	if stored.ProcessedByID() != "65a1b2c3d4e5f60718293a4b" {
		t.Errorf("expected processed_by to be decoded from envelope, got %+v", stored.ProcessedBy)
	}
}

func TestUpdateProcessedBy(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/tindakan/rep1/processed-by" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["userLoginId"] != "65a1b2c3d4e5f60718293a4b" {
			t.Errorf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	c := New(srv.URL)
	if err := c.UpdateProcessedBy(context.Background(), "rep1", "65a1b2c3d4e5f60718293a4b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestKesimpulanEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *Client) ([]model.Kesimpulan, error)
		method   string
		path     string
		response string
	}{
		{
			name:     "add",
			call:     func(c *Client) ([]model.Kesimpulan, error) { return c.AddKesimpulan(context.Background(), "act1", "baru") },
			method:   http.MethodPost,
			path:     "/tindakan/act1/kesimpulan",
			response: `[{"text":"lama"},{"text":"baru"}]`,
		},
		{
			name:     "edit",
			call:     func(c *Client) ([]model.Kesimpulan, error) { return c.EditKesimpulan(context.Background(), "act1", 1, "ubah") },
			method:   http.MethodPut,
			path:     "/tindakan/act1/kesimpulan/1",
			response: `{"kesimpulan":[{"text":"lama"},{"text":"ubah"}]}`,
		},
		{
			name:     "delete",
			call:     func(c *Client) ([]model.Kesimpulan, error) { return c.DeleteKesimpulan(context.Background(), "act1", 0) },
			method:   http.MethodDelete,
			path:     "/tindakan/act1/kesimpulan/0",
			response: `{"data":{"kesimpulan":[{"text":"ubah"}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tt.method || r.URL.Path != tt.path {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				io.WriteString(w, tt.response)
			})

			list, err := tt.call(New(srv.URL))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(list) == 0 {
				t.Fatal("expected a non-empty list")
			}
			if list[len(list)-1].Text == "" {
				t.Errorf("expected decoded text, got %+v", list)
			}
		})
	}
}

func TestAPIErrorOnNon2xx(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"message":"database down"}`)
	})

	_, err := New(srv.URL).GetReport(context.Background(), "rep1")
	if !apperrors.IsAPI(err) {
		t.Fatalf("expected APIError, got %v", err)
	}
	var apiErr *apperrors.APIError
	errors.As(err, &apiErr)
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Body != "database down" {
		t.Errorf("unexpected APIError %+v", apiErr)
	}
}

func TestRateLimitedRequestsNeverReachTheServer(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"_id":"rep1"}`)
	})

	limiter := ratelimit.NewLimiter(time.Minute, 2)
	c := New(srv.URL, WithGate(limiter))

	for i := 0; i < 2; i++ {
		if _, err := c.GetReport(context.Background(), "rep1"); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}

	_, err := c.GetReport(context.Background(), "rep1")
	if !apperrors.IsRateLimited(err) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if apperrors.IsAPI(err) {
		t.Error("a local denial must not look like a backend error")
	}
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("expected 2 requests at the server, got %d", got)
	}

	// A different path has its own key.
	if _, err := c.GetReport(context.Background(), "rep2"); err != nil {
		t.Errorf("different key should pass: %v", err)
	}
}

func TestSetModeUsesStrictLimiter(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mode/auto-verifikasi" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	general := ratelimit.NewLimiter(time.Minute, 15)
	mode := ratelimit.NewLimiter(30*time.Second, 1)
	c := New(srv.URL+"/api", WithGate(general), WithModeGate(mode))

	if err := c.SetMode(context.Background(), "auto-verifikasi", true); err != nil {
		t.Fatalf("first toggle should pass: %v", err)
	}
	err := c.SetMode(context.Background(), "auto-verifikasi", false)
	if !apperrors.IsRateLimited(err) {
		t.Fatalf("second toggle should be refused by the mode limiter, got %v", err)
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Errorf("expected exactly one toggle at the server, got %d", atomic.LoadInt32(hits))
	}
	if general.Count("PUT-/api/mode/auto-verifikasi") != 1 {
		t.Error("the refused toggle must not consume the general budget")
	}
}

func TestListReports(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "10" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			io.WriteString(w, `{"data":[{"_id":"a"},{"_id":"b"}],"page":2,"limit":10,"totalCount":12,"totalPages":2}`)
		})

		page, err := New(srv.URL).ListReports(context.Background(), 2, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Data) != 2 || page.TotalPages != 2 {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("bare array", func(t *testing.T) {
		srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[{"_id":"a"}]`)
		})

		page, err := New(srv.URL).ListReports(context.Background(), 1, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Data) != 1 || page.TotalPages != 1 {
			t.Errorf("unexpected page %+v", page)
		}
	})
}

func TestErrorMessageTruncation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
	}{
		{"ascii", strings.Repeat("a", maxErrorBody+10), maxErrorBody},
		{"rune across the cut", strings.Repeat("a", maxErrorBody-1) + "éééé", maxErrorBody - 1},
		{"emoji across the cut", strings.Repeat("a", maxErrorBody-2) + "🚨🚨", maxErrorBody - 2},
		{"json message wins", `{"message":"laporan tidak ditemukan"}`, len("laporan tidak ditemukan")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorMessage([]byte(tt.body))
			if !utf8.ValidString(got) {
				t.Errorf("message is not valid UTF-8: %q", got[len(got)-4:])
			}
			if len(got) != tt.wantLen {
				t.Errorf("expected length %d, got %d", tt.wantLen, len(got))
			}
		})
	}
}
