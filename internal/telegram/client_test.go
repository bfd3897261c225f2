package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pengaduan/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("TOKEN", "42", false)
	c.APIURL = srv.URL
	return c
}

func TestNewClientDisabled(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		chatID string
	}{
		{"no token", "", "42"},
		{"no chat", "TOKEN", ""},
		{"nothing", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c := NewClient(tt.token, tt.chatID, false); c != nil {
				t.Errorf("expected nil client, got %+v", c)
			}
		})
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	ctx := context.Background()

	if _, err := c.SendMessage(ctx, "hi"); err != nil {
		t.Error(err)
	}
	if _, err := c.SendReport(ctx, &model.Report{ID: "r"}); err != nil {
		t.Error(err)
	}
	if err := c.SendTransition(ctx, "r", model.StatusPerluVerifikasi, model.StatusDitutup, "a"); err != nil {
		t.Error(err)
	}
	if err := c.SendPhoto(ctx, []byte{1}, "x"); err != nil {
		t.Error(err)
	}
	if err := c.SendCriticalAlert(ctx, "Poll Failure", "boom", 3); err != nil {
		t.Error(err)
	}
}

func TestSendMessage(t *testing.T) {
	var got Message
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"ok":true,"result":{"message_id":77}}`)
	})

	id, err := c.SendMessage(context.Background(), "halo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "77" {
		t.Errorf("expected message id 77, got %q", id)
	}
	if got.ChatID != "42" || got.Text != "halo" || got.ParseMode != "HTML" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":false,"description":"chat not found"}`)
	})

	_, err := c.SendMessage(context.Background(), "halo")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestSendTransitionEscapes(t *testing.T) {
	var got Message
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"ok":true,"result":{}}`)
	})

	err := c.SendTransition(context.Background(), "<rep>", model.StatusPerluVerifikasi, model.StatusDitutup, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.Text, "&lt;rep&gt;") || !strings.Contains(got.Text, "⛔") {
		t.Errorf("unexpected text %q", got.Text)
	}
}

func TestSendReport(t *testing.T) {
	var got Message
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"ok":true,"result":{"message_id":1}}`)
	})

	r := &model.Report{
		ID:        "rep-9",
		Message:   "Jalan rusak",
		User:      model.Reporter{Name: "Siti", Phone: "0812"},
		Location:  model.Location{Desa: "Sukamaju", Kabupaten: "Bandung"},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
	}
	id, err := c.SendReport(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if id != "1" {
		t.Errorf("expected message id 1, got %q", id)
	}
	for _, want := range []string{"rep-9", "Siti", "Jalan rusak", "Sukamaju, Bandung", "2024-01-02 03:04"} {
		if !strings.Contains(got.Text, want) {
			t.Errorf("expected %q in %q", want, got.Text)
		}
	}
}

func TestSendPhoto(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendPhoto" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart body: %v", err)
			return
		}
		if r.FormValue("chat_id") != "42" || r.FormValue("caption") != "Ringkasan" {
			t.Errorf("unexpected fields %v", r.MultipartForm.Value)
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("expected photo part: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "PNGDATA" {
			t.Errorf("unexpected photo bytes %q", data)
		}
		io.WriteString(w, `{"ok":true,"result":{}}`)
	})

	if err := c.SendPhoto(context.Background(), []byte("PNGDATA"), "Ringkasan"); err != nil {
		t.Fatal(err)
	}
}

func TestDebugModeSkipsNetwork(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("debug mode must not call the API")
	})
	c.DebugMode = true

	if _, err := c.SendMessage(context.Background(), "x"); err != nil {
		t.Error(err)
	}
	if err := c.SendPhoto(context.Background(), []byte("x"), "y"); err != nil {
		t.Error(err)
	}
}
