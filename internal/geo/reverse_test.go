package geo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "-6.9175" || q.Get("lon") != "107.6191" || q.Get("format") != "jsonv2" {
			t.Errorf("unexpected query %v", q)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("nominatim requires a user agent")
		}
		io.WriteString(w, `{
			"display_name": "Braga, Sumur Bandung, Kota Bandung, Jawa Barat",
			"address": {"village": "Braga", "city_district": "Sumur Bandung", "city": "Kota Bandung"}
		}`)
	}))
	defer srv.Close()

	place, err := NewGeocoder(srv.URL+"/", time.Second).Reverse(context.Background(), -6.9175, 107.6191)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place.Desa != "Braga" || place.Kecamatan != "Sumur Bandung" || place.Kabupaten != "Kota Bandung" {
		t.Errorf("unexpected place %+v", place)
	}
	if place.Label() != "Braga, Sumur Bandung, Kota Bandung" {
		t.Errorf("unexpected label %q", place.Label())
	}
}

func TestReverseErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"geocoder error", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"error":"Unable to geocode"}`)
		}},
		{"bad JSON", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `<html>`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			if _, err := NewGeocoder(srv.URL, time.Second).Reverse(context.Background(), 0, 0); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReverseTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewGeocoder(srv.URL, 50*time.Millisecond).Reverse(context.Background(), 1, 2)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("lookup was not bounded by the timeout: %v", elapsed)
	}
}

func TestNewGeocoderDefaults(t *testing.T) {
	g := NewGeocoder("", 0)
	if g.baseURL != DefaultBaseURL || g.timeout != DefaultTimeout {
		t.Errorf("unexpected defaults %+v", g)
	}
}
