// Package geo resolves report coordinates into administrative place names
// through a Nominatim-compatible reverse geocoder.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public OpenStreetMap instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 5 * time.Second

// Place is the result of a reverse lookup.
//
// Fields:
//   - DisplayName: full formatted address
//   - Desa: village (desa/kelurahan)
//   - Kecamatan: district
//   - Kabupaten: regency or city
type Place struct {
	DisplayName string `json:"displayName"`
	Desa        string `json:"desa"`
	Kecamatan   string `json:"kecamatan"`
	Kabupaten   string `json:"kabupaten"`
}

// Label joins the known administrative levels, most specific first.
func (p Place) Label() string {
	var parts []string
	for _, s := range []string{p.Desa, p.Kecamatan, p.Kabupaten} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Geocoder performs reverse lookups.
type Geocoder struct {
	baseURL    string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
}

// NewGeocoder creates a geocoder. Empty baseURL and non-positive timeout fall
// back to the defaults.
func NewGeocoder(baseURL string, timeout time.Duration) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Geocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		userAgent:  "pengaduan-dashboard/1.0",
		httpClient: &http.Client{},
	}
}

// nominatimResponse mirrors the fields of /reverse?format=jsonv2 we use.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		Village       string `json:"village"`
		Hamlet        string `json:"hamlet"`
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		CityDistrict  string `json:"city_district"`
		Municipality  string `json:"municipality"`
		Town          string `json:"town"`
		County        string `json:"county"`
		City          string `json:"city"`
		StateDistrict string `json:"state_district"`
	} `json:"address"`
}

// Reverse looks up lat/lon. The request is abandoned after the configured
// timeout even when ctx has no deadline.
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept-Language", "id")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocoder response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var r nominatimResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to parse geocoder response: %w", err)
	}
	if r.Error != "" {
		return nil, fmt.Errorf("geocoder: %s", r.Error)
	}

	a := r.Address
	return &Place{
		DisplayName: r.DisplayName,
		Desa:        firstNonEmpty(a.Village, a.Suburb, a.Hamlet, a.Neighbourhood),
		Kecamatan:   firstNonEmpty(a.CityDistrict, a.Municipality, a.Town),
		Kabupaten:   firstNonEmpty(a.County, a.City, a.StateDistrict),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
