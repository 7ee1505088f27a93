// Package maps geocodes typed addresses so clients without a location pin
// can still request a fixer.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fixmate_backend/platform/config"
	"fixmate_backend/platform/geo"
	"fixmate_backend/platform/logger"
)

const (
	maxResults    = 5
	maxQueryRunes = 200
	userAgent     = "FixMate/1.0"
)

// ErrNoMatch is returned when an address resolves to nothing usable.
var ErrNoMatch = errors.New("address not found")

// Geocoder resolves addresses with a Nominatim search endpoint.
type Geocoder struct {
	client   *http.Client
	endpoint string
	country  string
	log      *logger.Logger
}

// NewGeocoder returns nil when no endpoint is configured.
func NewGeocoder(cfg config.GeocoderConfig, log *logger.Logger) *Geocoder {
	if cfg.GetGeocoderURL() == "" {
		return nil
	}
	return &Geocoder{
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: cfg.GetGeocoderURL(),
		country:  cfg.GetGeocoderCountry(),
		log:      log,
	}
}

// Search returns up to five places for the query, best match first.
func (g *Geocoder) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNoMatch
	}
	if runes := []rune(query); len(runes) > maxQueryRunes {
		query = string(runes[:maxQueryRunes])
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", strconv.Itoa(maxResults))
	if g.country != "" {
		params.Add("countrycodes", g.country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Error("geocoder request failed", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		g.log.Error("geocoder upstream error", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("geocoder upstream error: %d", resp.StatusCode)
	}

	var raw []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode geocoder payload: %w", err)
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		if place, ok := buildPlace(r); ok {
			places = append(places, place)
		}
	}
	return places, nil
}

// Geocode returns the best match for a free-text address.
func (g *Geocoder) Geocode(ctx context.Context, address string) (Place, error) {
	places, err := g.Search(ctx, address)
	if err != nil {
		return Place{}, err
	}
	if len(places) == 0 {
		return Place{}, ErrNoMatch
	}
	return places[0], nil
}

// Resolve returns the best match's location and a short label for it.
func (g *Geocoder) Resolve(ctx context.Context, address string) (geo.Point, string, error) {
	place, err := g.Geocode(ctx, address)
	if err != nil {
		return geo.Point{}, "", err
	}
	return place.Location, place.Label, nil
}

func buildPlace(raw nominatimResponse) (Place, bool) {
	lat, err := strconv.ParseFloat(raw.Lat, 64)
	if err != nil {
		return Place{}, false
	}
	lon, err := strconv.ParseFloat(raw.Lon, 64)
	if err != nil {
		return Place{}, false
	}
	point, err := geo.NewPoint(lat, lon)
	if err != nil {
		return Place{}, false
	}

	place := Place{
		Street:   strings.TrimSpace(raw.Address.HouseNumber + " " + raw.Address.Road),
		Suburb:   firstNonEmpty(raw.Address.Suburb, raw.Address.Neighbourhood),
		City:     firstNonEmpty(raw.Address.City, raw.Address.Town, raw.Address.Village, raw.Address.Municipality),
		Postcode: raw.Address.Postcode,
		Location: point,
	}
	place.Label = buildLabel(place, raw.DisplayName)
	return place, true
}

func buildLabel(place Place, fallback string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{place.Street, place.Suburb, place.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
