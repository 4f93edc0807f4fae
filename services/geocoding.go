package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"payment-service/models"

	"go.uber.org/zap"
)

const defaultCountry = "Sri Lanka"

// Geocoder resolves a postal address to coordinates. A nil result means "no
// location available", never an error: callers must not fail on it.
type Geocoder interface {
	Geocode(ctx context.Context, address, city, country, postalCode string) *models.Coordinates
}

// GeocodingClient calls an external geocoding API over HTTP.
type GeocodingClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewGeocodingClient(baseURL, apiKey string, logger *zap.Logger) *GeocodingClient {
	return &GeocodingClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves address + city + country (+ optional postal code) to
// coordinates. On ZERO_RESULTS it retries once with the coarser city +
// country query. Every failure path returns nil after logging.
func (c *GeocodingClient) Geocode(ctx context.Context, address, city, country, postalCode string) *models.Coordinates {
	if c.apiKey == "" {
		c.logger.Warn("geocoding skipped: no API key configured")
		return nil
	}
	if country == "" {
		country = defaultCountry
	}

	query := compositeAddress(address, city, postalCode, country)
	coords, status := c.lookup(ctx, query)
	if coords != nil {
		return coords
	}

	// Coarser fallback when the full address matched nothing.
	if status == "ZERO_RESULTS" {
		fallback := compositeAddress("", city, "", country)
		if fallback != query {
			c.logger.Info("geocoding fallback to city-level query",
				zap.String("query", fallback))
			coords, _ = c.lookup(ctx, fallback)
			return coords
		}
	}
	return nil
}

func (c *GeocodingClient) lookup(ctx context.Context, query string) (*models.Coordinates, string) {
	reqURL := fmt.Sprintf("%s?address=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("geocoding request build failed", zap.Error(err))
		return nil, ""
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("geocoding request failed", zap.String("query", query), zap.Error(err))
		return nil, ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("geocoding API returned non-OK status",
			zap.String("query", query),
			zap.Int("status", resp.StatusCode))
		return nil, ""
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Error("geocoding response decode failed", zap.Error(err))
		return nil, ""
	}

	if body.Status != "OK" || len(body.Results) == 0 {
		c.logger.Warn("geocoding returned no results",
			zap.String("query", query),
			zap.String("api_status", body.Status))
		return nil, body.Status
	}

	loc := body.Results[0].Geometry.Location
	return &models.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, body.Status
}

// compositeAddress joins the non-empty address components with commas.
func compositeAddress(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(p))
		}
	}
	return strings.Join(nonEmpty, ", ")
}
