// Package geocode resolves US zip codes to coordinates through the public
// Zippopotam API. Callers decide fail-open vs fail-closed when a lookup
// fails; this client only reports the error.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const lookupTimeout = 5 * time.Second

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// ErrBadZip marks input rejected before any lookup is attempted. Callers
// that fail open on lookup errors must not fail open on this one.
var ErrBadZip = errors.New("invalid zip code")

// Result is one resolved zip code.
type Result struct {
	Zip       string
	City      string
	State     string
	StateAbbr string
	Latitude  float64
	Longitude float64
}

// Client is a thin HTTP client for the zip lookup API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given base URL (e.g.
// "https://api.zippopotam.us").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: lookupTimeout},
	}
}

type zipResponse struct {
	PostCode string `json:"post code"`
	Places   []struct {
		PlaceName string `json:"place name"`
		State     string `json:"state"`
		StateAbbr string `json:"state abbreviation"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"places"`
}

// LookupZip resolves a five-digit US zip code.
func (c *Client) LookupZip(ctx context.Context, zip string) (*Result, error) {
	if !zipPattern.MatchString(zip) {
		return nil, fmt.Errorf("%w: %q", ErrBadZip, zip)
	}

	url := fmt.Sprintf("%s/us/%s", c.baseURL, zip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build zip lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zip lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("unknown zip code: %s", zip)
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("zip", zip).Msg("Zip lookup returned unexpected status")
		return nil, fmt.Errorf("zip lookup status %d", resp.StatusCode)
	}

	var body zipResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode zip lookup response: %w", err)
	}
	if len(body.Places) == 0 {
		return nil, fmt.Errorf("zip lookup returned no places for %s", zip)
	}

	place := body.Places[0]
	lat, err := strconv.ParseFloat(place.Latitude, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", place.Latitude, err)
	}
	lon, err := strconv.ParseFloat(place.Longitude, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", place.Longitude, err)
	}

	return &Result{
		Zip:       zip,
		City:      place.PlaceName,
		State:     place.State,
		StateAbbr: place.StateAbbr,
		Latitude:  lat,
		Longitude: lon,
	}, nil
}
