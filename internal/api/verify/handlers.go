// Package verify serves the service-area verification endpoints used by
// the registration flow.
package verify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wcshoops/courtside/internal/api/apiutil"
	"github.com/wcshoops/courtside/internal/geo"
	"github.com/wcshoops/courtside/internal/geocode"
)

const verifyTimeout = 5 * time.Second

// ZipResolver is the external geocoding collaborator. Implemented by
// geocode.Client; stubbed in tests.
type ZipResolver interface {
	LookupZip(ctx context.Context, zip string) (*geocode.Result, error)
}

// Handlers serves POST /api/v1/verify/location and /api/v1/verify/zip.
type Handlers struct {
	area     geo.ServiceAreaConfig
	resolver ZipResolver
}

func NewHandlers(area geo.ServiceAreaConfig, resolver ZipResolver) *Handlers {
	return &Handlers{area: area, resolver: resolver}
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Region    string  `json:"region"`
}

type verifyResponse struct {
	Allowed       bool          `json:"allowed"`
	Reason        string        `json:"reason,omitempty"`
	DistanceMiles float64       `json:"distance_miles"`
	Location      *locationInfo `json:"location,omitempty"`
}

type locationInfo struct {
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	Zip   string `json:"zip,omitempty"`
}

// HandleVerifyLocation checks a raw coordinate pair (typically from browser
// geolocation) against the service area.
func (h *Handlers) HandleVerifyLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}

	decision := h.area.Decide(req.Latitude, req.Longitude, true, req.Region)

	log.Ctx(r.Context()).Info().
		Bool("allowed", decision.Allowed).
		Str("reason", decision.Reason).
		Float64("distance_miles", decision.DistanceMiles).
		Msg("Location verified")

	apiutil.WriteJSON(w, http.StatusOK, verifyResponse{
		Allowed:       decision.Allowed,
		Reason:        decision.Reason,
		DistanceMiles: decision.DistanceMiles,
	})
}

type zipRequest struct {
	Zip string `json:"zip"`
}

// HandleVerifyZip resolves a zip code through the geocoding collaborator
// and checks the result against the service area.
//
// Policy: FAIL OPEN. When the lookup itself fails we grant access rather
// than block a legitimate family over a geocoding outage. Inherited
// behavior; flip deliberately if the posture ever changes.
func (h *Handlers) HandleVerifyZip(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req zipRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, "Invalid request body")
		return
	}
	if req.Zip == "" {
		apiutil.BadRequest(w, "Zip code is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), verifyTimeout)
	defer cancel()

	result, err := h.resolver.LookupZip(ctx, req.Zip)
	if err != nil {
		// Malformed input is the caller's fault, not an outage.
		if errors.Is(err, geocode.ErrBadZip) {
			apiutil.BadRequest(w, "Zip code must be five digits")
			return
		}
		logger.Warn().Err(err).Str("zip", req.Zip).Msg("Zip lookup failed, failing open")
		apiutil.WriteJSON(w, http.StatusOK, verifyResponse{
			Allowed: true,
			Reason:  "geo_unavailable",
		})
		return
	}

	decision := h.area.Decide(result.Latitude, result.Longitude, true, result.StateAbbr)

	logger.Info().
		Str("zip", req.Zip).
		Bool("allowed", decision.Allowed).
		Str("reason", decision.Reason).
		Float64("distance_miles", decision.DistanceMiles).
		Msg("Zip verified")

	apiutil.WriteJSON(w, http.StatusOK, verifyResponse{
		Allowed:       decision.Allowed,
		Reason:        decision.Reason,
		DistanceMiles: decision.DistanceMiles,
		Location: &locationInfo{
			City:  result.City,
			State: result.StateAbbr,
			Zip:   result.Zip,
		},
	})
}
