package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api"
	defaultTimeout = 10 * time.Second

	// DetailsFields is the field mask requested from Place Details.
	DetailsFields = "place_id,name,rating,user_ratings_total,price_level,types,business_status,geometry/location"
)

// API statuses returned in the JSON body.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusNotFound       = "NOT_FOUND"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
)

// Client performs Google Maps Geocoding and Places (legacy JSON) operations.
// Every call is a single attempt bounded by the client timeout.
type Client interface {
	Geocode(ctx context.Context, req GeocodeRequest) ([]GeocodeResult, error)
	NearbySearch(ctx context.Context, req NearbySearchRequest) ([]Place, error)
	PlaceDetails(ctx context.Context, placeID string) (*Place, error)
}

// GeocodeRequest resolves either a place id or a free-form address. When
// PlaceID is set the address and country bias are ignored.
type GeocodeRequest struct {
	Address     string
	PlaceID     string
	CountryBias string
}

// NearbySearchRequest is a radius search around a point.
type NearbySearchRequest struct {
	Lat     float64
	Lng     float64
	RadiusM int
	Type    string
	Keyword string
}

// LatLng is a coordinate as returned by the API.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geometry wraps a location.
type Geometry struct {
	Location *LatLng `json:"location"`
}

// GeocodeResult is one geocoding match.
type GeocodeResult struct {
	FormattedAddress string    `json:"formatted_address"`
	PlaceID          string    `json:"place_id"`
	Geometry         *Geometry `json:"geometry"`
}

// Place is a place as returned by Nearby Search or Place Details. Optional
// fields are pointers so absent values stay distinguishable from zero.
type Place struct {
	PlaceID          string    `json:"place_id"`
	Name             string    `json:"name"`
	Rating           *float64  `json:"rating"`
	UserRatingsTotal *int      `json:"user_ratings_total"`
	PriceLevel       *int      `json:"price_level"`
	Types            []string  `json:"types"`
	BusinessStatus   string    `json:"business_status"`
	Geometry         *Geometry `json:"geometry"`
}

// Location returns the place coordinates, if present.
func (p Place) Location() (LatLng, bool) {
	if p.Geometry == nil || p.Geometry.Location == nil {
		return LatLng{}, false
	}
	return *p.Geometry.Location, true
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second across all operations.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Google Maps API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type geocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
	Results      []GeocodeResult `json:"results"`
}

type nearbyResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	Results      []Place `json:"results"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       *Place `json:"result"`
}

func (c *httpClient) Geocode(ctx context.Context, req GeocodeRequest) ([]GeocodeResult, error) {
	params := url.Values{}
	switch {
	case req.PlaceID != "":
		params.Set("place_id", req.PlaceID)
	case req.Address != "":
		params.Set("address", req.Address)
		if req.CountryBias != "" {
			params.Set("components", "country:"+req.CountryBias)
		}
	default:
		return nil, eris.New("google: geocode needs an address or a place id")
	}

	var resp geocodeResponse
	if err := c.get(ctx, OpGeocode, "/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case StatusOK:
		return resp.Results, nil
	case StatusZeroResults:
		return nil, nil
	default:
		return nil, &StatusError{Op: OpGeocode, Status: resp.Status, Message: resp.ErrorMessage}
	}
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) ([]Place, error) {
	params := url.Values{
		"location": {strconv.FormatFloat(req.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(req.Lng, 'f', -1, 64)},
		"radius":   {strconv.Itoa(req.RadiusM)},
	}
	if req.Type != "" {
		params.Set("type", req.Type)
	}
	if req.Keyword != "" {
		params.Set("keyword", req.Keyword)
	}

	var resp nearbyResponse
	if err := c.get(ctx, OpNearbySearch, "/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case StatusOK:
		return resp.Results, nil
	case StatusZeroResults:
		return []Place{}, nil
	default:
		return nil, &StatusError{Op: OpNearbySearch, Status: resp.Status, Message: resp.ErrorMessage}
	}
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID string) (*Place, error) {
	params := url.Values{
		"place_id": {placeID},
		"fields":   {DetailsFields},
	}

	var resp detailsResponse
	if err := c.get(ctx, OpPlaceDetails, "/place/details/json", params, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case StatusOK:
		return resp.Result, nil
	case StatusNotFound, StatusZeroResults:
		return nil, nil
	default:
		return nil, &StatusError{Op: OpPlaceDetails, Status: resp.Status, Message: resp.ErrorMessage}
	}
}

// get performs one GET bounded by the client timeout and decodes the JSON
// body into out. API-level statuses are left to the caller.
func (c *httpClient) get(ctx context.Context, op, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// The limiter wait counts against the call deadline.
	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			if ctx.Err() == nil {
				return &TimeoutError{Op: op, Timeout: c.timeout, Err: err}
			}
			return eris.Wrapf(err, "google: %s rate limit wait", op)
		}
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrapf(err, "google: %s create request", op)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Op: op, Timeout: c.timeout, Err: err}
		}
		return eris.Wrapf(err, "google: %s send request", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Op: op, Timeout: c.timeout, Err: err}
		}
		return eris.Wrapf(err, "google: %s read response", op)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, HTTPStatus: resp.StatusCode, Message: truncate(string(body), 200)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "google: %s unmarshal response", op)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
