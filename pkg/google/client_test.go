package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGeocode_Address(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Av. Corrientes 1234, CABA", q.Get("address"))
		assert.Equal(t, "country:AR", q.Get("components"))
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Empty(t, q.Get("place_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Av. Corrientes 1234, C1043 CABA, Argentina","place_id":"ChIJ1","geometry":{"location":{"lat":-34.6037,"lng":-58.3816}}}]}`))
	})

	client := NewClient("test-key", WithBaseURL(srv.URL))
	results, err := client.Geocode(context.Background(), GeocodeRequest{Address: "Av. Corrientes 1234, CABA", CountryBias: "AR"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ChIJ1", results[0].PlaceID)
	require.NotNil(t, results[0].Geometry)
	assert.InDelta(t, -34.6037, results[0].Geometry.Location.Lat, 1e-9)
}

func TestGeocode_PlaceIDWins(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ChIJ9", q.Get("place_id"))
		assert.Empty(t, q.Get("address"))
		assert.Empty(t, q.Get("components"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[]}`))
	})

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Geocode(context.Background(), GeocodeRequest{Address: "ignored", PlaceID: "ChIJ9", CountryBias: "AR"})
	require.NoError(t, err)
}

func TestGeocode_ZeroResults(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	client := NewClient("test-key", WithBaseURL(srv.URL))
	results, err := client.Geocode(context.Background(), GeocodeRequest{Address: "nowhere at all"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGeocode_NoInput(t *testing.T) {
	client := NewClient("test-key")
	_, err := client.Geocode(context.Background(), GeocodeRequest{})
	assert.Error(t, err)
}

func TestNearbySearch_Params(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "-34.6037,-58.3816", q.Get("location"))
		assert.Equal(t, "800", q.Get("radius"))
		assert.Equal(t, "cafe", q.Get("type"))
		assert.Equal(t, "cafeteria", q.Get("keyword"))

		_, _ = w.Write([]byte(`{"status":"OK","results":[
			{"place_id":"a","name":"Cafe A","rating":4.5,"user_ratings_total":120,"price_level":2,"types":["cafe","food"],"business_status":"OPERATIONAL","geometry":{"location":{"lat":-34.604,"lng":-58.382}}},
			{"place_id":"b","name":"Cafe B"}
		]}`))
	})

	client := NewClient("test-key", WithBaseURL(srv.URL))
	places, err := client.NearbySearch(context.Background(), NearbySearchRequest{
		Lat: -34.6037, Lng: -58.3816, RadiusM: 800, Type: "cafe", Keyword: "cafeteria",
	})

	require.NoError(t, err)
	require.Len(t, places, 2)
	require.NotNil(t, places[0].Rating)
	assert.InDelta(t, 4.5, *places[0].Rating, 0)
	require.NotNil(t, places[0].PriceLevel)
	assert.Equal(t, 2, *places[0].PriceLevel)
	_, ok := places[0].Location()
	assert.True(t, ok)

	assert.Nil(t, places[1].Rating)
	assert.Nil(t, places[1].UserRatingsTotal)
	_, ok = places[1].Location()
	assert.False(t, ok)
}

func TestNearbySearch_OmitsEmptyTypeAndKeyword(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.False(t, q.Has("type"))
		assert.False(t, q.Has("keyword"))
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS"}`))
	})

	client := NewClient("test-key", WithBaseURL(srv.URL))
	places, err := client.NearbySearch(context.Background(), NearbySearchRequest{Lat: 1, Lng: 2, RadiusM: 800})
	require.NoError(t, err)
	assert.NotNil(t, places)
	assert.Empty(t, places)
}

func TestPlaceDetails(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/details/json", r.URL.Path)
		assert.Equal(t, DetailsFields, r.URL.Query().Get("fields"))

		switch r.URL.Query().Get("place_id") {
		case "known":
			_, _ = w.Write([]byte(`{"status":"OK","result":{"place_id":"known","name":"Known","user_ratings_total":88}}`))
		default:
			_, _ = w.Write([]byte(`{"status":"NOT_FOUND"}`))
		}
	})

	client := NewClient("test-key", WithBaseURL(srv.URL))

	p, err := client.PlaceDetails(context.Background(), "known")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 88, *p.UserRatingsTotal)

	p, err = client.PlaceDetails(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		body        string
		rateLimited bool
		detail      string
	}{
		{"over query limit", http.StatusOK, `{"status":"OVER_QUERY_LIMIT","error_message":"quota"}`, true, "OVER_QUERY_LIMIT"},
		{"request denied", http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"bad key"}`, false, "REQUEST_DENIED"},
		{"http 429", http.StatusTooManyRequests, `slow down`, true, "HTTP_429"},
		{"http 500", http.StatusInternalServerError, `oops`, false, "HTTP_500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})

			client := NewClient("test-key", WithBaseURL(srv.URL))
			_, err := client.NearbySearch(context.Background(), NearbySearchRequest{Lat: 1, Lng: 1, RadiusM: 800})

			var se *StatusError
			require.True(t, errors.As(err, &se), "expected StatusError, got %v", err)
			assert.Equal(t, tt.rateLimited, se.RateLimited())
			assert.Equal(t, tt.detail, se.StatusDetail())
			assert.Equal(t, OpNearbySearch, se.Op)
		})
	}
}

func TestTimeout(t *testing.T) {
	srv := newTestServer(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	client := NewClient("test-key", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := client.PlaceDetails(context.Background(), "slow")

	var te *TimeoutError
	require.True(t, errors.As(err, &te), "expected TimeoutError, got %v", err)
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.Equal(t, OpPlaceDetails, te.Op)
}

func TestCallerCancellationIsNotTimeout(t *testing.T) {
	srv := newTestServer(t, func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.NearbySearch(ctx, NearbySearchRequest{Lat: 1, Lng: 1, RadiusM: 800})
	require.Error(t, err)

	var te *TimeoutError
	assert.False(t, errors.As(err, &te))
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient("")
	_, err := client.NearbySearch(context.Background(), NearbySearchRequest{Lat: 1, Lng: 1, RadiusM: 800})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestRateLimitOption(t *testing.T) {
	calls := 0
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS"}`))
	})

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
	for i := 0; i < 3; i++ {
		_, err := client.NearbySearch(context.Background(), NearbySearchRequest{Lat: 1, Lng: 1, RadiusM: 800})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestRateLimitWaitIsBoundedByCallTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS"}`))
	})

	// One token per hour: the second call cannot be admitted before its deadline.
	client := NewClient("test-key", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond), WithRateLimit(1.0/3600))

	_, err := client.NearbySearch(context.Background(), NearbySearchRequest{Lat: 1, Lng: 1, RadiusM: 800})
	require.NoError(t, err)

	start := time.Now()
	_, err = client.NearbySearch(context.Background(), NearbySearchRequest{Lat: 1, Lng: 1, RadiusM: 800})
	require.Error(t, err)

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, OpNearbySearch, te.Op)
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRateLimitWaitHonorsCallerCancellation(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS"}`))
	})

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1.0/3600))
	_, err := client.NearbySearch(context.Background(), NearbySearchRequest{Lat: 1, Lng: 1, RadiusM: 800})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.NearbySearch(ctx, NearbySearchRequest{Lat: 1, Lng: 1, RadiusM: 800})
	require.Error(t, err)

	var te *TimeoutError
	assert.False(t, errors.As(err, &te))
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Geocode(context.Background(), GeocodeRequest{Address: "somewhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
