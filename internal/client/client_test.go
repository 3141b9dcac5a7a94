package client

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
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/debindra/election-2082-visualization-sub001/internal/config"
	"github.com/debindra/election-2082-visualization-sub001/internal/event"
	"github.com/debindra/election-2082-visualization-sub001/internal/metrics"
)

type testEnv struct {
	server   *httptest.Server
	client   *Client
	recorder *event.Recorder
}

func newTestEnv(t *testing.T, handler http.HandlerFunc, opts ...Option) *testEnv {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	bus := event.NewBus(nil)
	recorder := event.NewRecorder(0, event.TypeAPIError)
	bus.Subscribe(recorder)

	cfg := config.APIConfig{
		BaseURL: server.URL,
		Prefix:  "/api/v1",
		Timeout: 5 * time.Second,
	}
	opts = append([]Option{WithNotifier(bus)}, opts...)
	c, err := NewClient(cfg, opts...)
	require.NoError(t, err)

	return &testEnv{server: server, client: c, recorder: recorder}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// TestClientCreation tests basic client creation.
func TestClientCreation(t *testing.T) {
	c, err := NewClient(config.APIConfig{BaseURL: "http://localhost:8000/", Prefix: "api/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
	assert.Equal(t, "/api/v1", c.Prefix())
}

func TestClientCreation_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:8000", "ftp://example.com", "http://"} {
		t.Run(base, func(t *testing.T) {
			_, err := NewClient(config.APIConfig{BaseURL: base})
			assert.ErrorIs(t, err, ErrInvalidBaseURL)
		})
	}
}

func TestGetMapData_QueryAndBody(t *testing.T) {
	const geojson = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"district":"Kathmandu","total_candidates":120}}]}`

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/map", r.URL.Path)
		assert.Equal(t, "election_year=2022&level=district&district=Kathmandu", r.URL.RawQuery)
		writeJSON(w, http.StatusOK, geojson)
	})

	doc, err := env.client.GetMapData(context.Background(), MapFilters{
		ElectionYear: 2022,
		Level:        LevelDistrict,
		District:     "Kathmandu",
	})
	require.NoError(t, err)
	assert.Equal(t, geojson, string(doc))
	assert.Empty(t, env.recorder.Events())
}

func TestGetMapData_AllFieldsInOrder(t *testing.T) {
	independent := false
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			"election_year=2017&level=constituency&province=Bagmati&district=Lalitpur&party=%E0%A4%A8%E0%A5%87%E0%A4%AA%E0%A4%BE%E0%A4%B2%E0%A5%80+%E0%A4%95%E0%A4%BE%E0%A4%82%E0%A4%97%E0%A5%8D%E0%A4%B0%E0%A5%87%E0%A4%B8&independent=false&age_min=25&age_max=60&gender=F&education_level=Masters+%26+above",
			r.URL.RawQuery)
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := env.client.GetMapData(context.Background(), MapFilters{
		ElectionYear:   2017,
		Level:          LevelConstituency,
		Province:       "Bagmati",
		District:       "Lalitpur",
		Party:          "नेपाली कांग्रेस",
		Independent:    &independent,
		AgeMin:         25,
		AgeMax:         60,
		Gender:         "F",
		EducationLevel: "Masters & above",
	})
	require.NoError(t, err)
}

func TestBadRequest_PublishesDetail(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"detail":"Invalid year"}`)
	})

	_, err := env.client.GetElectionSummary(context.Background(), 2022)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid year", apiErr.Message)
	assert.Equal(t, "/api/v1/elections/2022/summary", apiErr.Endpoint)
	assert.False(t, apiErr.IsTransport())

	evt, ok := env.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, event.TypeAPIError, evt.Type)
	assert.Equal(t, "Invalid year", evt.Message)
	assert.Equal(t, http.StatusBadRequest, evt.StatusCode)
	assert.Equal(t, apiErr.RequestID, evt.RequestID)
	assert.Len(t, env.recorder.Events(), 1)
}

func TestFailure_MessageFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", 404, `{"detail":"No data for 1999"}`, "No data for 1999"},
		{"detail object", 422, `{"detail":{"message":"year out of range","field":"election_year"}}`, "year out of range"},
		{"detail list", 422, `{"detail":[{"loc":["query","election_year"],"msg":"field required"}]}`, `[{"loc":["query","election_year"],"msg":"field required"}]`},
		{"no detail", 500, `{"error":"boom"}`, `{"error":"boom"}`},
		{"plain text", 502, `Bad Gateway`, "Request failed with status code 502"},
		{"empty body", 503, ``, "Request failed with status code 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := env.client.ListElections(context.Background())
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, apiErr.Message)
			assert.Equal(t, tt.status, apiErr.StatusCode)

			evt, ok := env.recorder.Last()
			require.True(t, ok)
			assert.Equal(t, tt.want, evt.Message)
		})
	}
}

func TestTransportFailure_Publishes(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})
	env.server.Close()

	_, err := env.client.Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsTransport())
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Message)
	assert.NotNil(t, errors.Unwrap(err))

	evt, ok := env.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, apiErr.Message, evt.Message)
	assert.Equal(t, "/health", evt.Endpoint)
}

func TestCanceledContext_StillPublishes(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.client.ListElections(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, env.recorder.Events(), 1)
}

func TestValidation_NoRequestNoNotification(t *testing.T) {
	var hits atomic.Int32
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `{}`)
	})
	ctx := context.Background()

	_, err := env.client.GetMapData(ctx, MapFilters{ElectionYear: 1990})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "/map", verr.Endpoint)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "ElectionYear", verr.Fields[0].Field)

	_, err = env.client.GetMapData(ctx, MapFilters{ElectionYear: 2022, Level: "ward"})
	assert.ErrorAs(t, err, &verr)

	_, err = env.client.GetMapData(ctx, MapFilters{ElectionYear: 2022, AgeMin: 60, AgeMax: 30})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "AgeMin", verr.Fields[0].Field)

	_, err = env.client.SearchCandidates(ctx, SearchFilters{Query: "deuba", Limit: 50})
	assert.ErrorAs(t, err, &verr)

	_, err = env.client.CompareCandidates(ctx, CompareFilters{})
	assert.ErrorAs(t, err, &verr)

	ids := make([]string, 11)
	for i := range ids {
		ids[i] = "C" + string(rune('A'+i))
	}
	_, err = env.client.CompareCandidates(ctx, CompareFilters{CandidateIDs: ids})
	assert.ErrorAs(t, err, &verr)

	_, err = env.client.GetCandidates(ctx, 2022, CandidateFilters{Limit: 5000})
	assert.ErrorAs(t, err, &verr)

	_, err = env.client.GetProvinceStats(ctx, 3000)
	assert.ErrorAs(t, err, &verr)

	_, err = env.client.CompareElections(ctx, LongitudinalFilters{Years: []int{2017}, Metric: "turnout"})
	assert.ErrorAs(t, err, &verr)

	_, err = env.client.GetTrends(ctx, TrendFilters{})
	assert.ErrorAs(t, err, &verr)

	assert.Equal(t, int32(0), hits.Load())
	assert.Empty(t, env.recorder.Events())
}

func TestRequestHeaders(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "electionctl-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Debug"))
		assert.Len(t, r.Header.Get(HeaderRequestID), 36)
		writeJSON(w, http.StatusOK, `[2017,2022]`)
	}, WithHeader("User-Agent", "electionctl-test"), WithHeader("X-Debug", "yes"))

	years, err := env.client.ListElections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2017, 2022}, years)
}

func TestMetricsAndLogging(t *testing.T) {
	m := metrics.NewClientMetrics(metrics.Config{})
	core, logs := observer.New(zap.DebugLevel)

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/elections/2022/summary" {
			writeJSON(w, http.StatusOK, `{"year":2022,"total_candidates":3406}`)
			return
		}
		writeJSON(w, http.StatusNotFound, `{"detail":"not found"}`)
	}, WithMetrics(m), WithLogger(zap.New(core)))
	ctx := context.Background()

	_, err := env.client.GetElectionSummary(ctx, 2022)
	require.NoError(t, err)
	_, err = env.client.GetElectionSummary(ctx, 2017)
	require.Error(t, err)

	stats, err := m.Snapshot()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "/elections/{year}/summary", stats[0].Endpoint)
	assert.Equal(t, uint64(2), stats[0].Requests)
	assert.Equal(t, uint64(1), stats[0].Errors)

	assert.Equal(t, 1, logs.FilterMessage("api request").Len())
	failed := logs.FilterMessage("api request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "not found", failed[0].ContextMap()["message"])
	assert.NotEmpty(t, failed[0].ContextMap()["request_id"])
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	}, WithRateLimit(1000, 1))

	for i := 0; i < 3; i++ {
		_, err := env.client.ListElections(context.Background())
		require.NoError(t, err)
	}
}

func TestDecodeFailure_Publishes(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":`)
	})

	_, err := env.client.Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Invalid response body")
	assert.Len(t, env.recorder.Events(), 1)
}

func TestConcurrentRequests(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("election_year") == "2017" {
			writeJSON(w, http.StatusBadRequest, `{"detail":"bad"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{}`)
	})

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		year := 2022
		if i%2 == 0 {
			year = 2017
		}
		go func() {
			_, err := env.client.GetAgeGap(context.Background(), InsightFilters{ElectionYear: year})
			done <- err
		}()
	}
	failures := 0
	for i := 0; i < 20; i++ {
		if <-done != nil {
			failures++
		}
	}
	assert.Equal(t, 10, failures)
	assert.Len(t, env.recorder.Events(), 10)
}
