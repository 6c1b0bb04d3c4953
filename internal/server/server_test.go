package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/feed"
	"github.com/alanyoungcy/xchainarb/internal/server/handler"
	"github.com/alanyoungcy/xchainarb/internal/view"
)

type idleSource struct{}

func (idleSource) Name() string { return "simulated" }
func (idleSource) Run(ctx context.Context, _ feed.Sink) error {
	<-ctx.Done()
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func testServer(t *testing.T, pinger handler.Pinger) (*httptest.Server, *view.View) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := view.New(feed.NewChannel(idleSource{}, logger), 5, logger)
	status := func() domain.FeedStatus {
		return domain.FeedStatus{Mode: "development", Source: "simulated", State: v.State(), Connected: v.Connected(), History: v.Len(), Capacity: v.Capacity()}
	}

	srv := NewServer(Config{Port: 0}, Handlers{
		Health:        handler.NewHealthHandler(pinger, logger),
		Status:        handler.NewStatusHandler(status),
		Opportunities: handler.NewOpportunityHandler(v),
		Page:          handler.NewPageHandler(v, status, logger),
	}, nil, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, v
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func sampleOpp(id string, pct float64) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID: id, Timestamp: 1700000000000,
		SourceChain: "Ethereum", TargetChain: "Unichain",
		SourceToken: domain.Token{Symbol: "ETH"}, TargetToken: domain.Token{Symbol: "USDC"},
		SourceDex: domain.DEX{Name: "Uniswap V3", Chain: "Ethereum"}, TargetDex: domain.DEX{Name: "UniDex", Chain: "Unichain"},
		SourcePrice: 500, TargetPrice: 505, ProfitPercentage: pct, EstimatedProfit: 5, RequiredAmount: 2000, GasEstimate: 0.02,
	}
}

func TestHealth(t *testing.T) {
	ts, _ := testServer(t, nil)
	resp, body := get(t, ts.URL+"/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	ts, _ = testServer(t, failingPinger{})
	_, body = get(t, ts.URL+"/api/health")
	assert.Contains(t, body, `"status":"degraded"`)
	assert.Contains(t, body, `"redis":"unreachable"`)
}

func TestStatus(t *testing.T) {
	ts, v := testServer(t, nil)
	v.Push(sampleOpp("a", 1))

	resp, body := get(t, ts.URL+"/api/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status domain.FeedStatus
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "development", status.Mode)
	assert.Equal(t, "simulated", status.Source)
	assert.Equal(t, domain.StateIdle, status.State)
	assert.False(t, status.Connected)
	assert.Equal(t, 1, status.History)
	assert.Contains(t, body, `"state":"idle"`)
}

func TestListOpportunities(t *testing.T) {
	ts, v := testServer(t, nil)
	for _, id := range []string{"a", "b", "c"} {
		v.Push(sampleOpp(id, 1))
	}

	var resp struct {
		Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
		Count         int                           `json:"count"`
	}

	_, body := get(t, ts.URL+"/api/opportunities?limit=2")
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "c", resp.Opportunities[0].ID)
	assert.Equal(t, "b", resp.Opportunities[1].ID)

	_, body = get(t, ts.URL+"/api/opportunities?limit=500")
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, 3, resp.Count)

	r, _ := get(t, ts.URL+"/api/opportunities?limit=abc")
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
	r, _ = get(t, ts.URL+"/api/opportunities?limit=0")
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestIndexPage(t *testing.T) {
	ts, v := testServer(t, nil)
	v.Push(sampleOpp("page", 0))

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.Contains(t, body, "Cross-Chain Arbitrage Opportunities")
	assert.Contains(t, body, `<span id="status" class="badge idle">Disconnected</span>`)
	assert.Contains(t, body, `<tr data-id="page">`)
	assert.Contains(t, body, `<span class="profit positive">0%</span>`)

	resp, _ = get(t, ts.URL+"/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTableFragment(t *testing.T) {
	ts, v := testServer(t, nil)
	v.Push(sampleOpp("frag", -0.5))

	_, body := get(t, ts.URL+"/fragment/table")
	assert.True(t, strings.HasPrefix(body, `<table class="opportunities">`))
	assert.Contains(t, body, `<span class="profit negative">-0.5000%</span>`)
	assert.NotContains(t, body, "<html")
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := testServer(t, nil)
	resp, err := http.Post(ts.URL+"/api/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
