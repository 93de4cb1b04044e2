package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/e5watcher/internal/model"
	"github.com/mmeshcher/e5watcher/internal/policy"
	"github.com/mmeshcher/e5watcher/internal/repository"
)

type stubSnapshots struct {
	snap *model.Snapshot
	err  error
}

func (s *stubSnapshots) LoadPrevious() (*model.Snapshot, error) {
	return s.snap, s.err
}

func newTestHandler(snaps *stubSnapshots) *Handler {
	return NewHandler(snaps, policy.DefaultSeverityConfig(), zap.NewNop())
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		SkuName:       "DEVELOPERPACK_E5",
		Status:        model.StatusActive,
		ConsumedUnits: 8,
		TotalUnits:    25,
		CheckTime:     time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		ExpiryInfo:    &model.ExpiryInfo{ExpiryDate: "2026-09-10", DaysLeft: 10, Status: "expiring soon"},
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(&stubSnapshots{snap: testSnapshot()}).SetupRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "DEVELOPERPACK_E5", got["sku_name"])
	assert.Equal(t, "active", got["status"])

	expiry, ok := got["expiry_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(10), expiry["days_left"])
}

func TestStatusEndpointNoSnapshot(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(&stubSnapshots{err: repository.ErrNoPreviousSnapshot}).SetupRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDashboardPage(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(&stubSnapshots{snap: testSnapshot()}).SetupRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := readAll(t, resp)
	assert.Contains(t, body, "DEVELOPERPACK_E5")
	assert.Contains(t, body, "8 / 25 (32%)")
	assert.Contains(t, body, "10 days left")
}

func TestDashboardPageWithoutData(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(&stubSnapshots{err: repository.ErrNoPreviousSnapshot}).SetupRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "No data")
}

func TestHealthEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(&stubSnapshots{}).SetupRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
