package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/e5watcher/internal/model"
)

func newTestClient(ts *httptest.Server, now time.Time) *Client {
	return NewClient(Config{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		LoginBase:    ts.URL,
		GraphBase:    ts.URL,
		RetryMax:     -1,
		Location:     time.UTC,
		Now:          func() time.Time { return now },
	})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestFetchSnapshot_OK(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tenant/oauth2/v2.0/token":
			if r.Method != http.MethodPost {
				t.Fatalf("token method = %s, want POST", r.Method)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if r.Form.Get("grant_type") != "client_credentials" {
				t.Fatalf("grant_type = %q", r.Form.Get("grant_type"))
			}
			writeJSON(t, w, map[string]string{"access_token": "test-token"})
		case "/v1.0/subscribedSkus":
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Fatalf("authorization = %q", got)
			}
			writeJSON(t, w, map[string]any{
				"value": []map[string]any{
					{
						"skuPartNumber":    "STANDARDPACK",
						"capabilityStatus": "Enabled",
					},
					{
						"skuPartNumber":    "DEVELOPERPACK_E5",
						"capabilityStatus": "Enabled",
						"consumedUnits":    8,
						"prepaidUnits":     map[string]int{"enabled": 25},
						"subscriptionIds":  []string{"sub-1"},
					},
				},
			})
		case "/v1.0/directory/subscriptions":
			writeJSON(t, w, map[string]any{
				"value": []map[string]string{
					{"id": "sub-1", "nextLifecycleDateTime": "2026-09-15T00:00:00Z"},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	client := newTestClient(ts, now)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snap, err := client.FetchSnapshot(ctx)
	if err != nil {
		t.Fatalf("FetchSnapshot error: %v", err)
	}

	if snap.SkuName != "DEVELOPERPACK_E5" {
		t.Fatalf("sku = %q", snap.SkuName)
	}
	if snap.Status != model.StatusActive {
		t.Fatalf("status = %q", snap.Status)
	}
	if snap.ConsumedUnits != 8 || snap.TotalUnits != 25 {
		t.Fatalf("units = %d/%d", snap.ConsumedUnits, snap.TotalUnits)
	}
	if snap.ExpiryInfo == nil {
		t.Fatalf("expiry info missing")
	}
	if snap.ExpiryInfo.DaysLeft != 15 {
		t.Fatalf("days left = %d, want 15", snap.ExpiryInfo.DaysLeft)
	}
	if snap.ExpiryInfo.ExpiryDate != "2026-09-15" {
		t.Fatalf("expiry date = %q", snap.ExpiryInfo.ExpiryDate)
	}
	if snap.ExpiryInfo.Status != "expiring soon" {
		t.Fatalf("expiry status = %q", snap.ExpiryInfo.Status)
	}
}

func TestFetchSnapshot_DisabledSkuIsAnomalous(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tenant/oauth2/v2.0/token":
			writeJSON(t, w, map[string]string{"access_token": "test-token"})
		case "/v1.0/subscribedSkus":
			writeJSON(t, w, map[string]any{
				"value": []map[string]any{
					{
						"skuPartNumber":    "DEVELOPERPACK_E5",
						"capabilityStatus": "Suspended",
					},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	snap, err := newTestClient(ts, now).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot error: %v", err)
	}
	if snap.Status != model.StatusAnomalous {
		t.Fatalf("status = %q, want anomalous", snap.Status)
	}
	if snap.ExpiryInfo != nil {
		t.Fatalf("expected nil expiry info without subscription ids, got %+v", snap.ExpiryInfo)
	}
}

func TestFetchSnapshot_EstimatedExpiryFallback(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tenant/oauth2/v2.0/token":
			writeJSON(t, w, map[string]string{"access_token": "test-token"})
		case "/v1.0/subscribedSkus":
			writeJSON(t, w, map[string]any{
				"value": []map[string]any{
					{
						"skuPartNumber":    "DEVELOPERPACK_E5",
						"capabilityStatus": "Enabled",
						"subscriptionIds":  []string{"sub-1"},
					},
				},
			})
		case "/v1.0/directory/subscriptions":
			writeJSON(t, w, map[string]any{"value": []map[string]string{}})
		case "/v1.0/organization":
			writeJSON(t, w, map[string]any{
				"value": []map[string]any{
					{
						"assignedPlans": []map[string]string{
							{
								"servicePlanName":  "Enterprise Mobility",
								"capabilityStatus": "Enabled",
								"assignedDateTime": "2026-01-01T00:00:00Z",
							},
						},
					},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	snap, err := newTestClient(ts, now).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot error: %v", err)
	}
	if snap.ExpiryInfo == nil {
		t.Fatalf("expected estimated expiry info")
	}
	if snap.ExpiryInfo.Status != "estimated" {
		t.Fatalf("expiry status = %q, want estimated", snap.ExpiryInfo.Status)
	}
	if snap.ExpiryInfo.ExpiryDate != "2027-01-01" {
		t.Fatalf("expiry date = %q, want 2027-01-01", snap.ExpiryInfo.ExpiryDate)
	}
}

func TestFetchSnapshot_AuthFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	_, err := newTestClient(ts, time.Now()).FetchSnapshot(context.Background())
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("err = %v, want ErrAuthFailure", err)
	}
}

func TestFetchSnapshot_NoMatchingSku(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tenant/oauth2/v2.0/token":
			writeJSON(t, w, map[string]string{"access_token": "test-token"})
		case "/v1.0/subscribedSkus":
			writeJSON(t, w, map[string]any{
				"value": []map[string]any{
					{"skuPartNumber": "STANDARDPACK", "capabilityStatus": "Enabled"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	_, err := newTestClient(ts, time.Now()).FetchSnapshot(context.Background())
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestDaysUntil(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{
			name: "same day late evening",
			from: time.Date(2026, 8, 31, 23, 50, 0, 0, loc),
			to:   time.Date(2026, 8, 31, 23, 59, 0, 0, loc),
			want: 0,
		},
		{
			name: "minutes across midnight still count as a day",
			from: time.Date(2026, 8, 31, 23, 50, 0, 0, loc),
			to:   time.Date(2026, 9, 1, 0, 10, 0, 0, loc),
			want: 1,
		},
		{
			name: "expiry in the past",
			from: time.Date(2026, 8, 31, 1, 0, 0, 0, loc),
			to:   time.Date(2026, 8, 28, 23, 0, 0, 0, loc),
			want: -3,
		},
		{
			name: "utc timestamps converted to zone",
			from: time.Date(2026, 8, 31, 17, 0, 0, 0, time.UTC), // 2026-09-01 01:00 in Shanghai
			to:   time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysUntil(tt.from, tt.to, loc); got != tt.want {
				t.Fatalf("daysUntil() = %d, want %d", got, tt.want)
			}
		})
	}
}
