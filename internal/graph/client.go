// Package graph предоставляет клиент Microsoft Graph для получения
// состояния подписки E5.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mmeshcher/e5watcher/internal/model"
)

const (
	defaultLoginBase = "https://login.microsoftonline.com"
	defaultGraphBase = "https://graph.microsoft.com"
	defaultSkuFilter = "E5"
	defaultRetryMax  = 3
	defaultTimeout   = 30 * time.Second

	estimatedSubscriptionTerm = 365 * 24 * time.Hour
)

// ErrAuthFailure возвращается, если не удалось получить или применить токен доступа.
var (
	ErrAuthFailure = errors.New("authentication failed")
	// ErrRemoteUnavailable возвращается при сетевых ошибках и ошибках сервера Graph.
	ErrRemoteUnavailable = errors.New("graph api unavailable")
	// ErrDataUnavailable возвращается, если подписка E5 не найдена в ответе Graph.
	ErrDataUnavailable = errors.New("e5 subscription not found")
)

// Config задаёт параметры клиента Graph.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// LoginBase и GraphBase переопределяются только в тестах.
	LoginBase string
	GraphBase string

	SkuFilter string
	RetryMax  int
	Timeout   time.Duration

	Location *time.Location
	Now      func() time.Time
}

// Client инкапсулирует HTTP-взаимодействие с Microsoft Graph.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient создаёт клиент Graph с повторами запросов при временных ошибках.
func NewClient(cfg Config) *Client {
	if cfg.LoginBase == "" {
		cfg.LoginBase = defaultLoginBase
	}
	if cfg.GraphBase == "" {
		cfg.GraphBase = defaultGraphBase
	}
	if cfg.SkuFilter == "" {
		cfg.SkuFilter = defaultSkuFilter
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = defaultRetryMax
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil

	return &Client{
		cfg:        cfg,
		httpClient: rc.StandardClient(),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type subscribedSku struct {
	SkuPartNumber    string `json:"skuPartNumber"`
	CapabilityStatus string `json:"capabilityStatus"`
	ConsumedUnits    int    `json:"consumedUnits"`
	PrepaidUnits     struct {
		Enabled int `json:"enabled"`
	} `json:"prepaidUnits"`
	SubscriptionIDs []string `json:"subscriptionIds"`
}

type directorySubscription struct {
	ID                    string `json:"id"`
	NextLifecycleDateTime string `json:"nextLifecycleDateTime"`
}

type assignedPlan struct {
	ServicePlanName  string `json:"servicePlanName"`
	CapabilityStatus string `json:"capabilityStatus"`
	AssignedDateTime string `json:"assignedDateTime"`
}

type organizationInfo struct {
	AssignedPlans []assignedPlan `json:"assignedPlans"`
}

// FetchSnapshot получает токен доступа и собирает снимок состояния подписки E5.
// Отсутствие данных о сроке действия не считается ошибкой: снимок возвращается
// с пустым ExpiryInfo.
func (c *Client) FetchSnapshot(ctx context.Context) (*model.Snapshot, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var skus struct {
		Value []subscribedSku `json:"value"`
	}
	if err := c.getJSON(ctx, token, "/v1.0/subscribedSkus", &skus); err != nil {
		return nil, err
	}

	var sku *subscribedSku
	for i := range skus.Value {
		if strings.Contains(skus.Value[i].SkuPartNumber, c.cfg.SkuFilter) {
			sku = &skus.Value[i]
			break
		}
	}
	if sku == nil {
		return nil, fmt.Errorf("%w: no sku matching %q", ErrDataUnavailable, c.cfg.SkuFilter)
	}

	status := model.StatusAnomalous
	if sku.CapabilityStatus == "Enabled" {
		status = model.StatusActive
	}

	checkTime := c.cfg.Now().In(c.cfg.Location)

	return &model.Snapshot{
		SkuName:       sku.SkuPartNumber,
		Status:        status,
		ConsumedUnits: sku.ConsumedUnits,
		TotalUnits:    sku.PrepaidUnits.Enabled,
		CheckTime:     checkTime,
		ExpiryInfo:    c.fetchExpiryInfo(ctx, token, sku.SubscriptionIDs, checkTime),
	}, nil
}

// fetchExpiryInfo пытается определить срок действия подписки двумя способами:
// по nextLifecycleDateTime подписки каталога, а при его отсутствии — оценкой
// от даты назначения плана Enterprise плюс год. Любая ошибка на этом пути
// даёт nil: снимок без срока действия лучше, чем отсутствие снимка.
func (c *Client) fetchExpiryInfo(ctx context.Context, token string, subscriptionIDs []string, checkTime time.Time) *model.ExpiryInfo {
	if len(subscriptionIDs) == 0 {
		return nil
	}

	var subs struct {
		Value []directorySubscription `json:"value"`
	}
	if err := c.getJSON(ctx, token, "/v1.0/directory/subscriptions", &subs); err == nil {
		for _, sub := range subs.Value {
			if sub.ID != subscriptionIDs[0] || sub.NextLifecycleDateTime == "" {
				continue
			}
			expiry, err := time.Parse(time.RFC3339, sub.NextLifecycleDateTime)
			if err != nil {
				return nil
			}
			return c.buildExpiryInfo(expiry, checkTime, false)
		}
	}

	var org struct {
		Value []organizationInfo `json:"value"`
	}
	if err := c.getJSON(ctx, token, "/v1.0/organization", &org); err != nil || len(org.Value) == 0 {
		return nil
	}

	for _, plan := range org.Value[0].AssignedPlans {
		if !strings.Contains(plan.ServicePlanName, "Enterprise") || plan.CapabilityStatus != "Enabled" {
			continue
		}
		assigned, err := time.Parse(time.RFC3339, plan.AssignedDateTime)
		if err != nil {
			return nil
		}
		return c.buildExpiryInfo(assigned.Add(estimatedSubscriptionTerm), checkTime, true)
	}

	return nil
}

func (c *Client) buildExpiryInfo(expiry, checkTime time.Time, estimated bool) *model.ExpiryInfo {
	daysLeft := daysUntil(checkTime, expiry, c.cfg.Location)

	status := "normal"
	switch {
	case estimated:
		status = "estimated"
	case daysLeft <= 30:
		status = "expiring soon"
	}

	return &model.ExpiryInfo{
		ExpiryDate: expiry.In(c.cfg.Location).Format("2006-01-02"),
		DaysLeft:   daysLeft,
		Status:     status,
	}
}

// daysUntil считает разность в целых календарных днях между датами from и to
// в зоне loc. Разность именно календарная: деление длительности на сутки
// даёт ошибку на единицу вблизи границы дня.
func daysUntil(from, to time.Time, loc *time.Location) int {
	f := from.In(loc)
	t := to.In(loc)
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return int(math.Round(td.Sub(fd).Hours() / 24))
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"scope":         {defaultGraphBase + "/.default"},
	}

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.cfg.LoginBase, c.cfg.TenantID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request token: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrAuthFailure, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrAuthFailure, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthFailure)
	}

	return token.AccessToken, nil
}

func (c *Client) getJSON(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GraphBase+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: get %s: %v", ErrRemoteUnavailable, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: get %s returned %d", ErrAuthFailure, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: get %s returned %d", ErrRemoteUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}
