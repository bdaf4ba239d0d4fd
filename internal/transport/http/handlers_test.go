package transporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"example.com/legacyfund/internal/config"
	"example.com/legacyfund/internal/domain"
	"example.com/legacyfund/internal/submission"
)

var testNow = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

type fakeRates struct {
	snap domain.ExchangeRateSnapshot
	err  error
}

func (f fakeRates) Snapshot(context.Context) (domain.ExchangeRateSnapshot, error) { return f.snap, f.err }

type fakeStore struct {
	mu    sync.Mutex
	byKey map[string]string
	subs  []submission.CampaignSubmission
	err   error
}

func (f *fakeStore) CreateCampaign(_ context.Context, _, key string, sub *submission.CampaignSubmission) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	if id, ok := f.byKey[key]; ok {
		return id, false, nil
	}
	id := "campaign-" + string(rune('a'+len(f.byKey)))
	f.byKey[key] = id
	f.subs = append(f.subs, *sub)
	return id, true, nil
}

type fakeDB struct{ err error }

func (f fakeDB) Ready(context.Context) error { return f.err }

func loadedRates() domain.ExchangeRateSnapshot {
	return domain.ExchangeRateSnapshot{MXNRate: 17, COPRate: 4000, CLPRate: 900, Date: testNow.AddDate(0, 0, -1)}
}

func newTestServer(t *testing.T, rates fakeRates, store *fakeStore, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	cfg := config.Config{MaxBodyBytes: 1 << 20}
	if mutate != nil {
		mutate(&cfg)
	}
	deps := &ServerDeps{
		Cfg:       cfg,
		Rates:     rates,
		Campaigns: store,
		DB:        fakeDB{},
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return testNow },
	}
	server := httptest.NewServer(deps.Router())
	t.Cleanup(server.Close)
	return server
}

func newStore() *fakeStore { return &fakeStore{byKey: map[string]string{}} }

func scenarioDraft() domain.CampaignDraft {
	return domain.CampaignDraft{
		Title:            "Ayuda a Luis",
		Description:      strings.Repeat("Luis necesita ayuda con su tratamiento. ", 3),
		Country:          domain.CountryCL,
		Currency:         domain.CurrencyCLP,
		GoalAmount:       "9000000",
		SoftCap:          "2700000",
		StartDate:        testNow,
		EndDate:          testNow.AddDate(0, 0, 120),
		CampaignImages:   []domain.Image{{URI: "file:///cover.jpg"}},
		Visibility:       domain.VisibilityPublic,
		DistributionRule: domain.DistributionPercentage,
		Beneficiaries: []domain.BeneficiaryAllocation{{
			ID:         "b1",
			User:       domain.BeneficiaryUser{ID: "u1", DisplayName: "Luis"},
			ShareType:  domain.SharePercent,
			ShareValue: 100,
			Documents:  []domain.Image{{URI: "file:///doc.pdf"}},
		}},
	}
}

func post(t *testing.T, url string, body any, headers map[string]string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, fakeRates{}, newStore(), nil)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ready, err := http.Get(server.URL + "/readyz")
	require.NoError(t, err)
	defer ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)
}

func TestBounds(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		rates      fakeRates
		wantStatus int
		wantMax    float64
	}{
		{name: "chile", path: "cl", rates: fakeRates{snap: loadedRates()}, wantStatus: http.StatusOK, wantMax: 90_000_000},
		{name: "us without rates", path: "US", rates: fakeRates{err: errors.New("down")}, wantStatus: http.StatusOK, wantMax: 250_000},
		{name: "mexico without rates", path: "MX", rates: fakeRates{err: errors.New("down")}, wantStatus: http.StatusServiceUnavailable},
		{name: "unsupported", path: "AR", rates: fakeRates{snap: loadedRates()}, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.rates, newStore(), nil)
			resp, err := http.Get(server.URL + "/v1/countries/" + tt.path + "/bounds")
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				b := decode[domain.AmountBounds](t, resp)
				assert.Equal(t, tt.wantMax, b.Max)
				assert.Less(t, b.Min, b.Max)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	server := newTestServer(t, fakeRates{snap: loadedRates()}, newStore(), nil)

	resp := post(t, server.URL+"/v1/campaigns/validate", scenarioDraft(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[domain.ValidationResult](t, resp)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)

	d := scenarioDraft()
	d.EndDate = testNow.AddDate(0, 0, 30)
	resp = post(t, server.URL+"/v1/campaigns/validate", d, nil)
	res = decode[domain.ValidationResult](t, resp)
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "endDate", res.Errors[0].Field)
}

func TestValidateCurrency(t *testing.T) {
	server := newTestServer(t, fakeRates{snap: loadedRates()}, newStore(), nil)

	d := scenarioDraft()
	d.Currency = domain.CurrencyUSD
	resp := post(t, server.URL+"/v1/campaigns/validate", d, nil)
	res := decode[domain.ValidationResult](t, resp)
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "currency", res.Errors[0].Field)

	d.Currency = ""
	resp = post(t, server.URL+"/v1/campaigns", d, map[string]string{"X-User-ID": "owner-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[createCampaignResp](t, resp)
	assert.Equal(t, domain.CurrencyCLP, body.Submission.Currency)
}

func TestValidateRejectsUnknownFieldsAndContentType(t *testing.T) {
	server := newTestServer(t, fakeRates{snap: loadedRates()}, newStore(), nil)

	resp := post(t, server.URL+"/v1/campaigns/validate", map[string]any{"titel": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/v1/campaigns/validate", strings.NewReader("{}"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	plain, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer plain.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, plain.StatusCode)
}

func TestCreateCampaign(t *testing.T) {
	store := newStore()
	server := newTestServer(t, fakeRates{snap: loadedRates()}, store, nil)
	headers := map[string]string{"X-User-ID": "owner-1"}

	resp := post(t, server.URL+"/v1/campaigns", scenarioDraft(), headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[createCampaignResp](t, resp)
	assert.Equal(t, "campaign-a", body.CampaignID)
	assert.True(t, body.Created)
	assert.Equal(t, int64(10_000), body.Submission.GoalUSD)
	assert.Equal(t, int64(3_000), body.Submission.SoftCapUSD)

	// a retry of the same draft is recognised
	resp = post(t, server.URL+"/v1/campaigns", scenarioDraft(), headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[createCampaignResp](t, resp)
	assert.Equal(t, "campaign-a", body.CampaignID)
	assert.False(t, body.Created)
	assert.Len(t, store.subs, 1)
}

func TestCreateCampaignFailures(t *testing.T) {
	invalid := scenarioDraft()
	invalid.Title = "corto"
	invalid.Beneficiaries[0].ShareValue = 50

	tests := []struct {
		name       string
		draft      domain.CampaignDraft
		rates      fakeRates
		store      *fakeStore
		headers    map[string]string
		wantStatus int
		wantFields []string
	}{
		{
			name:       "missing owner",
			draft:      scenarioDraft(),
			rates:      fakeRates{snap: loadedRates()},
			store:      newStore(),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid draft",
			draft:      invalid,
			rates:      fakeRates{snap: loadedRates()},
			store:      newStore(),
			headers:    map[string]string{"X-User-ID": "owner-1"},
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"title", "beneficiaries"},
		},
		{
			name:       "rates unavailable",
			draft:      scenarioDraft(),
			rates:      fakeRates{err: errors.New("rates function down")},
			store:      newStore(),
			headers:    map[string]string{"X-User-ID": "owner-1"},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "storage failure",
			draft:      scenarioDraft(),
			rates:      fakeRates{snap: loadedRates()},
			store:      &fakeStore{byKey: map[string]string{}, err: errors.New("tx aborted")},
			headers:    map[string]string{"X-User-ID": "owner-1"},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.rates, tt.store, nil)
			resp := post(t, server.URL+"/v1/campaigns", tt.draft, tt.headers)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

			prob := decode[Problem](t, resp)
			for _, f := range tt.wantFields {
				assert.Contains(t, prob.Errors, f)
			}
			assert.Empty(t, tt.store.subs)
		})
	}
}

func TestAllocations(t *testing.T) {
	server := newTestServer(t, fakeRates{}, newStore(), nil)

	resp := post(t, server.URL+"/v1/allocations/add", map[string]any{
		"distribution_rule": "percentage",
		"user":              domain.BeneficiaryUser{ID: "u1", DisplayName: "Ana"},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[allocationResponse](t, resp)
	require.Len(t, first.Beneficiaries, 1)
	assert.Equal(t, 100.0, first.ShareTotal)

	resp = post(t, server.URL+"/v1/allocations/add", map[string]any{
		"beneficiaries": first.Beneficiaries,
		"user":          domain.BeneficiaryUser{ID: "u2", DisplayName: "Beto"},
	}, nil)
	second := decode[allocationResponse](t, resp)
	require.Len(t, second.Beneficiaries, 2)
	assert.Equal(t, 150.0, second.ShareTotal)

	resp = post(t, server.URL+"/v1/allocations/add", map[string]any{
		"beneficiaries": second.Beneficiaries,
		"user":          domain.BeneficiaryUser{ID: "u2"},
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "duplicate", decode[Problem](t, resp).Title)

	id := second.Beneficiaries[0].ID
	resp = post(t, server.URL+"/v1/allocations/share", map[string]any{
		"beneficiaries":  second.Beneficiaries,
		"beneficiary_id": id,
		"value":          50,
	}, nil)
	shared := decode[allocationResponse](t, resp)
	assert.Equal(t, 100.0, shared.ShareTotal)

	resp = post(t, server.URL+"/v1/allocations/documents/add", map[string]any{
		"beneficiaries":  shared.Beneficiaries,
		"beneficiary_id": id,
		"document":       domain.Image{URI: "file:///acta.pdf"},
	}, nil)
	withDoc := decode[allocationResponse](t, resp)
	assert.Len(t, withDoc.Beneficiaries[0].Documents, 1)

	resp = post(t, server.URL+"/v1/allocations/documents/remove", map[string]any{
		"beneficiaries":  withDoc.Beneficiaries,
		"beneficiary_id": id,
		"document_index": 0,
	}, nil)
	withoutDoc := decode[allocationResponse](t, resp)
	assert.Empty(t, withoutDoc.Beneficiaries[0].Documents)

	resp = post(t, server.URL+"/v1/allocations/remove", map[string]any{
		"beneficiaries":  withoutDoc.Beneficiaries,
		"beneficiary_id": id,
	}, nil)
	removed := decode[allocationResponse](t, resp)
	require.Len(t, removed.Beneficiaries, 1)
	assert.Equal(t, 50.0, removed.ShareTotal)

	resp = post(t, server.URL+"/v1/allocations/remove", map[string]any{"beneficiary_id": "ghost"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = post(t, server.URL+"/v1/allocations/share", map[string]any{"beneficiary_id": id}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIKeyAuth(t *testing.T) {
	server := newTestServer(t, fakeRates{snap: loadedRates()}, newStore(), func(c *config.Config) {
		c.APIKeys = []string{"secret"}
	})

	resp := post(t, server.URL+"/v1/campaigns/validate", scenarioDraft(), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, server.URL+"/v1/campaigns/validate", scenarioDraft(), map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	health, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestSubmissionRateLimit(t *testing.T) {
	server := newTestServer(t, fakeRates{snap: loadedRates()}, newStore(), func(c *config.Config) {
		c.RateLimitSubmissionsPerMin = 1
	})
	headers := map[string]string{"X-User-ID": "owner-1"}

	resp := post(t, server.URL+"/v1/campaigns", scenarioDraft(), headers)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post(t, server.URL+"/v1/campaigns", scenarioDraft(), headers)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	// validation is not limited
	resp = post(t, server.URL+"/v1/campaigns/validate", scenarioDraft(), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
