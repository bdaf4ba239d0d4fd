package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"example.com/legacyfund/internal/config"
	"example.com/legacyfund/internal/domain"
	"example.com/legacyfund/internal/idempotency"
	"example.com/legacyfund/internal/shares"
	"example.com/legacyfund/internal/submission"
)

// RateSource hands out the current exchange rate snapshot.
type RateSource interface {
	Snapshot(ctx context.Context) (domain.ExchangeRateSnapshot, error)
}

// CampaignStore persists an assembled campaign.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, ownerID, idemKey string, sub *submission.CampaignSubmission) (id string, created bool, err error)
}

type Pinger interface {
	Ready(ctx context.Context) error
}

type ServerDeps struct {
	Cfg       config.Config
	Rates     RateSource
	Campaigns CampaignStore
	DB        Pinger
	Logger    *zap.Logger
	Now       func() time.Time
}

func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := d.DB.Ready(r.Context()); err != nil {
		WriteProblem(w, http.StatusServiceUnavailable, "not ready", "database not reachable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- Bounds ---

func (d *ServerDeps) HandleBounds(w http.ResponseWriter, r *http.Request) {
	country := domain.CountryCode(strings.ToUpper(chi.URLParam(r, "country")))
	if !country.Supported() {
		WriteProblem(w, http.StatusNotFound, "unsupported country", string(country)+" is not a supported country", nil)
		return
	}
	rates := d.snapshot(r.Context())
	if !rates.Usable(country) {
		WriteProblem(w, http.StatusServiceUnavailable, "rates unavailable", "exchange rates are not loaded yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, domain.Bounds(country, rates))
}

// --- Validation ---

func (d *ServerDeps) HandleValidate(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	var draft domain.CampaignDraft
	if err := decodeJSONStrict(r, &draft); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}
	draft.NormalizeCurrency()
	res := domain.ValidateCampaign(&draft, d.snapshot(r.Context()), d.Now())
	if res.Errors == nil {
		res.Errors = []domain.FieldError{}
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Allocations ---

type allocationRequest struct {
	Beneficiaries    []domain.BeneficiaryAllocation `json:"beneficiaries"`
	DistributionRule domain.DistributionRule        `json:"distribution_rule,omitempty"`
	User             *domain.BeneficiaryUser        `json:"user,omitempty"`
	BeneficiaryID    string                         `json:"beneficiary_id,omitempty"`
	Value            *float64                       `json:"value,omitempty"`
	Document         *domain.Image                  `json:"document,omitempty"`
	DocumentIndex    *int                           `json:"document_index,omitempty"`
}

type allocationResponse struct {
	Beneficiaries []domain.BeneficiaryAllocation `json:"beneficiaries"`
	ShareTotal    float64                        `json:"share_total"`
}

var errMissingField = errors.New("missing field")

func (d *ServerDeps) allocation(op func(req allocationRequest) ([]domain.BeneficiaryAllocation, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer DrainBody(r)
		var req allocationRequest
		if err := decodeJSONStrict(r, &req); err != nil {
			WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
			return
		}
		list, err := op(req)
		switch {
		case errors.Is(err, errMissingField):
			WriteProblem(w, http.StatusBadRequest, "invalid parameters", err.Error(), nil)
			return
		case errors.Is(err, shares.ErrDuplicateBeneficiary):
			WriteProblem(w, http.StatusConflict, "duplicate", err.Error(), nil)
			return
		case errors.Is(err, shares.ErrBeneficiaryLimit):
			WriteProblem(w, http.StatusConflict, "limit_reached", err.Error(), nil)
			return
		case errors.Is(err, shares.ErrBeneficiaryNotFound):
			WriteProblem(w, http.StatusNotFound, "not found", err.Error(), nil)
			return
		case err != nil:
			WriteProblem(w, http.StatusInternalServerError, "allocation error", err.Error(), nil)
			return
		}
		if list == nil {
			list = []domain.BeneficiaryAllocation{}
		}
		writeJSON(w, http.StatusOK, allocationResponse{Beneficiaries: list, ShareTotal: shares.Sum(list)})
	}
}

func addAllocation(req allocationRequest) ([]domain.BeneficiaryAllocation, error) {
	if req.User == nil || strings.TrimSpace(req.User.ID) == "" {
		return nil, fmt.Errorf("%w: user.id is required", errMissingField)
	}
	rule := req.DistributionRule
	if rule == "" {
		rule = domain.DistributionPercentage
	}
	return shares.Add(req.Beneficiaries, *req.User, rule)
}

func removeAllocation(req allocationRequest) ([]domain.BeneficiaryAllocation, error) {
	return shares.Remove(req.Beneficiaries, req.BeneficiaryID)
}

func updateAllocationShare(req allocationRequest) ([]domain.BeneficiaryAllocation, error) {
	if req.Value == nil {
		return nil, fmt.Errorf("%w: value is required", errMissingField)
	}
	return shares.UpdateShare(req.Beneficiaries, req.BeneficiaryID, *req.Value)
}

func addAllocationDocument(req allocationRequest) ([]domain.BeneficiaryAllocation, error) {
	if req.Document == nil || req.Document.URI == "" {
		return nil, fmt.Errorf("%w: document.uri is required", errMissingField)
	}
	return shares.AddDocument(req.Beneficiaries, req.BeneficiaryID, *req.Document)
}

func removeAllocationDocument(req allocationRequest) ([]domain.BeneficiaryAllocation, error) {
	if req.DocumentIndex == nil {
		return nil, fmt.Errorf("%w: document_index is required", errMissingField)
	}
	return shares.RemoveDocument(req.Beneficiaries, req.BeneficiaryID, *req.DocumentIndex)
}

// --- Campaigns ---

type createCampaignResp struct {
	CampaignID string                         `json:"campaign_id"`
	Created    bool                           `json:"created"`
	Submission *submission.CampaignSubmission `json:"submission"`
}

func (d *ServerDeps) HandleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	owner := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if owner == "" {
		WriteProblem(w, http.StatusUnauthorized, "unauthorized", "missing X-User-ID", nil)
		return
	}
	var draft domain.CampaignDraft
	if err := decodeJSONStrict(r, &draft); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}
	draft.NormalizeCurrency()

	rates := d.snapshot(r.Context())
	if res := domain.ValidateCampaign(&draft, rates, d.Now()); !res.IsValid {
		WriteProblem(w, http.StatusUnprocessableEntity, "validation failed", "one or more fields are invalid", res.ByField())
		return
	}

	sub, err := submission.Assemble(&draft, rates)
	switch {
	case errors.Is(err, submission.ErrRatesUnavailable):
		w.Header().Set("Retry-After", "30")
		WriteProblem(w, http.StatusServiceUnavailable, "rates unavailable", err.Error(), nil)
		return
	case err != nil:
		WriteProblem(w, http.StatusUnprocessableEntity, "invalid amount", err.Error(), nil)
		return
	}

	key, src, err := idempotency.DeriveKey(owner, r.Header.Get("Idempotency-Key"), &sub)
	if err != nil {
		WriteProblem(w, http.StatusInternalServerError, "idempotency error", err.Error(), nil)
		return
	}
	id, created, err := d.Campaigns.CreateCampaign(r.Context(), owner, key, &sub)
	if err != nil {
		d.Logger.Error("create campaign failed", zap.String("owner", owner), zap.Error(err))
		WriteProblem(w, http.StatusInternalServerError, "storage error", "campaign could not be created, please retry", nil)
		return
	}
	d.Logger.Info("campaign stored",
		zap.String("campaign_id", id),
		zap.String("owner", owner),
		zap.Bool("created", created),
		zap.String("idempotency_source", string(src)),
		zap.String("country", string(sub.Country)),
		zap.Int64("goal_usd", sub.GoalUSD))

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, createCampaignResp{CampaignID: id, Created: created, Submission: &sub})
}

// snapshot returns the current rates, or the zero snapshot when they cannot be loaded.
func (d *ServerDeps) snapshot(ctx context.Context) domain.ExchangeRateSnapshot {
	snap, err := d.Rates.Snapshot(ctx)
	if err != nil {
		d.Logger.Warn("exchange rates unavailable", zap.Error(err))
		return domain.ExchangeRateSnapshot{}
	}
	return snap
}

// --- Router ---

func (d *ServerDeps) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(d.Logger))

	r.Get("/healthz", d.HandleHealthz)
	r.Get("/readyz", d.HandleReadyz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(d.Cfg.APIKeySet()))
		r.Get("/countries/{country}/bounds", d.HandleBounds)

		r.Group(func(r chi.Router) {
			r.Use(BodyLimit(d.Cfg.MaxBodyBytes), RequireJSON)

			r.Post("/campaigns/validate", d.HandleValidate)
			r.With(RateLimitPerMinute(d.Cfg.RateLimitSubmissionsPerMin, d.Now)).
				Post("/campaigns", d.HandleCreateCampaign)

			r.Post("/allocations/add", d.allocation(addAllocation))
			r.Post("/allocations/remove", d.allocation(removeAllocation))
			r.Post("/allocations/share", d.allocation(updateAllocationShare))
			r.Post("/allocations/documents/add", d.allocation(addAllocationDocument))
			r.Post("/allocations/documents/remove", d.allocation(removeAllocationDocument))
		})
	})

	return r
}
