package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"example.com/legacyfund/internal/domain"
	"example.com/legacyfund/internal/submission"
)

type Campaigns struct {
	db *DB
}

func NewCampaigns(db *DB) *Campaigns { return &Campaigns{db: db} }

// CreateCampaign stores the campaign, its beneficiaries and its images in one
// transaction, so a failure part way leaves no partial rows behind.
// A repeated idempotency key returns the id stored the first time and created=false.
func (c *Campaigns) CreateCampaign(ctx context.Context, ownerID, idemKey string, sub *submission.CampaignSubmission) (id string, created bool, err error) {
	err = pgx.BeginFunc(ctx, c.db.Pool, func(tx pgx.Tx) error {
		newID := uuid.NewString()
		var hard any
		if sub.HardCapUSD != nil {
			hard = *sub.HardCapUSD
		}

		err := tx.QueryRow(ctx, `
INSERT INTO campaigns (
  id, owner_id, idempotency_key, title, description, country, currency,
  goal_usd, soft_cap_usd, hard_cap_usd, exchange_rate, rate_date,
  start_date, end_date, has_diagnosis, visibility, distribution_rule
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING id::text`,
			newID, ownerID, idemKey, sub.Title, sub.Description, string(sub.Country), string(sub.Currency),
			sub.GoalUSD, sub.SoftCapUSD, hard, sub.ExchangeRate, nullDate(sub.RateDate),
			sub.StartDate, sub.EndDate, sub.HasDiagnosis, string(sub.Visibility), string(sub.DistributionRule),
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			// already stored by an earlier attempt
			return tx.QueryRow(ctx, `SELECT id::text FROM campaigns WHERE idempotency_key=$1`, idemKey).Scan(&id)
		}
		if err != nil {
			return fmt.Errorf("insert campaign: %w", err)
		}
		created = true

		batch := &pgx.Batch{}
		for pos, b := range sub.Beneficiaries {
			docs, err := json.Marshal(b.Documents)
			if err != nil {
				return fmt.Errorf("encode documents: %w", err)
			}
			batch.Queue(`
INSERT INTO campaign_beneficiaries (id, campaign_id, position, user_id, share_type, share_value, documents)
VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb)`,
				uuid.NewString(), id, pos, b.User.ID, string(b.ShareType), b.ShareValue, string(docs))
		}
		queueImages(batch, id, "campaign", sub.CampaignImages)
		if sub.HasDiagnosis {
			queueImages(batch, id, "diagnosis", sub.DiagnosisImages)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert campaign children: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return id, created, nil
}

func queueImages(batch *pgx.Batch, campaignID, kind string, images []domain.Image) {
	for pos, img := range images {
		batch.Queue(`
INSERT INTO campaign_images (campaign_id, kind, position, uri, name, mime_type)
VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''))`,
			campaignID, kind, pos, img.URI, img.Name, img.MimeType)
	}
}
