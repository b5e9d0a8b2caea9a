package settings

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/brightlens-media/payouts-backend/pkg/enums"
	"github.com/brightlens-media/payouts-backend/pkg/logger"
)

// Setting keys as stored in the payout_settings table.
const (
	KeyPhotographerPercent      = "photographer_percent"
	KeyVideographerPercent      = "videographer_percent"
	KeyPartnerPercent           = "partner_percent"
	KeyEditingPoolPercent       = "editing_pool_percent"
	KeyQualityReviewPoolPercent = "quality_review_pool_percent"
	KeyOperatingPoolPercent     = "operating_pool_percent"
)

// Defaults are the resolved split percentages for one settlement run.
type Defaults struct {
	PhotographerPercent decimal.Decimal
	VideographerPercent decimal.Decimal
	PartnerPercent      decimal.Decimal
	PoolPercents        map[enums.PoolType]decimal.Decimal
}

// Provider loads the current payout defaults. Implementations must read the
// settings table fresh on every call; admins edit these values between runs
// and a cached copy would settle orders against stale percentages.
type Provider interface {
	Load(ctx context.Context) (*Defaults, error)
}

type provider struct {
	repo Repository
	logg *logger.Logger
}

// NewProvider wires a settings provider over the payout settings table.
func NewProvider(repo Repository, logg *logger.Logger) (Provider, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &provider{repo: repo, logg: logg}, nil
}

func (p *provider) Load(ctx context.Context) (*Defaults, error) {
	rows, err := p.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading payout settings: %w", err)
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	defaults := &Defaults{
		PhotographerPercent: p.resolve(ctx, values, KeyPhotographerPercent, "40"),
		VideographerPercent: p.resolve(ctx, values, KeyVideographerPercent, "10"),
		PartnerPercent:      p.resolve(ctx, values, KeyPartnerPercent, "25"),
		PoolPercents: map[enums.PoolType]decimal.Decimal{
			enums.PoolTypeEditing:       p.resolve(ctx, values, KeyEditingPoolPercent, "5"),
			enums.PoolTypeQualityReview: p.resolve(ctx, values, KeyQualityReviewPoolPercent, "5"),
			enums.PoolTypeOperating:     p.resolve(ctx, values, KeyOperatingPoolPercent, "5"),
		},
	}
	return defaults, nil
}

// resolve parses one stored percentage, falling back to the shipped default
// when the row is missing or unparseable.
func (p *provider) resolve(ctx context.Context, values map[string]string, key, fallback string) decimal.Decimal {
	raw, ok := values[key]
	if !ok {
		return decimal.RequireFromString(fallback)
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		if p.logg != nil {
			fields := p.logg.WithFields(ctx, map[string]any{"key": key, "value": raw})
			p.logg.Warn(fields, "unparseable payout setting; using shipped default")
		}
		return decimal.RequireFromString(fallback)
	}
	return parsed
}
