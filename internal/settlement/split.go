package settlement

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightlens-media/payouts-backend/pkg/enums"
)

var oneHundred = decimal.NewFromInt(100)

// SplitRates holds the resolved percentage per recipient and pool for one
// settlement run. A nil recipient percent means that recipient does not
// participate in the run at all.
type SplitRates struct {
	Photographer *decimal.Decimal
	Videographer *decimal.Decimal
	Partner      *decimal.Decimal
	Pools        map[enums.PoolType]decimal.Decimal
}

// RecipientSplit is one recipient's resolved percent and rounded cent amount.
type RecipientSplit struct {
	Percent     decimal.Decimal
	AmountCents int64
}

// PoolSplit is one internal pool's resolved percent and rounded cent amount.
type PoolSplit struct {
	Pool        enums.PoolType
	Percent     decimal.Decimal
	AmountCents int64
}

// SplitPlan is the full cent breakdown of one order. Amounts are rounded
// independently and are not reconciled against the order total; the
// unallocated remainder stays with the business.
type SplitPlan struct {
	Photographer *RecipientSplit
	Videographer *RecipientSplit
	Partner      *RecipientSplit
	Pools        []PoolSplit
}

// Share computes one participant's cut of the order total in integer cents,
// rounding half away from zero. Non-positive totals or percents yield zero.
func Share(totalCents int64, percent decimal.Decimal) int64 {
	if totalCents <= 0 || percent.Sign() <= 0 {
		return 0
	}
	return decimal.NewFromInt(totalCents).
		Mul(percent).
		Div(oneHundred).
		Round(0).
		IntPart()
}

// CalculateSplits resolves every participant's cent amount for the order.
// Pure and deterministic; pool entries follow the commit order returned by
// enums.AllPoolTypes.
func CalculateSplits(totalCents int64, rates SplitRates) SplitPlan {
	plan := SplitPlan{}
	if rates.Photographer != nil {
		plan.Photographer = &RecipientSplit{
			Percent:     *rates.Photographer,
			AmountCents: Share(totalCents, *rates.Photographer),
		}
	}
	if rates.Videographer != nil {
		plan.Videographer = &RecipientSplit{
			Percent:     *rates.Videographer,
			AmountCents: Share(totalCents, *rates.Videographer),
		}
	}
	if rates.Partner != nil {
		plan.Partner = &RecipientSplit{
			Percent:     *rates.Partner,
			AmountCents: Share(totalCents, *rates.Partner),
		}
	}
	for _, pool := range enums.AllPoolTypes() {
		percent, ok := rates.Pools[pool]
		if !ok {
			continue
		}
		plan.Pools = append(plan.Pools, PoolSplit{
			Pool:        pool,
			Percent:     percent,
			AmountCents: Share(totalCents, percent),
		})
	}
	return plan
}

// SettlementKey derives the deterministic idempotency key guarding one
// (order, listing) settlement. The same pair always maps to the same lock
// row.
func SettlementKey(orderID, listingID uuid.UUID) string {
	sum := sha256.Sum256([]byte("settlement:" + orderID.String() + ":" + listingID.String()))
	return hex.EncodeToString(sum[:])
}

// TransferKey derives the per-recipient provider idempotency key so retried
// transfer calls never duplicate at the provider.
func TransferKey(orderID, recipientID uuid.UUID, role string) string {
	return fmt.Sprintf("transfer:%s:%s:%s", orderID, recipientID, role)
}
