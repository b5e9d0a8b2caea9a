package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightlens-media/payouts-backend/internal/directory"
	"github.com/brightlens-media/payouts-backend/internal/settings"
	"github.com/brightlens-media/payouts-backend/pkg/db/models"
	"github.com/brightlens-media/payouts-backend/pkg/enums"
	"github.com/brightlens-media/payouts-backend/pkg/logger"
	"github.com/brightlens-media/payouts-backend/pkg/metrics"
	stripeclient "github.com/brightlens-media/payouts-backend/pkg/stripe"
)

const (
	partnerRole = "partner"

	errNoContractor          = "no contractor assigned to listing"
	errAlreadyInProgress     = "settlement already in progress for this order"
	runOutcomeCompleted      = "completed"
	runOutcomeFailed         = "failed"
	runOutcomeAlreadySettled = "already_settled"
)

// Service is the settlement engine facade. Business failures are reported
// inside the structured results; a Go error is returned only for invalid
// input or when the infrastructure itself is unavailable.
type Service interface {
	ProcessJobPayouts(ctx context.Context, orderID, listingID uuid.UUID) (*ProcessResult, error)
	ReverseOrderPayouts(ctx context.Context, orderID uuid.UUID, reason string) (*ReverseResult, error)
}

// ProcessResult is the outcome of one settlement attempt.
type ProcessResult struct {
	Success          bool     `json:"success"`
	AlreadySettled   bool     `json:"already_settled"`
	PhotographerPaid bool     `json:"photographer_paid"`
	VideographerPaid bool     `json:"videographer_paid"`
	PartnerPaid      bool     `json:"partner_paid"`
	PoolsAllocated   bool     `json:"pools_allocated"`
	Errors           []string `json:"errors,omitempty"`
}

// ReverseResult is the outcome of one refund-triggered reversal pass.
type ReverseResult struct {
	Success       bool     `json:"success"`
	ReversedCount int      `json:"reversed_count"`
	Errors        []string `json:"errors,omitempty"`
}

type service struct {
	repo      Repository
	directory directory.Repository
	settings  settings.Provider
	provider  TransferProvider
	exec      *executor
	logg      *logger.Logger
	metrics   *metrics.SettlementMetrics
}

// NewService wires the settlement engine with its collaborators. Metrics may
// be nil; every other dependency is required.
func NewService(
	repo Repository,
	dir directory.Repository,
	settingsProvider settings.Provider,
	provider TransferProvider,
	logg *logger.Logger,
	m *metrics.SettlementMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory repository required")
	}
	if settingsProvider == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	if provider == nil {
		return nil, fmt.Errorf("transfer provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		directory: dir,
		settings:  settingsProvider,
		provider:  provider,
		exec:      newExecutor(provider, logg, m),
		logg:      logg,
		metrics:   m,
	}, nil
}

func (s *service) ProcessJobPayouts(ctx context.Context, orderID, listingID uuid.UUID) (*ProcessResult, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if listingID == uuid.Nil {
		return nil, fmt.Errorf("listing id is required")
	}

	start := time.Now()
	key := SettlementKey(orderID, listingID)
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	ctx = s.logg.WithListingID(ctx, listingID.String())
	ctx = s.logg.WithSettlementKey(ctx, key)

	acq, err := s.repo.AcquireLock(ctx, &models.SettlementLock{
		IdempotencyKey: key,
		OrderID:        orderID,
		ListingID:      listingID,
	})
	if err != nil {
		return nil, fmt.Errorf("acquiring settlement lock: %w", err)
	}
	if !acq.Acquired {
		s.logg.Info(ctx, "settlement lock already held; returning recorded outcome")
		s.metrics.ObserveRun(runOutcomeAlreadySettled, time.Since(start))
		return s.recordedOutcome(acq), nil
	}

	s.logg.Info(ctx, "settlement lock acquired")

	order, err := s.directory.FindOrder(ctx, orderID)
	if err != nil {
		return s.failRun(ctx, key, start, []string{fmt.Sprintf("loading order: %s", err)}), nil
	}
	listing, err := s.directory.FindListing(ctx, listingID)
	if err != nil {
		return s.failRun(ctx, key, start, []string{fmt.Sprintf("loading listing: %s", err)}), nil
	}
	defaults, err := s.settings.Load(ctx)
	if err != nil {
		return s.failRun(ctx, key, start, []string{fmt.Sprintf("loading payout settings: %s", err)}), nil
	}

	var errs []string
	rates := SplitRates{Pools: defaults.PoolPercents}

	var photographer *models.StaffMember
	if listing.PhotographerID == nil {
		errs = append(errs, errNoContractor)
	} else {
		photographer, err = s.directory.FindStaffMember(ctx, *listing.PhotographerID)
		if err != nil {
			return s.failRun(ctx, key, start, []string{fmt.Sprintf("loading photographer: %s", err)}), nil
		}
		rates.Photographer = resolvePercent(photographer.PayoutPercent, defaults.PhotographerPercent)
	}

	var videographer *models.StaffMember
	if listing.VideographerID != nil {
		if photographer != nil && *listing.VideographerID == photographer.ID {
			// Same person shot both; never pay twice.
			s.logg.Info(ctx, "videographer matches photographer; skipping second payout")
		} else {
			videographer, err = s.directory.FindStaffMember(ctx, *listing.VideographerID)
			if err != nil {
				return s.failRun(ctx, key, start, []string{fmt.Sprintf("loading videographer: %s", err)}), nil
			}
			rates.Videographer = resolvePercent(videographer.PayoutPercent, defaults.VideographerPercent)
		}
	}

	var partner *models.Partner
	if photographer != nil && photographer.PartnerID != nil {
		partner, err = s.directory.FindPartner(ctx, *photographer.PartnerID)
		if err != nil {
			return s.failRun(ctx, key, start, []string{fmt.Sprintf("loading partner: %s", err)}), nil
		}
		rates.Partner = resolvePercent(partner.RevenueSharePercent, defaults.PartnerPercent)
	}

	plan := CalculateSplits(order.TotalCents, rates)
	requests := buildRequests(plan, photographer, videographer, partner)

	succeeded, failedOutcome := s.exec.execute(ctx, orderID, requests)
	if failedOutcome != nil {
		errs = append(errs, failedOutcome.Err)
		if compErr := s.exec.compensate(ctx, orderID, succeeded); compErr != nil {
			errs = append(errs, fmt.Sprintf("compensation incomplete: %s", compErr))
		}
		return s.failRun(ctx, key, start, errs), nil
	}

	commit := buildCommit(key, orderID, plan, succeeded, errs)
	if err := s.repo.CommitSettlement(ctx, commit); err != nil {
		errs = append(errs, fmt.Sprintf("settlement commit failed: %s", err))
		// A late database failure is treated exactly like a late transfer
		// failure: unwind everything that already moved money.
		if compErr := s.exec.compensate(ctx, orderID, succeeded); compErr != nil {
			errs = append(errs, fmt.Sprintf("compensation incomplete: %s", compErr))
		}
		return s.failRun(ctx, key, start, errs), nil
	}

	result := &ProcessResult{
		Success:          len(errs) == 0,
		PhotographerPaid: paidRole(succeeded, string(enums.StaffRolePhotographer)),
		VideographerPaid: paidRole(succeeded, string(enums.StaffRoleVideographer)),
		PartnerPaid:      paidRole(succeeded, partnerRole),
		PoolsAllocated:   len(plan.Pools) > 0,
		Errors:           errs,
	}
	s.metrics.ObserveRun(runOutcomeCompleted, time.Since(start))
	s.logg.Info(ctx, "settlement committed")
	return result, nil
}

func (s *service) ReverseOrderPayouts(ctx context.Context, orderID uuid.UUID, reason string) (*ReverseResult, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("reversal reason is required")
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())

	staffRows, err := s.repo.FindCompletedStaffPayouts(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading staff payouts: %w", err)
	}
	partnerRows, err := s.repo.FindCompletedPartnerPayouts(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading partner payouts: %w", err)
	}

	now := time.Now().UTC()
	result := &ReverseResult{}

	for _, row := range staffRows {
		s.reverseRow(ctx, reverseTarget{
			id:           row.ID,
			transferID:   row.StripeTransferID,
			label:        fmt.Sprintf("staff payout %s", row.ID),
			markReversed: s.repo.MarkStaffPayoutReversed,
			appendError:  s.repo.AppendStaffPayoutError,
		}, reason, now, result)
	}
	for _, row := range partnerRows {
		s.reverseRow(ctx, reverseTarget{
			id:           row.ID,
			transferID:   row.StripeTransferID,
			label:        fmt.Sprintf("partner payout %s", row.ID),
			markReversed: s.repo.MarkPartnerPayoutReversed,
			appendError:  s.repo.AppendPartnerPayoutError,
		}, reason, now, result)
	}

	if err := s.repo.MarkPoolAllocationsReversed(ctx, orderID); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("reversing pool allocations: %s", err))
	}

	result.Success = len(result.Errors) == 0
	s.logg.Info(s.logg.WithField(ctx, "reversed_count", result.ReversedCount), "payout reversal pass finished")
	return result, nil
}

type reverseTarget struct {
	id           uuid.UUID
	transferID   *string
	label        string
	markReversed func(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
	appendError  func(ctx context.Context, id uuid.UUID, errText string) error
}

func (s *service) reverseRow(ctx context.Context, target reverseTarget, reason string, at time.Time, result *ReverseResult) {
	if target.transferID != nil {
		_, err := s.provider.ReverseTransfer(ctx, stripeclient.ReversalParams{
			TransferID: *target.transferID,
			Reason:     reason,
		})
		if err != nil {
			s.metrics.IncReversal("failure")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", target.label, err))
			if appendErr := target.appendError(ctx, target.id, err.Error()); appendErr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: recording error: %s", target.label, appendErr))
			}
			return
		}
		s.metrics.IncReversal("success")
	}

	if err := target.markReversed(ctx, target.id, reason, at); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: marking reversed: %s", target.label, err))
		return
	}
	result.ReversedCount++
}

// recordedOutcome replays a resolved lock's outcome without touching the
// transfer provider. The lock persists only status and error text, so a
// replayed completed run reports success and PoolsAllocated but leaves the
// per-recipient paid flags false; the payout rows are the durable record of
// who was paid.
func (s *service) recordedOutcome(acq *LockAcquisition) *ProcessResult {
	switch acq.ExistingStatus {
	case enums.SettlementLockStatusCompleted:
		result := &ProcessResult{
			Success:        acq.ExistingError == nil,
			AlreadySettled: true,
			PoolsAllocated: true,
		}
		if acq.ExistingError != nil {
			result.Errors = []string{*acq.ExistingError}
		}
		return result
	case enums.SettlementLockStatusFailed:
		result := &ProcessResult{AlreadySettled: true}
		if acq.ExistingError != nil {
			result.Errors = []string{*acq.ExistingError}
		}
		return result
	default:
		return &ProcessResult{Errors: []string{errAlreadyInProgress}}
	}
}

func (s *service) failRun(ctx context.Context, key string, start time.Time, errs []string) *ProcessResult {
	if err := s.repo.MarkLockFailed(ctx, key, strings.Join(errs, "; ")); err != nil {
		s.logg.Error(ctx, "marking settlement lock failed", err)
		errs = append(errs, fmt.Sprintf("marking lock failed: %s", err))
	}
	s.metrics.ObserveRun(runOutcomeFailed, time.Since(start))
	return &ProcessResult{Errors: errs}
}

func buildRequests(plan SplitPlan, photographer, videographer *models.StaffMember, partner *models.Partner) []transferRequest {
	var requests []transferRequest
	if photographer != nil && plan.Photographer != nil && plan.Photographer.AmountCents > 0 {
		requests = append(requests, transferRequest{
			RecipientID: photographer.ID,
			Role:        roleLabel(enums.StaffRolePhotographer),
			AmountCents: plan.Photographer.AmountCents,
			Percent:     plan.Photographer.Percent,
			AccountID:   photographer.StripeAccountID,
			Eligible:    staffEligible(photographer),
		})
	}
	if videographer != nil && plan.Videographer != nil && plan.Videographer.AmountCents > 0 {
		requests = append(requests, transferRequest{
			RecipientID: videographer.ID,
			Role:        roleLabel(enums.StaffRoleVideographer),
			AmountCents: plan.Videographer.AmountCents,
			Percent:     plan.Videographer.Percent,
			AccountID:   videographer.StripeAccountID,
			Eligible:    staffEligible(videographer),
		})
	}
	if partner != nil && plan.Partner != nil && plan.Partner.AmountCents > 0 {
		requests = append(requests, transferRequest{
			RecipientID: partner.ID,
			Role:        partnerRole,
			AmountCents: plan.Partner.AmountCents,
			Percent:     plan.Partner.Percent,
			AccountID:   partner.StripeAccountID,
			Eligible:    partner.StripeAccountID != nil && partner.TransfersEnabled,
		})
	}
	return requests
}

func buildCommit(key string, orderID uuid.UUID, plan SplitPlan, succeeded []transferOutcome, errs []string) CommitInput {
	commit := CommitInput{IdempotencyKey: key}
	if len(errs) > 0 {
		joined := strings.Join(errs, "; ")
		commit.LockError = &joined
	}

	for _, outcome := range succeeded {
		transferID := outcome.TransferID
		req := outcome.Request
		if req.Role == partnerRole {
			commit.PartnerPayouts = append(commit.PartnerPayouts, models.PartnerPayoutRecord{
				OrderID:          orderID,
				PartnerID:        req.RecipientID,
				AmountCents:      req.AmountCents,
				Percent:          req.Percent,
				StripeAccountID:  req.AccountID,
				StripeTransferID: &transferID,
				Status:           enums.PayoutStatusCompleted,
			})
			continue
		}
		commit.StaffPayouts = append(commit.StaffPayouts, models.PayoutRecord{
			OrderID:          orderID,
			StaffMemberID:    req.RecipientID,
			Role:             enums.StaffRole(req.Role),
			AmountCents:      req.AmountCents,
			Percent:          req.Percent,
			StripeAccountID:  req.AccountID,
			StripeTransferID: &transferID,
			Status:           enums.PayoutStatusCompleted,
		})
	}

	for _, pool := range plan.Pools {
		commit.PoolAllocations = append(commit.PoolAllocations, models.PoolAllocation{
			OrderID:     orderID,
			Pool:        pool.Pool,
			AmountCents: pool.AmountCents,
			Percent:     pool.Percent,
			Status:      enums.PoolAllocationStatusAvailable,
		})
	}
	return commit
}

func staffEligible(member *models.StaffMember) bool {
	return member.PayoutMode == enums.PayoutModeExternal &&
		member.StripeAccountID != nil &&
		member.TransfersEnabled
}

func paidRole(succeeded []transferOutcome, role string) bool {
	for _, outcome := range succeeded {
		if outcome.Request.Role == role {
			return true
		}
	}
	return false
}

func resolvePercent(override *decimal.Decimal, fallback decimal.Decimal) *decimal.Decimal {
	if override != nil {
		return override
	}
	return &fallback
}
