package settlement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightlens-media/payouts-backend/internal/settings"
	"github.com/brightlens-media/payouts-backend/pkg/db/models"
	"github.com/brightlens-media/payouts-backend/pkg/enums"
	"github.com/brightlens-media/payouts-backend/pkg/logger"
	stripeclient "github.com/brightlens-media/payouts-backend/pkg/stripe"
)

type fakeRepo struct {
	acquireFn    func(ctx context.Context, lock *models.SettlementLock) (*LockAcquisition, error)
	commitFn     func(ctx context.Context, input CommitInput) error
	failedKeys   []string
	failedErrors []string
	commits      []CommitInput

	staffRows        []models.PayoutRecord
	partnerRows      []models.PartnerPayoutRecord
	staffReversed    []uuid.UUID
	partnerReversed  []uuid.UUID
	staffErrAppends  map[uuid.UUID]string
	poolsReversedFor []uuid.UUID
}

func (f *fakeRepo) AcquireLock(ctx context.Context, lock *models.SettlementLock) (*LockAcquisition, error) {
	if f.acquireFn != nil {
		return f.acquireFn(ctx, lock)
	}
	return &LockAcquisition{Acquired: true, ExistingStatus: enums.SettlementLockStatusAcquired}, nil
}

func (f *fakeRepo) CommitSettlement(ctx context.Context, input CommitInput) error {
	f.commits = append(f.commits, input)
	if f.commitFn != nil {
		return f.commitFn(ctx, input)
	}
	return nil
}

func (f *fakeRepo) MarkLockFailed(ctx context.Context, key string, errText string) error {
	f.failedKeys = append(f.failedKeys, key)
	f.failedErrors = append(f.failedErrors, errText)
	return nil
}

func (f *fakeRepo) OverrideLockStatus(ctx context.Context, key string, status enums.SettlementLockStatus, note *string) error {
	return nil
}

func (f *fakeRepo) FindStuckLocks(ctx context.Context, before time.Time) ([]models.SettlementLock, error) {
	return nil, nil
}

func (f *fakeRepo) FindCompletedStaffPayouts(ctx context.Context, orderID uuid.UUID) ([]models.PayoutRecord, error) {
	return f.staffRows, nil
}

func (f *fakeRepo) FindCompletedPartnerPayouts(ctx context.Context, orderID uuid.UUID) ([]models.PartnerPayoutRecord, error) {
	return f.partnerRows, nil
}

func (f *fakeRepo) MarkStaffPayoutReversed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	f.staffReversed = append(f.staffReversed, id)
	return nil
}

func (f *fakeRepo) MarkPartnerPayoutReversed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	f.partnerReversed = append(f.partnerReversed, id)
	return nil
}

func (f *fakeRepo) AppendStaffPayoutError(ctx context.Context, id uuid.UUID, errText string) error {
	if f.staffErrAppends == nil {
		f.staffErrAppends = map[uuid.UUID]string{}
	}
	f.staffErrAppends[id] = errText
	return nil
}

func (f *fakeRepo) AppendPartnerPayoutError(ctx context.Context, id uuid.UUID, errText string) error {
	return nil
}

func (f *fakeRepo) MarkPoolAllocationsReversed(ctx context.Context, orderID uuid.UUID) error {
	f.poolsReversedFor = append(f.poolsReversedFor, orderID)
	return nil
}

type fakeDirectory struct {
	orders   map[uuid.UUID]*models.Order
	listings map[uuid.UUID]*models.Listing
	staff    map[uuid.UUID]*models.StaffMember
	partners map[uuid.UUID]*models.Partner
}

func (f *fakeDirectory) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := f.orders[id]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDirectory) FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	if listing, ok := f.listings[id]; ok {
		return listing, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDirectory) FindStaffMember(ctx context.Context, id uuid.UUID) (*models.StaffMember, error) {
	if member, ok := f.staff[id]; ok {
		return member, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDirectory) FindPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	if partner, ok := f.partners[id]; ok {
		return partner, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeSettings struct {
	defaults *settings.Defaults
	err      error
}

func (f *fakeSettings) Load(ctx context.Context) (*settings.Defaults, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.defaults != nil {
		return f.defaults, nil
	}
	return defaultSettings(), nil
}

func defaultSettings() *settings.Defaults {
	return &settings.Defaults{
		PhotographerPercent: decimal.RequireFromString("40"),
		VideographerPercent: decimal.RequireFromString("10"),
		PartnerPercent:      decimal.RequireFromString("25"),
		PoolPercents: map[enums.PoolType]decimal.Decimal{
			enums.PoolTypeEditing:       decimal.RequireFromString("5"),
			enums.PoolTypeQualityReview: decimal.RequireFromString("5"),
			enums.PoolTypeOperating:     decimal.RequireFromString("5"),
		},
	}
}

type createdTransfer struct {
	params stripeclient.TransferParams
	id     string
}

type fakeProvider struct {
	createErrFor  map[string]error // destination id -> error
	reverseErrFor map[string]error // transfer id -> error
	created       []createdTransfer
	reversed      []stripeclient.ReversalParams
	seq           int
}

func (f *fakeProvider) CreateTransfer(ctx context.Context, params stripeclient.TransferParams) (string, error) {
	if err, ok := f.createErrFor[params.DestinationID]; ok {
		return "", err
	}
	f.seq++
	id := fmt.Sprintf("tr_%03d", f.seq)
	f.created = append(f.created, createdTransfer{params: params, id: id})
	return id, nil
}

func (f *fakeProvider) ReverseTransfer(ctx context.Context, params stripeclient.ReversalParams) (string, error) {
	if err, ok := f.reverseErrFor[params.TransferID]; ok {
		return "", err
	}
	f.reversed = append(f.reversed, params)
	return "trr_" + params.TransferID, nil
}

type fixture struct {
	svc       Service
	repo      *fakeRepo
	dir       *fakeDirectory
	provider  *fakeProvider
	orderID   uuid.UUID
	listingID uuid.UUID
}

func acct(id string) *string { return &id }

// newFixture builds the §8-style happy-path world: a 40000-cent order, a
// photographer at the settings default 40%, a linked partner at 25%, no
// videographer.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	orderID := uuid.New()
	listingID := uuid.New()
	photographerID := uuid.New()
	partnerID := uuid.New()

	dir := &fakeDirectory{
		orders: map[uuid.UUID]*models.Order{
			orderID: {ID: orderID, TotalCents: 40000, PaymentStatus: enums.PaymentStatusSucceeded},
		},
		listings: map[uuid.UUID]*models.Listing{
			listingID: {ID: listingID, AgentID: uuid.New(), PhotographerID: &photographerID},
		},
		staff: map[uuid.UUID]*models.StaffMember{
			photographerID: {
				ID:               photographerID,
				Role:             enums.StaffRolePhotographer,
				PayoutMode:       enums.PayoutModeExternal,
				StripeAccountID:  acct("acct_photo"),
				TransfersEnabled: true,
				PartnerID:        &partnerID,
			},
		},
		partners: map[uuid.UUID]*models.Partner{
			partnerID: {
				ID:                  partnerID,
				Name:                "Skyline Media Group",
				RevenueSharePercent: pctPtr("25"),
				StripeAccountID:     acct("acct_partner"),
				TransfersEnabled:    true,
			},
		},
	}

	repo := &fakeRepo{}
	provider := &fakeProvider{}
	logg := logger.New(logger.Options{ServiceName: "settlement-test", Output: io.Discard})

	svc, err := NewService(repo, dir, &fakeSettings{}, provider, logg, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	return &fixture{
		svc:       svc,
		repo:      repo,
		dir:       dir,
		provider:  provider,
		orderID:   orderID,
		listingID: listingID,
	}
}

func TestNewServiceValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "settlement-test", Output: io.Discard})
	if _, err := NewService(nil, &fakeDirectory{}, &fakeSettings{}, &fakeProvider{}, logg, nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
	if _, err := NewService(&fakeRepo{}, nil, &fakeSettings{}, &fakeProvider{}, logg, nil); err == nil {
		t.Fatal("expected error for nil directory")
	}
	if _, err := NewService(&fakeRepo{}, &fakeDirectory{}, nil, &fakeProvider{}, logg, nil); err == nil {
		t.Fatal("expected error for nil settings provider")
	}
	if _, err := NewService(&fakeRepo{}, &fakeDirectory{}, &fakeSettings{}, nil, logg, nil); err == nil {
		t.Fatal("expected error for nil transfer provider")
	}
	if _, err := NewService(&fakeRepo{}, &fakeDirectory{}, &fakeSettings{}, &fakeProvider{}, nil, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}

func TestProcessJobPayoutsInputValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.ProcessJobPayouts(context.Background(), uuid.Nil, f.listingID); err == nil {
		t.Fatal("expected error for nil order id")
	}
	if _, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, uuid.Nil); err == nil {
		t.Fatal("expected error for nil listing id")
	}
}

func TestProcessJobPayoutsFullScenario(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}

	if !result.Success || result.AlreadySettled {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !result.PhotographerPaid || result.VideographerPaid || !result.PartnerPaid || !result.PoolsAllocated {
		t.Fatalf("unexpected paid flags: %+v", result)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	if len(f.provider.created) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(f.provider.created))
	}
	photo := f.provider.created[0].params
	if photo.DestinationID != "acct_photo" || photo.AmountCents != 16000 {
		t.Fatalf("unexpected photographer transfer: %+v", photo)
	}
	wantKey := TransferKey(f.orderID, *f.dir.listings[f.listingID].PhotographerID, "photographer")
	if photo.IdempotencyKey != wantKey {
		t.Fatalf("photographer idempotency key = %q, want %q", photo.IdempotencyKey, wantKey)
	}
	partner := f.provider.created[1].params
	if partner.DestinationID != "acct_partner" || partner.AmountCents != 10000 {
		t.Fatalf("unexpected partner transfer: %+v", partner)
	}

	if len(f.repo.commits) != 1 {
		t.Fatalf("expected 1 commit, got %d", len(f.repo.commits))
	}
	commit := f.repo.commits[0]
	if commit.LockError != nil {
		t.Fatalf("unexpected lock error: %v", *commit.LockError)
	}
	if len(commit.StaffPayouts) != 1 || commit.StaffPayouts[0].AmountCents != 16000 {
		t.Fatalf("unexpected staff payouts: %+v", commit.StaffPayouts)
	}
	if len(commit.PartnerPayouts) != 1 || commit.PartnerPayouts[0].AmountCents != 10000 {
		t.Fatalf("unexpected partner payouts: %+v", commit.PartnerPayouts)
	}
	if len(commit.PoolAllocations) != 3 {
		t.Fatalf("expected 3 pool allocations, got %d", len(commit.PoolAllocations))
	}
	for _, pool := range commit.PoolAllocations {
		if pool.AmountCents != 2000 {
			t.Fatalf("pool %s: got %d cents, want 2000", pool.Pool, pool.AmountCents)
		}
	}
	if len(f.repo.failedKeys) != 0 {
		t.Fatalf("lock must not be marked failed: %v", f.repo.failedKeys)
	}
}

func TestProcessJobPayoutsReturnsRecordedOutcome(t *testing.T) {
	f := newFixture(t)
	f.repo.acquireFn = func(ctx context.Context, lock *models.SettlementLock) (*LockAcquisition, error) {
		return &LockAcquisition{Acquired: false, ExistingStatus: enums.SettlementLockStatusCompleted}, nil
	}

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}
	if !result.Success || !result.AlreadySettled {
		t.Fatalf("unexpected result: %+v", result)
	}
	// The lock stores only status and error; the per-recipient paid flags
	// are not replayed, only the payout rows record who was paid.
	if result.PhotographerPaid || result.VideographerPaid || result.PartnerPaid || !result.PoolsAllocated {
		t.Fatalf("unexpected replay flags: %+v", result)
	}
	if len(f.provider.created) != 0 || len(f.provider.reversed) != 0 {
		t.Fatal("provider must never be contacted for an already-settled order")
	}
	if len(f.repo.commits) != 0 {
		t.Fatal("no commit expected for an already-settled order")
	}
}

func TestProcessJobPayoutsInProgress(t *testing.T) {
	f := newFixture(t)
	f.repo.acquireFn = func(ctx context.Context, lock *models.SettlementLock) (*LockAcquisition, error) {
		return &LockAcquisition{Acquired: false, ExistingStatus: enums.SettlementLockStatusAcquired}, nil
	}

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}
	if result.Success || result.AlreadySettled {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "already in progress") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(f.provider.created) != 0 {
		t.Fatal("provider must not be contacted while a run is in flight")
	}
}

func TestProcessJobPayoutsReplaysFailedOutcome(t *testing.T) {
	f := newFixture(t)
	recorded := "photographer transfer failed: insufficient funds"
	f.repo.acquireFn = func(ctx context.Context, lock *models.SettlementLock) (*LockAcquisition, error) {
		return &LockAcquisition{
			Acquired:       false,
			ExistingStatus: enums.SettlementLockStatusFailed,
			ExistingError:  &recorded,
		}, nil
	}

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}
	if result.Success || !result.AlreadySettled {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0] != recorded {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
}

func TestProcessJobPayoutsCompensatesOnLateFailure(t *testing.T) {
	f := newFixture(t)
	videographerID := uuid.New()
	listing := f.dir.listings[f.listingID]
	listing.VideographerID = &videographerID
	f.dir.staff[videographerID] = &models.StaffMember{
		ID:               videographerID,
		Role:             enums.StaffRoleVideographer,
		PayoutMode:       enums.PayoutModeExternal,
		StripeAccountID:  acct("acct_video"),
		TransfersEnabled: true,
	}
	f.provider.createErrFor = map[string]error{"acct_partner": errors.New("account frozen")}

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}

	if result.Success {
		t.Fatalf("expected failed batch, got %+v", result)
	}
	if len(f.repo.commits) != 0 {
		t.Fatal("no rows may be committed for a compensated batch")
	}
	if len(f.provider.reversed) != 2 {
		t.Fatalf("expected 2 reversals, got %d", len(f.provider.reversed))
	}
	// Reversals follow issue order: photographer first, then videographer.
	if f.provider.reversed[0].TransferID != f.provider.created[0].id ||
		f.provider.reversed[1].TransferID != f.provider.created[1].id {
		t.Fatalf("reversals out of order: %+v", f.provider.reversed)
	}
	if len(f.repo.failedKeys) != 1 {
		t.Fatalf("lock must be marked failed exactly once, got %v", f.repo.failedKeys)
	}
	if !strings.Contains(f.repo.failedErrors[0], "partner transfer failed") {
		t.Fatalf("unexpected recorded failure: %q", f.repo.failedErrors[0])
	}
}

func TestProcessJobPayoutsIneligibleRecipientFailsBatch(t *testing.T) {
	f := newFixture(t)
	photographerID := *f.dir.listings[f.listingID].PhotographerID
	f.dir.staff[photographerID].TransfersEnabled = false

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if len(f.provider.created) != 0 {
		t.Fatal("provider must not be called for an ineligible recipient")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], IneligibleReason) {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(f.repo.commits) != 0 {
		t.Fatal("no commit expected for a failed batch")
	}
}

func TestProcessJobPayoutsCommitFailureTriggersCompensation(t *testing.T) {
	f := newFixture(t)
	f.repo.commitFn = func(ctx context.Context, input CommitInput) error {
		return errors.New("constraint violation")
	}

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if len(f.provider.reversed) != len(f.provider.created) {
		t.Fatalf("every committed transfer needs a reversal attempt: created %d, reversed %d",
			len(f.provider.created), len(f.provider.reversed))
	}
	if len(f.repo.failedKeys) != 1 {
		t.Fatalf("lock must be marked failed, got %v", f.repo.failedKeys)
	}
	if !strings.Contains(f.repo.failedErrors[0], "settlement commit failed") {
		t.Fatalf("unexpected recorded failure: %q", f.repo.failedErrors[0])
	}
}

func TestProcessJobPayoutsNoContractorStillAllocatesPools(t *testing.T) {
	f := newFixture(t)
	f.dir.listings[f.listingID].PhotographerID = nil

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}

	if result.Success {
		t.Fatalf("expected unsuccessful result, got %+v", result)
	}
	if !result.PoolsAllocated || result.PhotographerPaid || result.PartnerPaid {
		t.Fatalf("unexpected flags: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0] != errNoContractor {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(f.provider.created) != 0 {
		t.Fatal("no transfers expected without a contractor")
	}

	if len(f.repo.commits) != 1 {
		t.Fatalf("pools must still be committed, got %d commits", len(f.repo.commits))
	}
	commit := f.repo.commits[0]
	if len(commit.StaffPayouts) != 0 || len(commit.PartnerPayouts) != 0 {
		t.Fatalf("no payout rows expected: %+v", commit)
	}
	if len(commit.PoolAllocations) != 3 {
		t.Fatalf("expected 3 pool allocations, got %d", len(commit.PoolAllocations))
	}
	for _, pool := range commit.PoolAllocations {
		if pool.AmountCents != 2000 {
			t.Fatalf("pool %s: got %d cents, want 2000", pool.Pool, pool.AmountCents)
		}
	}
	if commit.LockError == nil || *commit.LockError != errNoContractor {
		t.Fatalf("lock must record the missing contractor: %v", commit.LockError)
	}
}

func TestProcessJobPayoutsZeroSharePartnerGetsNoTransfer(t *testing.T) {
	f := newFixture(t)
	photographerID := *f.dir.listings[f.listingID].PhotographerID
	partnerID := *f.dir.staff[photographerID].PartnerID
	f.dir.partners[partnerID].RevenueSharePercent = pctPtr("0")

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}
	if !result.Success || result.PartnerPaid {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.provider.created) != 1 || f.provider.created[0].params.DestinationID != "acct_photo" {
		t.Fatalf("expected photographer transfer only, got %+v", f.provider.created)
	}
	if len(f.repo.commits) != 1 || len(f.repo.commits[0].PartnerPayouts) != 0 {
		t.Fatalf("no partner payout row may be written for a zero share: %+v", f.repo.commits)
	}
}

func TestProcessJobPayoutsPartnerDefaultsWhenShareUnset(t *testing.T) {
	f := newFixture(t)
	photographerID := *f.dir.listings[f.listingID].PhotographerID
	partnerID := *f.dir.staff[photographerID].PartnerID
	f.dir.partners[partnerID].RevenueSharePercent = nil

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}
	if !result.Success || !result.PartnerPaid {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.provider.created) != 2 {
		t.Fatalf("expected photographer and partner transfers, got %d", len(f.provider.created))
	}
	partner := f.provider.created[1].params
	if partner.DestinationID != "acct_partner" || partner.AmountCents != 10000 {
		t.Fatalf("partner transfer must use the settings default: %+v", partner)
	}
}

func TestProcessJobPayoutsSkipsVideographerMatchingPhotographer(t *testing.T) {
	f := newFixture(t)
	photographerID := *f.dir.listings[f.listingID].PhotographerID
	f.dir.listings[f.listingID].VideographerID = &photographerID

	result, err := f.svc.ProcessJobPayouts(context.Background(), f.orderID, f.listingID)
	if err != nil {
		t.Fatalf("ProcessJobPayouts error: %v", err)
	}
	if !result.Success || result.VideographerPaid {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.provider.created) != 2 {
		t.Fatalf("expected photographer and partner transfers only, got %d", len(f.provider.created))
	}
}

func TestReverseOrderPayoutsInputValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.ReverseOrderPayouts(context.Background(), uuid.Nil, "refund"); err == nil {
		t.Fatal("expected error for nil order id")
	}
	if _, err := f.svc.ReverseOrderPayouts(context.Background(), f.orderID, "  "); err == nil {
		t.Fatal("expected error for blank reason")
	}
}

func TestReverseOrderPayouts(t *testing.T) {
	f := newFixture(t)
	staffTransfer := "tr_staff"
	partnerTransfer := "tr_partner"
	staffRow := models.PayoutRecord{ID: uuid.New(), OrderID: f.orderID, StripeTransferID: &staffTransfer, Status: enums.PayoutStatusCompleted}
	partnerRow := models.PartnerPayoutRecord{ID: uuid.New(), OrderID: f.orderID, StripeTransferID: &partnerTransfer, Status: enums.PayoutStatusCompleted}
	f.repo.staffRows = []models.PayoutRecord{staffRow}
	f.repo.partnerRows = []models.PartnerPayoutRecord{partnerRow}

	result, err := f.svc.ReverseOrderPayouts(context.Background(), f.orderID, "order refunded")
	if err != nil {
		t.Fatalf("ReverseOrderPayouts error: %v", err)
	}
	if !result.Success || result.ReversedCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.provider.reversed) != 2 {
		t.Fatalf("expected 2 provider reversals, got %d", len(f.provider.reversed))
	}
	if len(f.repo.staffReversed) != 1 || f.repo.staffReversed[0] != staffRow.ID {
		t.Fatalf("staff row not reversed: %v", f.repo.staffReversed)
	}
	if len(f.repo.partnerReversed) != 1 || f.repo.partnerReversed[0] != partnerRow.ID {
		t.Fatalf("partner row not reversed: %v", f.repo.partnerReversed)
	}
	if len(f.repo.poolsReversedFor) != 1 {
		t.Fatalf("pool allocations not reversed: %v", f.repo.poolsReversedFor)
	}
}

func TestReverseOrderPayoutsIdempotent(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ReverseOrderPayouts(context.Background(), f.orderID, "order refunded")
	if err != nil {
		t.Fatalf("ReverseOrderPayouts error: %v", err)
	}
	if !result.Success || result.ReversedCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.provider.reversed) != 0 {
		t.Fatal("no provider calls expected when nothing is left to reverse")
	}
}

func TestReverseOrderPayoutsPartialFailure(t *testing.T) {
	f := newFixture(t)
	goodTransfer := "tr_good"
	badTransfer := "tr_bad"
	goodRow := models.PayoutRecord{ID: uuid.New(), OrderID: f.orderID, StripeTransferID: &goodTransfer, Status: enums.PayoutStatusCompleted}
	badRow := models.PayoutRecord{ID: uuid.New(), OrderID: f.orderID, StripeTransferID: &badTransfer, Status: enums.PayoutStatusCompleted}
	f.repo.staffRows = []models.PayoutRecord{goodRow, badRow}
	f.provider.reverseErrFor = map[string]error{badTransfer: errors.New("already reversed upstream")}

	result, err := f.svc.ReverseOrderPayouts(context.Background(), f.orderID, "order refunded")
	if err != nil {
		t.Fatalf("ReverseOrderPayouts error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected partial failure, got %+v", result)
	}
	if result.ReversedCount != 1 {
		t.Fatalf("expected 1 reversed row, got %d", result.ReversedCount)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "already reversed upstream") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if _, ok := f.repo.staffErrAppends[badRow.ID]; !ok {
		t.Fatal("failed row must record its reversal error")
	}
	if len(f.repo.staffReversed) != 1 || f.repo.staffReversed[0] != goodRow.ID {
		t.Fatalf("only the good row may flip to reversed: %v", f.repo.staffReversed)
	}
}

func TestReverseOrderPayoutsInternalRowWithoutTransfer(t *testing.T) {
	f := newFixture(t)
	internalRow := models.PayoutRecord{ID: uuid.New(), OrderID: f.orderID, Status: enums.PayoutStatusCompleted}
	f.repo.staffRows = []models.PayoutRecord{internalRow}

	result, err := f.svc.ReverseOrderPayouts(context.Background(), f.orderID, "order refunded")
	if err != nil {
		t.Fatalf("ReverseOrderPayouts error: %v", err)
	}
	if !result.Success || result.ReversedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.provider.reversed) != 0 {
		t.Fatal("rows without a transfer id must not hit the provider")
	}
	if len(f.repo.staffReversed) != 1 {
		t.Fatalf("internal row must still flip to reversed: %v", f.repo.staffReversed)
	}
}
