package transactions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"farmtrade-backend/internal/application/directory"
	"farmtrade-backend/internal/domain"
	"farmtrade-backend/internal/infrastructure/lock"
	"farmtrade-backend/internal/pkg/money"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances a minute per call so stamps are strictly ordered.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type serviceFixture struct {
	svc    *Service
	db     *gorm.DB
	locker *lock.LocalLocker
	clock  *testClock
	farmer domain.Farmer
	buyer  domain.Buyer
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Transaction{}, &domain.TransactionAudit{}, &domain.Farmer{}, &domain.Buyer{}))

	f := &serviceFixture{
		db:     db,
		locker: lock.NewLocalLocker(),
		clock:  &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		farmer: domain.Farmer{FullName: "Ada Obi"},
		buyer:  domain.Buyer{FullName: "Tunde Bello"},
	}
	require.NoError(t, db.Create(&f.farmer).Error)
	require.NoError(t, db.Create(&f.buyer).Error)
	f.svc = &Service{
		Store:     &GormStore{DB: db},
		Directory: &directory.GormResolver{DB: db},
		Locker:    f.locker,
		Now:       f.clock.Now,
	}
	return f
}

func (f *serviceFixture) input(qty, price string) CreateInput {
	return CreateInput{
		FarmerID:     f.farmer.FarmerID,
		BuyerID:      f.buyer.BuyerID,
		CropType:     domain.CropRice,
		Quantity:     money.MustParse(qty),
		Unit:         "kg",
		PricePerUnit: money.MustParse(price),
	}
}

func (f *serviceFixture) create(t *testing.T, qty, price string) *domain.Transaction {
	t.Helper()
	tx, err := f.svc.Create(context.Background(), f.input(qty, price))
	require.NoError(t, err)
	return tx
}

func (f *serviceFixture) advance(t *testing.T, id uuid.UUID, path ...domain.TransactionStatus) {
	t.Helper()
	for _, st := range path {
		_, err := f.svc.Transition(context.Background(), id, st)
		require.NoError(t, err, "transition to %s", st)
	}
}

var toDeliveryCompleted = []domain.TransactionStatus{
	domain.StatusAgreed, domain.StatusPaymentPending, domain.StatusPaymentCompleted,
	domain.StatusDeliveryPending, domain.StatusDeliveryCompleted,
}

func (f *serviceFixture) completed(t *testing.T, qty, price string) *domain.Transaction {
	t.Helper()
	tx := f.create(t, qty, price)
	f.advance(t, tx.ID, toDeliveryCompleted...)
	done, err := f.svc.Complete(context.Background(), tx.ID)
	require.NoError(t, err)
	return done
}

func (f *serviceFixture) reload(t *testing.T, id uuid.UUID) *domain.Transaction {
	t.Helper()
	tx, err := f.svc.Store.Load(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	f := setupServiceTest(t)
	tx := f.create(t, "100", "50.00")

	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, "5000.00", tx.TotalAmount.Currency())
	assert.Equal(t, domain.StatusInitiated, tx.Status)
	assert.Nil(t, tx.CompletedAt)
	assert.Equal(t, int64(1), tx.Version)
	assert.Equal(t, tx.CreatedAt, tx.UpdatedAt)

	stored := f.reload(t, tx.ID)
	assert.True(t, stored.TotalAmount.Equal(money.MustParse("5000")))
	assert.Equal(t, domain.CropRice, stored.CropType)
}

func TestCreate_TotalIsExact(t *testing.T) {
	f := setupServiceTest(t)
	cases := []struct{ qty, price, want string }{
		{"0.1", "0.2", "0.02"},
		{"3.333", "1.001", "3.336333"},
		{"12.5", "8.4", "105"},
		{"999.999", "999.999", "999998.000001"},
	}
	for _, tc := range cases {
		tx := f.create(t, tc.qty, tc.price)
		stored := f.reload(t, tx.ID)
		assert.True(t, stored.TotalAmount.Equal(money.MustParse(tc.want)), "%s x %s = %s", tc.qty, tc.price, stored.TotalAmount)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	mutations := map[string]func(in *CreateInput){
		"zero quantity":       func(in *CreateInput) { in.Quantity = money.Zero },
		"negative price":      func(in *CreateInput) { in.PricePerUnit = money.MustParse("-1") },
		"too precise":         func(in *CreateInput) { in.Quantity = money.MustParse("1.0005") },
		"same party":          func(in *CreateInput) { in.BuyerID = in.FarmerID },
		"missing farmer":      func(in *CreateInput) { in.FarmerID = uuid.Nil },
		"unknown crop":        func(in *CreateInput) { in.CropType = "WHEAT" },
		"blank unit":          func(in *CreateInput) { in.Unit = "  " },
		"long reference":      func(in *CreateInput) { in.TransactionReference = strPtr(strings.Repeat("r", 101)) },
		"long address":        func(in *CreateInput) { in.DeliveryAddress = strPtr(strings.Repeat("é", 501)) },
		"long payment method": func(in *CreateInput) { in.PaymentMethod = strPtr(strings.Repeat("m", 51)) },
	}
	for name, mutate := range mutations {
		in := f.input("10", "2")
		mutate(&in)
		_, err := f.svc.Create(ctx, in)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}

	var count int64
	f.db.Model(&domain.Transaction{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreate_UnknownParty(t *testing.T) {
	f := setupServiceTest(t)
	in := f.input("10", "2")
	in.BuyerID = uuid.New()
	_, err := f.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, directory.ErrPartyNotFound)
}

func TestLifecycle_Scenario(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "100", "50.00")

	_, err := f.svc.Complete(ctx, tx.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusInitiated, f.reload(t, tx.ID).Status)

	f.advance(t, tx.ID, toDeliveryCompleted...)
	done, err := f.svc.Complete(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	rated, err := f.svc.Rate(ctx, tx.ID, intPtr(5), intPtr(4))
	require.NoError(t, err)
	assert.Equal(t, 5, *rated.FarmerRating)
	assert.Equal(t, 4, *rated.BuyerRating)

	_, err = f.svc.Cancel(ctx, tx.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "COMPLETED")

	stored := f.reload(t, tx.ID)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	assert.Equal(t, int64(8), stored.Version)
}

func TestCancel_ThenUpdateFails(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "10", "3")
	f.advance(t, tx.ID, domain.StatusNegotiating)

	cancelled, err := f.svc.Cancel(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.CompletedAt)

	unit := "bag"
	_, err = f.svc.Update(ctx, tx.ID, UpdateInput{Unit: &unit})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, "kg", f.reload(t, tx.ID).Unit)
}

func TestUpdate_RecomputesTotal(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "100", "50")

	qty := money.MustParse("12.5")
	price := money.MustParse("8.4")
	addr := " 12 Market Road, Kano "
	updated, err := f.svc.Update(ctx, tx.ID, UpdateInput{Quantity: &qty, PricePerUnit: &price, DeliveryAddress: &addr})
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(money.MustParse("105")))
	assert.Equal(t, int64(2), updated.Version)
	assert.True(t, updated.UpdatedAt.After(tx.UpdatedAt))

	stored := f.reload(t, tx.ID)
	assert.True(t, stored.TotalAmount.Equal(money.MustParse("105")))
	assert.Equal(t, "12 Market Road, Kano", *stored.DeliveryAddress)
	assert.Equal(t, tx.FarmerID, stored.FarmerID)
	assert.Equal(t, tx.CreatedAt.Unix(), stored.CreatedAt.Unix())

	bad := money.MustParse("0")
	_, err = f.svc.Update(ctx, tx.ID, UpdateInput{PricePerUnit: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.True(t, f.reload(t, tx.ID).TotalAmount.Equal(money.MustParse("105")))
}

func TestUpdate_Overflow(t *testing.T) {
	f := setupServiceTest(t)
	tx := f.create(t, "10", "2")
	huge := money.MustParse("999999999999")
	_, err := f.svc.Update(context.Background(), tx.ID, UpdateInput{Quantity: &huge, PricePerUnit: &huge})
	assert.ErrorIs(t, err, money.ErrArithmetic)
	assert.True(t, f.reload(t, tx.ID).TotalAmount.Equal(money.MustParse("20")))
}

func TestTransition_OnlyTableEdgesSucceed(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "1", "1")
	f.advance(t, tx.ID, domain.StatusAgreed)

	for _, to := range []domain.TransactionStatus{
		domain.StatusInitiated, domain.StatusNegotiating, domain.StatusAgreed,
		domain.StatusPaymentCompleted, domain.StatusDeliveryPending, domain.StatusCompleted,
	} {
		_, err := f.svc.Transition(ctx, tx.ID, to)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "AGREED -> %s", to)
		assert.Equal(t, domain.StatusAgreed, f.reload(t, tx.ID).Status)
	}

	_, err := f.svc.Transition(ctx, tx.ID, "SHIPPED")
	assert.ErrorIs(t, err, domain.ErrValidation)

	disputed, err := f.svc.Transition(ctx, tx.ID, domain.StatusDisputed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDisputed, disputed.Status)

	_, err = f.svc.Transition(ctx, tx.ID, domain.StatusPaymentPending)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Cancel(ctx, tx.ID)
	require.NoError(t, err)
}

func TestTransition_UnknownID(t *testing.T) {
	f := setupServiceTest(t)
	_, err := f.svc.Transition(context.Background(), uuid.New(), domain.StatusNegotiating)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRate_BeforeCompletionDoesNotMutate(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "1", "1")
	f.advance(t, tx.ID, toDeliveryCompleted...)

	_, err := f.svc.Rate(ctx, tx.ID, intPtr(5), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	stored := f.reload(t, tx.ID)
	assert.Nil(t, stored.FarmerRating)
	assert.Nil(t, stored.BuyerRating)
}

func TestRate_OutOfRangeKeepsExisting(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.completed(t, "1", "1")

	_, err := f.svc.Rate(ctx, tx.ID, intPtr(3), intPtr(2))
	require.NoError(t, err)

	_, err = f.svc.Rate(ctx, tx.ID, intPtr(6), intPtr(4))
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.Rate(ctx, tx.ID, nil, intPtr(0))
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored := f.reload(t, tx.ID)
	assert.Equal(t, 3, *stored.FarmerRating)
	assert.Equal(t, 2, *stored.BuyerRating)

	// Ratings can be changed independently.
	_, err = f.svc.Rate(ctx, tx.ID, nil, intPtr(5))
	require.NoError(t, err)
	stored = f.reload(t, tx.ID)
	assert.Equal(t, 3, *stored.FarmerRating)
	assert.Equal(t, 5, *stored.BuyerRating)
}

func TestDelete_AuditsAndRemoves(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.completed(t, "2", "5")

	require.NoError(t, f.svc.Delete(ctx, tx.ID, "admin-1"))
	_, err := f.svc.Store.Load(ctx, tx.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var audits []domain.TransactionAudit
	require.NoError(t, f.db.Where("transaction_id = ?", tx.ID).Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, domain.AuditHardDelete, audits[0].Action)
	assert.Equal(t, "admin-1", audits[0].ActorUserID)
	assert.Equal(t, "COMPLETED", *audits[0].FromStatus)
	assert.Contains(t, string(audits[0].Details), `"totalAmount":"10"`)

	assert.ErrorIs(t, f.svc.Delete(ctx, tx.ID, "admin-1"), domain.ErrNotFound)
}

func TestAdminOverride(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "4", "2.5")
	f.advance(t, tx.ID, domain.StatusAgreed, domain.StatusPaymentPending, domain.StatusDisputed)

	_, err := f.svc.AdminOverride(ctx, tx.ID, domain.StatusPaymentPending, "admin-1", " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.AdminOverride(ctx, tx.ID, domain.StatusInitiated, "admin-1", "reset")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.AdminOverride(ctx, tx.ID, domain.StatusDisputed, "admin-1", "noop")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	resumed, err := f.svc.AdminOverride(ctx, tx.ID, domain.StatusPaymentPending, "admin-1", "dispute resolved")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentPending, resumed.Status)

	done, err := f.svc.AdminOverride(ctx, tx.ID, domain.StatusCompleted, "admin-1", "settled offline")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	_, err = f.svc.Rate(ctx, tx.ID, intPtr(5), intPtr(2))
	require.NoError(t, err)

	reopened, err := f.svc.AdminOverride(ctx, tx.ID, domain.StatusDisputed, "admin-1", "chargeback")
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)
	stored := f.reload(t, tx.ID)
	assert.Nil(t, stored.FarmerRating)
	assert.Nil(t, stored.BuyerRating)

	var audits []domain.TransactionAudit
	require.NoError(t, f.db.Where("transaction_id = ? AND action = ?", tx.ID, domain.AuditAdminOverride).
		Order("created_at ASC").Find(&audits).Error)
	require.Len(t, audits, 3)
	assert.Equal(t, "DISPUTED", *audits[0].FromStatus)
	assert.Equal(t, "PAYMENT_PENDING", *audits[0].ToStatus)
	assert.Contains(t, string(audits[0].Details), "dispute resolved")
}

func TestMutate_LockHeldIsConcurrentModification(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "1", "1")

	h, ok, err := f.locker.TryLock(ctx, lock.TransactionKey(tx.ID.String()))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Transition(ctx, tx.ID, domain.StatusNegotiating)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Equal(t, domain.StatusInitiated, f.reload(t, tx.ID).Status)

	require.NoError(t, h.Unlock(ctx))
	_, err = f.svc.Transition(ctx, tx.ID, domain.StatusNegotiating)
	require.NoError(t, err)
}

// staleStore simulates a writer that read the record before another writer committed.
type staleStore struct {
	*GormStore
}

func (s staleStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.GormStore.WithTx(ctx, func(st Store) error {
		return fn(staleStore{GormStore: st.(*GormStore)})
	})
}

func (s staleStore) Load(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	t, err := s.GormStore.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Version--
	return t, nil
}

func TestMutate_StaleVersionLosesRace(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "1", "1")

	f.svc.Store = staleStore{GormStore: &GormStore{DB: f.db}}
	_, err := f.svc.Transition(ctx, tx.ID, domain.StatusNegotiating)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	f.svc.Store = &GormStore{DB: f.db}
	stored := f.reload(t, tx.ID)
	assert.Equal(t, domain.StatusInitiated, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestMutate_ConcurrentWritersOneWins(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "1", "1")

	const writers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Transition(ctx, tx.ID, domain.StatusNegotiating)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	for _, err := range errs {
		assert.True(t, errors.Is(err, domain.ErrConcurrentModification) || errors.Is(err, domain.ErrInvalidTransition), err.Error())
	}
	stored := f.reload(t, tx.ID)
	assert.Equal(t, domain.StatusNegotiating, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
}

func TestIsParticipant(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tx := f.create(t, "1", "1")

	ok, err := f.svc.IsParticipant(ctx, tx.ID, f.farmer.FarmerID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.svc.IsParticipant(ctx, tx.ID, f.buyer.BuyerID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.svc.IsParticipant(ctx, tx.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.IsParticipant(ctx, uuid.New(), f.farmer.FarmerID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewService_DefaultsToLocalLocker(t *testing.T) {
	svc := NewService(nil, nil)
	assert.IsType(t, &lock.LocalLocker{}, svc.Locker)
	assert.Equal(t, time.UTC, svc.Now().Location())
}
