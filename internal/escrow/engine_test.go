package escrow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketbay/internal/catalog"
	"marketbay/internal/ledger"
	"marketbay/internal/reputation"
	"marketbay/internal/seq"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordedEvents struct {
	mu        sync.Mutex
	placed    []Order
	confirmed []Order
	released  []string // settlement paths, in emission order
	timeouts  []time.Duration
}

func (r *recordedEvents) OrderPlaced(o Order) {
	r.mu.Lock()
	r.placed = append(r.placed, o)
	r.mu.Unlock()
}

func (r *recordedEvents) OrderConfirmed(o Order) {
	r.mu.Lock()
	r.confirmed = append(r.confirmed, o)
	r.mu.Unlock()
}

func (r *recordedEvents) FundsReleased(o Order, path string) {
	r.mu.Lock()
	r.released = append(r.released, path)
	r.mu.Unlock()
}

func (r *recordedEvents) TimeoutUpdated(d time.Duration) {
	r.mu.Lock()
	r.timeouts = append(r.timeouts, d)
	r.mu.Unlock()
}

type fixture struct {
	engine  *Engine
	catalog *catalog.Service
	funds   *ledger.Memory
	rep     *reputation.Memory
	clock   *fakeClock
	events  *recordedEvents
}

const (
	buyer  = "buyer-1"
	seller = "seller-1"
	admin  = "admin-1"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	funds := ledger.NewMemory()
	cat := catalog.NewService(catalog.NewMemoryStore(), seq.New(), nil)
	clock := newFakeClock()
	events := &recordedEvents{}
	rep := reputation.NewMemory(nil)

	engine := NewEngine(Config{
		Orders:        NewMemoryStore(),
		Products:      cat,
		Ledger:        funds,
		Reputation:    rep,
		Events:        events,
		Clock:         clock,
		IDs:           seq.New(),
		EscrowAccount: "escrow",
		AdminID:       admin,
		Timeout:       72 * time.Hour,
	})
	return &fixture{engine: engine, catalog: cat, funds: funds, rep: rep, clock: clock, events: events}
}

// listAndFund lists a product for seller and funds/authorizes the buyer.
func (f *fixture) listAndFund(t *testing.T, price, deposit, allowance int64) uint64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.catalog.ListProduct(ctx, seller, "woven basket", catalog.CategoryCrafts, price, "")
	require.NoError(t, err)
	require.NoError(t, f.funds.Deposit(ctx, buyer, deposit))
	require.NoError(t, f.funds.Approve(ctx, buyer, "escrow", allowance))
	return id
}

func TestPlaceOrderDebitsBuyerAndHoldsProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	productID := f.listAndFund(t, 100, 500, 100)

	o, err := f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), o.ID)
	assert.Equal(t, int64(100), o.Amount)
	assert.False(t, o.Confirmed)
	assert.False(t, o.Released)

	balance, _ := f.funds.BalanceOf(ctx, buyer)
	assert.Equal(t, int64(400), balance)
	custody, _ := f.funds.BalanceOf(ctx, "escrow")
	assert.Equal(t, int64(100), custody)

	p, err := f.catalog.Get(ctx, productID)
	require.NoError(t, err)
	assert.False(t, p.Available)

	_, err = f.engine.PlaceOrder(ctx, "buyer-2", productID)
	assert.ErrorIs(t, err, ErrProductUnavailable)
	assert.Len(t, f.events.placed, 1)
}

func TestPlaceOrderRequiresAllowance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	productID := f.listAndFund(t, 100, 500, 50)

	_, err := f.engine.PlaceOrder(ctx, buyer, productID)
	assert.ErrorIs(t, err, ledger.ErrInsufficientAllowance)

	balance, _ := f.funds.BalanceOf(ctx, buyer)
	assert.Equal(t, int64(500), balance, "failed placement must not move funds")
	p, _ := f.catalog.Get(ctx, productID)
	assert.True(t, p.Available)
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.PlaceOrder(ctx, buyer, 99)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestConfirmDeliveryScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)

	o, err := f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)

	require.NoError(t, f.engine.ConfirmDelivery(ctx, buyer, o.ID))

	sellerBalance, _ := f.funds.BalanceOf(ctx, seller)
	assert.Equal(t, int64(100), sellerBalance)
	custody, _ := f.funds.BalanceOf(ctx, "escrow")
	assert.Equal(t, int64(0), custody)

	sellerRep, _ := f.rep.Score(ctx, seller)
	buyerRep, _ := f.rep.Score(ctx, buyer)
	assert.Equal(t, int64(20), sellerRep)
	assert.Equal(t, int64(10), buyerRep)

	got, _ := f.engine.GetOrder(ctx, o.ID)
	assert.True(t, got.Released)
	assert.True(t, got.Confirmed)

	p, _ := f.catalog.Get(ctx, productID)
	assert.False(t, p.Available, "product stays unavailable after settlement")

	err = f.engine.ConfirmDelivery(ctx, buyer, o.ID)
	assert.ErrorIs(t, err, ErrAlreadySettled)

	sellerBalance, _ = f.funds.BalanceOf(ctx, seller)
	assert.Equal(t, int64(100), sellerBalance, "no double payout")
	assert.Equal(t, []string{PathConfirmed}, f.events.released)
	assert.Len(t, f.events.confirmed, 1)
}

func TestConfirmDeliveryOnlyBuyer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)
	o, err := f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.engine.ConfirmDelivery(ctx, seller, o.ID), ErrUnauthorized)
	assert.ErrorIs(t, f.engine.ConfirmDelivery(ctx, "stranger", o.ID), ErrUnauthorized)

	// Timing never relaxes the authorization check.
	f.clock.Advance(100 * 24 * time.Hour)
	assert.ErrorIs(t, f.engine.ConfirmDelivery(ctx, seller, o.ID), ErrUnauthorized)
}

func TestReleaseAfterTimeoutScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)
	o, err := f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	assert.ErrorIs(t, f.engine.ReleaseAfterTimeout(ctx, o.ID), ErrTimeoutNotReached)

	// Succeeds at exactly createdAt + timeout.
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.engine.ReleaseAfterTimeout(ctx, o.ID))

	sellerBalance, _ := f.funds.BalanceOf(ctx, seller)
	assert.Equal(t, int64(100), sellerBalance)

	sellerRep, _ := f.rep.Score(ctx, seller)
	buyerRep, _ := f.rep.Score(ctx, buyer)
	assert.Equal(t, int64(10), sellerRep)
	assert.Equal(t, int64(0), buyerRep, "timeout path credits the seller only")

	got, _ := f.engine.GetOrder(ctx, o.ID)
	assert.True(t, got.Released)
	assert.False(t, got.Confirmed, "timeout path leaves confirmed untouched")

	assert.ErrorIs(t, f.engine.ConfirmDelivery(ctx, buyer, o.ID), ErrAlreadySettled)
	assert.ErrorIs(t, f.engine.ReleaseAfterTimeout(ctx, o.ID), ErrAlreadySettled)
	assert.Equal(t, []string{PathTimeout}, f.events.released)
}

func TestReleaseAfterTimeoutUnknownOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.engine.ReleaseAfterTimeout(ctx, 7), ErrOrderNotFound)
}

func TestSetDeliveryTimeoutAppliesToInFlightOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)
	o, err := f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	assert.ErrorIs(t, f.engine.ReleaseAfterTimeout(ctx, o.ID), ErrTimeoutNotReached)

	// Deadlines are recomputed against the current timeout, so the
	// shortened value reaches orders already held.
	require.NoError(t, f.engine.SetDeliveryTimeout(admin, time.Hour))
	require.NoError(t, f.engine.ReleaseAfterTimeout(ctx, o.ID))

	assert.Equal(t, []time.Duration{time.Hour}, f.events.timeouts)
}

func TestSetDeliveryTimeoutGuards(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.engine.SetDeliveryTimeout(buyer, time.Hour), ErrUnauthorized)
	assert.ErrorIs(t, f.engine.SetDeliveryTimeout(admin, 0), ErrInvalidTimeout)
	assert.ErrorIs(t, f.engine.SetDeliveryTimeout(admin, -time.Hour), ErrInvalidTimeout)
	assert.Equal(t, 72*time.Hour, f.engine.DeliveryTimeout())
}

// The central property: under concurrent confirm and timeout attempts,
// exactly one transition settles the order and credits the seller.
func TestConcurrentConfirmAndTimeoutSettleOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)
	o, err := f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)

	// Both paths are eligible: the deadline has passed and the buyer
	// has not yet confirmed.
	f.clock.Advance(73 * time.Hour)

	const attempts = 32
	var wg sync.WaitGroup
	var confirmWins, timeoutWins int64
	var mu sync.Mutex

	for i := 0; i < attempts; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := f.engine.ConfirmDelivery(ctx, buyer, o.ID); err == nil {
				mu.Lock()
				confirmWins++
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			if err := f.engine.ReleaseAfterTimeout(ctx, o.ID); err == nil {
				mu.Lock()
				timeoutWins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), confirmWins+timeoutWins, "exactly one transition may settle")

	sellerBalance, _ := f.funds.BalanceOf(ctx, seller)
	assert.Equal(t, int64(100), sellerBalance, "seller credited exactly once")
	custody, _ := f.funds.BalanceOf(ctx, "escrow")
	assert.Equal(t, int64(0), custody)

	sellerRep, _ := f.rep.Score(ctx, seller)
	buyerRep, _ := f.rep.Score(ctx, buyer)
	if confirmWins == 1 {
		assert.Equal(t, int64(20), sellerRep)
		assert.Equal(t, int64(10), buyerRep)
	} else {
		assert.Equal(t, int64(10), sellerRep)
		assert.Equal(t, int64(0), buyerRep)
	}

	assert.Len(t, f.events.released, 1, "funds-released emitted exactly once")
}

func TestConcurrentPlacementSellsProductOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)

	// A second buyer with funds and allowance of their own.
	require.NoError(t, f.funds.Deposit(ctx, "buyer-2", 100))
	require.NoError(t, f.funds.Approve(ctx, "buyer-2", "escrow", 100))

	var wg sync.WaitGroup
	var wins int64
	var mu sync.Mutex
	for _, b := range []string{buyer, "buyer-2", buyer, "buyer-2"} {
		wg.Add(1)
		go func(b string) {
			defer wg.Done()
			if _, err := f.engine.PlaceOrder(ctx, b, productID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(b)
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins, "one placement wins the product")
	custody, _ := f.funds.BalanceOf(ctx, "escrow")
	assert.Equal(t, int64(100), custody, "exactly one debit reached custody")
}

func TestOrdersForUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)
	o, err := f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)

	asBuyer, err := f.engine.OrdersForUser(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, asBuyer, 1)
	assert.Equal(t, o.ID, asBuyer[0].ID)

	asSeller, err := f.engine.OrdersForUser(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, asSeller, 1)

	none, err := f.engine.OrdersForUser(ctx, "stranger")
	require.NoError(t, err)
	assert.Empty(t, none)
}

var (
	errStoreDown  = errors.New("orders store down")
	errLedgerDown = errors.New("ledger down")
)

// flakyStore injects failures into single store operations so the
// engine's rollback branches can be driven deterministically.
type flakyStore struct {
	Store
	failInsert bool
	failSettle bool
}

func (s *flakyStore) Insert(ctx context.Context, o Order) error {
	if s.failInsert {
		return errStoreDown
	}
	return s.Store.Insert(ctx, o)
}

func (s *flakyStore) Settle(ctx context.Context, id uint64, confirmed bool) error {
	if s.failSettle {
		return errStoreDown
	}
	return s.Store.Settle(ctx, id, confirmed)
}

type flakyLedger struct {
	ledger.Ledger
	failTransfer bool
}

func (l *flakyLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if l.failTransfer {
		return errLedgerDown
	}
	return l.Ledger.Transfer(ctx, from, to, amount)
}

func newFlakyFixture(t *testing.T) (*fixture, *flakyStore, *flakyLedger) {
	t.Helper()
	funds := ledger.NewMemory()
	flakyFunds := &flakyLedger{Ledger: funds}
	cat := catalog.NewService(catalog.NewMemoryStore(), seq.New(), nil)
	clock := newFakeClock()
	events := &recordedEvents{}
	rep := reputation.NewMemory(nil)
	orders := &flakyStore{Store: NewMemoryStore()}

	engine := NewEngine(Config{
		Orders:        orders,
		Products:      cat,
		Ledger:        flakyFunds,
		Reputation:    rep,
		Events:        events,
		Clock:         clock,
		IDs:           seq.New(),
		EscrowAccount: "escrow",
		AdminID:       admin,
		Timeout:       72 * time.Hour,
	})
	f := &fixture{engine: engine, catalog: cat, funds: funds, rep: rep, clock: clock, events: events}
	return f, orders, flakyFunds
}

func TestPlaceOrderStoreFailureRefundsBuyer(t *testing.T) {
	ctx := context.Background()
	f, orders, _ := newFlakyFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)

	orders.failInsert = true
	_, err := f.engine.PlaceOrder(ctx, buyer, productID)
	assert.ErrorIs(t, err, errStoreDown)

	balance, _ := f.funds.BalanceOf(ctx, buyer)
	assert.Equal(t, int64(100), balance, "debit refunded after failed insert")
	custody, _ := f.funds.BalanceOf(ctx, "escrow")
	assert.Equal(t, int64(0), custody)
	p, _ := f.catalog.Get(ctx, productID)
	assert.True(t, p.Available, "availability restored after failed insert")
	assert.Empty(t, f.events.placed)

	// The aborted attempt consumed the allowance; authorize again.
	require.NoError(t, f.funds.Approve(ctx, buyer, "escrow", 100))
	orders.failInsert = false
	_, err = f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)
}

func TestConfirmStoreFailureRestoresCustody(t *testing.T) {
	ctx := context.Background()
	f, orders, _ := newFlakyFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)
	o, err := f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)

	// The seller credit lands first; when the flag flip then fails the
	// compensating transfer must pull the funds back into custody.
	orders.failSettle = true
	assert.ErrorIs(t, f.engine.ConfirmDelivery(ctx, buyer, o.ID), errStoreDown)

	sellerBalance, _ := f.funds.BalanceOf(ctx, seller)
	assert.Equal(t, int64(0), sellerBalance, "no payout without a flag flip")
	custody, _ := f.funds.BalanceOf(ctx, "escrow")
	assert.Equal(t, int64(100), custody, "custody restored by the compensating transfer")

	got, _ := f.engine.GetOrder(ctx, o.ID)
	assert.False(t, got.Released)
	assert.False(t, got.Confirmed)
	sellerRep, _ := f.rep.Score(ctx, seller)
	assert.Equal(t, int64(0), sellerRep)
	assert.Empty(t, f.events.released)

	// The order is still held, so a later transition settles normally.
	orders.failSettle = false
	f.clock.Advance(72 * time.Hour)
	require.NoError(t, f.engine.ReleaseAfterTimeout(ctx, o.ID))

	sellerBalance, _ = f.funds.BalanceOf(ctx, seller)
	assert.Equal(t, int64(100), sellerBalance)
	custody, _ = f.funds.BalanceOf(ctx, "escrow")
	assert.Equal(t, int64(0), custody)
	assert.Equal(t, []string{PathTimeout}, f.events.released)
}

func TestConfirmLedgerFailureLeavesOrderHeld(t *testing.T) {
	ctx := context.Background()
	f, _, funds := newFlakyFixture(t)
	productID := f.listAndFund(t, 100, 100, 100)
	o, err := f.engine.PlaceOrder(ctx, buyer, productID)
	require.NoError(t, err)

	funds.failTransfer = true
	assert.ErrorIs(t, f.engine.ConfirmDelivery(ctx, buyer, o.ID), errLedgerDown)

	custody, _ := f.funds.BalanceOf(ctx, "escrow")
	assert.Equal(t, int64(100), custody, "funds stay in custody when the credit fails")
	got, _ := f.engine.GetOrder(ctx, o.ID)
	assert.False(t, got.Released)
	buyerRep, _ := f.rep.Score(ctx, buyer)
	assert.Equal(t, int64(0), buyerRep)

	funds.failTransfer = false
	require.NoError(t, f.engine.ConfirmDelivery(ctx, buyer, o.ID))
	sellerBalance, _ := f.funds.BalanceOf(ctx, seller)
	assert.Equal(t, int64(100), sellerBalance)
}

func TestNewEngineDefaultsTimeout(t *testing.T) {
	ctx := context.Background()
	funds := ledger.NewMemory()
	cat := catalog.NewService(catalog.NewMemoryStore(), seq.New(), nil)
	engine := NewEngine(Config{
		Orders:     NewMemoryStore(),
		Products:   cat,
		Ledger:     funds,
		Reputation: reputation.NewMemory(nil),
		IDs:        seq.New(),
		AdminID:    admin,
	})
	assert.Equal(t, DefaultDeliveryTimeout, engine.DeliveryTimeout())

	// A freshly held order must not be instantly releasable.
	id, err := cat.ListProduct(ctx, seller, "woven basket", catalog.CategoryCrafts, 100, "")
	require.NoError(t, err)
	require.NoError(t, funds.Deposit(ctx, buyer, 100))
	require.NoError(t, funds.Approve(ctx, buyer, "escrow", 100))
	o, err := engine.PlaceOrder(ctx, buyer, id)
	require.NoError(t, err)
	assert.ErrorIs(t, engine.ReleaseAfterTimeout(ctx, o.ID), ErrTimeoutNotReached)
}

func TestStatsTracksSettlementPaths(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		id, err := f.catalog.ListProduct(ctx, seller, "clay pot", catalog.CategoryHomeDecor, 50, "")
		require.NoError(t, err)
		require.NoError(t, f.funds.Deposit(ctx, buyer, 50))
		require.NoError(t, f.funds.Approve(ctx, buyer, "escrow", 50))
		_, err = f.engine.PlaceOrder(ctx, buyer, id)
		require.NoError(t, err)
	}

	require.NoError(t, f.engine.ConfirmDelivery(ctx, buyer, 1))
	f.clock.Advance(72 * time.Hour)
	require.NoError(t, f.engine.ReleaseAfterTimeout(ctx, 2))

	st, err := f.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Held: 1, ConfirmedReleased: 1, TimeoutReleased: 1}, st)
}
