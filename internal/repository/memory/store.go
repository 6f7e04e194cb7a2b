// Package memory provides an in-memory repository.Store with real
// transaction semantics: each InTx runs against the live state under a
// store-wide lock, and a pre-transaction snapshot is restored when the
// callback fails. Used by unit tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/models"
	"github.com/barterhub/backend/internal/repository"
)

type state struct {
	balances    map[string]models.Balance
	txns        map[string][]models.PointsTransaction
	items       map[string]models.Item
	orders      map[string]models.Order
	swaps       map[string]models.Swap
	options     map[string]models.RedemptionOption
	redemptions map[string]models.UserRedemption
	codes       map[string]bool
	audits      []models.AuditLog
}

func newState() state {
	return state{
		balances:    map[string]models.Balance{},
		txns:        map[string][]models.PointsTransaction{},
		items:       map[string]models.Item{},
		orders:      map[string]models.Order{},
		swaps:       map[string]models.Swap{},
		options:     map[string]models.RedemptionOption{},
		redemptions: map[string]models.UserRedemption{},
		codes:       map[string]bool{},
	}
}

func (s state) clone() state {
	c := state{
		balances:    make(map[string]models.Balance, len(s.balances)),
		txns:        make(map[string][]models.PointsTransaction, len(s.txns)),
		items:       make(map[string]models.Item, len(s.items)),
		orders:      make(map[string]models.Order, len(s.orders)),
		swaps:       make(map[string]models.Swap, len(s.swaps)),
		options:     make(map[string]models.RedemptionOption, len(s.options)),
		redemptions: make(map[string]models.UserRedemption, len(s.redemptions)),
		codes:       make(map[string]bool, len(s.codes)),
		audits:      s.audits,
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.txns {
		c.txns[k] = v[:len(v):len(v)]
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.swaps {
		c.swaps[k] = v
	}
	for k, v := range s.options {
		c.options[k] = v
	}
	for k, v := range s.redemptions {
		c.redemptions[k] = v
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st state

	// Now is injectable so expiry behavior is testable.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{st: newState(), Now: time.Now}
}

// InTx serializes transactions with the store lock, so row-lock races
// collapse to strict one-at-a-time execution: exactly the observable
// behavior the Postgres row locks guarantee.
func (m *Store) InTx(_ context.Context, fn func(repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(&tx{s: &m.st, now: m.Now}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// --- seeding helpers for tests ---

func (m *Store) SeedItem(it models.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it.Status == "" {
		it.Status = models.ItemActive
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = m.Now()
	}
	it.UpdatedAt = it.CreatedAt
	m.st.items[it.ID] = it
}

func (m *Store) SeedOption(o models.RedemptionOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = m.Now()
	}
	m.st.options[o.ID] = o
}

// AuditLogs returns the audit entries written so far.
func (m *Store) AuditLogs() []models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditLog(nil), m.st.audits...)
}

// Create implements repository.AuditLogs.
func (m *Store) Create(_ context.Context, l models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = m.Now()
	}
	m.st.audits = append(m.st.audits, l)
	return nil
}

// --- auto-commit reads delegate to a transaction view under the lock ---

func (m *Store) read() (*tx, func()) {
	m.mu.Lock()
	return &tx{s: &m.st, now: m.Now}, m.mu.Unlock
}

func (m *Store) GetItem(ctx context.Context, id string) (models.Item, error) {
	t, done := m.read()
	defer done()
	return t.GetItem(ctx, id)
}

func (m *Store) GetBalance(ctx context.Context, userID string) (models.Balance, error) {
	t, done := m.read()
	defer done()
	return t.GetBalance(ctx, userID)
}

func (m *Store) GetSwap(ctx context.Context, id string) (models.Swap, error) {
	t, done := m.read()
	defer done()
	return t.GetSwap(ctx, id)
}

func (m *Store) ListSwapsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Swap, error) {
	t, done := m.read()
	defer done()
	return t.ListSwapsByUser(ctx, userID, limit, offset)
}

func (m *Store) ListTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]models.PointsTransaction, error) {
	t, done := m.read()
	defer done()
	return t.ListTransactionsByUser(ctx, userID, limit, offset)
}

func (m *Store) SumTransactionsByUser(ctx context.Context, userID string) (int64, error) {
	t, done := m.read()
	defer done()
	return t.SumTransactionsByUser(ctx, userID)
}

func (m *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	t, done := m.read()
	defer done()
	return t.GetOrder(ctx, id)
}

func (m *Store) GetOption(ctx context.Context, id string) (models.RedemptionOption, error) {
	t, done := m.read()
	defer done()
	return t.GetOption(ctx, id)
}

func (m *Store) ListActiveOptions(ctx context.Context) ([]models.RedemptionOption, error) {
	t, done := m.read()
	defer done()
	return t.ListActiveOptions(ctx)
}

func (m *Store) ListRedemptionsByUser(ctx context.Context, userID string) ([]models.UserRedemption, error) {
	t, done := m.read()
	defer done()
	return t.ListRedemptionsByUser(ctx, userID)
}

var _ repository.Store = (*Store)(nil)
var _ repository.AuditLogs = (*Store)(nil)

// tx operates on the live state; the store lock is already held.
type tx struct {
	s   *state
	now func() time.Time
}

var _ repository.Tx = (*tx)(nil)

func (t *tx) GetItem(_ context.Context, id string) (models.Item, error) {
	it, ok := t.s.items[id]
	if !ok {
		return models.Item{}, errs.ErrItemNotFound
	}
	return it, nil
}

func (t *tx) GetItemForUpdate(ctx context.Context, id string) (models.Item, error) {
	return t.GetItem(ctx, id)
}

func (t *tx) UpdateItemOwner(_ context.Context, itemID, ownerID string, status models.ItemStatus) error {
	it, ok := t.s.items[itemID]
	if !ok {
		return errs.ErrItemNotFound
	}
	it.OwnerID = ownerID
	it.Status = status
	it.UpdatedAt = t.now()
	t.s.items[itemID] = it
	return nil
}

func (t *tx) GetBalance(_ context.Context, userID string) (models.Balance, error) {
	b, ok := t.s.balances[userID]
	if !ok {
		return models.Balance{UserID: userID}, nil
	}
	return b, nil
}

func (t *tx) GetBalanceForUpdate(ctx context.Context, userID string) (models.Balance, error) {
	if _, ok := t.s.balances[userID]; !ok {
		t.s.balances[userID] = models.Balance{UserID: userID, LastUpdatedAt: t.now()}
	}
	return t.GetBalance(ctx, userID)
}

func (t *tx) AddToBalance(_ context.Context, userID string, delta int64) (int64, error) {
	b, ok := t.s.balances[userID]
	if !ok {
		return 0, errs.ErrUserNotFound
	}
	b.Amount += delta
	b.LastUpdatedAt = t.now()
	t.s.balances[userID] = b
	return b.Amount, nil
}

func (t *tx) InsertPointsTransaction(_ context.Context, p models.PointsTransaction) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = t.now()
	}
	t.s.txns[p.UserID] = append(t.s.txns[p.UserID], p)
	return nil
}

func (t *tx) HasPointsTransactionRef(_ context.Context, userID, refID, refType string, typ models.PointsTransactionType) (bool, error) {
	for _, p := range t.s.txns[userID] {
		if p.Type != typ || p.ReferenceID == nil || p.ReferenceType == nil {
			continue
		}
		if *p.ReferenceID == refID && *p.ReferenceType == refType {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) ListTransactionsByUser(_ context.Context, userID string, limit, offset int) ([]models.PointsTransaction, error) {
	all := t.s.txns[userID]
	out := make([]models.PointsTransaction, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) SumTransactionsByUser(_ context.Context, userID string) (int64, error) {
	var sum int64
	for _, p := range t.s.txns[userID] {
		sum += p.Amount
	}
	return sum, nil
}

func (t *tx) GetOrder(_ context.Context, id string) (models.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return models.Order{}, errs.ErrItemNotFound
	}
	return o, nil
}

func (t *tx) InsertOrder(_ context.Context, o models.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = t.now()
	}
	t.s.orders[o.ID] = o
	return nil
}

func (t *tx) GetSwap(_ context.Context, id string) (models.Swap, error) {
	s, ok := t.s.swaps[id]
	if !ok {
		return models.Swap{}, errs.ErrSwapNotFound
	}
	return s, nil
}

func (t *tx) GetSwapForUpdate(ctx context.Context, id string) (models.Swap, error) {
	return t.GetSwap(ctx, id)
}

func (t *tx) InsertSwap(_ context.Context, s models.Swap) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = t.now()
	}
	s.UpdatedAt = s.CreatedAt
	t.s.swaps[s.ID] = s
	return nil
}

func (t *tx) UpdateSwapStatus(_ context.Context, swapID string, status models.SwapStatus) error {
	s, ok := t.s.swaps[swapID]
	if !ok {
		return errs.ErrSwapNotFound
	}
	s.Status = status
	s.UpdatedAt = t.now()
	t.s.swaps[swapID] = s
	return nil
}

func (t *tx) HasPendingSwap(_ context.Context, requesterID, offeredItemID, requestedItemID string) (bool, error) {
	for _, s := range t.s.swaps {
		if s.Status == models.SwapPending &&
			s.RequesterID == requesterID &&
			s.OfferedItemID == offeredItemID &&
			s.RequestedItemID == requestedItemID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) ListSwapsByUser(_ context.Context, userID string, limit, offset int) ([]models.Swap, error) {
	var out []models.Swap
	for _, s := range t.s.swaps {
		if s.RequesterID == userID || s.TargetID == userID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) GetOption(_ context.Context, id string) (models.RedemptionOption, error) {
	o, ok := t.s.options[id]
	if !ok {
		return models.RedemptionOption{}, errs.ErrOptionNotFound
	}
	return o, nil
}

func (t *tx) GetOptionForUpdate(ctx context.Context, id string) (models.RedemptionOption, error) {
	return t.GetOption(ctx, id)
}

func (t *tx) InsertOption(_ context.Context, o models.RedemptionOption) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = t.now()
	}
	t.s.options[o.ID] = o
	return nil
}

func (t *tx) ListActiveOptions(_ context.Context) ([]models.RedemptionOption, error) {
	now := t.now()
	var out []models.RedemptionOption
	for _, o := range t.s.options {
		if o.Active && !o.Expired(now) && !o.SoldOut() {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PointsRequired < out[j].PointsRequired })
	return out, nil
}

func (t *tx) IncrementOptionRedeemed(_ context.Context, optionID string) error {
	o, ok := t.s.options[optionID]
	if !ok {
		return errs.ErrOptionNotFound
	}
	o.TotalRedeemed++
	t.s.options[optionID] = o
	return nil
}

func (t *tx) CountUserRedemptions(_ context.Context, userID, optionID string) (int64, error) {
	var n int64
	for _, r := range t.s.redemptions {
		if r.UserID == userID && r.OptionID == optionID {
			n++
		}
	}
	return n, nil
}

func (t *tx) InsertUserRedemption(_ context.Context, r models.UserRedemption) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = t.now()
	}
	t.s.redemptions[r.ID] = r
	t.s.codes[r.RewardCode] = true
	return nil
}

func (t *tx) RewardCodeExists(_ context.Context, code string) (bool, error) {
	return t.s.codes[code], nil
}

func (t *tx) ListRedemptionsByUser(_ context.Context, userID string) ([]models.UserRedemption, error) {
	var out []models.UserRedemption
	for _, r := range t.s.redemptions {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
