// Package memory is a thread-safe in-memory implementation of the
// repositories, used by tests and local runs without postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"happyinvest/internal/models"
	"happyinvest/internal/repositories"
)

// InMemoryStore holds every record behind a single RWMutex. Records are
// cloned on the way in and on the way out so callers never share memory
// with the store.
type InMemoryStore struct {
	Mu          sync.RWMutex
	Users       map[string]*models.User
	Investments map[string]*models.Investment
	Txns        []*models.Transaction
	Withdrawals map[string]*models.Withdrawal
	Recharges   map[string]*models.Recharge
	Bans        map[string]*models.Ban
	Violations  []*models.CheatViolation
	Referrals   map[string]*models.ReferralEdge
	CodeIndex   map[string]string // referral code -> userID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		Users:       make(map[string]*models.User),
		Investments: make(map[string]*models.Investment),
		Withdrawals: make(map[string]*models.Withdrawal),
		Recharges:   make(map[string]*models.Recharge),
		Bans:        make(map[string]*models.Ban),
		Referrals:   make(map[string]*models.ReferralEdge),
		CodeIndex:   make(map[string]string),
	}
}

// NewStore returns a repositories.Store backed by a fresh InMemoryStore.
func NewStore() *repositories.Store {
	return NewInMemoryStore().Store()
}

// Store exposes s through the repository interfaces.
func (s *InMemoryStore) Store() *repositories.Store {
	return &repositories.Store{
		Users:        &userRepo{s},
		Investments:  &investmentRepo{s},
		Transactions: &transactionRepo{s},
		Withdrawals:  &withdrawalRepo{s},
		Recharges:    &rechargeRepo{s},
		Bans:         &banRepo{s},
		Violations:   &violationRepo{s},
		Referrals:    &referralRepo{s},
		Ping:         func(ctx context.Context) error { return ctx.Err() },
	}
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

type userRepo struct{ s *InMemoryStore }

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	u, ok := r.s.Users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *userRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	id, ok := r.s.CodeIndex[code]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.s.Users[id].Clone(), nil
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	if _, exists := r.s.Users[user.ID]; exists {
		return repositories.ErrDuplicate
	}
	if user.ReferralCode != "" {
		if _, exists := r.s.CodeIndex[user.ReferralCode]; exists {
			return repositories.ErrDuplicate
		}
		r.s.CodeIndex[user.ReferralCode] = user.ID
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	stamp(&user.CreatedAt, &user.UpdatedAt)
	r.s.Users[user.ID] = user.Clone()
	return nil
}

func (r *userRepo) CompareAndSwap(ctx context.Context, user *models.User, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	current, ok := r.s.Users[user.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if current.Version != expected {
		return repositories.ErrVersionConflict
	}
	user.Version = expected + 1
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now()
	r.s.Users[user.ID] = user.Clone()
	return nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	all := make([]*models.User, 0, len(r.s.Users))
	for _, u := range r.s.Users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []*models.User{}, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*models.User, 0, end-offset)
	for _, u := range all[offset:end] {
		out = append(out, u.Clone())
	}
	return out, total, nil
}

type investmentRepo struct{ s *InMemoryStore }

func (r *investmentRepo) Create(ctx context.Context, inv *models.Investment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	if _, exists := r.s.Investments[inv.ID]; exists {
		return repositories.ErrDuplicate
	}
	stamp(&inv.CreatedAt, &inv.UpdatedAt)
	r.s.Investments[inv.ID] = inv.Clone()
	return nil
}

func (r *investmentRepo) GetByID(ctx context.Context, id string) (*models.Investment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	inv, ok := r.s.Investments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return inv.Clone(), nil
}

func (r *investmentRepo) filter(keep func(*models.Investment) bool) []*models.Investment {
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	var out []*models.Investment
	for _, inv := range r.s.Investments {
		if keep(inv) {
			out = append(out, inv.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *investmentRepo) ListByUser(ctx context.Context, userID string) ([]*models.Investment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.filter(func(inv *models.Investment) bool { return inv.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}

func (r *investmentRepo) ListActiveByUser(ctx context.Context, userID string) ([]*models.Investment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.filter(func(inv *models.Investment) bool {
		return inv.UserID == userID && inv.Status == models.InvestmentStatusActive
	}), nil
}

func (r *investmentRepo) ListDue(ctx context.Context, dueBy time.Time, afterID string, limit int) ([]*models.Investment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.filter(func(inv *models.Investment) bool {
		return inv.Status == models.InvestmentStatusActive && !inv.NextPayoutDue.After(dueBy) && inv.ID > afterID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *investmentRepo) CompareAndSwap(ctx context.Context, inv *models.Investment, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	current, ok := r.s.Investments[inv.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if current.Version != expected {
		return repositories.ErrVersionConflict
	}
	inv.Version = expected + 1
	inv.CreatedAt = current.CreatedAt
	inv.UpdatedAt = time.Now()
	r.s.Investments[inv.ID] = inv.Clone()
	return nil
}

type transactionRepo struct{ s *InMemoryStore }

func (r *transactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	c := *tx
	r.s.Txns = append(r.s.Txns, &c)
	return nil
}

func (r *transactionRepo) ListByUser(ctx context.Context, userID string, kinds []string, limit, offset int) ([]*models.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()

	wanted := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	var matched []*models.Transaction
	// newest first
	for i := len(r.s.Txns) - 1; i >= 0; i-- {
		tx := r.s.Txns[i]
		if tx.UserID != userID || (len(wanted) > 0 && !wanted[tx.Kind]) {
			continue
		}
		c := *tx
		matched = append(matched, &c)
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*models.Transaction{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

type withdrawalRepo struct{ s *InMemoryStore }

func (r *withdrawalRepo) Create(ctx context.Context, w *models.Withdrawal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	if _, exists := r.s.Withdrawals[w.ID]; exists {
		return repositories.ErrDuplicate
	}
	stamp(&w.CreatedAt, &w.UpdatedAt)
	r.s.Withdrawals[w.ID] = w.Clone()
	return nil
}

func (r *withdrawalRepo) GetByID(ctx context.Context, id string) (*models.Withdrawal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	w, ok := r.s.Withdrawals[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return w.Clone(), nil
}

func (r *withdrawalRepo) list(keep func(*models.Withdrawal) bool) []*models.Withdrawal {
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	var out []*models.Withdrawal
	for _, w := range r.s.Withdrawals {
		if keep(w) {
			out = append(out, w.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *withdrawalRepo) ListByUser(ctx context.Context, userID string) ([]*models.Withdrawal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.list(func(w *models.Withdrawal) bool { return w.UserID == userID })
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *withdrawalRepo) ListByStatus(ctx context.Context, status string) ([]*models.Withdrawal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.list(func(w *models.Withdrawal) bool { return w.Status == status }), nil
}

func (r *withdrawalRepo) CompareAndSwap(ctx context.Context, w *models.Withdrawal, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	current, ok := r.s.Withdrawals[w.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if current.Version != expected {
		return repositories.ErrVersionConflict
	}
	w.Version = expected + 1
	w.CreatedAt = current.CreatedAt
	w.UpdatedAt = time.Now()
	r.s.Withdrawals[w.ID] = w.Clone()
	return nil
}

type rechargeRepo struct{ s *InMemoryStore }

func (r *rechargeRepo) Create(ctx context.Context, rc *models.Recharge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	if _, exists := r.s.Recharges[rc.ID]; exists {
		return repositories.ErrDuplicate
	}
	stamp(&rc.CreatedAt, &rc.UpdatedAt)
	r.s.Recharges[rc.ID] = rc.Clone()
	return nil
}

func (r *rechargeRepo) GetByID(ctx context.Context, id string) (*models.Recharge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	rc, ok := r.s.Recharges[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return rc.Clone(), nil
}

func (r *rechargeRepo) ListByStatus(ctx context.Context, status string) ([]*models.Recharge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	var out []*models.Recharge
	for _, rc := range r.s.Recharges {
		if rc.Status == status {
			out = append(out, rc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *rechargeRepo) CompareAndSwap(ctx context.Context, rc *models.Recharge, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	current, ok := r.s.Recharges[rc.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if current.Version != expected {
		return repositories.ErrVersionConflict
	}
	rc.Version = expected + 1
	rc.CreatedAt = current.CreatedAt
	rc.UpdatedAt = time.Now()
	r.s.Recharges[rc.ID] = rc.Clone()
	return nil
}

type banRepo struct{ s *InMemoryStore }

func (r *banRepo) Get(ctx context.Context, userID string) (*models.Ban, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	b, ok := r.s.Bans[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *banRepo) Put(ctx context.Context, ban *models.Ban) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	c := *ban
	r.s.Bans[ban.UserID] = &c
	return nil
}

func (r *banRepo) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	delete(r.s.Bans, userID)
	return nil
}

type violationRepo struct{ s *InMemoryStore }

func (r *violationRepo) Create(ctx context.Context, v *models.CheatViolation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	c := *v
	r.s.Violations = append(r.s.Violations, &c)
	return nil
}

func (r *violationRepo) ListByUser(ctx context.Context, userID string) ([]*models.CheatViolation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	var out []*models.CheatViolation
	for _, v := range r.s.Violations {
		if v.UserID == userID {
			c := *v
			out = append(out, &c)
		}
	}
	return out, nil
}

type referralRepo struct{ s *InMemoryStore }

func (r *referralRepo) Get(ctx context.Context, referredID string) (*models.ReferralEdge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	e, ok := r.s.Referrals[referredID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return e.Clone(), nil
}

func (r *referralRepo) Create(ctx context.Context, edge *models.ReferralEdge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	if _, exists := r.s.Referrals[edge.ReferredID]; exists {
		return repositories.ErrDuplicate
	}
	stamp(&edge.CreatedAt, &edge.UpdatedAt)
	r.s.Referrals[edge.ReferredID] = edge.Clone()
	return nil
}

func (r *referralRepo) ListByReferrer(ctx context.Context, referrerID string) ([]*models.ReferralEdge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.Mu.RLock()
	defer r.s.Mu.RUnlock()
	var out []*models.ReferralEdge
	for _, e := range r.s.Referrals {
		if e.ReferrerID == referrerID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReferredID < out[j].ReferredID })
	return out, nil
}

func (r *referralRepo) CompareAndSwap(ctx context.Context, edge *models.ReferralEdge, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.Mu.Lock()
	defer r.s.Mu.Unlock()
	current, ok := r.s.Referrals[edge.ReferredID]
	if !ok {
		return repositories.ErrNotFound
	}
	if current.Version != expected {
		return repositories.ErrVersionConflict
	}
	edge.Version = expected + 1
	edge.CreatedAt = current.CreatedAt
	edge.UpdatedAt = time.Now()
	r.s.Referrals[edge.ReferredID] = edge.Clone()
	return nil
}
