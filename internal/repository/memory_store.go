package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and by the
// STORE_DRIVER=memory development mode. Transactions work on a copy of the
// whole state and swap it in on commit, under a single lock.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	products  map[uuid.UUID]model.Product
	users     map[uuid.UUID]model.User
	userSeq   []uuid.UUID
	orders    map[uuid.UUID]model.Order
	orderSeq  []uuid.UUID
	movements []model.StockMovement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		products: make(map[uuid.UUID]model.Product),
		users:    make(map[uuid.UUID]model.User),
		orders:   make(map[uuid.UUID]model.Order),
	}}
}

func (st *memState) clone() *memState {
	cp := &memState{
		products:  make(map[uuid.UUID]model.Product, len(st.products)),
		users:     make(map[uuid.UUID]model.User, len(st.users)),
		userSeq:   append([]uuid.UUID(nil), st.userSeq...),
		orders:    make(map[uuid.UUID]model.Order, len(st.orders)),
		orderSeq:  append([]uuid.UUID(nil), st.orderSeq...),
		movements: append([]model.StockMovement(nil), st.movements...),
	}
	for k, v := range st.products {
		cp.products[k] = v
	}
	for k, v := range st.users {
		cp.users[k] = v
	}
	for k, v := range st.orders {
		cp.orders[k] = copyOrder(v)
	}
	return cp
}

func copyOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem(nil), o.Items...)
	o.SalesUser, o.Assignee = nil, nil
	for i := range o.Items {
		o.Items[i].Product = nil
	}
	return o
}

// memAccess runs fn against the state, locking when outside a transaction.
type memAccess interface {
	run(fn func(st *memState) error) error
}

func (s *MemoryStore) run(fn func(st *memState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *MemoryStore) Products() ProductRepository { return &memProductRepo{s} }
func (s *MemoryStore) Users() UserRepository { return &memUserRepo{s} }
func (s *MemoryStore) Orders() OrderRepository { return &memOrderRepo{s} }
func (s *MemoryStore) Movements() StockMovementRepository { return &memMovementRepo{s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// memTx is the Store handed to WithinTx callbacks. The outer lock is held
// for its whole lifetime, so it does not lock again.
type memTx struct {
	state *memState
}

func (t *memTx) run(fn func(st *memState) error) error { return fn(t.state) }

func (t *memTx) Products() ProductRepository { return &memProductRepo{t} }
func (t *memTx) Users() UserRepository { return &memUserRepo{t} }
func (t *memTx) Orders() OrderRepository { return &memOrderRepo{t} }
func (t *memTx) Movements() StockMovementRepository { return &memMovementRepo{t} }

func (t *memTx) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func stamp(base *model.BaseModel, now time.Time) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

// ---- products ----

type memProductRepo struct{ a memAccess }

func (r *memProductRepo) Create(ctx context.Context, product *model.Product) error {
	return r.a.run(func(st *memState) error {
		for _, p := range st.products {
			if p.ScanCode == product.ScanCode {
				return ErrDuplicate
			}
		}
		stamp(&product.BaseModel, time.Now())
		st.products[product.ID] = *product
		return nil
	})
}

func (r *memProductRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := r.a.run(func(st *memState) error {
		for _, p := range st.products {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var out *model.Product
	err := r.a.run(func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *memProductRepo) FindByScanCode(ctx context.Context, code string) (*model.Product, error) {
	var out *model.Product
	err := r.a.run(func(st *memState) error {
		for _, p := range st.products {
			if p.ScanCode == code {
				found := p
				out = &found
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r *memProductRepo) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	out := make(map[uuid.UUID]*model.Product, len(ids))
	err := r.a.run(func(st *memState) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				out[id] = &p
			}
		}
		return nil
	})
	return out, err
}

func (r *memProductRepo) Update(ctx context.Context, product *model.Product) error {
	return r.a.run(func(st *memState) error {
		if _, ok := st.products[product.ID]; !ok {
			return ErrNotFound
		}
		if product.AvailableQuantity < 0 {
			return ErrQuantityConflict
		}
		for id, p := range st.products {
			if id != product.ID && p.ScanCode == product.ScanCode {
				return ErrDuplicate
			}
		}
		product.UpdatedAt = time.Now()
		st.products[product.ID] = *product
		return nil
	})
}

func (r *memProductRepo) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	var out *model.Product
	err := r.a.run(func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return ErrNotFound
		}
		if p.AvailableQuantity+delta < 0 {
			return ErrQuantityConflict
		}
		p.AvailableQuantity += delta
		p.UpdatedAt = time.Now()
		st.products[id] = p
		out = &p
		return nil
	})
	return out, err
}

func (r *memProductRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.a.run(func(st *memState) error {
		if _, ok := st.products[id]; !ok {
			return ErrNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func (r *memProductRepo) Stats(ctx context.Context, lowStockThreshold int) (*CatalogStats, error) {
	var stats CatalogStats
	err := r.a.run(func(st *memState) error {
		for _, p := range st.products {
			stats.TotalProducts++
			stats.AvailableUnits += int64(p.AvailableQuantity)
			if p.AvailableQuantity < lowStockThreshold {
				stats.LowStockCount++
			}
		}
		return nil
	})
	return &stats, err
}

// ---- users ----

type memUserRepo struct{ a memAccess }

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.a.run(func(st *memState) error {
		for _, u := range st.users {
			if u.Email == email {
				found := u
				out = &found
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var out *model.User
	err := r.a.run(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *memUserRepo) FindByRole(ctx context.Context, role model.Role, activeOnly bool) ([]model.User, error) {
	var out []model.User
	err := r.a.run(func(st *memState) error {
		for _, id := range st.userSeq {
			u, ok := st.users[id]
			if !ok || u.Role != role || (activeOnly && !u.IsActive) {
				continue
			}
			out = append(out, u)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *memUserRepo) FindAll(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := r.a.run(func(st *memState) error {
		for _, id := range st.userSeq {
			if u, ok := st.users[id]; ok {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	return r.a.run(func(st *memState) error {
		for _, u := range st.users {
			if u.Email == user.Email {
				return errors.New("duplicate email")
			}
		}
		stamp(&user.BaseModel, time.Now())
		st.users[user.ID] = *user
		st.userSeq = append(st.userSeq, user.ID)
		return nil
	})
}

func (r *memUserRepo) Update(ctx context.Context, user *model.User) error {
	return r.a.run(func(st *memState) error {
		if _, ok := st.users[user.ID]; !ok {
			return ErrNotFound
		}
		user.UpdatedAt = time.Now()
		st.users[user.ID] = *user
		return nil
	})
}

func (r *memUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.a.run(func(st *memState) error {
		if _, ok := st.users[id]; !ok {
			return ErrNotFound
		}
		delete(st.users, id)
		return nil
	})
}

func (r *memUserRepo) modify(id uuid.UUID, fn func(u *model.User)) error {
	return r.a.run(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrNotFound
		}
		fn(&u)
		st.users[id] = u
		return nil
	})
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	return r.modify(userID, func(u *model.User) { u.Password = hashedPassword })
}

func (r *memUserRepo) UpdateTokenVersion(ctx context.Context, userID uuid.UUID, version string) error {
	return r.modify(userID, func(u *model.User) { u.TokenVersion = version })
}

func (r *memUserRepo) UpdateLastSeen(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	return r.modify(userID, func(u *model.User) { u.LastSeenAt = &now })
}

// ---- orders ----

type memOrderRepo struct{ a memAccess }

func (r *memOrderRepo) resolve(st *memState, o model.Order) model.Order {
	o = copyOrder(o)
	if u, ok := st.users[o.SalesUserID]; ok {
		o.SalesUser = &u
	}
	if o.AssigneeID != nil {
		if u, ok := st.users[*o.AssigneeID]; ok {
			o.Assignee = &u
		}
	}
	for i := range o.Items {
		if p, ok := st.products[o.Items[i].ProductID]; ok {
			o.Items[i].Product = &p
		}
	}
	return o
}

func (r *memOrderRepo) Create(ctx context.Context, order *model.Order) error {
	return r.a.run(func(st *memState) error {
		if order.IdempotencyKey != nil && findByKey(st, *order.IdempotencyKey) != nil {
			return ErrDuplicate
		}
		stamp(&order.BaseModel, time.Now())
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			if order.Items[i].ID == uuid.Nil {
				order.Items[i].ID = uuid.New()
			}
		}
		st.orders[order.ID] = copyOrder(*order)
		st.orderSeq = append(st.orderSeq, order.ID)
		return nil
	})
}

func (r *memOrderRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	var out *model.Order
	err := r.a.run(func(st *memState) error {
		o := findByKey(st, key)
		if o == nil {
			return ErrNotFound
		}
		c := copyOrder(*o)
		out = &c
		return nil
	})
	return out, err
}

func findByKey(st *memState, key string) *model.Order {
	for _, o := range st.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return &o
		}
	}
	return nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var out *model.Order
	err := r.a.run(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return ErrNotFound
		}
		resolved := r.resolve(st, o)
		out = &resolved
		return nil
	})
	return out, err
}

func (r *memOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var out *model.Order
	err := r.a.run(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return ErrNotFound
		}
		cp := copyOrder(o)
		out = &cp
		return nil
	})
	return out, err
}

func (r *memOrderRepo) FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	var out []model.Order
	err := r.a.run(func(st *memState) error {
		// newest first
		for i := len(st.orderSeq) - 1; i >= 0; i-- {
			o, ok := st.orders[st.orderSeq[i]]
			if !ok {
				continue
			}
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			if filter.AssigneeID != nil && (o.AssigneeID == nil || *o.AssigneeID != *filter.AssigneeID) {
				continue
			}
			if filter.SalesUserID != nil && o.SalesUserID != *filter.SalesUserID {
				continue
			}
			out = append(out, r.resolve(st, o))
		}
		return nil
	})
	return out, err
}

func (r *memOrderRepo) Save(ctx context.Context, order *model.Order) error {
	return r.a.run(func(st *memState) error {
		if _, ok := st.orders[order.ID]; !ok {
			return ErrNotFound
		}
		order.UpdatedAt = time.Now()
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			if order.Items[i].ID == uuid.Nil {
				order.Items[i].ID = uuid.New()
			}
		}
		st.orders[order.ID] = copyOrder(*order)
		return nil
	})
}

func (r *memOrderRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.a.run(func(st *memState) error {
		if _, ok := st.orders[id]; !ok {
			return ErrNotFound
		}
		delete(st.orders, id)
		return nil
	})
}

func (r *memOrderRepo) CountActiveByAssignee(ctx context.Context) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64)
	err := r.a.run(func(st *memState) error {
		for _, o := range st.orders {
			if o.AssigneeID != nil && o.Status.IsActive() {
				out[*o.AssigneeID]++
			}
		}
		return nil
	})
	return out, err
}

func (r *memOrderRepo) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	out := make(map[model.OrderStatus]int64)
	err := r.a.run(func(st *memState) error {
		for _, o := range st.orders {
			out[o.Status]++
		}
		return nil
	})
	return out, err
}

// ---- stock movements ----

type memMovementRepo struct{ a memAccess }

func (r *memMovementRepo) Create(ctx context.Context, movements []model.StockMovement) error {
	return r.a.run(func(st *memState) error {
		now := time.Now()
		for i := range movements {
			stamp(&movements[i].BaseModel, now)
			st.movements = append(st.movements, movements[i])
		}
		return nil
	})
}

func (r *memMovementRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error) {
	var out []model.StockMovement
	err := r.a.run(func(st *memState) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			if st.movements[i].ProductID == productID {
				out = append(out, st.movements[i])
			}
		}
		return nil
	})
	return out, err
}

func (r *memMovementRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.StockMovement, error) {
	var out []model.StockMovement
	err := r.a.run(func(st *memState) error {
		for _, m := range st.movements {
			if m.OrderID != nil && *m.OrderID == orderID {
				if p, ok := st.products[m.ProductID]; ok {
					m.Product = &p
				}
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (r *memMovementRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	byDay := make(map[string]*StockMovementData)
	err := r.a.run(func(st *memState) error {
		for _, m := range st.movements {
			if m.CreatedAt.Before(startDate) || m.CreatedAt.After(endDate) {
				continue
			}
			day := m.CreatedAt.Format("2006-01-02")
			d, ok := byDay[day]
			if !ok {
				d = &StockMovementData{Date: day}
				byDay[day] = d
			}
			switch m.Type {
			case model.MovementReserve:
				d.Reserved += -m.Quantity
			case model.MovementRelease:
				d.Released += m.Quantity
			case model.MovementAdjust:
				d.Adjusted += m.Quantity
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]StockMovementData, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
