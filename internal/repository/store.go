package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrQuantityConflict = errors.New("available quantity would drop below zero")
	ErrDuplicate        = errors.New("duplicate key")
)

// Store groups the repositories the services work with. Repositories taken
// from the Store passed to WithinTx's callback share that transaction.
type Store interface {
	Products() ProductRepository
	Users() UserRepository
	Orders() OrderRepository
	Movements() StockMovementRepository

	// WithinTx runs fn atomically: either every write made through tx is
	// committed or none is. Returning an error from fn rolls back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by gorm.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Products() ProductRepository { return NewProductRepo(s.db) }
func (s *gormStore) Users() UserRepository { return NewUserRepo(s.db) }
func (s *gormStore) Orders() OrderRepository { return NewOrderRepo(s.db) }
func (s *gormStore) Movements() StockMovementRepository { return NewStockMovementRepo(s.db) }

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// translate maps gorm's not-found and unique-violation errors to ours.
// Unique violations are only recognised with gorm.Config.TranslateError.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
