package repository

import (
	"context"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByScanCode(ctx context.Context, code string) (*model.Product, error)
	// FindByIDsForUpdate loads and row-locks the given products in id order.
	// Missing ids are simply absent from the result.
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	// AdjustQuantity adds delta to available_quantity only if the result stays
	// non-negative; otherwise it returns ErrQuantityConflict and changes nothing.
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	Stats(ctx context.Context, lowStockThreshold int) (*CatalogStats, error)
}

// CatalogStats untuk overview dashboard
type CatalogStats struct {
	TotalProducts  int64 `json:"total_products"`
	LowStockCount  int64 `json:"low_stock_count"`
	AvailableUnits int64 `json:"available_units"`
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindByScanCode(ctx context.Context, code string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "scan_code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	out := make(map[uuid.UUID]*model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	// Lock ordering by id keeps concurrent orders from deadlocking each other.
	var products []model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Save(product).Error)
}

func (r *productRepo) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND available_quantity + ? >= 0", id, delta).
		Update("available_quantity", gorm.Expr("available_quantity + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrQuantityConflict
	}
	return r.FindByID(ctx, id)
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"deleted_at": gorm.Expr("NOW()"),
		"deleted_by": deletedBy,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) Stats(ctx context.Context, lowStockThreshold int) (*CatalogStats, error) {
	var stats CatalogStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Where("available_quantity < ?", lowStockThreshold).Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Select("COALESCE(SUM(available_quantity), 0)").Scan(&stats.AvailableUnits).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
