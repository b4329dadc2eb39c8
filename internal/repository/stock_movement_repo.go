package repository

import (
	"context"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockMovementRepository interface {
	Create(ctx context.Context, movements []model.StockMovement) error
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.StockMovement, error)
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
}

// StockMovementData untuk chart data
type StockMovementData struct {
	Date     string `json:"date"`
	Reserved int    `json:"reserved"`
	Released int    `json:"released"`
	Adjusted int    `json:"adjusted"`
}

type stockMovementRepo struct {
	db *gorm.DB
}

func NewStockMovementRepo(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db}
}

func (r *stockMovementRepo) Create(ctx context.Context, movements []model.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Product").Create(&movements).Error
}

func (r *stockMovementRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at DESC").Find(&movements).Error
	return movements, err
}

func (r *stockMovementRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.WithContext(ctx).Preload("Product").Where("order_id = ?", orderID).Order("created_at ASC").Find(&movements).Error
	return movements, err
}

func (r *stockMovementRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	// Aggregate movements per day; reservations are stored as negative deltas
	rows, err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select(`
			TO_CHAR(DATE(created_at), 'YYYY-MM-DD') as date,
			COALESCE(SUM(CASE WHEN type = 'RESERVE' THEN -quantity ELSE 0 END), 0) as reserved,
			COALESCE(SUM(CASE WHEN type = 'RELEASE' THEN quantity ELSE 0 END), 0) as released,
			COALESCE(SUM(CASE WHEN type = 'ADJUST' THEN quantity ELSE 0 END), 0) as adjusted
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Reserved, &data.Released, &data.Adjusted); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}
