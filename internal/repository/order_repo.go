package repository

import (
	"context"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	Status      model.OrderStatus
	AssigneeID  *uuid.UUID
	SalesUserID *uuid.UUID
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	// FindByID returns the order with sales user, assignee and item products resolved.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// FindByIDForUpdate row-locks the order and loads its items, without relations.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)
	// Save writes the order row and replaces its item lines.
	Save(ctx context.Context, order *model.Order) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	// CountActiveByAssignee counts pending and in-progress orders per assignee.
	CountActiveByAssignee(ctx context.Context) (map[uuid.UUID]int64, error)
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("SalesUser").
		Preload("Assignee").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Items.Product")
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	return translate(r.db.WithContext(ctx).Omit("SalesUser", "Assignee").Create(order).Error)
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.withRelations(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Order("position ASC").Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	var orders []model.Order
	query := r.withRelations(r.db.WithContext(ctx))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.SalesUserID != nil {
		query = query.Where("sales_user_id = ?", *filter.SalesUserID)
	}
	err := query.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) Save(ctx context.Context, order *model.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(order).Error; err != nil {
		return err
	}
	if err := db.Where("order_id = ?", order.ID).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	return db.Omit("Product").Create(&order.Items).Error
}

func (r *orderRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
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

func (r *orderRepo) CountActiveByAssignee(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		AssigneeID uuid.UUID
		Total      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("assignee_id, COUNT(*) AS total").
		Where("status IN ? AND assignee_id IS NOT NULL", model.ActiveOrderStatuses).
		Group("assignee_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		out[row.AssigneeID] = row.Total
	}
	return out, nil
}

func (r *orderRepo) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	var rows []struct {
		Status model.OrderStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[model.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
