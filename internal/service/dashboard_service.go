package service

import (
	"context"
	"fmt"
	"time"

	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/google/uuid"
)

// LowStockThreshold marks products worth restocking on the dashboard.
const LowStockThreshold = 10

type AssigneeLoad struct {
	UserID       uuid.UUID `json:"user_id"`
	FullName     string    `json:"full_name"`
	IsActive     bool      `json:"is_active"`
	ActiveOrders int64     `json:"active_orders"`
}

type DashboardStats struct {
	Catalog        repository.CatalogStats     `json:"catalog"`
	OrdersByStatus map[model.OrderStatus]int64 `json:"orders_by_status"`
	AssigneeLoad   []AssigneeLoad              `json:"assignee_load"`
}

type DashboardService interface {
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

type dashboardService struct {
	store repository.Store
}

func NewDashboardService(store repository.Store) DashboardService {
	return &dashboardService{store: store}
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.store.Movements().GetStockMovement(ctx, startDate, endDate)
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	catalog, err := s.store.Products().Stats(ctx, LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}
	byStatus, err := s.store.Orders().CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	for _, st := range []model.OrderStatus{model.OrderPending, model.OrderInProgress, model.OrderCompleted, model.OrderCancelled} {
		if _, ok := byStatus[st]; !ok {
			byStatus[st] = 0
		}
	}

	workers, err := s.store.Users().FindByRole(ctx, model.RoleWarehouse, false)
	if err != nil {
		return nil, fmt.Errorf("list warehouse users: %w", err)
	}
	load, err := s.store.Orders().CountActiveByAssignee(ctx)
	if err != nil {
		return nil, fmt.Errorf("assignee load: %w", err)
	}
	loads := make([]AssigneeLoad, 0, len(workers))
	for _, w := range workers {
		loads = append(loads, AssigneeLoad{
			UserID:       w.ID,
			FullName:     w.FullName,
			IsActive:     w.IsActive,
			ActiveOrders: load[w.ID],
		})
	}

	return &DashboardStats{
		Catalog:        *catalog,
		OrdersByStatus: byStatus,
		AssigneeLoad:   loads,
	}, nil
}
