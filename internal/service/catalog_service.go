package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-fulfillment-ws/internal/event"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/pkg/validator"

	"github.com/google/uuid"
)

type ProductInput struct {
	ScanCode          string `json:"scan_code" validate:"required,max=64"`
	Name              string `json:"name" validate:"required"`
	ImageURL          string `json:"image_url"`
	AvailableQuantity int    `json:"available_quantity" validate:"gte=0"`
	ChangeReason      string `json:"change_reason"`
}

type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

type CatalogService interface {
	CreateProduct(ctx context.Context, in ProductInput, actor Actor) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput, actor Actor) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductByScanCode(ctx context.Context, code string) (*model.Product, error)
	GetProductMovements(ctx context.Context, id uuid.UUID) ([]model.StockMovement, error)
	ImportProducts(ctx context.Context, rows []ProductInput, actor Actor) (*ImportResult, error)
}

type catalogService struct {
	store  repository.Store
	events *event.Fanout
}

func NewCatalogService(store repository.Store, events *event.Fanout) CatalogService {
	return &catalogService{store: store, events: events}
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput, actor Actor) (*model.Product, error) {
	// 1. Validate
	in.ScanCode = strings.TrimSpace(in.ScanCode)
	if err := validator.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var product *model.Product
	var changes []stockChange
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		// 2. Scan codes are unique
		if _, err := tx.Products().FindByScanCode(ctx, in.ScanCode); err == nil {
			return fmt.Errorf("scan code %q: %w", in.ScanCode, ErrAlreadyExists)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check scan code: %w", err)
		}

		// 3. Save, journaling the opening quantity
		p := &model.Product{
			ScanCode:          in.ScanCode,
			Name:              in.Name,
			ImageURL:          imageOrDefault(in.ImageURL),
			AvailableQuantity: in.AvailableQuantity,
			ChangeReason:      in.ChangeReason,
		}
		p.CreatedBy = actor.ID.String()
		p.UpdatedBy = actor.ID.String()
		if err := tx.Products().Create(ctx, p); errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("scan code %q: %w", in.ScanCode, ErrAlreadyExists)
		} else if err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		ledger := newStockLedger(tx)
		ledger.record(*p, p.AvailableQuantity, model.MovementAdjust)
		if err := ledger.flush(ctx, nil, "opening stock", actor.ID.String()); err != nil {
			return err
		}
		product, changes = p, ledger.changes
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 4. Broadcast
	s.publishProduct(ctx, event.ProductCreated, product, actor, fmt.Sprintf("%s created product '%s'", actor.Name, product.Name))
	publishStockChanges(ctx, s.events, changes, nil, in.ChangeReason, actor)
	return product, nil
}

// UpdateProduct applies an admin edit. The quantity is an absolute value;
// the difference is journaled as an adjustment.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput, actor Actor) (*model.Product, error) {
	in.ScanCode = strings.TrimSpace(in.ScanCode)
	if err := validator.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var product *model.Product
	var changes []stockChange
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		locked, err := tx.Products().FindByIDsForUpdate(ctx, []uuid.UUID{id})
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		p, ok := locked[id]
		if !ok {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}

		if in.ScanCode != p.ScanCode {
			other, err := tx.Products().FindByScanCode(ctx, in.ScanCode)
			if err == nil && other.ID != id {
				return fmt.Errorf("scan code %q: %w", in.ScanCode, ErrAlreadyExists)
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("check scan code: %w", err)
			}
		}

		ledger := newStockLedger(tx)
		if err := ledger.adjust(ctx, id, in.AvailableQuantity-p.AvailableQuantity, model.MovementAdjust); err != nil {
			return err
		}

		p.ScanCode = in.ScanCode
		p.Name = in.Name
		if in.ImageURL != "" {
			p.ImageURL = in.ImageURL
		}
		p.AvailableQuantity = in.AvailableQuantity
		p.ChangeReason = in.ChangeReason
		p.UpdatedBy = actor.ID.String()
		if err := tx.Products().Update(ctx, p); errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("scan code %q: %w", in.ScanCode, ErrAlreadyExists)
		} else if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if err := ledger.flush(ctx, nil, in.ChangeReason, actor.ID.String()); err != nil {
			return err
		}
		product, changes = p, ledger.changes
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishProduct(ctx, event.ProductUpdated, product, actor, fmt.Sprintf("%s updated product '%s'", actor.Name, product.Name))
	publishStockChanges(ctx, s.events, changes, nil, in.ChangeReason, actor)
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error {
	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return notFound("product", id, err)
	}
	if err := s.store.Products().Delete(ctx, id, actor.ID.String()); err != nil {
		return notFound("product", id, err)
	}
	s.publishProduct(ctx, event.ProductDeleted, p, actor, fmt.Sprintf("%s deleted product '%s'", actor.Name, p.Name))
	return nil
}

func (s *catalogService) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	return s.store.Products().FindAll(ctx)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, notFound("product", id, err)
	}
	return p, nil
}

func (s *catalogService) GetProductByScanCode(ctx context.Context, code string) (*model.Product, error) {
	p, err := s.store.Products().FindByScanCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("scan code %q: %w", code, ErrNotFound)
	}
	return p, err
}

func (s *catalogService) GetProductMovements(ctx context.Context, id uuid.UUID) ([]model.StockMovement, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Movements().FindByProduct(ctx, id)
}

// ImportProducts upserts rows by scan code. A bad row is counted and
// reported but does not stop the import.
func (s *catalogService) ImportProducts(ctx context.Context, rows []ProductInput, actor Actor) (*ImportResult, error) {
	res := &ImportResult{}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		existing, err := s.store.Products().FindByScanCode(ctx, strings.TrimSpace(row.ScanCode))
		switch {
		case err == nil:
			if row.ChangeReason == "" {
				row.ChangeReason = "bulk import"
			}
			_, err = s.UpdateProduct(ctx, existing.ID, row, actor)
			if err == nil {
				res.Updated++
			}
		case errors.Is(err, repository.ErrNotFound):
			_, err = s.CreateProduct(ctx, row, actor)
			if err == nil {
				res.Created++
			}
		}
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", i+1, row.ScanCode, err))
		}
	}
	return res, nil
}

func (s *catalogService) publishProduct(ctx context.Context, typ event.Type, p *model.Product, actor Actor, msg string) {
	if s.events == nil {
		return
	}
	s.events.Emit(context.WithoutCancel(ctx), typ, p.ID.String(), event.StockPayload{
		ProductID:         p.ID.String(),
		ScanCode:          p.ScanCode,
		Name:              p.Name,
		AvailableQuantity: p.AvailableQuantity,
		Reason:            p.ChangeReason,
		User:              actor.ref(),
		Message:           msg,
	})
}

func imageOrDefault(url string) string {
	if strings.TrimSpace(url) == "" {
		return model.DefaultProductImageURL
	}
	return url
}
