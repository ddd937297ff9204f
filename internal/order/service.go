package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/logger"
)

// Store owns order persistence. CreateOrder is atomic with respect to
// concurrent orders touching the same products: the stock check, decrement
// and order insert all happen together or not at all.
type Store interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, companyID, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, companyID string, limit, offset int) ([]domain.Order, error)
	// UpdateOrderStatus performs the guarded status write: it only applies
	// when the stored status still equals from, returning errStatusChanged
	// otherwise. noteLine, when non-empty, is appended to the order's notes.
	UpdateOrderStatus(ctx context.Context, companyID, orderID string, from, to domain.OrderStatus, noteLine, changedBy string) (domain.Order, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

type Service struct {
	store Store
	pub   EventPublisher
	lg    *logger.Logger
}

func NewService(store Store, pub EventPublisher, lg *logger.Logger) *Service {
	return &Service{store: store, pub: pub, lg: lg}
}

type CreateItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

type CreateOrderInput struct {
	CustomerName  string            `json:"customer_name,omitempty"`
	CustomerPhone string            `json:"customer_phone,omitempty"`
	TableNumber   *int              `json:"table_number,omitempty"`
	Discount      decimal.Decimal   `json:"discount"`
	Notes         string            `json:"notes,omitempty"`
	Items         []CreateItemInput `json:"items"`
}

// Create validates the request, prices the order against current product
// snapshots, decrements stock and persists — all inside one atomic store
// operation — then emits order.created.
func (s *Service) Create(ctx context.Context, actor domain.Identity, in CreateOrderInput) (domain.Order, error) {
	if len(in.Items) == 0 {
		return domain.Order{}, errors.New("at least one item is required")
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return domain.Order{}, errors.New("item product_id is required")
		}
		if it.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("invalid quantity %d for product %s", it.Quantity, it.ProductID)
		}
	}

	now := time.Now().UTC()
	o := domain.Order{
		ID:            uuid.NewString(),
		CompanyID:     actor.CompanyID,
		UserID:        actor.UserID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		TableNumber:   in.TableNumber,
		Status:        domain.StatusPending,
		Discount:      in.Discount,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, it := range in.Items {
		o.Items = append(o.Items, domain.OrderItem{
			ID:        uuid.NewString(),
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Notes:     it.Notes,
		})
	}

	// The store fills item name/price snapshots, verifies stock, computes
	// totals and persists in one transaction.
	if err := s.store.CreateOrder(ctx, &o); err != nil {
		return domain.Order{}, err
	}

	s.publish(ctx, domain.NewOrderCreated(o))
	s.lg.Info("order_created", map[string]any{
		"order_id": o.ID, "company_id": o.CompanyID, "total": o.Total.StringFixed(2),
	})
	return o, nil
}

// Transition moves an order through the state machine. The guarded store
// update protects against a concurrent transition between our read and
// write; on such a race the order is re-read and re-validated.
func (s *Service) Transition(ctx context.Context, actor domain.Identity, orderID string, to domain.OrderStatus, note string) (domain.Order, error) {
	for attempt := 0; ; attempt++ {
		o, err := s.store.GetOrder(ctx, actor.CompanyID, orderID)
		if err != nil {
			return domain.Order{}, err
		}
		if err := ValidateTransition(o.Status, to, actor.Role); err != nil {
			return domain.Order{}, err
		}

		noteLine := ""
		if note != "" {
			noteLine = fmt.Sprintf("%s — %s: %s", time.Now().UTC().Format(time.RFC3339), actor.Username, note)
		}

		updated, err := s.store.UpdateOrderStatus(ctx, actor.CompanyID, orderID, o.Status, to, noteLine, actor.Username)
		if errors.Is(err, errStatusChanged) && attempt < 2 {
			continue
		}
		if err != nil {
			return domain.Order{}, err
		}

		s.publish(ctx, domain.NewOrderStatusChanged(updated))
		s.lg.Info("order_status_changed", map[string]any{
			"order_id": updated.ID, "company_id": updated.CompanyID,
			"from": string(o.Status), "to": string(to), "changed_by": actor.Username,
		})
		return updated, nil
	}
}

func (s *Service) Get(ctx context.Context, actor domain.Identity, orderID string) (domain.Order, error) {
	return s.store.GetOrder(ctx, actor.CompanyID, orderID)
}

func (s *Service) List(ctx context.Context, actor domain.Identity, limit, offset int) ([]domain.Order, error) {
	return s.store.ListOrders(ctx, actor.CompanyID, limit, offset)
}

// Delivery of events is best-effort from the caller's point of view: the
// mutation is already committed, so a publish failure is logged, not
// surfaced.
func (s *Service) publish(ctx context.Context, ev domain.Event) {
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.lg.Error("event_publish_failed", err, map[string]any{"event_type": ev.Type})
	}
}
