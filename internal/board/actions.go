package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/go-playground/validator/v10"

	"github.com/printdesk/printdesk/pkg"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrInvalidStage  = errors.New("invalid stage")
	ErrInvalidTech   = errors.New("invalid technology")
)

// CreateOrderRequest is the creation payload. Creation requires an order
// number, a client name, at least one technology, and a parseable
// delivery date.
type CreateOrderRequest struct {
	OrderNumber  string   `json:"orderNumber" validate:"required"`
	ClientName   string   `json:"clientName" validate:"required"`
	PrintType    []string `json:"printType" validate:"required,min=1,dive,oneof=digital offset"`
	DeliveryDate string   `json:"deliveryDate" validate:"required,datetime=2006-01-02"`
	IsUrgent     bool     `json:"isUrgent"`
	Notes        string   `json:"notes"`
}

// Actions are the one-shot board operations: create, delete, stage
// moves, urgency and technology toggles, and single-field updates. Every
// successful write publishes a change event so all boards converge
// through the subscription loop; the local cache is never written
// directly.
type Actions struct {
	repo     OrderRepo
	cache    *OrderStateCache
	pub      events.Publisher
	validate *validator.Validate
	logger   apt.Logger
}

func NewActions(repo OrderRepo, cache *OrderStateCache, pub events.Publisher, logger apt.Logger) *Actions {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Actions{
		repo:     repo,
		cache:    cache,
		pub:      pub,
		validate: validator.New(),
		logger:   logger,
	}
}

func (a *Actions) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	req.OrderNumber = strings.TrimSpace(req.OrderNumber)
	req.ClientName = strings.TrimSpace(req.ClientName)

	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	tags := make([]Technology, 0, len(req.PrintType))
	for _, t := range req.PrintType {
		tags = append(tags, Technology(t))
	}

	order := NewOrder()
	order.OrderNumber = req.OrderNumber
	order.ClientName = req.ClientName
	order.PrintType = tags
	order.DeliveryDate = datePortion(req.DeliveryDate)
	order.IsUrgent = req.IsUrgent
	order.Notes = req.Notes
	order.BeforeCreate()

	if len(order.PrintType) == 0 {
		return nil, fmt.Errorf("%w: at least one technology is required", ErrInvalidOrder)
	}

	if err := a.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("cannot create order: %w", err)
	}

	a.publishChange(ctx, pkg.EventCreated, order.ID)
	return order, nil
}

// SetStage moves an order to stage and keeps the completion flags
// coupled to it.
func (a *Actions) SetStage(ctx context.Context, id string, stage Stage) error {
	if !stage.Valid() {
		return ErrInvalidStage
	}
	if err := a.update(ctx, id, StageFields(stage)); err != nil {
		return err
	}
	return nil
}

func (a *Actions) ToggleUrgency(ctx context.Context, id string) error {
	order, ok := a.cache.Order(id)
	if !ok {
		return ErrOrderNotFound
	}
	return a.update(ctx, id, map[string]any{"isUrgent": !order.IsUrgent})
}

// ToggleTechnology adds the tag if absent, or removes it only while at
// least one other tag remains. Toggling the last remaining tag is a
// no-op and publishes nothing.
func (a *Actions) ToggleTechnology(ctx context.Context, id string, tech Technology) error {
	if _, ok := ParseTechnology(string(tech)); !ok {
		return ErrInvalidTech
	}
	order, ok := a.cache.Order(id)
	if !ok {
		return ErrOrderNotFound
	}
	tags, changed := order.ToggledTechnology(tech)
	if !changed {
		return nil
	}
	return a.update(ctx, id, map[string]any{"printType": tags})
}

// UpdateField sends a partial update of a single editable cell.
func (a *Actions) UpdateField(ctx context.Context, id, field, value string) error {
	if !EditableField(field) {
		return fmt.Errorf("%w: field %q is not editable", ErrInvalidOrder, field)
	}
	if field == FieldDeliveryDate {
		value = datePortion(value)
	}
	return a.update(ctx, id, map[string]any{field: value})
}

func (a *Actions) DeleteOrder(ctx context.Context, id string) error {
	if err := a.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("cannot delete order: %w", err)
	}
	a.publishChange(ctx, pkg.EventDeleted, id)
	return nil
}

func (a *Actions) update(ctx context.Context, id string, fields map[string]any) error {
	fields["updatedAt"] = time.Now().UTC()
	if err := a.repo.UpdateFields(ctx, id, fields); err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}
	a.publishChange(ctx, pkg.EventUpdated, id)
	return nil
}

func (a *Actions) publishChange(ctx context.Context, eventType, id string) {
	if a.pub == nil {
		return
	}
	event := pkg.NewChangeEvent(eventType, "orders", id)
	msg, err := json.Marshal(event)
	if err != nil {
		a.logger.Errorf("cannot marshal order change event: %v", err)
		return
	}
	if err := a.pub.Publish(ctx, pkg.OrdersTopic, msg); err != nil {
		a.logger.Errorf("cannot publish order change event: %v", err)
	}
}
