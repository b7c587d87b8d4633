package board

import (
	"context"
	"fmt"
	"sync"
)

// MockOrderRepo is a map-backed OrderRepo holding raw documents, the
// same shape the store hands back.
type MockOrderRepo struct {
	mu   sync.RWMutex
	docs map[string]map[string]any

	CreateFunc       func(ctx context.Context, o *Order) error
	UpdateFieldsFunc func(ctx context.Context, id string, fields map[string]any) error
	DeleteFunc       func(ctx context.Context, id string) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		docs: make(map[string]map[string]any),
	}
}

// Seed inserts a raw document directly, bypassing Create.
func (m *MockOrderRepo) Seed(id string, doc map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		stored[k] = v
	}
	stored["_id"] = id
	m.docs[id] = stored
}

func (m *MockOrderRepo) Create(ctx context.Context, o *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	tags := make([]any, 0, len(o.PrintType))
	for _, t := range o.PrintType {
		tags = append(tags, string(t))
	}
	m.Seed(o.ID, map[string]any{
		"orderNumber":  o.OrderNumber,
		"clientName":   o.ClientName,
		"currentStage": string(o.CurrentStage),
		"isCompleted":  o.IsCompleted,
		"isUrgent":     o.IsUrgent,
		"printType":    tags,
		"deliveryDate": o.DeliveryDate,
		"notes":        o.Notes,
		"createdAt":    o.CreatedAt,
		"updatedAt":    o.UpdatedAt,
	})
	return nil
}

func (m *MockOrderRepo) Fetch(ctx context.Context, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (m *MockOrderRepo) ListRaw(ctx context.Context) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []map[string]any
	for _, doc := range m.docs {
		out := make(map[string]any, len(doc))
		for k, v := range doc {
			out[k] = v
		}
		result = append(result, out)
	}
	return result, nil
}

func (m *MockOrderRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, fields)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (m *MockOrderRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("order not found")
	}
	delete(m.docs, id)
	return nil
}

// MockPublisher records published messages.
type MockPublisher struct {
	mu     sync.Mutex
	Topics []string

	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Topics = append(m.Topics, topic)
	return nil
}

func (m *MockPublisher) Published() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Topics)
}
