package board

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage is one of the fixed production phases an order moves through,
// in fixed forward order.
type Stage string

const (
	StageStudio      Stage = "studio"
	StagePrint       Stage = "print"
	StageBookbinding Stage = "bookbinding"
	StageCompleted   Stage = "completed"
)

var stageOrder = []Stage{StageStudio, StagePrint, StageBookbinding, StageCompleted}

// ParseStage maps a raw value onto the stage enum. Anything unknown
// reports false so callers can apply their own fallback.
func ParseStage(raw string) (Stage, bool) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range stageOrder {
		if s == known {
			return known, true
		}
	}
	return "", false
}

func (s Stage) Valid() bool {
	_, ok := ParseStage(string(s))
	return ok
}

// Technology is a print technology tag.
type Technology string

const (
	TechDigital Technology = "digital"
	TechOffset  Technology = "offset"
)

func ParseTechnology(raw string) (Technology, bool) {
	t := Technology(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case TechDigital, TechOffset:
		return t, true
	}
	return "", false
}

// Order is the canonical representation of a print job. Documents in the
// store are schemaless and may carry legacy field names; NormalizeOrder is
// the only way raw documents become one of these.
type Order struct {
	ID           string       `bson:"_id" json:"id"`
	OrderNumber  string       `bson:"orderNumber" json:"orderNumber"`
	ClientName   string       `bson:"clientName" json:"clientName"`
	CurrentStage Stage        `bson:"currentStage" json:"currentStage"`
	IsCompleted  bool         `bson:"isCompleted" json:"isCompleted"`
	IsUrgent     bool         `bson:"isUrgent" json:"isUrgent"`
	PrintType    []Technology `bson:"printType" json:"printType"`
	DeliveryDate string       `bson:"deliveryDate" json:"deliveryDate"`
	Notes        string       `bson:"notes,omitempty" json:"notes"`
	CreatedAt    time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time    `bson:"updatedAt" json:"updatedAt"`

	// Identifying values from legacy field names, retained for search only.
	LegacyRefs []string `bson:"-" json:"-"`
}

// NewOrder creates a new Order with a generated ID.
func NewOrder() *Order {
	return &Order{
		ID:           uuid.NewString(),
		CurrentStage: StageStudio,
	}
}

func (o *Order) EnsureID() {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
}

// BeforeCreate sets creation timestamps and restores the model invariants.
func (o *Order) BeforeCreate() {
	o.EnsureID()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.OrderNumber = strings.TrimSpace(o.OrderNumber)
	o.ClientName = strings.TrimSpace(o.ClientName)
	o.PrintType = normalizeTags(o.PrintType)
	o.IsCompleted = o.CurrentStage == StageCompleted
}

// Clone returns a deep copy so cached orders can be handed out without
// exposing shared slices.
func (o *Order) Clone() *Order {
	dup := *o
	dup.PrintType = append([]Technology(nil), o.PrintType...)
	dup.LegacyRefs = append([]string(nil), o.LegacyRefs...)
	return &dup
}

// StageFields returns the partial update for moving the order to stage.
// Completing an order forces the completion flag and clears urgency; any
// other stage clears the completion flag and leaves urgency alone.
func StageFields(stage Stage) map[string]any {
	fields := map[string]any{
		"currentStage": string(stage),
		"isCompleted":  stage == StageCompleted,
	}
	if stage == StageCompleted {
		fields["isUrgent"] = false
	}
	return fields
}

// ToggledTechnology returns the tag set after toggling tech, and whether
// the set actually changed. Removing the last remaining tag is a no-op:
// a persisted order always keeps at least one technology.
func (o *Order) ToggledTechnology(tech Technology) ([]Technology, bool) {
	present := false
	for _, t := range o.PrintType {
		if t == tech {
			present = true
			break
		}
	}
	if present {
		if len(o.PrintType) <= 1 {
			return append([]Technology(nil), o.PrintType...), false
		}
		next := make([]Technology, 0, len(o.PrintType)-1)
		for _, t := range o.PrintType {
			if t != tech {
				next = append(next, t)
			}
		}
		return next, true
	}
	return normalizeTags(append(append([]Technology(nil), o.PrintType...), tech)), true
}

// normalizeTags sorts and de-duplicates a tag list, dropping unknown tags.
func normalizeTags(tags []Technology) []Technology {
	seen := make(map[Technology]bool, len(tags))
	out := make([]Technology, 0, len(tags))
	for _, tag := range tags {
		t, ok := ParseTechnology(string(tag))
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
