package board

import (
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Legacy clients wrote different field names for the same data. Reads
// tolerate both; writes only ever use the canonical names.
const (
	legacyOrderNumber = "jobId"
	legacyCustomer    = "customer"
	legacyJobName     = "jobName"
	legacyStage       = "trackingStage"
	legacyTechnology  = "technology"
)

const unknownValue = "???"

// DateTimer is anything that can surface a concrete time, which covers
// the store's native timestamp values (bson primitive.DateTime included).
type DateTimer interface {
	Time() time.Time
}

// NormalizeOrder maps one raw store document onto the canonical Order.
// Pure: the input map is never mutated and no default is ever written
// back. Fallback order per field:
//
//	orderNumber   orderNumber -> jobId -> "???"
//	clientName    clientName -> customer + " " + jobName -> "???"
//	currentStage  currentStage -> trackingStage -> studio
//	printType     printType -> technology -> empty
//	deliveryDate  string date -> timestamp value -> epoch seconds -> ""
//
// Malformed values never leak through: every field is coerced to its
// canonical type or replaced by the fallback.
func NormalizeOrder(id string, raw map[string]any) *Order {
	o := &Order{
		ID:           id,
		OrderNumber:  stringField(raw, "orderNumber", legacyOrderNumber, unknownValue),
		ClientName:   clientNameField(raw),
		CurrentStage: stageField(raw),
		IsUrgent:     boolField(raw, "isUrgent"),
		PrintType:    technologyField(raw),
		DeliveryDate: dateField(raw["deliveryDate"]),
		Notes:        stringField(raw, "notes", "", ""),
		CreatedAt:    timeField(raw["createdAt"]),
		UpdatedAt:    timeField(raw["updatedAt"]),
		LegacyRefs:   legacyRefs(raw),
	}
	o.IsCompleted = o.CurrentStage == StageCompleted
	return o
}

func stringField(raw map[string]any, key, legacyKey, fallback string) string {
	if s, ok := coerceString(raw[key]); ok {
		return s
	}
	if legacyKey != "" {
		if s, ok := coerceString(raw[legacyKey]); ok {
			return s
		}
	}
	return fallback
}

func clientNameField(raw map[string]any) string {
	if s, ok := coerceString(raw["clientName"]); ok {
		return s
	}
	customer, _ := coerceString(raw[legacyCustomer])
	jobName, _ := coerceString(raw[legacyJobName])
	composed := strings.TrimSpace(customer + " " + jobName)
	if composed == "" {
		return unknownValue
	}
	return composed
}

func stageField(raw map[string]any) Stage {
	for _, key := range []string{"currentStage", legacyStage} {
		if s, ok := coerceString(raw[key]); ok {
			if stage, valid := ParseStage(s); valid {
				return stage
			}
		}
	}
	return StageStudio
}

func technologyField(raw map[string]any) []Technology {
	value, ok := raw["printType"]
	if !ok || value == nil {
		value = raw[legacyTechnology]
	}
	switch v := value.(type) {
	case []any:
		tags := make([]Technology, 0, len(v))
		for _, item := range v {
			if s, ok := coerceString(item); ok {
				tags = append(tags, Technology(s))
			}
		}
		return normalizeTags(tags)
	case []string:
		tags := make([]Technology, 0, len(v))
		for _, s := range v {
			tags = append(tags, Technology(s))
		}
		return normalizeTags(tags)
	case string:
		return normalizeTags([]Technology{Technology(v)})
	}
	return []Technology{}
}

// dateField resolves the delivery date from whichever encoding the record
// carries: a plain string, a timestamp value, or a raw seconds count.
func dateField(value any) string {
	switch v := value.(type) {
	case string:
		return datePortion(v)
	case DateTimer:
		return v.Time().UTC().Format(dateLayout)
	case time.Time:
		return v.UTC().Format(dateLayout)
	case map[string]any:
		if secs, ok := coerceInt64(v["seconds"]); ok {
			return time.Unix(secs, 0).UTC().Format(dateLayout)
		}
	}
	return ""
}

func timeField(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case DateTimer:
		return v.Time()
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	case map[string]any:
		if secs, ok := coerceInt64(v["seconds"]); ok {
			return time.Unix(secs, 0).UTC()
		}
	}
	return time.Time{}
}

func legacyRefs(raw map[string]any) []string {
	var refs []string
	for _, key := range []string{legacyOrderNumber, legacyCustomer, legacyJobName} {
		if s, ok := coerceString(raw[key]); ok {
			refs = append(refs, s)
		}
	}
	return refs
}

func boolField(raw map[string]any, key string) bool {
	b, _ := raw[key].(bool)
	return b
}

func coerceString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", false
		}
		return s, true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

func coerceInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// datePortion strips any time component from an ISO-ish date string.
func datePortion(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	return s
}
