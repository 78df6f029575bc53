package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type EntityKind string

const (
	EntityKindSupplier    EntityKind = "supplier"
	EntityKindDistributor EntityKind = "distributor"
	EntityKindBrand       EntityKind = "brand"
	EntityKindCategory    EntityKind = "category"
	EntityKindSubCategory EntityKind = "sub_category"
	EntityKindState       EntityKind = "state"
)

var entityKinds = []EntityKind{
	EntityKindSupplier,
	EntityKindDistributor,
	EntityKindBrand,
	EntityKindCategory,
	EntityKindSubCategory,
	EntityKindState,
}

func EntityKinds() []EntityKind {
	return append([]EntityKind(nil), entityKinds...)
}

func (k EntityKind) IsValid() bool {
	for _, v := range entityKinds {
		if k == v {
			return true
		}
	}
	return false
}

// ParseEntityKind accepts the kind as it appears in URLs; "sub-category" and
// "subcategory" are read as sub_category.
func ParseEntityKind(s string) (EntityKind, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "sub-category", "subcategory":
		v = string(EntityKindSubCategory)
	}
	k := EntityKind(v)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid entity kind %q", s)
	}
	return k, nil
}

func (k *EntityKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("entity kind must be string")
	}
	parsed, err := ParseEntityKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type ImportRunStatus string

const (
	ImportRunStatusInProgress ImportRunStatus = "in_progress"
	ImportRunStatusCompleted  ImportRunStatus = "completed"
	ImportRunStatusFailed     ImportRunStatus = "failed"
)

func (s ImportRunStatus) IsTerminal() bool {
	return s == ImportRunStatusCompleted || s == ImportRunStatusFailed
}

type ApprovalFilter string

const (
	ApprovalFilterAll      ApprovalFilter = "all"
	ApprovalFilterApproved ApprovalFilter = "approved"
	ApprovalFilterPending  ApprovalFilter = "pending"
	ApprovalFilterRejected ApprovalFilter = "rejected"
)

// ParseApprovalFilter treats an empty value as "all".
func ParseApprovalFilter(s string) (ApprovalFilter, error) {
	switch f := ApprovalFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ApprovalFilterAll, nil
	case ApprovalFilterAll, ApprovalFilterApproved, ApprovalFilterPending, ApprovalFilterRejected:
		return f, nil
	default:
		return "", fmt.Errorf("invalid approval status %q", s)
	}
}

// RowPayload is the raw field map of an uploaded row, stored as a JSON column.
type RowPayload map[string]interface{}

// Value implements the driver.Valuer interface
func (p RowPayload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (p *RowPayload) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = RowPayload{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RowPayload", value)
	}
	out := RowPayload{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
	}
	*p = out
	return nil
}

// String returns the field when it holds a JSON string.
func (p RowPayload) String(field string) (string, bool) {
	v, ok := p[field].(string)
	return v, ok
}

// Text is the lenient form of String used for attribute cells: numbers are
// formatted without exponent, anything else missing or non-scalar is "".
func (p RowPayload) Text(field string) string {
	switch v := p[field].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
