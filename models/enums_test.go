package models

import (
	"encoding/json"
	"testing"
)

func TestParseEntityKind(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityKind
		wantErr bool
	}{
		{"brand", EntityKindBrand, false},
		{" Supplier ", EntityKindSupplier, false},
		{"sub-category", EntityKindSubCategory, false},
		{"subcategory", EntityKindSubCategory, false},
		{"sub_category", EntityKindSubCategory, false},
		{"widget", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := ParseEntityKind(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseEntityKind(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseEntityKind(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEntityKindUnmarshalJSON(t *testing.T) {
	var body struct {
		Kind EntityKind `json:"kind"`
	}
	if err := json.Unmarshal([]byte(`{"kind":"sub-category"}`), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Kind != EntityKindSubCategory {
		t.Fatalf("expected sub_category, got %q", body.Kind)
	}
	if err := json.Unmarshal([]byte(`{"kind":7}`), &body); err == nil {
		t.Fatalf("expected error for numeric kind")
	}
}

func TestParseApprovalFilter(t *testing.T) {
	for in, want := range map[string]ApprovalFilter{
		"":         ApprovalFilterAll,
		"all":      ApprovalFilterAll,
		"Approved": ApprovalFilterApproved,
		"pending":  ApprovalFilterPending,
		"rejected": ApprovalFilterRejected,
	} {
		got, err := ParseApprovalFilter(in)
		if err != nil || got != want {
			t.Fatalf("ParseApprovalFilter(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseApprovalFilter("maybe"); err == nil {
		t.Fatalf("expected error for unknown filter")
	}
}

func TestImportRunStatusIsTerminal(t *testing.T) {
	if ImportRunStatusInProgress.IsTerminal() {
		t.Fatalf("in_progress must not be terminal")
	}
	if !ImportRunStatusCompleted.IsTerminal() || !ImportRunStatusFailed.IsTerminal() {
		t.Fatalf("completed and failed must be terminal")
	}
}

func TestRowPayloadValueScan(t *testing.T) {
	p := RowPayload{"brand_name": "Acme", "rank": 3.0}
	v, err := p.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var back RowPayload
	if err := back.Scan([]byte(v.(string))); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if back["brand_name"] != "Acme" {
		t.Fatalf("unexpected payload %v", back)
	}
	if err := back.Scan(nil); err != nil || len(back) != 0 {
		t.Fatalf("Scan(nil) = %v, %v", back, err)
	}
	if err := back.Scan(12); err == nil {
		t.Fatalf("expected error scanning int")
	}
}

func TestRowPayloadText(t *testing.T) {
	p := RowPayload{
		"name":   "Acme",
		"phone":  9592123456.0,
		"ratio":  0.5,
		"active": true,
		"tags":   []interface{}{"a"},
	}
	tests := []struct {
		field string
		want  string
	}{
		{"name", "Acme"},
		{"phone", "9592123456"},
		{"ratio", "0.5"},
		{"active", "true"},
		{"tags", ""},
		{"missing", ""},
	}
	for _, tc := range tests {
		if got := p.Text(tc.field); got != tc.want {
			t.Fatalf("Text(%q) = %q, want %q", tc.field, got, tc.want)
		}
	}
	if _, ok := p.String("phone"); ok {
		t.Fatalf("String must only accept JSON strings")
	}
}

func TestStagedRowApprovalState(t *testing.T) {
	yes, no := true, false
	if (StagedRow{}).ApprovalState() != ApprovalFilterPending {
		t.Fatalf("nil approval must be pending")
	}
	if (StagedRow{Approved: &yes}).ApprovalState() != ApprovalFilterApproved {
		t.Fatalf("expected approved")
	}
	if (StagedRow{Approved: &no}).ApprovalState() != ApprovalFilterRejected {
		t.Fatalf("expected rejected")
	}
}
