package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mmdatafocus/catalog_backend/utils"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Row", "Name"},
		[][]string{{"1", "Acme"}, {"2"}},
		[]columnAlignment{alignRight, alignLeft},
	)
	// StyleRounded upper-cases header text
	for _, want := range []string{"ROW", "NAME", "Acme", "╭", "╰"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if got := renderTable(nil, nil, nil); got != "" {
		t.Fatalf("expected empty output without headers, got %q", got)
	}
}

func TestParseRunId(t *testing.T) {
	if id, err := parseRunId("42"); err != nil || id != 42 {
		t.Fatalf("parseRunId(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "x", ""} {
		if _, err := parseRunId(bad); err == nil {
			t.Fatalf("parseRunId(%q) should fail", bad)
		}
	}
}

func TestRequestContext(t *testing.T) {
	blank := "  "
	if _, _, err := newCommandContext(&blank).requestContext(context.Background()); err == nil {
		t.Fatalf("expected --business-id error")
	}

	biz := " biz-1 "
	ctx, businessId, err := newCommandContext(&biz).requestContext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if businessId != "biz-1" {
		t.Fatalf("businessId = %q", businessId)
	}
	if got, _ := utils.GetBusinessIdFromContext(ctx); got != "biz-1" {
		t.Fatalf("context business id = %q", got)
	}
}

func TestRootCommandRequiresBusinessId(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"runs", "show", "7"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--business-id") {
		t.Fatalf("expected --business-id error, got %v", err)
	}
}
