package filter

import (
	"strings"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

func TestNewRangeFilter(t *testing.T) {
	tests := []struct {
		name             string
		gt, gte, lt, lte *float64
		wantErr          string
	}{
		{name: "gt only", gt: floatPtr(0)},
		{name: "gte+lte", gte: floatPtr(1), lte: floatPtr(5)},
		{name: "no boundary", wantErr: "at least one"},
		{name: "gt and gte", gt: floatPtr(1), gte: floatPtr(1), wantErr: "gt and gte"},
		{name: "lt and lte", lt: floatPtr(1), lte: floatPtr(1), wantErr: "lt and lte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRangeFilter(tt.gt, tt.gte, tt.lt, tt.lte)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewMatch_AnyOf(t *testing.T) {
	c, err := NewMatch("type", "state", "city")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Key() != "type" {
		t.Errorf("Key() = %q", c.Key())
	}
	if got := c.Values(); len(got) != 2 || got[0] != "state" || got[1] != "city" {
		t.Errorf("Values() = %v", got)
	}
	if !c.IsMatch() || c.IsRange() {
		t.Error("expected a match condition")
	}
}

func TestNewMatch_Errors(t *testing.T) {
	if _, err := NewMatch("", "x"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := NewMatch("type"); err == nil {
		t.Error("expected error for no values")
	}
	if _, err := NewMatch("type", "city", ""); err == nil {
		t.Error("expected error for empty value")
	}
}

func TestAbove(t *testing.T) {
	c, err := Above("hotels_number", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsRange() || c.IsMatch() {
		t.Fatal("expected a range condition")
	}
	r := c.Range()
	if r.GT() == nil || *r.GT() != 0 {
		t.Errorf("GT() = %v", r.GT())
	}
	if r.GTE() != nil || r.LT() != nil || r.LTE() != nil {
		t.Error("only GT should be set")
	}
}

func TestAll(t *testing.T) {
	m, _ := NewMatch("country_code", "it")
	a, _ := Above("stars", 3)

	expr, err := All(m, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(expr.Must()) != 2 || len(expr.Should()) != 0 || len(expr.MustNot()) != 0 {
		t.Errorf("unexpected groups: %+v", expr)
	}
	if expr.IsEmpty() {
		t.Error("IsEmpty() = true")
	}
}

func TestNewExpression_Empty(t *testing.T) {
	expr, err := NewExpression(nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !expr.IsEmpty() {
		t.Error("IsEmpty() = false for empty expression")
	}
}

func TestNewExpression_TooMany(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	for i := range conds {
		conds[i] = Condition{key: "k", values: []string{"v"}}
	}

	for _, tc := range []struct {
		name                  string
		must, should, mustNot []Condition
	}{
		{"must", conds, nil, nil},
		{"should", nil, conds, nil},
		{"must_not", nil, nil, conds},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewExpression(tc.must, tc.should, tc.mustNot)
			if err == nil || !strings.Contains(err.Error(), "too many "+tc.name) {
				t.Fatalf("error = %v", err)
			}
		})
	}

	if _, err := NewExpression(conds[:MaxConditionsPerGroup], nil, nil); err != nil {
		t.Fatalf("unexpected error at max: %v", err)
	}
}
