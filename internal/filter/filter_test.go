package filter

import (
	"reflect"
	"testing"
)

type item struct {
	Name     string
	Location string
	Status   string
}

var items = []item{
	{"Kitchen", "Tunis", "Safe"},
	{"Garage", "Sfax", "High_Risk"},
	{"kitchen 2", "Sfax", "Warning"},
	{"Office", "Tunis", "high risk"},
}

func name(i item) string     { return i.Name }
func location(i item) string { return i.Location }
func status(i item) string   { return i.Status }

func names(in []item) []string {
	out := make([]string, 0, len(in))
	for _, i := range in {
		out = append(out, i.Name)
	}
	return out
}

func TestText(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Kitchen", "Garage", "kitchen 2", "Office"}},
		{"KITCHEN", []string{"Kitchen", "kitchen 2"}},
		{"sfax", []string{"Garage", "kitchen 2"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := names(Apply(items, Text(tt.query, name, location)))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Text(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestEquals(t *testing.T) {
	if got := Apply(items, Equals("All", location)); len(got) != len(items) {
		t.Fatalf("All should not constrain, got %d", len(got))
	}
	if got := Apply(items, Equals("", location)); len(got) != len(items) {
		t.Fatalf("empty should not constrain, got %d", len(got))
	}
	got := names(Apply(items, Equals("Tunis", location)))
	if !reflect.DeepEqual(got, []string{"Kitchen", "Office"}) {
		t.Fatalf("Equals(Tunis) = %v", got)
	}
	if got := Apply(items, Equals("tunis", location)); len(got) != 0 {
		t.Fatalf("Equals must be exact, got %v", names(got))
	}
}

func TestNormalized(t *testing.T) {
	got := names(Apply(items, Normalized("HighRisk", status)))
	if !reflect.DeepEqual(got, []string{"Garage", "Office"}) {
		t.Fatalf("Normalized(HighRisk) = %v", got)
	}
	if Normalize(" High_Risk \t") != "highrisk" {
		t.Fatalf("Normalize = %q", Normalize(" High_Risk \t"))
	}
}

func TestApply_ConjunctionAndStability(t *testing.T) {
	got := names(Apply(items, Text("kitchen", name), Equals("Sfax", location)))
	if !reflect.DeepEqual(got, []string{"kitchen 2"}) {
		t.Fatalf("AND filter = %v", got)
	}

	got = names(Apply(items, Equals("Sfax", location)))
	if !reflect.DeepEqual(got, []string{"Garage", "kitchen 2"}) {
		t.Fatalf("order not preserved: %v", got)
	}
}

func TestApply_Idempotent(t *testing.T) {
	preds := []Predicate[item]{Text("i", name, location), Normalized("high risk", status)}
	once := Apply(items, preds...)
	twice := Apply(once, preds...)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent: %v vs %v", once, twice)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	before := append([]item(nil), items...)
	_ = Apply(items, Equals("Tunis", location))
	if !reflect.DeepEqual(before, items) {
		t.Fatalf("input mutated")
	}
}
