package export

import (
	"strconv"
	"testing"
	"time"
)

type row struct {
	ID     int64
	Status string
	PPM    float64
}

var columns = []Column[row]{
	{Label: "ID", Value: func(r row) string { return strconv.FormatInt(r.ID, 10) }},
	{Label: "Status", Value: func(r row) string { return r.Status }},
	{Label: "PPM", Value: func(r row) string { return strconv.FormatFloat(r.PPM, 'f', -1, 64) }},
}

func TestToCSV(t *testing.T) {
	got := ToCSV([]row{{ID: 1, Status: "Danger", PPM: 900}}, columns)
	want := "\"ID\",\"Status\",\"PPM\"\n\"1\",\"Danger\",\"900\""
	if got != want {
		t.Fatalf("ToCSV = %q, want %q", got, want)
	}
}

func TestToCSV_HeaderOnly(t *testing.T) {
	if got := ToCSV(nil, columns); got != `"ID","Status","PPM"` {
		t.Fatalf("ToCSV(nil) = %q", got)
	}
}

func TestToCSV_Quotes(t *testing.T) {
	rows := []row{{ID: 2, Status: `say "hi"`, PPM: 1.5}}

	raw := ToCSV(rows, columns)
	if want := "\"ID\",\"Status\",\"PPM\"\n\"2\",\"say \"hi\"\",\"1.5\""; raw != want {
		t.Fatalf("raw = %q, want %q", raw, want)
	}

	escaped := ToCSVWithOptions(rows, columns, Options{EscapeQuotes: true})
	if want := "\"ID\",\"Status\",\"PPM\"\n\"2\",\"say \"\"hi\"\"\",\"1.5\""; escaped != want {
		t.Fatalf("escaped = %q, want %q", escaped, want)
	}
}

func TestFilename(t *testing.T) {
	now := time.UnixMilli(1716800000123)
	tests := []struct {
		status string
		want   string
	}{
		{"Danger", "logs_Danger_1716800000123.csv"},
		{"", "logs_All_1716800000123.csv"},
	}
	for _, tt := range tests {
		if got := Filename("logs", tt.status, now); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
