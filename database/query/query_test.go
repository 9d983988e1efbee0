package query

import (
	"net/url"
	"reflect"
	"testing"

	"github.com/kbukum/filevault/database/testutil"
	"github.com/kbukum/filevault/errors"
)

var testConfig = Config{
	AllowedFilters:    []string{"name", "kind", "size"},
	AllowedSortFields: []string{"name", "size"},
	SearchFields:      []string{"name"},
	FieldAliases:      map[string]string{"kind": "mime_type"},
	DefaultSort:       "id ASC",
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		raw  string
		want Condition
	}{
		{"eq.report.pdf", Condition{Field: "f", Operator: OpEq, Value: "report.pdf"}},
		{"report.pdf", Condition{Field: "f", Operator: OpEq, Value: "report.pdf"}},
		{"plain", Condition{Field: "f", Operator: OpEq, Value: "plain"}},
		{"gt.100", Condition{Field: "f", Operator: OpGt, Value: "100"}},
		{"in.(a,b, c)", Condition{Field: "f", Operator: OpIn, Values: []string{"a", "b", "c"}}},
		{`in.(a\,b,c)`, Condition{Field: "f", Operator: OpIn, Values: []string{"a,b", "c"}}},
		{`like.50\%`, Condition{Field: "f", Operator: OpLike, Value: "50%"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := parseCondition("f", tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseCondition(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	v := url.Values{
		"name":    {"ilike.rep"},
		"size":    {"gte.10", "lt.100"},
		"owner":   {"eq.mallory"},
		"search":  {"  q4 "},
		"sort_by": {"size"},
		"order":   {"DESC"},
	}
	p, err := Parse(v, testConfig)
	if err != nil {
		t.Fatal(err)
	}
	if p.Search != "q4" || p.SortBy != "size" || p.SortOrder != "desc" {
		t.Errorf("unexpected params: %+v", p)
	}
	if len(p.Conditions) != 3 {
		t.Fatalf("conditions = %+v, want 3 (owner is not allowed)", p.Conditions)
	}

	empty, err := Parse(url.Values{}, testConfig)
	if err != nil || !empty.IsZero() || empty.SortOrder != "asc" {
		t.Errorf("empty params: %+v, %v", empty, err)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		v    url.Values
	}{
		{"unknown sort field", url.Values{"sort_by": {"owner_id"}}},
		{"bad order", url.Values{"order": {"sideways"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.v, testConfig); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
}

type item struct {
	ID       uint `gorm:"primaryKey"`
	Name     string
	MimeType string
	Size     int64
}

func TestFilterAndSort(t *testing.T) {
	db := testutil.NewDB(t, &item{}).GormDB
	rows := []item{
		{Name: "Report_2024.pdf", MimeType: "application/pdf", Size: 300},
		{Name: "report-draft.txt", MimeType: "text/plain", Size: 20},
		{Name: "photo.png", MimeType: "image/png", Size: 5000},
		{Name: "notes.txt", MimeType: "text/plain", Size: 5},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		p    Params
		want []string
	}{
		{"no params", Params{}, []string{"Report_2024.pdf", "report-draft.txt", "photo.png", "notes.txt"}},
		{"search is case-insensitive", Params{Search: "REPORT"}, []string{"Report_2024.pdf", "report-draft.txt"}},
		{"underscore is literal", Params{Search: "t_2"}, []string{"Report_2024.pdf"}},
		{"alias", Params{Conditions: []Condition{{Field: "kind", Operator: OpEq, Value: "text/plain"}}}, []string{"report-draft.txt", "notes.txt"}},
		{"range", Params{Conditions: []Condition{
			{Field: "size", Operator: OpGte, Value: "20"},
			{Field: "size", Operator: OpLt, Value: "5000"},
		}}, []string{"Report_2024.pdf", "report-draft.txt"}},
		{"in", Params{Conditions: []Condition{{Field: "kind", Operator: OpIn, Values: []string{"image/png", "application/pdf"}}}}, []string{"Report_2024.pdf", "photo.png"}},
		{"nin", Params{Conditions: []Condition{{Field: "kind", Operator: OpNin, Value: "text/plain,image/png"}}}, []string{"Report_2024.pdf"}},
		{"disallowed field skipped", Params{Conditions: []Condition{{Field: "id", Operator: OpEq, Value: "1"}}}, []string{"Report_2024.pdf", "report-draft.txt", "photo.png", "notes.txt"}},
		{"sort desc", Params{SortBy: "size", SortOrder: "desc"}, []string{"photo.png", "Report_2024.pdf", "report-draft.txt", "notes.txt"}},
		{"sort asc", Params{SortBy: "size", SortOrder: "asc", Search: "txt"}, []string{"notes.txt", "report-draft.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []item
			if err := Sort(Filter(db.Model(&item{}), tt.p, testConfig), tt.p, testConfig).Find(&got).Error; err != nil {
				t.Fatal(err)
			}
			names := make([]string, 0, len(got))
			for _, r := range got {
				names = append(names, r.Name)
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("got %v, want %v", names, tt.want)
			}
		})
	}
}
