// Package query turns PostgREST-style URL parameters into gorm clauses:
//
//	?mime_type=eq.application/pdf&size=gt.1024&search=report&sort_by=size&order=desc
//
// Only fields listed in a Config are ever turned into SQL, so column names
// never come from the request.
package query

// Operator is a filter operator in PostgREST notation.
type Operator string

const (
	OpEq    Operator = "eq"
	OpNeq   Operator = "neq"
	OpGt    Operator = "gt"
	OpGte   Operator = "gte"
	OpLt    Operator = "lt"
	OpLte   Operator = "lte"
	OpIn    Operator = "in"
	OpNin   Operator = "nin"
	OpLike  Operator = "like"
	OpIlike Operator = "ilike"
)

var operators = map[Operator]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNin: true, OpLike: true, OpIlike: true,
}

// IsValid reports whether the operator is known.
func (o Operator) IsValid() bool { return operators[o] }

// Condition is one filter on one field.
type Condition struct {
	Field    string
	Operator Operator
	Value    string
	Values   []string // in, nin
}

// Params holds the parsed filter, search and sort parameters. Paging is left
// to the caller.
type Params struct {
	Conditions []Condition
	Search     string
	SortBy     string
	SortOrder  string // "asc" or "desc"
}

// IsZero reports whether p selects and orders nothing.
func (p Params) IsZero() bool {
	return len(p.Conditions) == 0 && p.Search == "" && p.SortBy == ""
}

// Config whitelists what a request may filter, search and sort on.
type Config struct {
	// AllowedFilters are the request field names accepted as filters.
	AllowedFilters []string
	// AllowedSortFields are the request field names accepted by sort_by.
	AllowedSortFields []string
	// SearchFields are the columns matched case-insensitively by search.
	SearchFields []string
	// FieldAliases maps request field names to column names.
	FieldAliases map[string]string
	// DefaultSort is the ORDER BY clause used when sort_by is absent.
	DefaultSort string
}

// Column returns the column for a request field name.
func (c Config) Column(field string) string {
	if col, ok := c.FieldAliases[field]; ok {
		return col
	}
	return field
}

func (c Config) filterAllowed(field string) bool {
	return contains(c.AllowedFilters, field)
}

func (c Config) sortAllowed(field string) bool {
	return contains(c.AllowedSortFields, field)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
