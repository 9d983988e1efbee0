package query

import (
	"net/url"
	"strings"

	"github.com/kbukum/filevault/errors"
)

// Request parameter names.
const (
	ParamSearch = "search"
	ParamSortBy = "sort_by"
	ParamOrder  = "order"
)

// Parse reads filters, search and sort from URL query values. Filters are
// read only for allowed fields; an unknown sort field or order is rejected.
func Parse(values url.Values, cfg Config) (Params, error) {
	p := Params{
		Search: strings.TrimSpace(values.Get(ParamSearch)),
		SortBy: values.Get(ParamSortBy),
	}

	if p.SortBy != "" && !cfg.sortAllowed(p.SortBy) {
		return Params{}, errors.InvalidInput(ParamSortBy, "unsupported sort field "+p.SortBy).
			WithDetail("allowed", cfg.AllowedSortFields)
	}
	switch order := strings.ToLower(values.Get(ParamOrder)); order {
	case "", "asc":
		p.SortOrder = "asc"
	case "desc":
		p.SortOrder = "desc"
	default:
		return Params{}, errors.InvalidInput(ParamOrder, "order must be asc or desc")
	}

	for _, field := range cfg.AllowedFilters {
		for _, raw := range values[field] {
			if raw == "" {
				continue
			}
			p.Conditions = append(p.Conditions, parseCondition(field, raw))
		}
	}
	return p, nil
}

// parseCondition parses "op.value" or "op.(a,b)". A value without a known
// operator prefix is an equality match on the whole value.
func parseCondition(field, raw string) Condition {
	opStr, rest, found := strings.Cut(raw, ".")
	op := Operator(opStr)
	if !found || !op.IsValid() {
		return Condition{Field: field, Operator: OpEq, Value: raw}
	}
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		return Condition{Field: field, Operator: op, Values: splitList(rest[1 : len(rest)-1])}
	}
	return Condition{Field: field, Operator: op, Value: unescape(rest)}
}

// splitList splits on commas; a backslash escapes the next character.
func splitList(inner string) []string {
	var (
		values  []string
		current strings.Builder
		escaped bool
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			values = append(values, s)
		}
		current.Reset()
	}
	for _, ch := range inner {
		switch {
		case escaped:
			current.WriteRune(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == ',':
			flush()
		default:
			current.WriteRune(ch)
		}
	}
	flush()
	return values
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, ch := range s {
		if !escaped && ch == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(ch)
		escaped = false
	}
	return b.String()
}
