package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Filter adds the search and filter conditions of p to db. Conditions on
// fields outside cfg.AllowedFilters are skipped.
func Filter(db *gorm.DB, p Params, cfg Config) *gorm.DB {
	if p.Search != "" && len(cfg.SearchFields) > 0 {
		db = applySearch(db, p.Search, cfg.SearchFields)
	}
	for _, cond := range p.Conditions {
		if !cfg.filterAllowed(cond.Field) {
			continue
		}
		db = applyCondition(db, cfg.Column(cond.Field), cond)
	}
	return db
}

// Sort adds the ORDER BY for p, or cfg.DefaultSort when p names no allowed
// sort field.
func Sort(db *gorm.DB, p Params, cfg Config) *gorm.DB {
	if p.SortBy != "" && cfg.sortAllowed(p.SortBy) {
		order := cfg.Column(p.SortBy)
		if p.SortOrder == "desc" {
			order += " DESC"
		}
		return db.Order(order)
	}
	if cfg.DefaultSort != "" {
		return db.Order(cfg.DefaultSort)
	}
	return db
}

func applySearch(db *gorm.DB, search string, columns []string) *gorm.DB {
	pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		conds = append(conds, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col))
		args = append(args, pattern)
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

func applyCondition(db *gorm.DB, col string, cond Condition) *gorm.DB {
	switch cond.Operator {
	case OpEq, OpIn:
		if vals := cond.list(); len(vals) > 0 && (cond.Operator == OpIn || len(cond.Values) > 0) {
			return db.Where(fmt.Sprintf("%s IN ?", col), vals)
		}
		return db.Where(fmt.Sprintf("%s = ?", col), cond.Value)
	case OpNeq, OpNin:
		if vals := cond.list(); len(vals) > 0 && (cond.Operator == OpNin || len(cond.Values) > 0) {
			return db.Where(fmt.Sprintf("%s NOT IN ?", col), vals)
		}
		return db.Where(fmt.Sprintf("%s <> ?", col), cond.Value)
	case OpGt:
		return db.Where(fmt.Sprintf("%s > ?", col), cond.Value)
	case OpGte:
		return db.Where(fmt.Sprintf("%s >= ?", col), cond.Value)
	case OpLt:
		return db.Where(fmt.Sprintf("%s < ?", col), cond.Value)
	case OpLte:
		return db.Where(fmt.Sprintf("%s <= ?", col), cond.Value)
	case OpLike:
		return db.Where(fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, col), "%"+escapeLike(cond.Value)+"%")
	case OpIlike:
		return db.Where(fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col), "%"+escapeLike(strings.ToLower(cond.Value))+"%")
	}
	return db
}

// list returns Values, or Value split on commas for "in.a,b".
func (c Condition) list() []string {
	if len(c.Values) > 0 {
		return c.Values
	}
	if c.Value == "" {
		return nil
	}
	return strings.Split(c.Value, ",")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
