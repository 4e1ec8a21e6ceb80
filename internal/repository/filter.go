package repository

import "gorm.io/gorm"

// Filter accumulates independent boolean conditions and folds them with
// logical AND when applied to a query. Conditions use gorm's placeholder
// syntax, e.g. NewFilter().Where("grade = ?", "10").Where("status = ?", s).
type Filter struct {
	conds []condition
}

type condition struct {
	query string
	args  []any
}

func NewFilter() *Filter {
	return &Filter{}
}

// Where adds one condition to the conjunction. It returns the filter so
// conditions can be chained.
func (f *Filter) Where(query string, args ...any) *Filter {
	f.conds = append(f.conds, condition{query: query, args: args})
	return f
}

// Empty reports whether no conditions have been added.
func (f *Filter) Empty() bool {
	return f == nil || len(f.conds) == 0
}

func (f *Filter) apply(q *gorm.DB) *gorm.DB {
	if f == nil {
		return q
	}
	for _, c := range f.conds {
		q = q.Where(c.query, c.args...)
	}
	return q
}
