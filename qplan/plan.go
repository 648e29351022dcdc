// Package qplan builds the per-request Plan tree: GraphQL selection set +
// bound variables + catalog metadata, reduced to a tree of TableSelection
// nodes ready for sqlgen to render to SQL (spec.md §3 "Plan tree", §4.5).
package qplan

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
	"github.com/standardbeagle/BifrostQL-sub008/dialect"
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// SortKey is one (column, direction) pair from a `sort` argument.
type SortKey struct {
	Column string
	Dir    Direction
}

// Paging carries the limit/offset a TableSelection resolves to. Unbounded
// is set by a `limit: -1` argument (spec.md §4.5 point 2).
type Paging struct {
	Limit     int
	Offset    int
	Unbounded bool
}

// FilterKind tags the variant a Filter value holds (spec.md §3 FilterExpr).
type FilterKind int

const (
	FilterColumn FilterKind = iota
	FilterAnd
	FilterOr
	FilterNot
	FilterJoin
)

// Filter is the tagged FilterExpr value from spec.md §3. Only the fields
// relevant to Kind are populated; the rest are zero.
type Filter struct {
	Kind FilterKind

	// FilterColumn
	Column string
	Op     dialect.Op
	Value  interface{} // string, float64, bool, []interface{}, or nil

	// FilterAnd / FilterOr
	Children []*Filter

	// FilterNot
	Child *Filter

	// FilterJoin: filter that pierces into a related table.
	ParentCol string
	ViaJoin   string
	Sub       *Filter
}

// TableJoin links a parent TableSelection to a child one through a named
// catalog.Join (spec.md §3 TableJoin).
type TableJoin struct {
	Name          string
	Alias         string // GraphQL alias, if any; disambiguates repeated joins
	Kind          catalog.JoinKind
	ParentColumns []string
	ChildColumns  []string
	Child         *TableSelection
}

// AliasOrName returns the join's GraphQL alias when set, else its logical
// name — the identifier used both in the response and in result-keys.
func (j *TableJoin) AliasOrName() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Name
}

// TableSelection is one node of the Plan tree (spec.md §3).
type TableSelection struct {
	Table *catalog.Table
	Alias string

	Filter       *Filter
	Sort         []SortKey
	Paging       Paging
	IncludeTotal bool

	// Projection is the ordered, deduplicated list of column names to
	// read: every scalar field the query selected, plus every primary key,
	// every join's parent-side anchor column, and every filter anchor
	// column (spec.md §4.5 point 5). A join's child-side columns are not
	// added to the child's projection.
	Projection []string

	Joins []*TableJoin

	// ParentJoin is a back-reference for result-key construction; it is a
	// relation, not an ownership handle (spec.md §3).
	ParentJoin *TableJoin

	// Singular is true when this node's cardinality is one row (the child
	// side of a `single` join) rather than a list.
	Singular bool
}

// AliasOrName returns the selection's GraphQL alias when set, else the
// table's name.
func (s *TableSelection) AliasOrName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Table.Ref.Name
}

// DataKey is this node's result-key for its row data fragment.
func (s *TableSelection) DataKey() string {
	return s.AliasOrName() + ".data"
}

// CountKey is this node's result-key for its COUNT(*) fragment, valid only
// when s.IncludeTotal is true.
func (s *TableSelection) CountKey() string {
	return s.AliasOrName() + ".count"
}

// ChildKey is the result-key of the join fragment linking s to one of its
// TableJoins, formed as "<parentKey>+<joinAlias-or-name>" (spec.md §4.6,
// GLOSSARY "Result-key").
func (s *TableSelection) ChildKey(j *TableJoin) string {
	return s.DataKey() + "+" + j.AliasOrName()
}

// addProjection appends col to Projection if not already present.
func (s *TableSelection) addProjection(col string) {
	for _, c := range s.Projection {
		if c == col {
			return
		}
	}
	s.Projection = append(s.Projection, col)
}

// CloseProjection implements spec.md §4.5 point 5: every parent column used
// by a child join, every filter anchor column, and every primary key must
// end up projected. Call once the node and its direct joins/filter are
// fully built.
func (s *TableSelection) CloseProjection() {
	for _, pk := range s.Table.PrimaryKeys {
		s.addProjection(pk.Name)
	}
	for _, j := range s.Joins {
		for _, col := range j.ParentColumns {
			s.addProjection(col)
		}
	}
	closeFilterProjection(s, s.Filter)
}

func closeFilterProjection(s *TableSelection, f *Filter) {
	if f == nil {
		return
	}
	switch f.Kind {
	case FilterColumn:
		s.addProjection(f.Column)
	case FilterAnd, FilterOr:
		for _, c := range f.Children {
			closeFilterProjection(s, c)
		}
	case FilterNot:
		closeFilterProjection(s, f.Child)
	case FilterJoin:
		s.addProjection(f.ParentCol)
	}
}

// Validate checks the universal invariants from spec.md §8 item 1 and 3
// that are cheap to check structurally (parameter-count / src_id invariants
// are checked by sqlgen at render time instead).
func (s *TableSelection) Validate() error {
	if len(s.Table.PrimaryKeys) == 0 && !isReadOnlyProjectionOK(s) {
		return fmt.Errorf("table %s has no primary key and cannot be safely projected for joins", s.Table.Ref)
	}
	seen := map[string]bool{}
	for _, j := range s.Joins {
		key := j.AliasOrName()
		if seen[key] {
			return fmt.Errorf("duplicate join alias %q on %s: GraphQL alias required to disambiguate", key, s.AliasOrName())
		}
		seen[key] = true
		if err := j.Child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func isReadOnlyProjectionOK(s *TableSelection) bool {
	return s.Table.Kind == catalog.View || len(s.Table.PrimaryKeys) > 0
}

// String renders a compact debug form of the plan tree, used by tests and
// by Debug-level logging.
func (s *TableSelection) String() string {
	var b strings.Builder
	s.write(&b, 0)
	return b.String()
}

func (s *TableSelection) write(b *strings.Builder, depth int) {
	fmt.Fprintf(b, "%s%s (%s)\n", strings.Repeat("  ", depth), s.AliasOrName(), strings.Join(s.Projection, ","))
	for _, j := range s.Joins {
		fmt.Fprintf(b, "%s- join %s [%s]\n", strings.Repeat("  ", depth+1), j.AliasOrName(), j.Kind)
		j.Child.write(b, depth+2)
	}
}
