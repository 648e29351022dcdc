package catalog

import (
	"strings"

	"github.com/gobuffalo/flect"
)

// InferJoins scans every table's columns for the `<entity>Id` / `<entity>_id`
// naming convention (spec.md §3: "column claimId in table claim joins to id
// on Claim") and adds the single join on the owning side plus the reciprocal
// many join on the referenced side. Declared joins from metadata directives
// always win — InferJoins never overwrites a join name that already exists.
// A table with its `auto-join` metadata attribute set to false is skipped
// entirely, both as the scanned source of a heuristic join and as its
// target (so a table opting out never gains an inferred join in either
// direction).
func InferJoins(cat *Catalog) {
	tables := cat.Tables()
	byFlatName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		byFlatName[flatten(t.Ref.Name)] = t
	}

	for _, t := range tables {
		if t.AutoJoinDisabled {
			continue
		}
		for _, c := range t.Columns {
			entity, ok := fkColumnEntity(c.Name)
			if !ok {
				continue
			}
			target := byFlatName[flatten(entity)]
			if target == nil {
				target = byFlatName[flatten(flect.Pluralize(entity))]
			}
			if target == nil || target.Ref == t.Ref || target.AutoJoinDisabled {
				continue
			}
			if len(target.PrimaryKeys) != 1 {
				continue // heuristic join requires a single-column PK target
			}
			destCol := target.PrimaryKeys[0].Name

			singleName := entity
			if _, exists := t.JoinByName(singleName); !exists {
				_ = t.AddJoin(&Join{
					Name:          singleName,
					Kind:          Single,
					Source:        t.Ref,
					Dest:          target.Ref,
					SourceColumns: []string{c.Name},
					DestColumns:   []string{destCol},
				})
			}

			manyName := flect.Pluralize(flect.Camelize(t.Ref.Name))
			manyName = strings.ToLower(manyName[:1]) + manyName[1:]
			if _, exists := target.JoinByName(manyName); !exists {
				_ = target.AddJoin(&Join{
					Name:          manyName,
					Kind:          Many,
					Source:        target.Ref,
					Dest:          t.Ref,
					SourceColumns: []string{destCol},
					DestColumns:   []string{c.Name},
				})
			}
		}
	}
}

// fkColumnEntity extracts "claim" from "claimId" or "claim_id"; reports ok
// = false for columns that don't follow the foreign-key naming convention
// (including the table's own identity column, e.g. "id").
func fkColumnEntity(col string) (string, bool) {
	lower := strings.ToLower(col)
	switch {
	case strings.HasSuffix(lower, "_id") && len(col) > len("_id"):
		return col[:len(col)-len("_id")], true
	case strings.HasSuffix(lower, "id") && len(col) > len("id") && col != "id":
		base := col[:len(col)-len("id")]
		if base == "" {
			return "", false
		}
		return base, true
	default:
		return "", false
	}
}

func flatten(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}
