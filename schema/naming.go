package schema

import (
	"github.com/gobuffalo/flect"

	"github.com/standardbeagle/BifrostQL-sub008/catalog"
)

// rowTypeName derives a GraphQL Object type name from a table reference.
// Query/mutation field names use the table name verbatim (spec.md §8's
// worked examples query `users`/`departments` directly), but a GraphQL
// *type* name has to be a distinct, capitalized identifier, so the row
// type is named from the Pascal-cased table name — schema-qualified tables
// get their schema folded in to keep names unique across schemas.
func rowTypeName(ref catalog.TableRef) string {
	name := flect.Pascalize(ref.Name)
	if ref.Schema != "" {
		name = flect.Pascalize(ref.Schema) + name
	}
	return name
}

func filterTypeName(ref catalog.TableRef) string     { return rowTypeName(ref) + "Filter" }
func insertTypeName(ref catalog.TableRef) string     { return rowTypeName(ref) + "Insert" }
func mutationResultName(ref catalog.TableRef) string { return rowTypeName(ref) + "MutationResult" }
