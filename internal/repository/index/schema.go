package index

import (
	"fmt"

	"github.com/kailas-cloud/hoteldex/internal/db"
	domidx "github.com/kailas-cloud/hoteldex/internal/domain/index"
)

// nameExactSeparator keeps commas inside hotel names from splitting the tag.
const nameExactSeparator = "|"

// buildIndex converts a descriptor into an FT index over JSON documents
// stored under <prefix><name>:.
func buildIndex(prefix string, desc domidx.Descriptor) (*db.IndexDefinition, error) {
	def := &db.IndexDefinition{
		Name:        indexName(prefix, desc.Name),
		StorageType: db.StorageJSON,
		Prefixes:    []string{docPrefix(prefix, desc.Name)},
		Fields:      make([]db.IndexField, 0, len(desc.Fields)),
	}

	for _, f := range desc.Fields {
		field := db.IndexField{Name: f.Path, Alias: f.Name, Sortable: f.Sortable}
		switch f.Type {
		case domidx.FieldKeyword:
			field.Type = db.IndexFieldTag
			if f.Name == domidx.FieldNameExact {
				field.TagSeparator = nameExactSeparator
			}
		case domidx.FieldText:
			field.Type = db.IndexFieldText
		case domidx.FieldInteger, domidx.FieldFloat:
			field.Type = db.IndexFieldNumeric
		case domidx.FieldGeoPoint:
			field.Type = db.IndexFieldGeo
		default:
			return nil, fmt.Errorf("unknown field type %q for %s", f.Type, f.Name)
		}
		def.Fields = append(def.Fields, field)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("index %s: %w", desc.Name, err)
	}
	return def, nil
}

func indexName(prefix, name string) string { return prefix + name + ":idx" }

func docPrefix(prefix, name string) string { return prefix + name + ":" }

func docKey(prefix, name, id string) string { return docPrefix(prefix, name) + id }
