// Package index describes the fixed search schemas of hotel and region indexes.
package index

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
)

var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidName reports whether s can be used as an index name.
func ValidName(s string) bool { return nameRegex.MatchString(s) }

// FieldType is a logical field type.
type FieldType string

// Field types.
const (
	FieldKeyword  FieldType = "keyword"
	FieldText     FieldType = "text"
	FieldInteger  FieldType = "integer"
	FieldFloat    FieldType = "float"
	FieldGeoPoint FieldType = "geo_point"
)

// Field maps a document path to an indexed, queryable name.
type Field struct {
	Path     string
	Name     string
	Type     FieldType
	Sortable bool
}

// Descriptor is an index name plus its schema.
type Descriptor struct {
	Name   string
	Kind   job.Kind
	Fields []Field
}

// Queryable field names shared by the query layer.
const (
	FieldID           = "id"
	FieldName         = "name"
	FieldNameExact    = "name_exact"
	FieldCountryCode  = "country_code"
	FieldRegionID     = "region_id"
	FieldStars        = "stars"
	FieldRating       = "rating"
	FieldLocation     = "location"
	FieldRegionType   = "type"
	FieldHotelsNumber = "hotels_number"
)

var common = []Field{
	{Path: "$.id", Name: FieldID, Type: FieldKeyword},
	{Path: "$.name", Name: FieldName, Type: FieldText},
	{Path: "$.name_exact", Name: FieldNameExact, Type: FieldKeyword},
	{Path: "$.country.code", Name: FieldCountryCode, Type: FieldKeyword},
}

var hotelFields = []Field{
	{Path: "$.region.id", Name: FieldRegionID, Type: FieldKeyword},
	{Path: "$.stars", Name: FieldStars, Type: FieldFloat, Sortable: true},
	{Path: "$.rating", Name: FieldRating, Type: FieldFloat, Sortable: true},
	{Path: "$.location", Name: FieldLocation, Type: FieldGeoPoint},
}

var regionFields = []Field{
	{Path: "$.location", Name: FieldLocation, Type: FieldGeoPoint},
	{Path: "$.type", Name: FieldRegionType, Type: FieldKeyword},
	{Path: "$.hotels_number", Name: FieldHotelsNumber, Type: FieldInteger, Sortable: true},
}

// For builds the descriptor of the fixed schema for kind.
func For(kind job.Kind, name string) (Descriptor, error) {
	if !ValidName(name) {
		return Descriptor{}, fmt.Errorf("%w: invalid index name %q", domain.ErrInvalidRequest, name)
	}

	var extra []Field
	switch kind {
	case job.KindHotel:
		extra = hotelFields
	case job.KindRegion:
		extra = regionFields
	default:
		return Descriptor{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidRequest, kind)
	}

	fields := make([]Field, 0, len(common)+len(extra))
	fields = append(fields, common...)
	fields = append(fields, extra...)
	return Descriptor{Name: name, Kind: kind, Fields: fields}, nil
}
