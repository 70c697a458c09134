// Package document holds the indexed projection of dump records.
package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/hoteldex/internal/domain/dump"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
)

// Country is the country facet of a document.
type Country struct {
	Name string `json:"name,omitempty"`
	Code string `json:"code"`
}

// Region is the region a hotel belongs to.
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Document is what gets stored in the index. ID is the upsert key: the same
// source id always yields the same document id.
type Document struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	NameExact    string   `json:"name_exact"`
	Country      Country  `json:"country"`
	Region       *Region  `json:"region,omitempty"`
	Stars        *float64 `json:"stars,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	Location     string   `json:"location,omitempty"`
	Address      string   `json:"address,omitempty"`
	Type         string   `json:"type,omitempty"`
	HotelsNumber *int     `json:"hotels_number,omitempty"`
}

// Project converts a dump record into a document of the given kind.
// lang picks the display name for per-language names.
func Project(kind job.Kind, r dump.Record, lang string) (Document, error) {
	if err := r.Validate(); err != nil {
		return Document{}, err
	}
	switch kind {
	case job.KindHotel:
		return hotel(r, lang), nil
	case job.KindRegion:
		return region(r, lang), nil
	default:
		return Document{}, fmt.Errorf("unknown document kind %q", kind)
	}
}

func hotel(r dump.Record, lang string) Document {
	d := base(r, lang)
	d.Stars = r.StarCount()
	d.Rating = r.Rating
	d.Address = strings.TrimSpace(r.Address)
	if r.Region != nil && r.Region.ID != "" {
		d.Region = &Region{ID: string(r.Region.ID), Name: r.Region.Name.In(lang)}
	}
	return d
}

func region(r dump.Record, lang string) Document {
	d := base(r, lang)
	d.Type = NormalizeType(r.Type)
	n := r.HotelsNumber()
	d.HotelsNumber = &n
	return d
}

func base(r dump.Record, lang string) Document {
	name := r.Name.In(lang)
	d := Document{
		ID:        string(r.ID),
		Name:      name,
		NameExact: strings.ToLower(name),
		Country:   Country{Code: strings.ToUpper(r.Code())},
	}
	if r.Country != nil {
		d.Country.Name = r.Country.Name.In(lang)
	}
	if d.Country.Name == "" {
		d.Country.Name = r.CountryName.In(lang)
	}
	if lat, lon, ok := r.Coordinates(); ok && validCoordinates(lat, lon) {
		d.Location = GeoPoint(lat, lon)
	}
	return d
}

// GeoPoint renders coordinates in the "lon,lat" form GEO fields expect.
func GeoPoint(lat, lon float64) string {
	return strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -85.05112878 && lat <= 85.05112878 && lon >= -180 && lon <= 180
}

var typeAliases = map[string]string{
	"province (state)":      "state",
	"multi-city (vicinity)": "multi_city",
	"point of interest":     "poi",
}

// NormalizeType maps provider region types onto short lowercase tags.
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return strings.NewReplacer(" ", "_", "-", "_").Replace(t)
}
