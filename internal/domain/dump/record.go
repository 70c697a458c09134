// Package dump decodes provider dump lines into transient records.
package dump

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformed marks a line that is not a JSON object.
var ErrMalformed = errors.New("malformed dump line")

// ErrIncomplete marks a record without a usable id or name.
var ErrIncomplete = errors.New("record lacks id or name")

// LocalizedName is a display name given either as a plain string or as a
// per-language object.
type LocalizedName struct {
	plain string
	byLang map[string]string
}

// UnmarshalJSON accepts "name" or {"en": "name", ...}.
func (n *LocalizedName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &n.plain)
	}
	var m map[string]*string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	n.byLang = make(map[string]string, len(m))
	for k, v := range m {
		if v != nil && strings.TrimSpace(*v) != "" {
			n.byLang[strings.ToLower(k)] = *v
		}
	}
	return nil
}

// In picks the name for lang, falling back to English and then to the first
// language in lexical order.
func (n LocalizedName) In(lang string) string {
	if n.plain != "" || len(n.byLang) == 0 {
		return strings.TrimSpace(n.plain)
	}
	for _, l := range []string{strings.ToLower(lang), "en"} {
		if v, ok := n.byLang[l]; ok {
			return strings.TrimSpace(v)
		}
	}
	langs := make([]string, 0, len(n.byLang))
	for l := range n.byLang {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return strings.TrimSpace(n.byLang[langs[0]])
}

// IsZero reports whether no name was given.
func (n LocalizedName) IsZero() bool { return n.In("") == "" }

// ID is a source identifier given as a JSON number or string.
type ID string

// UnmarshalJSON normalizes numbers to their decimal text.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(strings.TrimSpace(s))
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(num.String())
	}
	return nil
}

// Country is a country reference.
type Country struct {
	Name LocalizedName `json:"name"`
	Code string        `json:"code"`
}

// Point is a geographic center.
type Point struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// RegionRef is the region a hotel belongs to.
type RegionRef struct {
	ID          ID            `json:"id"`
	Name        LocalizedName `json:"name"`
	CountryCode string        `json:"country_code"`
	Type        string        `json:"type"`
}

// Record is one hotel or region line of a dump.
type Record struct {
	ID          ID                `json:"id"`
	Name        LocalizedName     `json:"name"`
	Country     *Country          `json:"country"`
	CountryCode string            `json:"country_code"`
	CountryName LocalizedName     `json:"country_name"`
	Region      *RegionRef        `json:"region"`
	Center      *Point            `json:"center"`
	Latitude    *float64          `json:"latitude"`
	Longitude   *float64          `json:"longitude"`
	Stars       *float64          `json:"stars"`
	StarRating  *float64          `json:"star_rating"`
	Rating      *float64          `json:"rating"`
	Address     string            `json:"address"`
	Type        string            `json:"type"`
	Hotels      []json.RawMessage `json:"hotels"`
	HIDs        []json.RawMessage `json:"hids"`
}

// Parse decodes one dump line.
func Parse(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return r, nil
}

// Validate reports ErrIncomplete when the record cannot become a document.
func (r Record) Validate() error {
	if r.ID == "" || r.Name.IsZero() {
		return fmt.Errorf("%w (id=%q)", ErrIncomplete, string(r.ID))
	}
	return nil
}

// Code returns the ISO country code: country.code, then region.country_code,
// then a top-level country_code.
func (r Record) Code() string {
	switch {
	case r.Country != nil && r.Country.Code != "":
		return strings.TrimSpace(r.Country.Code)
	case r.Region != nil && r.Region.CountryCode != "":
		return strings.TrimSpace(r.Region.CountryCode)
	default:
		return strings.TrimSpace(r.CountryCode)
	}
}

// Coordinates returns latitude and longitude from the top level or the center.
func (r Record) Coordinates() (lat, lon float64, ok bool) {
	if r.Latitude != nil && r.Longitude != nil {
		return *r.Latitude, *r.Longitude, true
	}
	if r.Center != nil && r.Center.Latitude != nil && r.Center.Longitude != nil {
		return *r.Center.Latitude, *r.Center.Longitude, true
	}
	return 0, 0, false
}

// StarCount returns stars, accepting star_rating as an alias.
func (r Record) StarCount() *float64 {
	if r.Stars != nil {
		return r.Stars
	}
	return r.StarRating
}

// HotelsNumber counts the hotels attached to a region record.
func (r Record) HotelsNumber() int {
	if len(r.Hotels) > 0 {
		return len(r.Hotels)
	}
	return len(r.HIDs)
}
