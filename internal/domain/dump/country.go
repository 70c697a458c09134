package dump

import (
	"encoding/json"
	"strings"
)

// CountryOf extracts the country code of a raw line without decoding the
// whole record. Only a line that is not a JSON object is an error; a record
// with oddly typed fields still yields its code.
func CountryOf(line []byte) (string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(line, &top); err != nil || top == nil {
		return "", ErrMalformed
	}
	if code := nestedString(top["country"], "code"); code != "" {
		return code, nil
	}
	if code := nestedString(top["region"], "country_code"); code != "" {
		return code, nil
	}
	return plainString(top["country_code"]), nil
}

// SameCountry compares ISO codes case-insensitively.
func SameCountry(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func nestedString(raw json.RawMessage, key string) string {
	if len(raw) == 0 {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return plainString(obj[key])
}

func plainString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
