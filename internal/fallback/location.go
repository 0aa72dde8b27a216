package fallback

import (
	"regexp"
	"strings"
)

// Location field names filled by ParseLocation.
const (
	FieldLocation     = "exam_location"
	FieldLocationCity = "exam_location_city"
	FieldLocationFull = "exam_location_full"
)

// LocationFields lists the fields the location parser can fill.
var LocationFields = []string{FieldLocation, FieldLocationCity, FieldLocationFull}

var (
	locationBlockRe = regexp.MustCompile(`(?is)Location:\s*\|\s*(.+?)Fax:`)
	cityRe          = regexp.MustCompile(`(?i)\b([a-z]+),\s*TX\s+\d{5}`)
)

// Location is the parsed exam location block of the order letter.
type Location struct {
	Facility string
	City     string
	Full     string
}

// ParseLocation finds the text between "Location: |" and "Fax:", flattens
// it onto one line and splits out the facility and city. City is empty
// when no "<city>, TX <zip>" sequence is present.
func ParseLocation(text string) (Location, bool) {
	m := locationBlockRe.FindStringSubmatch(text)
	if m == nil {
		return Location{}, false
	}
	full := strings.ReplaceAll(strings.TrimSpace(m[1]), "\n", " ")

	loc := Location{Full: full}
	if facility, _, _ := strings.Cut(full, ","); facility != "" {
		loc.Facility = strings.TrimSpace(facility)
	}
	if cm := cityRe.FindStringSubmatch(full); cm != nil {
		loc.City = strings.ToUpper(cm[1])
	}
	return loc, true
}

// Values returns the parsed location keyed by record field, omitting empty
// parts.
func (l Location) Values() map[string]string {
	out := make(map[string]string, 3)
	if l.Facility != "" {
		out[FieldLocation] = l.Facility
	}
	if l.City != "" {
		out[FieldLocationCity] = l.City
	}
	if l.Full != "" {
		out[FieldLocationFull] = l.Full
	}
	return out
}
