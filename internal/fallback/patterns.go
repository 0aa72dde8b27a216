package fallback

import "sort"

// FieldPatterns is the ordered pattern list for one record field. Each
// pattern must have one capture group holding the value. Patterns are
// compiled case-insensitive and multiline.
type FieldPatterns struct {
	Field    string
	Patterns []string
}

// DefaultPatterns returns the built-in patterns, in evaluation order, for
// the exam order letter and the DWC-032 form text.
func DefaultPatterns() []FieldPatterns {
	return []FieldPatterns{
		{"patient_name", []string{
			`Injured\s*employee:\s*([^\n]+)`,
			`1\.\s*Employee's\s*name.*?\n.*?([^\n]+?)\s*2\.`,
			`Employee's\s*name\s*:\s*([^\n]+)`,
		}},
		{"exam_date", []string{
			`Date:\s*\|\s*(\d{2}/\d{2}/\d{4})`,
			`Your\s*exam\s*is\s*on:.*?(\d{2}/\d{2}/\d{4})`,
			`exam\s*is\s*on:\s*(\d{2}/\d{2}/\d{4})`,
		}},
		{"exam_time", []string{
			`Time:\s*\|\s*((?:1[0-2]|0?[1-9]):[0-5][0-9]\s*(?:AM|PM))`,
		}},
		{"exam_location", []string{
			`Location:\s*\|\s*([^,\n]+?)(?:\s*,|\s*\d{3}-|\s*$)`,
		}},
		{"dwc_number", []string{
			`DWC\s*#:\s*(\d+(?:-[A-Z]+)?)`,
			`DWC\s*claim\s*number.*?:\s*(\d+(?:-[A-Z]+)?)`,
		}},
		{"ssn", []string{
			`Social\s*Security\s*number.*?XXX\D*XX\D*(\d{4})`,
			`SSN.*?:\s*XXX\D*XX\D*(\d{4})`,
		}},
		{"date_of_injury", []string{
			`8\.\s*Date\s*of\s*injury.*?\n\s*(\d{1,2}[./]\d{1,2}[./]\d{4})`,
		}},
		{"employee_address", []string{
			`3\.\s*Employee's\s*address.*?\n((?:\d+[^,\n]+,\s*[^,\n]+,\s*(?:Texas|TX)\s+\d{5}))`,
		}},
		{"employee_county", []string{
			`4\.\s*Employee(?:'s)?\s*county.*?\n.*?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+County)`,
		}},
		{"employee_primary_phone", []string{
			`5\.\s*Employee(?:'s)?\s*primary\s*phone.*\n\s*(\(?\d{3}\)?[\s.-]*\d{3}[\s.-]*\d{4})`,
		}},
		{"employer_name", []string{
			`13\.\s*Employer(?:'s)?\s*name.*?14\.\s*Employer(?:'s)?\s*phone.*?\n\s*([^\d\n]+)`,
			`Employer:\s*([^\n]+?)\s+Insurance`,
		}},
		{"insurance_carrier", []string{
			`16\.\s*Insurance\s*carrier(?:'s)?\s*name.*?\n(.+?)\s*17\.`,
		}},
		{"carrier_address", []string{
			`17\.\s*Insurance\s*carrier(?:'s)?\s*address.*?\n((?:\d+[^,\n]+,\s*[^,\n]+,\s*(?:Texas|TX|[A-Z]{2})\s+\d{5}))`,
		}},
		{"adjuster_name", []string{
			`18\.\s*Adjuster(?:'s)?\s*name.*?(.+?)\s*19\.`,
		}},
		{"adjuster_email", []string{
			`Adjuster(?:'s)?\s*email.*?\n\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`,
		}},
		{"treating_doctor_name", []string{
			`24\.\s*Treating\s*doctor(?:'s)?\s*name.*?\n\s*([A-Za-z.\-\s]+?),\s*MD\b`,
		}},
		{"treating_doctor_phone", []string{
			`25\.\s*Phone\s*number.*?\n\s*(\(?\d{3}\)?[\s.-]*\d{3}[\s.-]*\d{4})`,
		}},
		{"treating_doctor_license_number", []string{
			`28\.\s*License\s*number\s*([A-Z0-9]+)`,
		}},
		{"claim_number", []string{
			`Insurance\s+carrier\s+claim\s+#[\s:]*([A-Z0-9]+)`,
			`claim\s+#\s*([A-Z0-9]+)`,
		}},
		{"doctor_name", []string{
			`Name:\s*\|\s*([^\n|]+)`,
		}},
		{"doctor_phone", []string{
			`Phone:\s*\|\s*(\d{3}[\.-]\d{3}[\.-]\d{4})`,
		}},
		{"doctor_address", []string{
			// Address lines start a line; the newline is consumed outside the group.
			`\n(\d+[^,\n]+(?:,\s*[^,\n]+)*,\s*TX\s+\d{5}(?:-\d{4})?)`,
		}},
	}
}

// WithOverrides returns base with the pattern lists for the overridden
// fields replaced. Fields not in base are appended in name order.
func WithOverrides(base []FieldPatterns, overrides map[string][]string) []FieldPatterns {
	if len(overrides) == 0 {
		return base
	}
	out := make([]FieldPatterns, 0, len(base)+len(overrides))
	used := make(map[string]bool, len(overrides))
	for _, fp := range base {
		if p, ok := overrides[fp.Field]; ok {
			fp = FieldPatterns{Field: fp.Field, Patterns: p}
			used[fp.Field] = true
		}
		out = append(out, fp)
	}
	var extra []string
	for k := range overrides {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, FieldPatterns{Field: k, Patterns: overrides[k]})
	}
	return out
}
