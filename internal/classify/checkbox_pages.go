package classify

import "strings"

// Checkbox page groups.
const (
	GroupNetwork  = "network"
	GroupBodyArea = "body_area"
	GroupPurpose  = "purpose"
)

// CheckboxPhrases identifies the pages that carry each checkbox group.
// A page matches a group when it contains any of the group's phrases;
// groups are tried in network, body area, purpose order.
type CheckboxPhrases struct {
	Network  []string
	BodyArea []string
	Purpose  []string
}

// DefaultCheckboxPhrases returns the phrases printed on the checkbox pages.
func DefaultCheckboxPhrases() CheckboxPhrases {
	return CheckboxPhrases{
		Network: []string{"22. does the claim have medical benefits"},
		BodyArea: []string{
			"30. check all body areas",
			"part 4. designated doctor selection",
			"body areas and diagnoses",
		},
		Purpose: []string{"purpose of examination", "check boxes a through g"},
	}
}

// CheckboxPages maps each checkbox group to the 0-indexed page that holds
// it. When several pages match a group the last one wins.
func CheckboxPages(pages []string, phrases CheckboxPhrases) map[string]int {
	out := make(map[string]int)
	for i, text := range pages {
		lower := strings.ToLower(text)
		switch {
		case containsAny(lower, phrases.Network, strings.ToLower):
			out[GroupNetwork] = i
		case containsAny(lower, phrases.BodyArea, strings.ToLower):
			out[GroupBodyArea] = i
		case containsAny(lower, phrases.Purpose, strings.ToLower):
			out[GroupPurpose] = i
		}
	}
	return out
}
