package checkbox

import (
	"image"
	"math"

	"github.com/jackzampolin/form32/internal/classify"
)

// BaseDPI is the render resolution the default region coordinates are
// measured at.
const BaseDPI = 200

// Region is one checkbox on a page. Field is the record flag the box feeds;
// boxes with no Field are measured and traced but not written.
type Region struct {
	Name  string
	Field string
	X, Y  int
	W, H  int
}

// Rect returns the region as an image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Group is a set of checkboxes sharing a page and a fill threshold.
type Group struct {
	Name      string
	Threshold float64
	Regions   []Region
}

// DefaultGroups returns the DWC-032 checkbox layout at BaseDPI.
func DefaultGroups() []Group {
	return []Group{
		networkGroup(),
		column(classify.GroupBodyArea, 83, 30, 0.3, []box{
			{"spine", "body_area_spine", 704},
			{"upper_extremities", "body_area_upper_extremities", 790},
			{"lower_extremities", "body_area_lower_extremities", 877},
			{"feet", "body_area_feet", 964},
			{"teeth_jaw", "body_area_teeth_jaw", 1055},
			{"eyes", "body_area_eyes", 1116},
			{"other_systems", "body_area_other_systems", 1170},
			{"brain_injury", "body_area_brain_injury", 1342},
			{"spinal_cord", "body_area_spinal_cord", 1390},
			{"burns", "body_area_burns", 1481},
			{"fractures", "body_area_fractures", 1530},
			{"infectious", "body_area_infectious", 1580},
			{"regional_pain", "body_area_regional_pain", 1630},
			{"chemical_exposure", "body_area_chemical_exposure", 1680},
			{"cardiovascular", "body_area_cardiovascular", 1730},
			{"mental_disorders", "body_area_mental_disorders", 1780},
		}),
		column(classify.GroupPurpose, 87, 22, 0.15, []box{
			{"box_a", "purpose_box_a_checked", 361},
			{"box_b", "purpose_box_b_checked", 501},
			{"box_c", "purpose_box_c_checked", 712},
			{"box_d", "purpose_box_d_checked", 1144},
			{"box_e", "purpose_box_e_checked", 1370},
			{"box_f", "purpose_box_f_checked", 1555},
			{"box_g", "purpose_box_g_checked", 1782},
			{"dwc024_yes", "dwc024_yes_checked", 1914},
			{"dwc024_no", "dwc024_no_checked", 1958},
		}),
	}
}

type box struct {
	name, field string
	y           int
}

func column(name string, x, size int, threshold float64, boxes []box) Group {
	g := Group{Name: name, Threshold: threshold}
	for _, b := range boxes {
		g.Regions = append(g.Regions, Region{Name: b.name, Field: b.field, X: x, Y: b.y, W: size, H: size})
	}
	return g
}

// The "No" answers sit to the right of the "Yes" boxes and only the "Yes"
// answers set record flags.
func networkGroup() Group {
	const x, size = 377, 22
	return Group{
		Name:      classify.GroupNetwork,
		Threshold: 0.3,
		Regions: []Region{
			{Name: "q22_yes", Field: "has_certified_network", X: x, Y: 1778, W: size, H: size},
			{Name: "q22_no", X: x + 114, Y: 1778, W: size, H: size},
			{Name: "q23_yes", Field: "has_political_subdivision", X: x, Y: 1908, W: size, H: size},
			{Name: "q23_no", X: x + 117, Y: 1908, W: size, H: size},
		},
	}
}

// Scale returns groups with every region scaled from BaseDPI to dpi.
func Scale(groups []Group, dpi int) []Group {
	if dpi <= 0 || dpi == BaseDPI {
		return groups
	}
	f := float64(dpi) / BaseDPI
	scale := func(v int) int { return int(math.Round(float64(v) * f)) }

	out := make([]Group, len(groups))
	for i, g := range groups {
		ng := Group{Name: g.Name, Threshold: g.Threshold, Regions: make([]Region, len(g.Regions))}
		for j, r := range g.Regions {
			ng.Regions[j] = Region{
				Name: r.Name, Field: r.Field,
				X: scale(r.X), Y: scale(r.Y), W: scale(r.W), H: scale(r.H),
			}
		}
		out[i] = ng
	}
	return out
}

// WithThresholds returns groups with thresholds replaced for the named
// groups. Unknown names are ignored.
func WithThresholds(groups []Group, thresholds map[string]float64) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		if t, ok := thresholds[g.Name]; ok {
			g.Threshold = t
		}
		out[i] = g
	}
	return out
}

// Fields returns every record flag fed by the groups.
func Fields(groups []Group) []string {
	var out []string
	for _, g := range groups {
		for _, r := range g.Regions {
			if r.Field != "" {
				out = append(out, r.Field)
			}
		}
	}
	return out
}
