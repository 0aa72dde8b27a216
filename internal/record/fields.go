// Package record holds the canonical structured record extracted from a
// DWC-032 form together with its field registry and provenance tracking.
package record

// Kind is the storage kind of a record field.
type Kind int

const (
	KindText Kind = iota
	KindFlag
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFlag:
		return "flag"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Category selects the cleaning and missing-value rules applied to a field.
type Category string

const (
	CategoryPlain   Category = "plain"
	CategoryDate    Category = "date"
	CategoryTime    Category = "time"
	CategoryPhone   Category = "phone" // phone and fax numbers
	CategorySSN     Category = "ssn"
	CategoryAddress Category = "address"
	CategoryName    Category = "name"
	CategoryClaim   Category = "claim" // DWC claim identifier
	CategoryFlag    Category = "flag"
	CategoryList    Category = "list"
)

// Field describes one canonical record attribute.
type Field struct {
	Name     string
	Kind     Kind
	Category Category
	Group    string // used for grouping in exports and listings
}

// IsFlag reports whether the field holds a boolean.
func (f Field) IsFlag() bool { return f.Kind == KindFlag }

// IsPurposeFlag reports whether the field belongs to the purpose of
// examination checkbox group (boxes A-G and the DWC-024 pair).
func (f Field) IsPurposeFlag() bool {
	return f.Kind == KindFlag && f.Group == GroupPurpose
}

const (
	GroupEmployee       = "employee"
	GroupRepresentative = "representative"
	GroupEmployer       = "employer"
	GroupInsurance      = "insurance"
	GroupTreating       = "treating_doctor"
	GroupBodyArea       = "body_area"
	GroupPurpose        = "purpose"
	GroupExam           = "exam"
	GroupDesignated     = "designated_doctor"
	GroupBilling        = "insurance_billing"
	GroupRequester      = "requester"
	GroupInjury         = "injury"
)

// InjuryEvaluationsField is the only list-valued field.
const InjuryEvaluationsField = "injury_evaluations"

func text(name string, c Category, group string) Field {
	return Field{Name: name, Kind: KindText, Category: c, Group: group}
}

func flag(name, group string) Field {
	return Field{Name: name, Kind: KindFlag, Category: CategoryFlag, Group: group}
}

// registry is the ordered list of every canonical field. Order is the
// serialization order of a Record.
var registry = []Field{
	// Part 1: injured employee
	text("patient_name", CategoryName, GroupEmployee),
	text("ssn", CategorySSN, GroupEmployee),
	text("employee_address", CategoryAddress, GroupEmployee),
	text("employee_county", CategoryPlain, GroupEmployee),
	text("employee_primary_phone", CategoryPhone, GroupEmployee),
	text("employee_alternate_phone", CategoryPhone, GroupEmployee),
	text("employee_date_of_birth", CategoryDate, GroupEmployee),
	text("date_of_injury", CategoryDate, GroupEmployee),

	text("representative_name", CategoryName, GroupRepresentative),
	text("representative_phone", CategoryPhone, GroupRepresentative),
	text("representative_email", CategoryPlain, GroupRepresentative),
	text("representative_fax", CategoryPhone, GroupRepresentative),

	text("employer_name", CategoryName, GroupEmployer),
	text("employer_phone", CategoryPhone, GroupEmployer),
	text("employer_address", CategoryAddress, GroupEmployer),

	// Part 2: insurance carrier
	text("insurance_carrier", CategoryPlain, GroupInsurance),
	text("carrier_address", CategoryAddress, GroupInsurance),
	text("adjuster_name", CategoryName, GroupInsurance),
	text("adjuster_email", CategoryPlain, GroupInsurance),
	text("adjuster_phone", CategoryPhone, GroupInsurance),
	text("adjuster_fax", CategoryPhone, GroupInsurance),
	text("claim_number", CategoryPlain, GroupInsurance),
	text("dwc_number", CategoryClaim, GroupInsurance),
	flag("has_certified_network", GroupInsurance),
	text("network_name", CategoryName, GroupInsurance),
	flag("has_political_subdivision", GroupInsurance),
	text("health_plan_name", CategoryName, GroupInsurance),

	// Part 3: treating doctor
	text("treating_doctor_name", CategoryName, GroupTreating),
	text("treating_doctor_phone", CategoryPhone, GroupTreating),
	text("treating_doctor_address", CategoryAddress, GroupTreating),
	text("treating_doctor_fax", CategoryPhone, GroupTreating),
	text("treating_doctor_license_number", CategoryPlain, GroupTreating),
	text("treating_doctor_license_type", CategoryPlain, GroupTreating),
	text("treating_doctor_license_jurisdiction", CategoryPlain, GroupTreating),

	// Part 4: body areas
	flag("body_area_spine", GroupBodyArea),
	flag("body_area_upper_extremities", GroupBodyArea),
	flag("body_area_lower_extremities", GroupBodyArea),
	flag("body_area_feet", GroupBodyArea),
	flag("body_area_teeth_jaw", GroupBodyArea),
	flag("body_area_eyes", GroupBodyArea),
	flag("body_area_other_systems", GroupBodyArea),
	flag("body_area_brain_injury", GroupBodyArea),
	flag("body_area_spinal_cord", GroupBodyArea),
	flag("body_area_burns", GroupBodyArea),
	flag("body_area_fractures", GroupBodyArea),
	flag("body_area_infectious", GroupBodyArea),
	flag("body_area_regional_pain", GroupBodyArea),
	flag("body_area_chemical_exposure", GroupBodyArea),
	flag("body_area_cardiovascular", GroupBodyArea),
	flag("body_area_mental_disorders", GroupBodyArea),

	// Part 5: purpose of examination
	flag("purpose_box_a_checked", GroupPurpose),
	text("purpose_mmi_date", CategoryDate, GroupPurpose),
	flag("purpose_box_b_checked", GroupPurpose),
	text("purpose_ir_mmi_date", CategoryDate, GroupPurpose),
	flag("purpose_box_c_checked", GroupPurpose),
	text("extent_of_injury", CategoryPlain, GroupPurpose),
	flag("purpose_box_d_checked", GroupPurpose),
	text("purpose_disability_from_date", CategoryDate, GroupPurpose),
	text("purpose_disability_to_date", CategoryDate, GroupPurpose),
	flag("purpose_box_e_checked", GroupPurpose),
	text("purpose_rtw_from_date", CategoryDate, GroupPurpose),
	text("purpose_rtw_to_date", CategoryDate, GroupPurpose),
	flag("purpose_box_f_checked", GroupPurpose),
	text("purpose_sib_from_date", CategoryDate, GroupPurpose),
	text("purpose_sib_to_date", CategoryDate, GroupPurpose),
	flag("purpose_box_g_checked", GroupPurpose),
	text("purpose_box_g_description", CategoryPlain, GroupPurpose),
	flag("dwc024_yes_checked", GroupPurpose),
	flag("dwc024_no_checked", GroupPurpose),

	// Part 6: requester
	text("requester_type", CategoryPlain, GroupRequester),
	text("requester_name", CategoryName, GroupRequester),
	text("requester_date", CategoryDate, GroupRequester),

	// Exam order letter
	text("exam_date", CategoryDate, GroupExam),
	text("exam_time", CategoryTime, GroupExam),
	text("exam_location", CategoryPlain, GroupExam),
	text("exam_location_full", CategoryPlain, GroupExam),
	text("exam_location_city", CategoryPlain, GroupExam),

	text("doctor_name", CategoryName, GroupDesignated),
	text("doctor_address", CategoryAddress, GroupDesignated),
	text("doctor_license_number", CategoryPlain, GroupDesignated),
	text("doctor_license_type", CategoryPlain, GroupDesignated),
	text("doctor_license_jurisdiction", CategoryPlain, GroupDesignated),
	text("doctor_phone", CategoryPhone, GroupDesignated),
	text("doctor_fax", CategoryPhone, GroupDesignated),

	text("dd_assignment_number", CategoryPlain, GroupBilling),
	text("insurance_billing_name", CategoryName, GroupBilling),
	text("insurance_billing_address", CategoryAddress, GroupBilling),
	text("insurance_billing_phone", CategoryPhone, GroupBilling),
	text("insurance_billing_fax", CategoryPhone, GroupBilling),
	text("insurance_billing_email", CategoryPlain, GroupBilling),
	text("order_recipients", CategoryPlain, GroupBilling),

	{Name: InjuryEvaluationsField, Kind: KindList, Category: CategoryList, Group: GroupInjury},
}

var registryIndex = func() map[string]int {
	idx := make(map[string]int, len(registry))
	for i, f := range registry {
		idx[f.Name] = i
	}
	return idx
}()

// Lookup returns the registry entry for a canonical field name.
func Lookup(name string) (Field, bool) {
	i, ok := registryIndex[name]
	if !ok {
		return Field{}, false
	}
	return registry[i], true
}

// Fields returns every registered field in serialization order.
func Fields() []Field {
	out := make([]Field, len(registry))
	copy(out, registry)
	return out
}

// FieldsInGroup returns the registered fields belonging to group.
func FieldsInGroup(group string) []Field {
	var out []Field
	for _, f := range registry {
		if f.Group == group {
			out = append(out, f)
		}
	}
	return out
}
