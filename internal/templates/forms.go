package templates

var frontPage = Template{
	Name: string(PageFront),
	Fields: []Field{
		str("Injured employee"),
		str("DWC#"),
		str("Date of injury"),
		str("Employer"),
		str("Insurance carrier"),
		str("Insurance carrier claim#"),
		str("DD assignment #"),
		str("Date"),
	},
}

var part1 = Template{
	Name: string(PagePart1),
	Fields: []Field{
		str("1. Employee's name"),
		str("2. Social Security number"),
		str("3. Employee's address"),
		str("4. Employee's county"),
		str("5. Employee's primary phone number"),
		str("6. Employee's alternate phone number"),
		str("7. Employee's date of birth (mm/dd/yyyy)"),
		str("8. Date of injury (mm/dd/yyyy)"),
		str("9. Representative's name"),
		str("10. Representative's phone number"),
		str("11. Representative's email address"),
		str("12. Representative's fax number"),
		str("13. Employer's name"),
		str("14. Employer's phone number"),
		str("15. Employer's address"),
		str("16. Insurance carrier's name"),
		str("17. Insurance carrier's address"),
		str("18. Adjuster's name"),
		str("19. Adjuster's email"),
		str("20. Adjuster's phone number"),
		str("21. Adjuster's fax number"),
		enum("22. Certified network", yesNoEnum),
		str("If yes, name of the network"),
		enum("23. Political subdivision", yesNoEnum),
		str("If yes, name of the health care plan"),
	},
}

// bodyAreas pairs each Part 3 body area label with its record field.
var bodyAreas = []struct{ label, attr string }{
	{"Spine and musculoskeletal structures of torso", "body_area_spine"},
	{"Upper extremities", "body_area_upper_extremities"},
	{"Lower extremities (excluding feet)", "body_area_lower_extremities"},
	{"Feet", "body_area_feet"},
	{"Teeth and jaw", "body_area_teeth_jaw"},
	{"Eyes", "body_area_eyes"},
	{"Other body areas or systems", "body_area_other_systems"},
	{"Traumatic brain injury", "body_area_brain_injury"},
	{"Spinal cord injury", "body_area_spinal_cord"},
	{"Severe burns (including chemical burns)", "body_area_burns"},
	{"Joint dislocation, fractures with vascular injury", "body_area_fractures"},
	{"Infectious diseases (complicated)", "body_area_infectious"},
	{"Complex regional pain syndrome", "body_area_regional_pain"},
	{"Chemical exposure", "body_area_chemical_exposure"},
	{"Heart or cardiovascular condition", "body_area_cardiovascular"},
	{"Mental and behavioral disorders", "body_area_mental_disorders"},
}

var part3 = func() Template {
	t := Template{
		Name: string(PagePart3),
		Fields: []Field{
			str("24. Treating doctor name"),
			str("25. Phone number"),
			str("26. Address"),
			str("27. Fax number"),
			str("28. License number"),
			str("29. License type"),
		},
	}
	for _, b := range bodyAreas {
		t.Fields = append(t.Fields, enum(b.label, checkedEnum))
	}
	return t
}()

// part5Text holds the free-text fields shared by both purpose templates.
var part5Text = []Field{
	str("Statutory MMI date"),
	str("MMI Date (if Box A not checked)"),
	str("C. Description of accident or incident"),
	str("D. From"),
	str("D. to"),
	str("E. From"),
	str("E. to"),
	str("F. From"),
	str("F. to"),
	str("G. Description of issues"),
}

var part5 = Template{
	Name: string(PagePart5),
	Fields: append([]Field{
		enum("A. MMI", selectedEnum),
		enum("B. Impairment rating", selectedEnum),
		enum("C. Extent of injury", selectedEnum),
		enum("D. Disability - direct result", selectedEnum),
		enum("E. Return to work", selectedEnum),
		enum("F. Return to work (SIBs)", selectedEnum),
		enum("G. Other issues", selectedEnum),
	}, part5Text...),
}

// part5Assist asks about the box ink directly rather than the option text,
// which the model reads more reliably on this page.
var part5Assist = Template{
	Name: string(PagePart5) + AssistSuffix,
	Fields: append([]Field{
		enum("Box A (maximum medical improvement) checkbox", assistEnum),
		enum("Box B (impairment rating) checkbox", assistEnum),
		enum("Box C (extent of injury) checkbox", assistEnum),
		enum("Box D (disability direct result) checkbox", assistEnum),
		enum("Box E (return to work) checkbox", assistEnum),
		enum("Box F (return to work for SIBs) checkbox", assistEnum),
		enum("Box G (other issues) checkbox", assistEnum),
		enum("DWC-024 agreement Yes checkbox", assistEnum),
		enum("DWC-024 agreement No checkbox", assistEnum),
	}, part5Text...),
}

var part6 = Template{
	Name: string(PagePart6),
	Fields: []Field{
		enum("Requester type", []string{"Injured employee", "Injured employee representative", "Insurance carrier"}),
		str("Requester name"),
		str("Requester date"),
	},
}

var examOrderPageTwo = Template{
	Name: string(PageExamOrderTwo),
	Fields: []Field{
		str("Exam date"),
		str("Exam time"),
		str("Exam location"),
		str("Exam location address"),
		str("Designated doctor name"),
		str("Designated doctor license"),
		str("Designated doctor phone"),
		str("Designated doctor fax"),
		str("DD assignment number"),
		str("Insurance business name"),
		str("Insurance mailing address"),
		str("Insurance phone number"),
		str("Insurance fax number"),
		str("Insurance email address"),
		str("Sent to names"),
	},
}

// labelAttributes lists label to record field pairs. Several labels may
// target the same field; the extractor merge keeps the first non-empty one.
var labelAttributes = []struct{ label, attr string }{
	// Part 1
	{"1. Employee's name", "patient_name"},
	{"2. Social Security number", "ssn"},
	{"3. Employee's address", "employee_address"},
	{"4. Employee's county", "employee_county"},
	{"5. Employee's primary phone number", "employee_primary_phone"},
	{"6. Employee's alternate phone number", "employee_alternate_phone"},
	{"7. Employee's date of birth (mm/dd/yyyy)", "employee_date_of_birth"},
	{"8. Date of injury (mm/dd/yyyy)", "date_of_injury"},
	{"9. Representative's name", "representative_name"},
	{"10. Representative's phone number", "representative_phone"},
	{"11. Representative's email address", "representative_email"},
	{"12. Representative's fax number", "representative_fax"},
	{"13. Employer's name", "employer_name"},
	{"14. Employer's phone number", "employer_phone"},
	{"15. Employer's address", "employer_address"},

	// Part 2
	{"16. Insurance carrier's name", "insurance_carrier"},
	{"17. Insurance carrier's address", "carrier_address"},
	{"18. Adjuster's name", "adjuster_name"},
	{"19. Adjuster's email", "adjuster_email"},
	{"20. Adjuster's phone number", "adjuster_phone"},
	{"21. Adjuster's fax number", "adjuster_fax"},
	{"22. Certified network", "has_certified_network"},
	{"If yes, name of the network", "network_name"},
	{"23. Political subdivision", "has_political_subdivision"},
	{"If yes, name of the health care plan", "health_plan_name"},

	// Part 3
	{"24. Treating doctor name", "treating_doctor_name"},
	{"25. Phone number", "treating_doctor_phone"},
	{"26. Address", "treating_doctor_address"},
	{"27. Fax number", "treating_doctor_fax"},
	{"28. License number", "treating_doctor_license_number"},
	{"29. License type", "treating_doctor_license_type"},

	// Part 5
	{"A. MMI", "purpose_box_a_checked"},
	{"B. Impairment rating", "purpose_box_b_checked"},
	{"C. Extent of injury", "purpose_box_c_checked"},
	{"D. Disability - direct result", "purpose_box_d_checked"},
	{"E. Return to work", "purpose_box_e_checked"},
	{"F. Return to work (SIBs)", "purpose_box_f_checked"},
	{"G. Other issues", "purpose_box_g_checked"},
	{"Box A (maximum medical improvement) checkbox", "purpose_box_a_checked"},
	{"Box B (impairment rating) checkbox", "purpose_box_b_checked"},
	{"Box C (extent of injury) checkbox", "purpose_box_c_checked"},
	{"Box D (disability direct result) checkbox", "purpose_box_d_checked"},
	{"Box E (return to work) checkbox", "purpose_box_e_checked"},
	{"Box F (return to work for SIBs) checkbox", "purpose_box_f_checked"},
	{"Box G (other issues) checkbox", "purpose_box_g_checked"},
	{"DWC-024 agreement Yes checkbox", "dwc024_yes_checked"},
	{"DWC-024 agreement No checkbox", "dwc024_no_checked"},
	{"Statutory MMI date", "purpose_mmi_date"},
	{"MMI Date (if Box A not checked)", "purpose_ir_mmi_date"},
	{"C. Description of accident or incident", "extent_of_injury"},
	{"D. From", "purpose_disability_from_date"},
	{"D. to", "purpose_disability_to_date"},
	{"E. From", "purpose_rtw_from_date"},
	{"E. to", "purpose_rtw_to_date"},
	{"F. From", "purpose_sib_from_date"},
	{"F. to", "purpose_sib_to_date"},
	{"G. Description of issues", "purpose_box_g_description"},

	// Part 6
	{"Requester type", "requester_type"},
	{"Requester name", "requester_name"},
	{"Requester date", "requester_date"},

	// Front page
	{"Injured employee", "patient_name"},
	{"DWC#", "dwc_number"},
	{"Date of injury", "date_of_injury"},
	{"Employer", "employer_name"},
	{"Insurance carrier", "insurance_carrier"},
	{"Insurance carrier claim#", "claim_number"},
	{"DD assignment #", "dd_assignment_number"},
	{"Date", "exam_date"},

	// Exam order page two
	{"Exam date", "exam_date"},
	{"Exam time", "exam_time"},
	{"Exam location", "exam_location"},
	{"Exam location address", "exam_location_full"},
	{"Designated doctor name", "doctor_name"},
	{"Designated doctor license", "doctor_license_number"},
	{"Designated doctor phone", "doctor_phone"},
	{"Designated doctor fax", "doctor_fax"},
	{"DD assignment number", "dd_assignment_number"},
	{"Insurance business name", "insurance_billing_name"},
	{"Insurance mailing address", "insurance_billing_address"},
	{"Insurance phone number", "insurance_billing_phone"},
	{"Insurance fax number", "insurance_billing_fax"},
	{"Insurance email address", "insurance_billing_email"},
	{"Sent to names", "order_recipients"},
}

var fieldToAttribute = func() map[string]string {
	m := make(map[string]string, len(labelAttributes)+len(bodyAreas))
	for _, la := range labelAttributes {
		m[la.label] = la.attr
	}
	for _, b := range bodyAreas {
		m[b.label] = b.attr
	}
	return m
}()
