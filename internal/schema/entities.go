package schema

import "strconv"

func num(name string, width int) Field { return Field{Name: name, Width: width} }

func opt(name string, width int) Field { return Field{Name: name, Width: width, Optional: true} }

func def(name string, width int, value string) Field {
	return Field{Name: name, Width: width, Default: value}
}

func date(name string) Field { return Field{Name: name, Width: 8, Kind: Date} }

// Family is the layout of the Section 1 family record (items 4 through 28).
var Family = newSchema("family", []Field{
	num("case_number", 11),
	num("county_fips_code", 3),
	num("stratum", 2),
	num("zip_code", 5),
	num("funding_stream", 1),
	num("disposition", 1),
	num("new_applicant", 1),
	num("num_family_members", 2),
	num("family_type", 1),
	num("receives_subsidized_housing", 1),
	num("receives_medical_assistance", 1),
	def("receives_snap", 1, "0"),
	num("snap_amount", 4),
	def("receives_subsidized_child_care", 1, "0"),
	num("subsid_child_care_amount", 4),
	num("child_support_amount", 4),
	num("family_cash_resources", 4),
	num("item21a_amount", 4),
	num("item21b_nbr_month", 3),
	num("item22a_amount", 4),
	num("item22b_children_covered", 2),
	num("item22c_nbr_months", 3),
	num("item23a_amount", 4),
	num("item23b_nbr_months", 3),
	def("item24a_amount", 4, "0000"),
	def("item24b_amount", 3, "000"),
	def("item25a_amount", 4, "0000"),
	def("item25b_amount", 3, "000"),
	num("item26a1_sanc_redux_amt", 4),
	num("item26a2_work_req_sanction", 1),
	num("item26a4_teen_prnt_schl_attend_sanc", 1),
	num("item26a5_child_support_non_coop", 1),
	num("item26a6_irp_non_coop", 1),
	num("item26a7_other_sanction", 1),
	num("item26b_recoupment", 4),
	num("item26c1_other_tot_red_amount", 4),
	num("item26c2_family_cap", 1),
	num("item26c3_red_len_assist", 1),
	num("item26c4_other_non_sanction", 1),
	def("waiver_eval_gprs", 1, "0"),
	num("fam_exempt_fed_time_limits", 2),
	def("new_child_only", 1, "0"),
}, nil)

// Adult is the layout of the Section 1 adult record (items 30 through 66).
var Adult = newSchema("adult", []Field{
	num("family_affiliation", 1),
	num("noncustodial_parent", 1),
	date("date_of_birth"),
	num("ssn", 9),
	opt("item34a_hispanic_latino", 1),
	opt("item34b_american_indian_alaska_native", 1),
	opt("item34c_asian", 1),
	opt("item34d_black", 1),
	opt("item34e_native_pacific_islander", 1),
	opt("item34f_white", 1),
	num("gender", 1),
	num("item36a_receives_oasdi", 1),
	num("item36b_receives_federal_disability", 1),
	num("item36c_receives_title_xiv_apdt", 1),
	def("item36d", 1, "0"),
	num("item36e_receives_xvi_ssi", 1),
	opt("marital_status", 1),
	num("relationship_to_hoh", 2),
	opt("parent_with_minor_child", 1),
	def("pregnant_woman_needs", 1, "0"),
	opt("educational_level", 2),
	opt("citizenship_immigration_status", 1),
	opt("coop_child_support", 1),
	opt("countable_federal_time_limit_months", 3),
	def("remaining_state_limit", 2, "00"),
	def("exempt_from_state_limit", 1, "0"),
	opt("employment_status", 1),
	num("work_eligible_individual", 2),
	opt("work_participation_status", 2),
	opt("unsubsidized_employment_hours", 2),
	opt("subsidized_private_employment_hours", 2),
	opt("subsidized_public_employment_hours", 2),
	opt("item53a_wex_participation", 2),
	opt("item53b_wex_excused_absences", 2),
	opt("item53c_wex_holidays", 2),
	opt("on_job_training_hours", 2),
	opt("item55a_jobsearch_participation", 2),
	opt("item55b_jobsearch_excused_absences", 2),
	opt("item55c_jobsearch_holidays", 2),
	opt("item56a_commsvs_participation", 2),
	opt("item56b_commsvs_excused_absences", 2),
	opt("item56c_commsvs_holidays", 2),
	opt("item57a_voced_participation", 2),
	opt("item57b_voced_excused_absences", 2),
	opt("item57c_voced_holidays", 2),
	opt("item58a_jst_participation", 2),
	opt("item58b_jst_excused_absences", 2),
	opt("item58c_jst_holidays", 2),
	opt("item59a_emped_hsd_participation", 2),
	opt("item59b_emped_hsd_excused_absences", 2),
	opt("item59c_emped_hsd_holidays", 2),
	opt("item60a_schlattnd_participation", 2),
	opt("item60b_schlattnd_excused_absences", 2),
	opt("item60c_schlattnd_holidays", 2),
	opt("item61a_chldcare_participation", 2),
	opt("item61b_chldcare_excused_absences", 2),
	opt("item61c_chldcare_holidays", 2),
	opt("other_work_activities", 2),
	opt("deemed_core_hours_overall_rate", 2),
	opt("deemed_core_hours_two_parent_rate", 2),
	num("earned_income", 4),
	def("item66a_earned_income_tax_credit", 4, "0000"),
	num("item66b_social_security", 4),
	num("item66c_ssi", 4),
	num("item66d_worker_comp", 4),
	num("item66e_other_unearned_income", 4),
}, rollupEducationHours)

// Child is the layout of the Section 1 child record (items 67 through 77).
var Child = newSchema("child", []Field{
	num("family_affiliation", 1),
	date("date_of_birth"),
	num("ssn", 9),
	opt("item34a_hispanic_latino", 1),
	opt("item34b_american_indian_alaska_native", 1),
	opt("item34c_asian", 1),
	opt("item34d_black", 1),
	opt("item34e_native_pacific_islander", 1),
	opt("item34f_white", 1),
	num("gender", 1),
	num("disability_non_ssa", 1),
	num("item72b_ssi_xvi_ssi", 1),
	num("relation_to_hoh", 2),
	opt("parent_with_minor_child", 1),
	opt("educational_level", 2),
	opt("citizenship_immigration_status", 1),
	num("item77a_ssa", 4),
	num("item77b_other_unearned_income", 4),
}, nil)

// For returns the schema for an entity name.
func For(entity string) (*Schema, bool) {
	switch entity {
	case Family.entity:
		return Family, true
	case Adult.entity:
		return Adult, true
	case Child.entity:
		return Child, true
	}
	return nil, false
}

// Item 59 reports education related to employment together with school
// attendance (item 60) and providing child care (item 61).
var educationRollup = []struct {
	target string
	adds   [2]string
}{
	{"item59a_emped_hsd_participation", [2]string{"item60a_schlattnd_participation", "item61a_chldcare_participation"}},
	{"item59b_emped_hsd_excused_absences", [2]string{"item60b_schlattnd_excused_absences", "item61b_chldcare_excused_absences"}},
	{"item59c_emped_hsd_holidays", [2]string{"item60c_schlattnd_holidays", "item61c_chldcare_holidays"}},
}

// rollupEducationHours runs once, on first save, after normalization.
func rollupEducationHours(v Values) error {
	for _, r := range educationRollup {
		total, seen := 0, false
		for _, name := range []string{r.target, r.adds[0], r.adds[1]} {
			if v[name] == "" {
				continue
			}
			n, err := strconv.Atoi(v[name])
			if err != nil {
				return &FormatError{Entity: "adult", Field: name, Width: 2, Value: v[name], Reason: "not a non-negative integer"}
			}
			total += n
			seen = true
		}
		if !seen {
			continue
		}
		out, err := Normalize(r.target, strconv.Itoa(total), 2)
		if err != nil {
			return &FormatError{Entity: "adult", Field: r.target, Width: 2, Value: strconv.Itoa(total), Reason: "rolled-up hours exceed width"}
		}
		v[r.target] = out
	}
	return nil
}
