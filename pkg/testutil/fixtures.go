package testutil

import "tdrs/internal/schema"

// FamilyValues returns raw family input that passes normalization and every
// family rule. Overrides replace individual fields.
func FamilyValues(caseNumber string, overrides ...string) schema.Values {
	v := schema.Values{
		"case_number":                         caseNumber,
		"county_fips_code":                    "1",
		"stratum":                             "1",
		"zip_code":                            "20001",
		"funding_stream":                      "1",
		"disposition":                         "1",
		"new_applicant":                       "2",
		"num_family_members":                  "3",
		"family_type":                         "1",
		"receives_subsidized_housing":         "3",
		"receives_medical_assistance":         "1",
		"snap_amount":                         "250",
		"subsid_child_care_amount":            "0",
		"child_support_amount":                "0",
		"family_cash_resources":               "100",
		"item21a_amount":                      "400",
		"item21b_nbr_month":                   "12",
		"item22a_amount":                      "0",
		"item22b_children_covered":            "0",
		"item22c_nbr_months":                  "0",
		"item23a_amount":                      "0",
		"item23b_nbr_months":                  "0",
		"item26a1_sanc_redux_amt":             "0",
		"item26a2_work_req_sanction":          "2",
		"item26a4_teen_prnt_schl_attend_sanc": "2",
		"item26a5_child_support_non_coop":     "2",
		"item26a6_irp_non_coop":               "2",
		"item26a7_other_sanction":             "2",
		"item26b_recoupment":                  "0",
		"item26c1_other_tot_red_amount":       "0",
		"item26c2_family_cap":                 "2",
		"item26c3_red_len_assist":             "2",
		"item26c4_other_non_sanction":         "2",
		"fam_exempt_fed_time_limits":          "1",
	}
	return apply(v, overrides)
}

// AdultValues returns raw input for a head of household receiving assistance
// that passes normalization and every adult rule.
func AdultValues(ssn string, overrides ...string) schema.Values {
	v := schema.Values{
		"family_affiliation":                    "1",
		"noncustodial_parent":                   "2",
		"date_of_birth":                         "19850412",
		"ssn":                                   ssn,
		"item34a_hispanic_latino":               "2",
		"item34b_american_indian_alaska_native": "2",
		"item34c_asian":                         "2",
		"item34d_black":                         "1",
		"item34e_native_pacific_islander":       "2",
		"item34f_white":                         "2",
		"gender":                                "2",
		"item36a_receives_oasdi":                "2",
		"item36b_receives_federal_disability":   "2",
		"item36c_receives_title_xiv_apdt":       "2",
		"item36e_receives_xvi_ssi":              "2",
		"marital_status":                        "1",
		"relationship_to_hoh":                   "1",
		"parent_with_minor_child":               "2",
		"educational_level":                     "12",
		"citizenship_immigration_status":        "1",
		"coop_child_support":                    "1",
		"countable_federal_time_limit_months":   "14",
		"employment_status":                     "1",
		"work_eligible_individual":              "1",
		"work_participation_status":             "18",
		"unsubsidized_employment_hours":         "20",
		"subsidized_private_employment_hours":   "0",
		"subsidized_public_employment_hours":    "0",
		"on_job_training_hours":                 "0",
		"earned_income":                         "850",
		"item66b_social_security":               "0",
		"item66c_ssi":                           "0",
		"item66d_worker_comp":                   "0",
		"item66e_other_unearned_income":         "0",
	}
	return apply(v, overrides)
}

// ChildValues returns raw input for a child recipient that passes
// normalization and every child rule.
func ChildValues(ssn string, overrides ...string) schema.Values {
	v := schema.Values{
		"family_affiliation":                    "1",
		"date_of_birth":                         "20150601",
		"ssn":                                   ssn,
		"item34a_hispanic_latino":               "2",
		"item34b_american_indian_alaska_native": "2",
		"item34c_asian":                         "2",
		"item34d_black":                         "1",
		"item34e_native_pacific_islander":       "2",
		"item34f_white":                         "2",
		"gender":                                "1",
		"disability_non_ssa":                    "2",
		"item72b_ssi_xvi_ssi":                   "2",
		"relation_to_hoh":                       "4",
		"parent_with_minor_child":               "3",
		"educational_level":                     "3",
		"citizenship_immigration_status":        "1",
		"item77a_ssa":                           "0",
		"item77b_other_unearned_income":         "0",
	}
	return apply(v, overrides)
}

// apply sets name/value pairs on v. An odd trailing name is ignored.
func apply(v schema.Values, kv []string) schema.Values {
	for i := 0; i+1 < len(kv); i += 2 {
		v[kv[i]] = kv[i+1]
	}
	return v
}
