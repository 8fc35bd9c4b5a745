package catalog

import (
	"github.com/preventive-care-server/internal/domain"
)

// DefaultVersion identifies the built-in guideline table.
const DefaultVersion = "uspstf-2024.1"

// Category ids of the built-in table, in display order.
const (
	CategoryCancer            = "cancer"
	CategoryCardiometabolic   = "cardiometabolic"
	CategoryInfectiousDisease = "infectious_disease"
	CategoryBehavioralHealth  = "behavioral_health"
	CategorySubstanceUse      = "substance_use"
	CategoryBoneHealth        = "bone_health"
	CategoryPrenatal          = "prenatal"
)

func defaultCategories() []Category {
	return []Category{
		{ID: CategoryCancer, Title: "Cancer screening"},
		{ID: CategoryCardiometabolic, Title: "Heart and metabolic health"},
		{ID: CategoryInfectiousDisease, Title: "Infectious disease"},
		{ID: CategoryBehavioralHealth, Title: "Behavioral health"},
		{ID: CategorySubstanceUse, Title: "Tobacco and alcohol"},
		{ID: CategoryBoneHealth, Title: "Bone health"},
		{ID: CategoryPrenatal, Title: "Prenatal care"},
	}
}

func periodic(years int) IntervalPolicy {
	return IntervalPolicy{Kind: domain.PERIODIC, Years: years}
}

func riskTriggered(years int) IntervalPolicy {
	return IntervalPolicy{Kind: domain.RISK_TRIGGERED, Years: years}
}

func oneTime() IntervalPolicy {
	return IntervalPolicy{Kind: domain.ONE_TIME}
}

func ageWindows(windows ...AgeWindow) IntervalPolicy {
	return IntervalPolicy{Kind: domain.AGE_WINDOW, Windows: windows}
}

func female() Predicate {
	return Leaf(FieldSex, OpEq, string(domain.FEMALE))
}

func male() Predicate {
	return Leaf(FieldSex, OpEq, string(domain.MALE))
}

func hasCondition(c domain.Condition) Predicate {
	return Leaf(FieldCondition, OpContains, string(c))
}

func hasFamilyHistory(f domain.FamilyHistory) Predicate {
	return Leaf(FieldFamilyHistory, OpContains, string(f))
}

func defaultRules() []ScreeningRule {
	return []ScreeningRule{
		{
			ID:          "colorectal-cancer-screening",
			Title:       "Colorectal cancer screening",
			Category:    CategoryCancer,
			RecencyKey:  domain.KEY_COLONOSCOPY,
			Eligibility: "Adults aged 45 to 75 at average risk",
			Criteria:    All(AgeBetween(45, 75), Not(hasFamilyHistory(domain.FH_COLORECTAL_CANCER))),
			Policy:      periodic(10),
			Source:      "USPSTF 2021, Colorectal Cancer: Screening (Grade A 50-75, Grade B 45-49)",
		},
		{
			ID:          "colorectal-cancer-screening-family-history",
			Title:       "Colorectal cancer screening (family history)",
			Category:    CategoryCancer,
			RecencyKey:  domain.KEY_COLONOSCOPY,
			Eligibility: "Adults aged 40 to 75 with a first-degree relative with colorectal cancer",
			Criteria:    All(AgeBetween(40, 75), hasFamilyHistory(domain.FH_COLORECTAL_CANCER)),
			Policy:      periodic(5),
			Source:      "US Multi-Society Task Force on Colorectal Cancer 2017, increased-risk surveillance",
		},
		{
			ID:             "cervical-cancer-screening",
			Title:          "Cervical cancer screening",
			Category:       CategoryCancer,
			RecencyKey:     domain.KEY_CERVICAL,
			RequiresOrgans: []domain.Organ{domain.CERVIX},
			Eligibility:    "People with a cervix aged 21 to 65",
			Criteria:       All(female(), AgeBetween(21, 65)),
			Policy:         ageWindows(AgeWindow{MinAge: 21, MaxAge: 29, Years: 3}, AgeWindow{MinAge: 30, MaxAge: 65, Years: 3}),
			Source:         "USPSTF 2018, Cervical Cancer: Screening (Grade A)",
		},
		{
			ID:          "breast-cancer-screening",
			Title:       "Mammogram",
			Category:    CategoryCancer,
			RecencyKey:  domain.KEY_MAMMOGRAM,
			Pregnancy:   PregnancySuppress,
			Eligibility: "Women aged 40 to 74, every 2 years",
			Criteria:    All(female(), AgeBetween(40, 74)),
			Policy:      periodic(2),
			Source:      "USPSTF 2024, Breast Cancer: Screening (Grade B)",
		},
		{
			ID:          "lung-cancer-screening",
			Title:       "Lung cancer screening (low-dose CT)",
			Category:    CategoryCancer,
			RecencyKey:  domain.KEY_LUNG_CT,
			Pregnancy:   PregnancySuppress,
			Eligibility: "Adults aged 50 to 80 with a 20 pack-year history who smoke now or quit within 15 years",
			Criteria: All(
				AgeBetween(50, 80),
				Leaf(FieldPackYears, OpGte, 20),
				Any(
					Leaf(FieldSmokingStatus, OpEq, string(domain.CURRENT_SMOKER)),
					All(Leaf(FieldSmokingStatus, OpEq, string(domain.FORMER_SMOKER)), Leaf(FieldYearsSinceQuit, OpLte, 15)),
				),
			),
			Policy: riskTriggered(1),
			Source: "USPSTF 2021, Lung Cancer: Screening (Grade B)",
		},
		{
			ID:             "prostate-cancer-screening",
			Title:          "Prostate cancer screening discussion (PSA)",
			Category:       CategoryCancer,
			RecencyKey:     domain.KEY_PSA,
			RequiresOrgans: []domain.Organ{domain.PROSTATE},
			Eligibility:    "Men aged 55 to 69, as an individual decision with a clinician",
			Criteria:       All(male(), AgeBetween(55, 69)),
			Policy:         periodic(2),
			Source:         "USPSTF 2018, Prostate Cancer: Screening (Grade C)",
		},
		{
			ID:          "brca-risk-assessment",
			Title:       "BRCA-related cancer risk assessment",
			Category:    CategoryCancer,
			RecencyKey:  domain.KEY_BRCA_ASSESSMENT,
			Eligibility: "Women with a family history of breast or ovarian cancer",
			Criteria: All(female(), Leaf(FieldAge, OpGte, 18), Any(
				hasFamilyHistory(domain.FH_BREAST_CANCER),
				hasFamilyHistory(domain.FH_OVARIAN_CANCER),
			)),
			Policy: oneTime(),
			Source: "USPSTF 2019, BRCA-Related Cancer: Risk Assessment, Genetic Counseling, and Genetic Testing (Grade B)",
		},
		{
			ID:          "blood-pressure-screening",
			Title:       "Blood pressure check",
			Category:    CategoryCardiometabolic,
			RecencyKey:  domain.KEY_BLOOD_PRESSURE,
			Eligibility: "Adults 18 and older; every 3 years to age 39, yearly from 40",
			Criteria:    Leaf(FieldAge, OpGte, 18),
			Policy:      ageWindows(AgeWindow{MinAge: 18, MaxAge: 39, Years: 3}, AgeWindow{MinAge: 40, MaxAge: 120, Years: 1}),
			Source:      "USPSTF 2021, Hypertension in Adults: Screening (Grade A)",
		},
		{
			ID:          "cholesterol-screening",
			Title:       "Cholesterol screening",
			Category:    CategoryCardiometabolic,
			RecencyKey:  domain.KEY_CHOLESTEROL,
			Eligibility: "Adults aged 40 to 75, or 20 to 39 with cardiovascular risk factors",
			Criteria: Any(
				AgeBetween(40, 75),
				All(AgeBetween(20, 39), Any(
					hasCondition(domain.DIABETES),
					hasCondition(domain.HYPERTENSION),
					hasFamilyHistory(domain.FH_EARLY_HEART_DISEASE),
					Leaf(FieldBMICategory, OpEq, string(domain.BMI_OBESE)),
				)),
			),
			Policy: periodic(5),
			Source: "USPSTF 2022, Statin Use for the Primary Prevention of Cardiovascular Disease in Adults (Grade B)",
		},
		{
			ID:          "diabetes-screening",
			Title:       "Prediabetes and type 2 diabetes screening",
			Category:    CategoryCardiometabolic,
			RecencyKey:  domain.KEY_DIABETES,
			Pregnancy:   PregnancySuppress,
			ReplacedBy:  "gestational-diabetes-screening",
			Eligibility: "Adults aged 35 to 70 with overweight or obesity",
			Criteria: All(
				AgeBetween(35, 70),
				Leaf(FieldBMICategory, OpIn, []string{string(domain.BMI_OVERWEIGHT), string(domain.BMI_OBESE)}),
				Not(hasCondition(domain.DIABETES)),
			),
			Policy: periodic(3),
			Source: "USPSTF 2021, Prediabetes and Type 2 Diabetes: Screening (Grade B)",
		},
		{
			ID:          "aaa-screening",
			Title:       "Abdominal aortic aneurysm ultrasound",
			Category:    CategoryCardiometabolic,
			RecencyKey:  domain.KEY_AAA,
			Eligibility: "Men aged 65 to 75 who have ever smoked",
			Criteria: All(male(), AgeBetween(65, 75), Leaf(FieldSmokingStatus, OpIn,
				[]string{string(domain.FORMER_SMOKER), string(domain.CURRENT_SMOKER)})),
			Policy: oneTime(),
			Source: "USPSTF 2019, Abdominal Aortic Aneurysm: Screening (Grade B)",
		},
		{
			ID:          "hiv-screening",
			Title:       "HIV test",
			Category:    CategoryInfectiousDisease,
			RecencyKey:  domain.KEY_HIV_TEST,
			Pregnancy:   PregnancySuppress,
			ReplacedBy:  "prenatal-hiv-screening",
			Eligibility: "Everyone aged 15 to 65 at least once",
			Criteria:    All(AgeBetween(15, 65), Not(hasCondition(domain.HIV))),
			Policy:      oneTime(),
			Source:      "USPSTF 2019, HIV Infection: Screening (Grade A)",
		},
		{
			ID:          "hiv-screening-increased-risk",
			Title:       "HIV test (increased risk)",
			Category:    CategoryInfectiousDisease,
			RecencyKey:  domain.KEY_HIV_TEST,
			Eligibility: "Adolescents and adults at increased risk of HIV, yearly",
			Criteria: All(
				Leaf(FieldAge, OpGte, 13),
				Not(hasCondition(domain.HIV)),
				Any(
					Leaf(FieldHIVRisk, OpIsTrue, nil),
					Leaf(FieldSTIHistory, OpIsTrue, nil),
					Leaf(FieldPartners, OpGte, 2),
				),
			),
			Policy: riskTriggered(1),
			Source: "USPSTF 2019, HIV Infection: Screening (Grade A); CDC repeat testing for persons at increased risk",
		},
		{
			ID:          "hepatitis-c-screening",
			Title:       "Hepatitis C test",
			Category:    CategoryInfectiousDisease,
			RecencyKey:  domain.KEY_HEPATITIS_C,
			Eligibility: "Adults aged 18 to 79 at least once",
			Criteria:    AgeBetween(18, 79),
			Policy:      oneTime(),
			Source:      "USPSTF 2020, Hepatitis C Virus Infection in Adolescents and Adults: Screening (Grade B)",
		},
		{
			ID:          "chlamydia-gonorrhea-screening",
			Title:       "Chlamydia and gonorrhea screening",
			Category:    CategoryInfectiousDisease,
			RecencyKey:  domain.KEY_STI,
			Eligibility: "Sexually active women aged 24 or younger, or older women at increased risk",
			Criteria: All(
				female(),
				Leaf(FieldSexuallyActive, OpIsTrue, nil),
				Any(
					Leaf(FieldAge, OpLte, 24),
					Leaf(FieldSTIHistory, OpIsTrue, nil),
					Leaf(FieldPartners, OpGte, 2),
				),
			),
			Policy: riskTriggered(1),
			Source: "USPSTF 2021, Chlamydia and Gonorrhea: Screening (Grade B)",
		},
		{
			ID:          "depression-screening",
			Title:       "Depression screening",
			Category:    CategoryBehavioralHealth,
			RecencyKey:  domain.KEY_DEPRESSION,
			Eligibility: "Everyone aged 12 and older",
			Criteria:    Leaf(FieldAge, OpGte, 12),
			Policy:      periodic(1),
			Source:      "USPSTF 2023, Depression and Suicide Risk in Adults: Screening (Grade B); USPSTF 2022 adolescents (Grade B)",
		},
		{
			ID:          "unhealthy-alcohol-screening",
			Title:       "Alcohol use screening",
			Category:    CategorySubstanceUse,
			RecencyKey:  domain.KEY_ALCOHOL,
			Eligibility: "Adults 18 and older",
			Criteria:    Leaf(FieldAge, OpGte, 18),
			Policy:      periodic(1),
			Source:      "USPSTF 2018, Unhealthy Alcohol Use in Adolescents and Adults: Screening and Behavioral Counseling (Grade B)",
		},
		{
			ID:          "tobacco-cessation-counseling",
			Title:       "Tobacco cessation counseling",
			Category:    CategorySubstanceUse,
			RecencyKey:  domain.KEY_TOBACCO,
			Pregnancy:   PregnancySuppress,
			ReplacedBy:  "prenatal-tobacco-counseling",
			Eligibility: "Adults who currently smoke",
			Criteria:    All(Leaf(FieldAge, OpGte, 18), Leaf(FieldSmokingStatus, OpEq, string(domain.CURRENT_SMOKER))),
			Policy:      riskTriggered(1),
			Source:      "USPSTF 2021, Tobacco Smoking Cessation in Adults: Interventions (Grade A)",
		},
		{
			ID:          "osteoporosis-screening",
			Title:       "Bone density scan",
			Category:    CategoryBoneHealth,
			RecencyKey:  domain.KEY_BONE_DENSITY,
			Pregnancy:   PregnancySuppress,
			Eligibility: "Women 65 and older, or younger women after removal of the ovaries",
			Criteria: All(female(), Any(
				Leaf(FieldAge, OpGte, 65),
				All(Leaf(FieldAge, OpGte, 18), Leaf(FieldOrganRemoved, OpContains, string(domain.OVARIES))),
			)),
			Policy: periodic(2),
			Source: "USPSTF 2025, Osteoporosis to Prevent Fractures: Screening (Grade B)",
		},
		{
			ID:          "prenatal-hiv-screening",
			Title:       "Prenatal HIV test",
			Category:    CategoryPrenatal,
			RecencyKey:  domain.KEY_HIV_TEST,
			Pregnancy:   PregnancyOnly,
			Eligibility: "Everyone who is pregnant, in each pregnancy",
			Criteria:    Leaf(FieldPregnant, OpIsTrue, nil),
			Policy:      riskTriggered(1),
			Source:      "USPSTF 2019, HIV Infection: Screening, pregnant persons (Grade A)",
		},
		{
			ID:          "prenatal-syphilis-screening",
			Title:       "Prenatal syphilis test",
			Category:    CategoryPrenatal,
			RecencyKey:  domain.KEY_STI,
			Pregnancy:   PregnancyOnly,
			Eligibility: "Everyone who is pregnant, in each pregnancy",
			Criteria:    Leaf(FieldPregnant, OpIsTrue, nil),
			Policy:      riskTriggered(1),
			Source:      "USPSTF 2018, Syphilis Infection in Pregnant Women: Screening (Grade A)",
		},
		{
			ID:          "gestational-diabetes-screening",
			Title:       "Gestational diabetes screening",
			Category:    CategoryPrenatal,
			RecencyKey:  domain.KEY_DIABETES,
			Pregnancy:   PregnancyOnly,
			Eligibility: "Pregnant people at 24 weeks of gestation or later",
			Criteria:    All(Leaf(FieldPregnant, OpIsTrue, nil), Leaf(FieldWeeksPregnant, OpGte, 24)),
			Policy:      riskTriggered(1),
			Source:      "USPSTF 2021, Gestational Diabetes: Screening (Grade B)",
		},
		{
			ID:          "prenatal-tobacco-counseling",
			Title:       "Tobacco cessation counseling in pregnancy",
			Category:    CategoryPrenatal,
			RecencyKey:  domain.KEY_TOBACCO,
			Pregnancy:   PregnancyOnly,
			Eligibility: "Pregnant people who currently smoke",
			Criteria:    All(Leaf(FieldPregnant, OpIsTrue, nil), Leaf(FieldSmokingStatus, OpEq, string(domain.CURRENT_SMOKER))),
			Policy:      riskTriggered(1),
			Source:      "USPSTF 2021, Tobacco Smoking Cessation in Pregnant Persons: Behavioral Interventions (Grade A)",
		},
	}
}

// Default returns the built-in guideline table. It panics if the table fails validation,
// which the package tests guard against.
func Default() *Catalog {
	c, err := New(DefaultVersion, defaultCategories(), defaultRules())
	if err != nil {
		panic("catalog: built-in table is invalid: " + err.Error())
	}
	return c
}
