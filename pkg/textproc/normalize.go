package textproc

import (
	"regexp"
)

// Abbreviation maps a medical abbreviation to its spelled-out form.
type Abbreviation struct {
	Short string
	Long  string
}

// MedicalAbbreviations is applied in order; each case-insensitive whole-word
// occurrence of Short is rewritten to "Short (Long)".
var MedicalAbbreviations = []Abbreviation{
	{"MI", "myocardial infarction"},
	{"HTN", "hypertension"},
	{"DM", "diabetes mellitus"},
	{"CAD", "coronary artery disease"},
	{"COPD", "chronic obstructive pulmonary disease"},
	{"CHF", "congestive heart failure"},
	{"CVA", "cerebrovascular accident"},
	{"ICU", "intensive care unit"},
	{"ER", "emergency room"},
	{"OR", "operating room"},
	{"CT", "computed tomography"},
	{"MRI", "magnetic resonance imaging"},
	{"ECG", "electrocardiogram"},
	{"EKG", "electrocardiogram"},
	{"CBC", "complete blood count"},
	{"BUN", "blood urea nitrogen"},
	{"HIV", "human immunodeficiency virus"},
	{"AIDS", "acquired immunodeficiency syndrome"},
	{"COVID", "coronavirus disease"},
	{"SARS", "severe acute respiratory syndrome"},
	{"MERS", "Middle East respiratory syndrome"},
}

type abbreviationRule struct {
	re          *regexp.Regexp
	replacement string
}

var abbreviationRules = buildAbbreviationRules()

func buildAbbreviationRules() []abbreviationRule {
	rules := make([]abbreviationRule, 0, len(MedicalAbbreviations))
	for _, a := range MedicalAbbreviations {
		// The optional parenthetical group makes expansion idempotent: an
		// occurrence that already carries its expansion is rewritten to
		// itself instead of gaining a second parenthetical.
		pattern := `(?i)\b` + regexp.QuoteMeta(a.Short) + `\b(?:\s*\(` + regexp.QuoteMeta(a.Long) + `\))?`
		rules = append(rules, abbreviationRule{
			re:          regexp.MustCompile(pattern),
			replacement: a.Short + " (" + a.Long + ")",
		})
	}
	return rules
}

var unitRules = []abbreviationRule{
	{regexp.MustCompile(`(?i)\bmg/dl\b`), "mg/dL"},
	{regexp.MustCompile(`(?i)\bmmhg\b`), "mmHg"},
	{regexp.MustCompile(`(?i)\bkg/m2\b`), "kg/m²"},
}

// NormalizeMedicalTerms expands known abbreviations and canonicalizes unit
// spellings. Applying it twice yields the same text as applying it once.
func NormalizeMedicalTerms(text string) string {
	for _, rule := range abbreviationRules {
		text = rule.re.ReplaceAllString(text, rule.replacement)
	}
	for _, rule := range unitRules {
		text = rule.re.ReplaceAllString(text, rule.replacement)
	}
	return text
}
