package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExpandsAbbreviations(t *testing.T) {
	got := NormalizeMedicalTerms("Patients with MI and HTN were admitted to the ICU.")
	assert.Equal(t,
		"Patients with MI (myocardial infarction) and HTN (hypertension) were admitted to the ICU (intensive care unit).",
		got)
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	got := NormalizeMedicalTerms("Acute mi was confirmed by ecg readings.")
	assert.Equal(t,
		"Acute MI (myocardial infarction) was confirmed by ECG (electrocardiogram) readings.",
		got)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Patients with MI and HTN were admitted to the ICU.",
		"MI (myocardial infarction) was already expanded.",
		"Blood pressure of 140 mmhg and glucose of 180 mg/dl.",
		"No abbreviations in this sentence at all.",
	}
	for _, in := range inputs {
		once := NormalizeMedicalTerms(in)
		twice := NormalizeMedicalTerms(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestNormalizeWholeWordOnly(t *testing.T) {
	// "mi" inside a word must not be expanded.
	got := NormalizeMedicalTerms("The administration of medication was recorded.")
	assert.Equal(t, "The administration of medication was recorded.", got)
}

func TestNormalizeUnits(t *testing.T) {
	got := NormalizeMedicalTerms("Glucose was 180 mg/dl at 140 mmhg with BMI 32 kg/m2.")
	assert.Contains(t, got, "mg/dL")
	assert.Contains(t, got, "mmHg")
	assert.Contains(t, got, "kg/m²")
}
