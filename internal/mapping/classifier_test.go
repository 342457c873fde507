package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formpipe/formpipe/constants"
)

func TestClassifyFieldType(t *testing.T) {
	cases := []struct {
		name     string
		expected constants.FieldType
	}{
		{"date_of_birth", constants.FieldTypeDate},
		{"expiration", constants.FieldTypeDate},
		{"email_address", constants.FieldTypeEmail},
		{"e-mail", constants.FieldTypeEmail},
		{"phone_number", constants.FieldTypePhone},
		{"mobile", constants.FieldTypePhone},
		{"annual_income", constants.FieldTypeCurrency},
		{"filing_fee", constants.FieldTypeCurrency},
		{"dependent_count", constants.FieldTypeNumber},
		{"zip_code", constants.FieldTypeNumber},
		{"is_veteran", constants.FieldTypeCheckbox},
		{"consent_to_contact", constants.FieldTypeCheckbox},
		{"additional_comments", constants.FieldTypeTextarea},
		{"mailing_address", constants.FieldTypeTextarea},
		{"middle_initial", constants.FieldTypeText},
		{"", constants.FieldTypeText},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, ClassifyFieldType(tc.name), "field %q", tc.name)
	}
}
