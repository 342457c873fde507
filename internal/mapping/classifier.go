package mapping

import (
	"regexp"

	"github.com/formpipe/formpipe/constants"
)

// Keyword classifier for fields that stay unmapped: assigns an input type
// purely from the detected field's own name, independent of the learned
// store. Order matters; first hit wins.
var typePatterns = []struct {
	fieldType constants.FieldType
	expr      *regexp.Regexp
}{
	{constants.FieldTypeEmail, regexp.MustCompile(`(?i)e[-_]?mail`)},
	{constants.FieldTypePhone, regexp.MustCompile(`(?i)phone|mobile|fax|\btel\b`)},
	{constants.FieldTypeDate, regexp.MustCompile(`(?i)date|\bdob\b|birth|expir|issued`)},
	{constants.FieldTypeCurrency, regexp.MustCompile(`(?i)amount|salary|income|wage|fee|price|cost|payment|total`)},
	{constants.FieldTypeCheckbox, regexp.MustCompile(`(?i)^(is|has)[_ ]|agree|consent|accept|opt[_ ]?in`)},
	{constants.FieldTypeNumber, regexp.MustCompile(`(?i)number|\bnum\b|count|qty|quantity|\bage\b|zip|postal|ssn`)},
	{constants.FieldTypeTextarea, regexp.MustCompile(`(?i)description|comment|notes?|details|address|remarks|explain`)},
}

// ClassifyFieldType returns the input type inferred from a field name,
// defaulting to plain text.
func ClassifyFieldType(fieldName string) constants.FieldType {
	for _, tp := range typePatterns {
		if tp.expr.MatchString(fieldName) {
			return tp.fieldType
		}
	}
	return constants.FieldTypeText
}
