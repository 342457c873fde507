package constants

// FieldType is the canonical input type assigned to a detected form field.
type FieldType string

const (
	FieldTypeDate     FieldType = "date"
	FieldTypeEmail    FieldType = "email"
	FieldTypePhone    FieldType = "phone"
	FieldTypeNumber   FieldType = "number"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeText     FieldType = "text"
)

var allFieldTypes = []FieldType{
	FieldTypeDate,
	FieldTypeEmail,
	FieldTypePhone,
	FieldTypeNumber,
	FieldTypeCurrency,
	FieldTypeCheckbox,
	FieldTypeTextarea,
	FieldTypeText,
}

// FieldTypesAsStrings returns the canonical field types as plain strings,
// e.g. for schema enums.
func FieldTypesAsStrings() []string {
	result := make([]string, len(allFieldTypes))
	for i, ft := range allFieldTypes {
		result[i] = string(ft)
	}
	return result
}
