package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldsSchemaAcceptsValidPayload(t *testing.T) {
	payload := []byte(`{
		"fields": [
			{
				"field_name": "applicant_name",
				"field_type": "text",
				"field_value": "Jane Doe",
				"position": {"x": 10, "y": 20},
				"page": 1
			},
			{"field_name": "dob", "field_type": "date"}
		]
	}`)
	assert.NoError(t, ValidateJSONAgainstSchema(BuildFieldsSchema(), payload))
}

func TestFieldsSchemaAcceptsEmptyFieldList(t *testing.T) {
	assert.NoError(t, ValidateJSONAgainstSchema(BuildFieldsSchema(), []byte(`{"fields": []}`)))
}

func TestFieldsSchemaRejectsMissingFieldName(t *testing.T) {
	payload := []byte(`{"fields": [{"field_type": "text"}]}`)
	assert.Error(t, ValidateJSONAgainstSchema(BuildFieldsSchema(), payload))
}

func TestFieldsSchemaRejectsUnknownFieldType(t *testing.T) {
	payload := []byte(`{"fields": [{"field_name": "x", "field_type": "signature_pad"}]}`)
	assert.Error(t, ValidateJSONAgainstSchema(BuildFieldsSchema(), payload))
}

func TestFieldsSchemaRejectsIncompletePosition(t *testing.T) {
	payload := []byte(`{"fields": [{"field_name": "x", "position": {"x": 1}}]}`)
	assert.Error(t, ValidateJSONAgainstSchema(BuildFieldsSchema(), payload))
}

func TestFieldsSchemaRejectsMissingFieldsKey(t *testing.T) {
	assert.Error(t, ValidateJSONAgainstSchema(BuildFieldsSchema(), []byte(`{}`)))
	assert.Error(t, ValidateJSONAgainstSchema(BuildFieldsSchema(), []byte(`not json`)))
}
