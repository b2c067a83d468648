package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const employeeSchema = `{
  "title": "Employee",
  "properties": {
    "firstName": {"title": "First name", "readOnly": false, "type": "string"},
    "lastName": {"title": "Last name", "readOnly": false, "type": "string"},
    "description": {"title": "Description", "readOnly": false, "type": "string"},
    "manager": {"title": "Manager", "readOnly": false, "type": "string", "format": "uri"}
  },
  "definitions": {},
  "type": "object",
  "$schema": "http://json-schema.org/draft-04/schema#"
}`

func TestParseKeepsDocumentOrder(t *testing.T) {
	d, err := Parse([]byte(employeeSchema))
	require.NoError(t, err)
	require.Equal(t, "Employee", d.Title)
	require.Equal(t, []string{"firstName", "lastName", "description", "manager"}, d.Attributes)
	require.True(t, d.Has("lastName"))
	require.False(t, d.Has("version"))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"title":`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"title":"Employee"}`))
	require.ErrorContains(t, err, "no properties")
}

func TestValidate(t *testing.T) {
	d := New("Employee", "firstName", "lastName", "firstName")
	require.Equal(t, []string{"firstName", "lastName"}, d.Attributes)

	require.NoError(t, d.Validate(map[string]string{"firstName": "Frodo"}))
	require.NoError(t, d.Validate(nil))

	err := d.Validate(map[string]string{"firstName": "Frodo", "role": "x", "age": "1"})
	require.ErrorContains(t, err, "unknown attributes age, role")
}
