package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const benefitsYAML = `
id: benefits
version: 1.0.0
confirmation_url: /confirmation
field_mappings:
  - field: aus_citizen
    key: persons.personA.aus_citizen
  - field: postcode
    key: _nil
variables:
  aus_citizen:
    definition_period: DAY
  disability_allowance_benefit:
    definition_period: MONTH
result_keys:
  - persons.personA.disability_allowance_benefit, persons.personA.aus_citizen
immediate_exit_keys:
  - persons.personA.exit_flag
redirect_rules:
  - redirect: /eligible
    rules:
      - variable: persons.personA.disability_allowance_benefit
        value: "1"
`

func writeDefinition(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_loadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeDefinition(t, dir, "benefits.yaml", benefitsYAML)

	def, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	require.Equal(t, "benefits", def.ID)
	require.Equal(t, "1.0.0", def.Version)
	require.Equal(t, "/confirmation", def.ConfirmationURL)
	require.Len(t, def.FieldMappings, 2)
	require.Equal(t, "persons.personA.aus_citizen", def.FieldMappings[0].Key)

	// Comma-separated result keys expand into individual entries.
	require.Equal(t, []string{
		"persons.personA.disability_allowance_benefit",
		"persons.personA.aus_citizen",
	}, def.ResultKeys)
	require.Equal(t, []string{"persons.personA.exit_flag"}, def.ImmediateExitKeys)

	require.Len(t, def.Checksum, 64)
	require.Equal(t, path, def.SourceFile)
}

func TestLoader_loadAll(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	writeDefinition(t, dir, "a.yaml", "id: a\nversion: \"1\"\nconfirmation_url: /a\n")
	writeDefinition(t, sub, "b.yml", "id: b\nversion: \"1\"\nconfirmation_url: /b\n")
	writeDefinition(t, dir, "notes.txt", "ignored")

	defs, err := NewLoader().LoadAll([]string{dir})
	require.NoError(t, err)
	require.Len(t, defs, 2)
}

func TestLoader_loadAllPropagatesParseErrors(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "broken.yaml", "id: [unclosed")

	_, err := NewLoader().LoadAll([]string{dir})
	require.Error(t, err)
}

func TestLoader_loadAllMissingDirectory(t *testing.T) {
	_, err := NewLoader().LoadAll([]string{filepath.Join(t.TempDir(), "absent")})
	require.Error(t, err)
}

func TestExpandCSV(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"plain entries pass through", []string{"a.b", "c.d"}, []string{"a.b", "c.d"}},
		{"comma lists expand", []string{"a.b, c.d ,e.f"}, []string{"a.b", "c.d", "e.f"}},
		{"empties dropped", []string{"", " , ", "a"}, []string{"a"}},
		{"nil input", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExpandCSV(tt.in))
		})
	}
}
