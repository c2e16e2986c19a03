package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudbun/floatbox/pkg/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadColumnMapSpecEmpty(t *testing.T) {
	spec, err := LoadColumnMapSpec("")
	require.NoError(t, err)
	require.Empty(t, spec)
}

func TestLoadColumnMapSpecJSONPassthrough(t *testing.T) {
	raw := `{"direct":{"Work Email":"email"},"concat":[]}`
	spec, err := LoadColumnMapSpec(writeFile(t, "map.json", raw))
	require.NoError(t, err)
	require.Equal(t, raw, spec)
}

func TestLoadColumnMapSpecYAMLConverted(t *testing.T) {
	content := `direct:
  Work Email: email
  Badge: employeeId
concat:
  - sourceColumns: [First, Last]
    separator: " "
    targetField: displayName
`
	spec, err := LoadColumnMapSpec(writeFile(t, "map.yaml", content))
	require.NoError(t, err)

	parsed := schema.ParseColumnMapping(spec)
	require.Equal(t, "email", parsed.Direct["Work Email"])
	require.Equal(t, "employeeId", parsed.Direct["Badge"])
	require.Len(t, parsed.Concat, 1)
	require.Equal(t, []string{"First", "Last"}, parsed.Concat[0].SourceColumns)
	require.Equal(t, "displayName", parsed.Concat[0].TargetField)
}

func TestLoadColumnMapSpecInvalid(t *testing.T) {
	_, err := LoadColumnMapSpec(writeFile(t, "map.json", "{not json"))
	require.Error(t, err)
}

func TestDefaultReviewConfig(t *testing.T) {
	cfg := DefaultReviewConfig()
	require.Equal(t, 4, cfg.Concurrency)
	require.Equal(t, 90, cfg.Risk.DormancyDays)
	require.Equal(t, "all", cfg.Format)
}
