package moodle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEnvironmentXML = `<COMPATIBILITY_MATRIX>
  <MOODLE version="4.1">
    <DATABASE level="required">
      <VENDOR name="mariadb" version="10.6.7" />
      <VENDOR name="mysql" version="5.7.33" />
      <VENDOR name="postgres" version="13" />
    </DATABASE>
    <PHP version="7.4.3" level="required" />
  </MOODLE>
</COMPATIBILITY_MATRIX>
`

func TestNormalizeServerVersion(t *testing.T) {
	assert.Equal(t, "5.7.29", NormalizeServerVersion("5.7.29-log"))
	assert.Equal(t, "5.6.47.0", NormalizeServerVersion("5.6.47.0"))
	assert.Equal(t, "10.6.12", NormalizeServerVersion("10.6.12-MariaDB"))
	assert.Equal(t, "8.0.32", NormalizeServerVersion(" 8.0.32 "))
	assert.Equal(t, "", NormalizeServerVersion("unknown"))
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("5.6", "5.7.33"))
	assert.Equal(t, 1, CompareVersions("8.0.32", "5.7"))
	assert.Equal(t, 0, CompareVersions("5.7.0", "5.7"))
	assert.Equal(t, -1, CompareVersions("5.7.29-log", "5.7.33"))
}

func TestRelaxDatabaseRequirementLowersOlderServer(t *testing.T) {
	out, changed := RelaxDatabaseRequirement(sampleEnvironmentXML, "5.7.29-log")
	assert.True(t, changed)
	assert.Contains(t, out, `<VENDOR name="mysql" version="5.7.29" />`)
	// MariaDB requirement is newer than the server too, so it drops as well.
	assert.Contains(t, out, `<VENDOR name="mariadb" version="5.7.29" />`)
	// Unrelated vendors are untouched.
	assert.Contains(t, out, `<VENDOR name="postgres" version="13" />`)
}

func TestRelaxDatabaseRequirementNoopWhenServerNewEnough(t *testing.T) {
	out, changed := RelaxDatabaseRequirement(sampleEnvironmentXML, "10.11.2-MariaDB")
	assert.False(t, changed)
	assert.Equal(t, sampleEnvironmentXML, out)
}

func TestRelaxDatabaseRequirementUnparseableVersion(t *testing.T) {
	out, changed := RelaxDatabaseRequirement(sampleEnvironmentXML, "garbage")
	assert.False(t, changed)
	assert.Equal(t, sampleEnvironmentXML, out)
}

func TestRelaxEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "environment.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleEnvironmentXML), 0o644))

	changed, err := RelaxEnvironmentFile(path, "5.6.47.0")
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<VENDOR name="mysql" version="5.6.47.0" />`)

	changed, err = RelaxEnvironmentFile(path, "5.6.47.0")
	require.NoError(t, err)
	assert.False(t, changed)
}
