package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
laws:
  - slug: ce
    short_name: CE
    name: Constitución Española
    boe_id: BOE-A-1978-31229
oposiciones:
  - slug: auxiliar-age
    name: Auxiliar Administrativo del Estado
    short_name: Auxiliar AGE
    topics:
      - number: 1
        title: La Constitución Española de 1978
        scopes:
          - law: ce
            articles: "1-9"
`), 0o600))

	cat, err := loadCatalog(path)
	require.NoError(t, err)
	require.Len(t, cat.Laws, 1)
	assert.Equal(t, "BOE-A-1978-31229", cat.Laws[0].BoeID)
	require.Len(t, cat.Oposiciones, 1)
	require.Len(t, cat.Oposiciones[0].Topics, 1)
	assert.Equal(t, "1-9", cat.Oposiciones[0].Topics[0].Scopes[0].Articles)
}

func TestLoadCatalog_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("laws:\n  - slug: ce\n    title: typo\n"), 0o600))

	_, err := loadCatalog(path)
	assert.Error(t, err)
}

func TestParseSteps(t *testing.T) {
	n, err := parseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = parseSteps([]string{"3"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseSteps([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "seed", "boe-sync", "verify", "reminders"} {
		assert.True(t, names[want], want)
	}
}
