package pattern

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func patternsOf(s *Store) []string {
	var out []string
	for _, p := range s.Patterns() {
		out = append(out, p.Pattern)
	}
	return out
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10-general.json", `{
		"zz_greeting": {"pattern": "^hello$", "response": "hi!"},
		"aa_rules":    {"pattern": "where are the rules", "response": "#rules"},
		"bad_type":    {"pattern": 42, "response": "nope"},
		"bad_regex":   {"pattern": "([a-z", "response": "nope"},
		"not_object":  "just a string"
	}`)
	writeFile(t, dir, "20-extra.yaml", `
second:
  pattern: how do i join
  response: Use the invite link.
first:
  pattern: ^hello$
  response: hello again!
missing:
  pattern: lonely
`)
	writeFile(t, dir, "!disabled.json", `{"x": {"pattern": "disabled", "response": "never"}}`)
	writeFile(t, dir, "notes.txt", `{"x": {"pattern": "ignored", "response": "never"}}`)
	writeFile(t, dir, "30-broken.json", `{"x": `)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	store, report, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"^hello$", "where are the rules", "how do i join"}, patternsOf(store))
	resp, _ := store.Lookup("^hello$")
	assert.Equal(t, "hello again!", resp, "later document overrides the response")

	assert.Equal(t, 4, report.Loaded)
	assert.Equal(t, 4, report.Invalid)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 3, report.Files)
	assert.Equal(t, 1, report.FileErrors)
	assert.Equal(t, store.Size(), report.Loaded-report.Duplicates)

	keys := map[string]error{}
	for _, r := range report.Rejections {
		keys[r.Key] = r.Err
	}
	assert.ErrorIs(t, keys["bad_type"], ErrMissingPattern)
	assert.ErrorIs(t, keys["bad_regex"], ErrInvalidRegex)
	assert.ErrorIs(t, keys["not_object"], errNotObject)
	assert.ErrorIs(t, keys["missing"], ErrMissingResponse)
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, _, err := LoadDir(filepath.Join(t.TempDir(), "absent"), LoadOptions{})
	assert.ErrorIs(t, err, ErrNoDirectory)
}

func TestLoadDir_Empty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.yaml", "")

	store, report, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)
	assert.Zero(t, store.Size())
	assert.Equal(t, 1, report.Files)
	assert.Zero(t, report.FileErrors)
}

func TestLoadDir_YAMLNotMapping(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "list.yml", "- a\n- b\n")

	_, report, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.FileErrors)
}

func TestIsDocument(t *testing.T) {
	assert.True(t, IsDocument("a.json"))
	assert.True(t, IsDocument("a.YAML"))
	assert.True(t, IsDocument("a.yml"))
	assert.False(t, IsDocument("a.txt"))
	assert.False(t, IsDocument("json"))
}
