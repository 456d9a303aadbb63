package daily

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/example/dailylove/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	names := []string{}
	for _, tr := range c.Tracks() {
		names = append(names, tr.Name)
	}
	assert.Equal(t, []string{"love-actions", "basic-actions", "devotional"}, names)

	love, err := c.Track("love-actions")
	require.NoError(t, err)
	assert.Equal(t, PolicyExplicit, love.Policy)
	assert.Equal(t, 365, love.MaxDay)
	require.NotNil(t, love.Personalized)
	assert.ElementsMatch(t, []string{"words", "time", "gifts", "service", "touch"}, love.Personalized.Tags())

	basic, err := c.Track("basic-actions")
	require.NoError(t, err)
	assert.Nil(t, basic.Personalized)

	devotional, err := c.Track("devotional")
	require.NoError(t, err)
	assert.Equal(t, PolicyElapsed, devotional.Policy)
}

const sampleBank = `name: sample
items:
  - id: 1
    category: words
    body: {en: "one"}
  - id: 2
    category: time
    body: {en: "two"}
`

func TestLoadCatalogSeparatePersonalizedBank(t *testing.T) {
	fsys := fstest.MapFS{
		"conf/tracks.yaml": {Data: []byte(`tracks:
  - name: custom
    policy: explicit
    max_day: 30
    bank: flat.yaml
    personalized_bank: tagged/bank.yaml
`)},
		"conf/flat.yaml":        {Data: []byte("name: flat\nitems:\n  - id: 1\n    body: {en: \"flat\"}\n")},
		"conf/tagged/bank.yaml": {Data: []byte(sampleBank)},
	}
	c, err := LoadCatalog(fsys, "conf/tracks.yaml")
	require.NoError(t, err)
	tr, err := c.Track("custom")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Bank.Len())
	assert.Equal(t, 2, tr.Personalized.Len())
}

func TestLoadCatalogEmptyBankIsFatal(t *testing.T) {
	fsys := fstest.MapFS{
		"tracks.yaml": {Data: []byte("tracks:\n  - name: t\n    policy: explicit\n    max_day: 3\n    bank: empty.yaml\n")},
		"empty.yaml":  {Data: []byte("name: empty\nitems: []\n")},
	}
	_, err := LoadCatalog(fsys, "tracks.yaml")
	assert.True(t, errors.Is(err, apperr.ErrEmptyContentBank))
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracks.yaml"), []byte(`tracks:
  - name: mine
    title: Mine
    policy: elapsed
    max_day: 7
    bank: sample.yaml
    personalized: true
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.yaml"), []byte(sampleBank), 0o600))

	c, err := LoadCatalogFile(filepath.Join(dir, "tracks.yaml"))
	require.NoError(t, err)
	tr, err := c.Track("mine")
	require.NoError(t, err)
	assert.Equal(t, PolicyElapsed, tr.Policy)
	assert.Same(t, tr.Bank, tr.Personalized)

	_, err = LoadCatalogFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
