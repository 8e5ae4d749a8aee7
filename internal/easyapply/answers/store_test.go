package answers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")

	s, err := OpenStore(path)
	require.NoError(t, err)
	assert.Empty(t, s.Saved())

	s.Record("text", "Current city", "Berlin")
	s.Record("choice", "Work authorization?", "Yes")

	reloaded, err := OpenStore(path)
	require.NoError(t, err)
	saved := reloaded.Saved()
	require.Len(t, saved, 2)
	assert.Equal(t, "Berlin", saved[0].Answer)
}

func TestStoreUpsertsByNormalizedText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	s, err := OpenStore(path)
	require.NoError(t, err)

	s.Record("text", "Current city", "Berlin")
	s.Record("text", "Current City?", "Hamburg") // same question, reworded

	saved := s.Saved()
	require.Len(t, saved, 1, "reworded variants collapse into one entry")
	assert.Equal(t, "Current city", saved[0].QuestionText)
	assert.Equal(t, "Hamburg", saved[0].Answer, "the latest answer wins")
}

func TestStoreCorrectedAnswerSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	s, err := OpenStore(path)
	require.NoError(t, err)

	s.Record("text", "Phone number", "not-a-number")
	s.Record("text", "Phone number", "+49 30 1234567") // regenerated after a validation retry

	reloaded, err := OpenStore(path)
	require.NoError(t, err)
	saved := reloaded.Saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "+49 30 1234567", saved[0].Answer)
}

func TestOpenStoreMissingFileIsEmpty(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "nope", "answers.yaml"))
	require.NoError(t, err)
	assert.Empty(t, s.Saved())
}

func TestOpenStoreRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := OpenStore(path)
	assert.Error(t, err)
}
