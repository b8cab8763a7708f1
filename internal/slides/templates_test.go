package slides

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docmakerhq/docmaker/pkg/docmaker"
)

func TestEmbeddedDefaults(t *testing.T) {
	lib, err := NewLibrary("", zaptest.NewLogger(t))
	require.NoError(t, err)

	for _, kind := range []string{docmaker.KindProposal, docmaker.KindDeck} {
		tmpl, err := lib.Get(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, tmpl.Kind)
		assert.NotEmpty(t, tmpl.Sections)
		assert.Greater(t, tmpl.SlideCount(), 5)
	}

	_, err = lib.Get("memo")
	assert.Error(t, err)
}

const overrideYAML = `kind: proposal
name: Two-pager
sections:
  - name: Summary
    layout: title
    slides: 1
  - name: Plan
    layout: content
    slides: 1
`

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proposal.yaml"), []byte(overrideYAML), 0o644))

	lib, err := NewLibrary(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	tmpl, err := lib.Get(docmaker.KindProposal)
	require.NoError(t, err)
	assert.Equal(t, "Two-pager", tmpl.Name)
	assert.Equal(t, 2, tmpl.SlideCount())

	// Kinds without overrides keep the embedded default.
	deck, err := lib.Get(docmaker.KindDeck)
	require.NoError(t, err)
	assert.Equal(t, "Campaign deck", deck.Name)
}

func TestBadOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("kind: ["), 0o644))

	_, err := NewLibrary(dir, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestTemplateWithoutKind(t *testing.T) {
	_, err := parseTemplate([]byte("name: Nameless\nsections:\n  - name: A\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kind")
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	lib, err := NewLibrary(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, lib.Watch())
	defer lib.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "proposal.yaml"), []byte(overrideYAML), 0o644))

	require.Eventually(t, func() bool {
		tmpl, err := lib.Get(docmaker.KindProposal)
		return err == nil && tmpl.Name == "Two-pager"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchKeepsLastGoodSetOnBrokenEdit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proposal.yaml"), []byte(overrideYAML), 0o644))

	lib, err := NewLibrary(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, lib.Watch())
	defer lib.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "proposal.yaml"), []byte("kind: ["), 0o644))

	// The broken edit never evicts the last good template.
	time.Sleep(time.Second)
	tmpl, err := lib.Get(docmaker.KindProposal)
	require.NoError(t, err)
	assert.Equal(t, "Two-pager", tmpl.Name)
}
