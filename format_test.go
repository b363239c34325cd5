package sitegen_test

import (
	"path/filepath"
	"testing"

	"github.com/fwojciec/sitegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	t.Run("accepts every supported format", func(t *testing.T) {
		t.Parallel()
		for _, f := range sitegen.Formats() {
			got, err := sitegen.ParseFormat(string(f))
			require.NoError(t, err)
			assert.Equal(t, f, got)
		}
	})

	t.Run("rejects unknown format with configuration error", func(t *testing.T) {
		t.Parallel()
		_, err := sitegen.ParseFormat("react_project")
		assert.ErrorIs(t, err, sitegen.ErrConfiguration)
	})
}

func TestTargetDir(t *testing.T) {
	t.Parallel()

	t.Run("is deterministic per format and owner", func(t *testing.T) {
		t.Parallel()
		a := sitegen.TargetDir("/out", sitegen.FormatMultiFile, 42)
		b := sitegen.TargetDir("/out", sitegen.FormatMultiFile, 42)
		assert.Equal(t, a, b)
		assert.Equal(t, filepath.Join("/out", "multi_file_42"), a)
	})

	t.Run("differs across formats", func(t *testing.T) {
		t.Parallel()
		assert.NotEqual(t,
			sitegen.TargetName(sitegen.FormatSingleFile, 7),
			sitegen.TargetName(sitegen.FormatToolProject, 7))
	})
}

func TestSessionState_Terminal(t *testing.T) {
	t.Parallel()
	assert.False(t, sitegen.SessionActive.Terminal())
	assert.True(t, sitegen.SessionCompleted.Terminal())
	assert.True(t, sitegen.SessionCancelled.Terminal())
	assert.True(t, sitegen.SessionFailed.Terminal())
	assert.Equal(t, "cancelled", sitegen.SessionCancelled.String())
}
