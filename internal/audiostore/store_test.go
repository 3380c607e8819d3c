package audiostore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/narration-service/internal/audiostore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_WritesExactBytesAndCreatesDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audio_output", "nested", "temp_audio.mp3")

	err := audiostore.Save(path, []byte{0x00, 0x01})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSave_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ai_explanation.mp3")

	require.NoError(t, audiostore.Save(path, []byte("first")))
	require.NoError(t, audiostore.Save(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_EmptyPath(t *testing.T) {
	t.Parallel()

	err := audiostore.Save("", []byte("x"))
	require.ErrorIs(t, err, audiostore.ErrOutputPathEmpty)
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, audiostore.EnsureDir(dir))
	require.NoError(t, audiostore.EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestIsAudioFile(t *testing.T) {
	t.Parallel()

	assert.True(t, audiostore.IsAudioFile("out.mp3"))
	assert.True(t, audiostore.IsAudioFile("OUT.MP3"))
	assert.True(t, audiostore.IsAudioFile("out.wav"))
	assert.False(t, audiostore.IsAudioFile("out.txt"))
	assert.False(t, audiostore.IsAudioFile("out"))
}

func TestAudioFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lesson 1.mp3", audiostore.AudioFileName("/tmp/lesson 1.ipynb"))
	assert.Equal(t, "voice_func.mp3", audiostore.AudioFileName("voice_func.py"))
	assert.Equal(t, "a_b.mp3", audiostore.AudioFileName("a:b.py"))
	assert.Equal(t, "audio.mp3", audiostore.AudioFileName(""))
}
