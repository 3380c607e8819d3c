// Package audiostore persists synthesized audio on the local filesystem.
package audiostore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// File names and patterns.
const (
	tempFilePattern        = ".audio-*.tmp"
	invalidCharReplacement = "_"
	dot                    = "."
)

// Audio file extensions.
const (
	ExtMP3  = ".mp3"
	extAAC  = ".aac"
	extFLAC = ".flac"
	extM4A  = ".m4a"
	extOGG  = ".ogg"
	extOPUS = ".opus"
	extWAV  = ".wav"
)

// Error message and format string constants.
const (
	errFmtFailedToCreateDir  = "failed to create directory %s: %w"
	errFmtFailedToCreateTemp = "failed to create temp file in %s: %w"
	errFmtFailedToWrite      = "failed to write audio file %s: %w"
	errFmtFailedToRename     = "failed to move audio file into place at %s: %w"
)

// ErrOutputPathEmpty is returned when no destination path is given.
var ErrOutputPathEmpty = errors.New("output path cannot be empty")

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, dirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
		}
	}

	return nil
}

// Save writes data verbatim to path. The parent directory is created when
// missing and the file is written to a temporary sibling first, then renamed,
// so readers never observe a partial file.
func Save(path string, data []byte) error {
	if path == "" {
		return ErrOutputPathEmpty
	}

	dir := filepath.Dir(path)

	err := EnsureDir(dir)
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf(errFmtFailedToCreateTemp, dir, err)
	}

	tempName := tempFile.Name()

	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()

	if writeErr == nil {
		writeErr = closeErr
	}

	if writeErr == nil {
		writeErr = os.Chmod(tempName, filePermissions)
	}

	if writeErr != nil {
		_ = os.Remove(tempName)

		return fmt.Errorf(errFmtFailedToWrite, path, writeErr)
	}

	err = os.Rename(tempName, path)
	if err != nil {
		_ = os.Remove(tempName)

		return fmt.Errorf(errFmtFailedToRename, path, err)
	}

	return nil
}

// IsAudioFile checks if a filename has a common audio file extension.
func IsAudioFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtMP3, extWAV, extFLAC, extOGG, extM4A, extAAC, extOPUS:
		return true
	default:
		return false
	}
}

// SanitizeFilename removes or replaces characters that are invalid in most filesystems.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", invalidCharReplacement,
		">", invalidCharReplacement,
		":", invalidCharReplacement,
		"\"", invalidCharReplacement,
		"/", invalidCharReplacement,
		"\\", invalidCharReplacement,
		"|", invalidCharReplacement,
		"?", invalidCharReplacement,
		"*", invalidCharReplacement,
	)

	return replacer.Replace(filename)
}

// AudioFileName derives an MP3 file name from a source file name, e.g.
// "lesson 1.ipynb" becomes "lesson 1.mp3".
func AudioFileName(source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	if base == "" || base == dot || base == string(filepath.Separator) {
		base = "audio"
	}

	return SanitizeFilename(base) + ExtMP3
}
