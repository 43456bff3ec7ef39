package build

import (
	"os"
	"path/filepath"

	"github.com/teranos/avbindgen/errors"
)

// WriteArtifact replaces path with text in one step: the text goes to a
// temporary file in the same directory, which is then renamed over path.
// Readers see the old artifact or the new one, never a partial write.
func WriteArtifact(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WrapWrite(err, "failed to create output directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WrapWrite(err, "failed to create temporary artifact")
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return errors.WrapWrite(err, "failed to write artifact")
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapWrite(err, "failed to write artifact")
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.WrapWrite(err, "failed to write artifact")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapWrite(err, "failed to replace "+path)
	}
	return nil
}
