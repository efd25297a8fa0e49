package utils

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ObjectExt is the extension of compiled object files.
const ObjectExt = ".rvmo"

// ObjectPath derives the object file path for a source file.
func ObjectPath(srcPath string) string {
	ext := filepath.Ext(srcPath)
	if ext == "" {
		return srcPath + ObjectExt
	}
	return strings.TrimSuffix(srcPath, ext) + ObjectExt
}

// ReadSource loads a source file as text.
func ReadSource(fs afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read input file %q", path)
	}
	return string(data), nil
}
