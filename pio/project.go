package pio

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
)

var dumpSuffix = regexp.MustCompile(`-dmp\d+$`)

// ProjectBase returns the base name of a dump path with any trailing
// -dmp<digits> removed.
func ProjectBase(dumpPath string) string {
	return dumpSuffix.ReplaceAllString(filepath.Base(dumpPath), "")
}

// ProjectPath returns where the project descriptor of a dump file lives.
func ProjectPath(dumpPath string) string {
	return filepath.Join(filepath.Dir(dumpPath), ProjectBase(dumpPath)+".pio")
}

// WriteProject writes the project descriptor that lets readers find the
// dump series of dumpPath, and returns its path. An existing descriptor is
// replaced.
func WriteProject(dumpPath string) (string, error) {
	path := ProjectPath(dumpPath)
	if filepath.Clean(path) == filepath.Clean(dumpPath) {
		return "", errors.Errorf("project descriptor would overwrite %s", dumpPath)
	}
	content := fmt.Sprintf("DUMP_DIRECTORY .\nDUMP_BASE_NAME %s\n", ProjectBase(dumpPath))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errors.Wrap(err, "writing project descriptor")
	}
	return path, nil
}
