package bootstrap

import (
	"fmt"
	"os"
	"strings"
)

// CheckFiles verifies that the application files the manifest names are
// present before any install is attempted. Missing files are fatal: the
// bootstrap would otherwise prepare an environment for an app that is not
// there.
func CheckFiles(files []string) error {
	var missing []string
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			missing = append(missing, file)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required files: %s", strings.Join(missing, ", "))
	}
	return nil
}
