package mashup

import (
	"fmt"
	"os/exec"
)

// CheckTools fails when any of the named binaries is missing from PATH.
func CheckTools(binaries ...string) error {
	for _, b := range binaries {
		if _, err := exec.LookPath(b); err != nil {
			return fmt.Errorf("%s not found", b)
		}
	}
	return nil
}
