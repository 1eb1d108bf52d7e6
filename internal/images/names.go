package images

import (
	"fmt"
	"path/filepath"
	"strings"
)

// checkName rejects names that could escape the store's namespace.
func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid image name %q", name)
	}
	return nil
}
