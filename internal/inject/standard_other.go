//go:build !windows

package inject

import (
	"errors"
	"fmt"
)

func loadRemote(pid uint32, path string) error {
	return fmt.Errorf("remote library load: %w", errors.ErrUnsupported)
}
