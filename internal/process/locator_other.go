//go:build !windows && !linux

package process

import (
	"errors"

	"github.com/unknproject/loader/internal/domain"
)

func snapshot() ([]domain.ProcessHandle, error) {
	return nil, errors.ErrUnsupported
}
