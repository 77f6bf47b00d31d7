//go:build !darwin && !linux

package platform

import (
	"errors"
	"runtime"

	"maclock/internal/domain"
)

func native(domain.Config) (domain.Platform, error) {
	return domain.Platform{}, errors.New("no native platform for " + runtime.GOOS + "; use --platform sim")
}
