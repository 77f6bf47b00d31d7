package platform

import (
	"maclock/internal/adapter/secondary/macos"
	"maclock/internal/domain"
)

func native(cfg domain.Config) (domain.Platform, error) {
	return macos.New(cfg), nil
}
