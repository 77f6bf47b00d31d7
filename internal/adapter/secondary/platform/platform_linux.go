package platform

import (
	"maclock/internal/adapter/secondary/freedesktop"
	"maclock/internal/domain"
)

func native(cfg domain.Config) (domain.Platform, error) {
	return freedesktop.New(cfg)
}
