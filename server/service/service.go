// Package service holds the implementation of the mistri interface and HTTP
// endpoints for the API
package service

import (
	"github.com/WatchBeam/clock"
	kitlog "github.com/go-kit/log"
	"github.com/mistriapp/mistri/server/config"
	"github.com/mistriapp/mistri/server/mistri"
)

// Service is the struct implementing mistri.Service. Create a new one with
// NewService.
type Service struct {
	ds     mistri.Datastore
	logger kitlog.Logger
	config config.MistriConfig
	clock  clock.Clock
}

// NewService creates a new service from the config struct
func NewService(
	ds mistri.Datastore,
	logger kitlog.Logger,
	config config.MistriConfig,
	c clock.Clock,
) (mistri.Service, error) {
	svc := &Service{
		ds:     ds,
		logger: logger,
		config: config,
		clock:  c,
	}
	return svc, nil
}
