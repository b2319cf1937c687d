// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"go.uber.org/zap"
)

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves store until ctx is done
	StartServer(ctx context.Context, store EntryStore, config ServerConfig, log *zap.Logger) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
