package httpserver

import (
	"context"
	"time"
)

// ShutdownTimeout bounds how long in-flight requests may run after a stop
// signal before the listener is torn down.
var ShutdownTimeout = 10 * time.Second

// StopGracefully shuts the server down with the package shutdown timeout.
func StopGracefully(srv *Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
