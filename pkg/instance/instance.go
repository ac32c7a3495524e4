package instance

import (
	"os"

	"github.com/angelmondragon/stackfinderz-backend/pkg/env"
)

// GetID returns the worker identity used for lock ownership and log fields.
// STACKFINDERZ_WORKER_ID wins, then the host name, then a static default.
func GetID() string {
	if id := env.First("", "STACKFINDERZ_WORKER_ID", "WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
