package instance

import (
	"os"

	"github.com/angelmondragon/dispo-backend/pkg/env"
)

// GetID identifies this process in logs. DISPO_INSTANCE_ID wins over the platform's DYNO;
// the host name is the last resort before fallback.
func GetID(fallback string) string {
	if id := env.First("DISPO_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
