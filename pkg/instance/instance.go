package instance

import (
	"os"
	"strings"
)

const (
	EnvInstanceID = "STOREFRONT_INSTANCE_ID"
	envDyno       = "DYNO"
)

// GetID identifies this process in logs: the explicit instance id, then the
// platform dyno name, then the hostname.
func GetID() string {
	for _, key := range []string{EnvInstanceID, envDyno} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
