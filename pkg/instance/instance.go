package instance

import (
	"os"
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/env"
)

const fallbackID = "local"

var (
	hostOnce sync.Once
	hostname string
)

// GetID names this process for logs and lock tokens: STOREFRONT_INSTANCE_ID,
// then WORKER_ID, then the pod/host name.
func GetID() string {
	if id := env.Get("", "STOREFRONT_INSTANCE_ID", "WORKER_ID"); id != "" {
		return id
	}
	hostOnce.Do(func() {
		hostname, _ = os.Hostname()
	})
	if hostname != "" {
		return hostname
	}
	return fallbackID
}
