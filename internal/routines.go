package internal

import (
	"os"
	"strconv"

	"github.com/robfig/cron/v3"

	"wagateway/internal/session"
	"wagateway/pkg/log"
)

func Routines(c *cron.Cron, manager *session.Manager) {
	log.Print(nil).Info("Running Routine Tasks")

	// Message history caches buffer in memory and flush on a fixed beat.
	_, err := c.AddFunc("*/10 * * * * *", func() {
		manager.FlushHistories()
	})
	if err != nil {
		log.Print(nil).WithField("error", err.Error()).Error("Failed to add history flush cron job")
	}

	if isHealthCheckEnabled() {
		_, err := c.AddFunc("0 */5 * * * *", func() {
			for _, id := range manager.List() {
				sess, ok := manager.Get(id)
				if !ok {
					continue
				}
				if !sess.IsConnected() || !sess.IsLoggedIn() {
					log.Session(id).Warn("Session unhealthy")
				}
			}
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add health check cron job")
		}
	}

	c.Start()
}

func isHealthCheckEnabled() bool {
	envValue, ok := os.LookupEnv("ENABLE_HEALTH_CHECK_CRON")
	if !ok {
		return true
	}
	enabled, err := strconv.ParseBool(envValue)
	if err != nil {
		log.Print(nil).Warn("Invalid ENABLE_HEALTH_CHECK_CRON value; defaulting to enabled")
		return true
	}
	return enabled
}
