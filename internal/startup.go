package internal

import (
	"context"

	"wagateway/internal/session"
	"wagateway/pkg/log"
)

// Startup restores every persisted session found on disk. A scan failure
// is fatal: serving requests while silently missing persisted sessions
// would let callers recreate identities that already exist.
func Startup(manager *session.Manager) {
	log.Print(nil).Info("Running Startup Tasks")

	if err := manager.RecoverAll(context.Background()); err != nil {
		log.Print(nil).Fatal("Failed to recover persisted sessions: " + err.Error())
	}
}
