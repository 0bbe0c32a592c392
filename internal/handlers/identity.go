package handlers

import (
	"raffle-system/internal/services"

	"github.com/pocketbase/pocketbase/core"
)

// callerIdentity builds the service-level identity for a request. Guests
// identify themselves with the phone query parameter; authenticated users
// carry their auth record.
func callerIdentity(e *core.RequestEvent) services.Identity {
	return services.AuthIdentity(e.Auth, e.Request.URL.Query().Get("phone"))
}
