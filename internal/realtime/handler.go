package realtime

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/templui/habitflywheel/internal/ctxkeys"
)

// Handler upgrades authenticated requests and streams the user's events.
func Handler(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := ctxkeys.UserID(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			hub.logger.Warn("websocket accept failed", "error", err, "user_id", userID)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, userID, conn).Run(r.Context())
	}
}
