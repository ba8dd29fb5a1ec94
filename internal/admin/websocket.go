package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sagikazarmark/replayr/internal/model"
	"github.com/sagikazarmark/replayr/internal/redact"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket — GET /api/v1/ws. Each connection subscribes to the
// shared Bus directly (internal/bus already owns the register/drop-on-full
// fan-out logic); this handler is just an adapter writing redacted
// interactions to one socket until the client disconnects.
func (a *Admin) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	interactions, cancel := a.state.Bus.Subscribe()
	go readPump(conn, cancel)
	writePump(conn, interactions, cancel)
}

// writePump drains the subscription onto the socket until it's closed
// (by the bus, on drop, or by readPump on client disconnect). cancel is
// idempotent, so calling it here even after readPump already has is safe
// — it guards against leaking the subscription when the write side dies
// first (e.g. a slow/vanished client whose read side hasn't noticed yet).
func writePump(conn *websocket.Conn, interactions <-chan model.Interaction, cancel func()) {
	defer conn.Close()
	defer cancel()
	for i := range interactions {
		data, err := json.Marshal(redact.Interaction(i))
		if err != nil {
			slog.Error("failed to marshal broadcast interaction", "error", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readPump only exists to notice the client going away — the admin feed
// is server-push only, so inbound messages are discarded.
func readPump(conn *websocket.Conn, cancel func()) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
