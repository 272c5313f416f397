package server

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// WebSocketConn abstracts the connection so the event loop can be
// exercised with a fake in tests.
type WebSocketConn interface {
	io.Closer
	WriteJSON(v any) error
	ReadJSON(v any) error
}

var upgrader = websocket.Upgrader{CheckOrigin: checkOrigin}

// checkOrigin accepts same-origin, localhost and private-network
// origins. The recorder runs on a workstation or a studio LAN and is
// never meant to be reachable from the public internet.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Same-origin requests carry no Origin header.
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		slog.Warn("rejected WebSocket connection: bad origin URL", "origin", origin)
		return false
	}

	if originAllowed(u.Hostname(), r.Host) {
		return true
	}
	slog.Warn("rejected WebSocket connection", "origin", origin)
	return false
}

func originAllowed(host, requestHost string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if host == requestHost {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// UpgradeConnection upgrades an HTTP request to a WebSocket.
func UpgradeConnection(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}
