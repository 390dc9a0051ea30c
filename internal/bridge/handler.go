package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
)

// ServeWS handles the WebSocket handshake. A session token must accompany
// the upgrade request; absent or invalid, the handshake fails outright and
// no events are ever accepted on the connection.
func (d *Dispatcher) ServeWS(c echo.Context) error {
	token := handshakeToken(c)

	claims, err := d.auth.VerifySessionToken(c.Request().Context(), token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ackError(Frame{Event: "handshake"}, err).Error)
	}
	u, err := d.users.ResolveSession(c.Request().Context(), claims.UserID, token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ackError(Frame{Event: "handshake"}, err).Error)
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true, // In production, check origin.
	})
	if err != nil {
		slog.Error("failed to upgrade connection to websocket", "error", err)
		return err
	}

	client := NewClient(conn, u.ID, token, d.bridge, d)
	d.bridge.Register(client)

	// Reconnecting users may already be members of rooms; seed their
	// connection into those broadcast groups so membership and groups agree
	// from the first frame.
	if rooms, err := d.rooms.FetchMemberRooms(c.Request().Context(), u.ID); err == nil {
		for i := range rooms {
			d.bridge.JoinGroup(rooms[i].ID, u.ID)
		}
	} else {
		slog.Error("failed to seed broadcast groups", "user", u.ID, "error", err)
	}

	// The request context dies with this handler; the pumps outlive it.
	go client.writePump()
	go client.readPump(context.Background())

	return nil
}

// handshakeToken pulls the session token from the query string or the
// Authorization header.
func handshakeToken(c echo.Context) string {
	if token := c.QueryParam("token"); token != "" {
		return token
	}
	header := c.Request().Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
