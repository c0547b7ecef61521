/*
This file contains the WebSocket upgrade handler: rate limiting, token
validation, connection upgrading and client lifecycle startup.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"campusconnect/internal/app/chat"
	"campusconnect/internal/app/user"
	"campusconnect/internal/pkg/auth/jwt"
	"campusconnect/internal/pkg/errs"
	"campusconnect/internal/pkg/limiter"
	"campusconnect/internal/pkg/logx"
	"campusconnect/internal/pkg/resp"
)

// HandleWebSocket upgrades the relay connection of a signed-in user.
//
// The identity token travels in the token query parameter: browser WebSocket
// clients cannot set an Authorization header on the handshake.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			logx.Warn("WebSocket request rejected: Missing token query parameter")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		payload, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket request rejected: Invalid token", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		currentUser := user.User{
			ID:   payload.ID,
			Name: payload.Name,
			Role: payload.Role,
		}

		logx.Info("Attempting to upgrade connection", "user_id", currentUser.ID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Manager, conn, currentUser)

		go client.WritePump()

		// kicks any previous connection of the same user.
		deps.Manager.TrackClient(client)

		logx.Info("WebSocket connection established and client registered", "user_id", currentUser.ID)

		client.ReadPump()
	}
}
