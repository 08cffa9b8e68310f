package dtos

import "time"

// JoinResponse is returned by a successful join. JoinURL embeds the access
// token so clients can open the room directly; RoomURL and Token are also
// returned separately for clients that compose their own URL. ExpiresAt is
// the token's hard expiry; tokens are never auto-refreshed, clients re-join
// to obtain a fresh one.
type JoinResponse struct {
	JoinURL   string    `json:"join_url"`
	RoomURL   string    `json:"room_url"`
	RoomName  string    `json:"room_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
