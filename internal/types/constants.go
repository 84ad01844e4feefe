package types

const ContextUserKey = "user"

// TokenCookie carries the session token for browser clients.
const TokenCookie = "token"

// Realtime frame types sent on an event channel.
const (
	FrameConnected      = "connected"
	FrameNewMessage     = "new_message"
	FrameDeleteMessage  = "delete_message"
	FramePinMessage     = "pin_message"
	FrameReactionUpdate = "reaction_update"
	FrameUserTyping     = "user_typing"
	FrameUserStopTyping = "user_stop_typing"
)

// Frame types a websocket client may send.
const (
	ClientTyping     = "typing"
	ClientStopTyping = "stop_typing"
)
