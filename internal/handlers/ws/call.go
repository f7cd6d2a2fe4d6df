package ws

import (
	"encoding/json"
	"fmt"
)

// Call signaling is a pure relay: the server forwards SDP/ICE blobs and
// call-state toggles between two users without inspecting or storing them.

// CallRelayPayload is what the target user receives for every call event.
type CallRelayPayload struct {
	From   uint            `json:"from"`
	ChatID uint            `json:"chatId,omitempty"`
	Signal json.RawMessage `json:"signal,omitempty"`
	Flag   *bool           `json:"flag,omitempty"`
}

// MessageCallSignal carries an offer or ICE candidate to another user.
type MessageCallSignal struct {
	To     uint            `json:"to"`
	ChatID uint            `json:"chatId"`
	Signal json.RawMessage `json:"signal"`
}

func (msg *MessageCallSignal) GetType() string {
	return "call-signal"
}

func (msg *MessageCallSignal) Process(ctx *MessageContext) error {
	return relayCall(ctx, msg.To, "call-signal", CallRelayPayload{
		From:   ctx.UserID,
		ChatID: msg.ChatID,
		Signal: msg.Signal,
	})
}

// MessageCallAnswer carries the answer (or rejection) back to the caller.
type MessageCallAnswer struct {
	To       uint            `json:"to"`
	ChatID   uint            `json:"chatId"`
	Accepted bool            `json:"accepted"`
	Signal   json.RawMessage `json:"signal"`
}

func (msg *MessageCallAnswer) GetType() string {
	return "call-answer"
}

func (msg *MessageCallAnswer) Process(ctx *MessageContext) error {
	accepted := msg.Accepted
	return relayCall(ctx, msg.To, "call-answer", CallRelayPayload{
		From:   ctx.UserID,
		ChatID: msg.ChatID,
		Signal: msg.Signal,
		Flag:   &accepted,
	})
}

// MessageCallAudioToggle tells the peer the sender muted or unmuted.
type MessageCallAudioToggle struct {
	To      uint `json:"to"`
	Enabled bool `json:"enabled"`
}

func (msg *MessageCallAudioToggle) GetType() string {
	return "call-audio-toggle"
}

func (msg *MessageCallAudioToggle) Process(ctx *MessageContext) error {
	enabled := msg.Enabled
	return relayCall(ctx, msg.To, "call-audio-toggle", CallRelayPayload{
		From: ctx.UserID,
		Flag: &enabled,
	})
}

// MessageCallVideoToggle tells the peer the sender turned video on or off.
type MessageCallVideoToggle struct {
	To      uint `json:"to"`
	Enabled bool `json:"enabled"`
}

func (msg *MessageCallVideoToggle) GetType() string {
	return "call-video-toggle"
}

func (msg *MessageCallVideoToggle) Process(ctx *MessageContext) error {
	enabled := msg.Enabled
	return relayCall(ctx, msg.To, "call-video-toggle", CallRelayPayload{
		From: ctx.UserID,
		Flag: &enabled,
	})
}

func relayCall(ctx *MessageContext, to uint, event string, payload CallRelayPayload) error {
	if to == 0 {
		return fmt.Errorf("to is required")
	}
	if !ctx.Hub.IsOnline(to) {
		return fmt.Errorf("user %d is not connected", to)
	}

	ctx.Hub.EmitToUser(to, event, payload)
	return nil
}
