package server

import (
	"encoding/json"

	exterrors "github.com/vango-dev/extstore/internal/errors"
	"github.com/vango-dev/extstore/pkg/reactive"
)

// Frame types. Every WebSocket message is a JSON object with a "type".
const (
	FrameEvent = "event"
	FrameHello = "hello"
	FramePatch = "patch"
	FrameError = "error"
)

// ClientFrame is a message from the browser.
type ClientFrame struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Value  string `json:"value"`
}

// ServerFrame is a message to the browser. Only the fields used by its
// Type are set.
type ServerFrame struct {
	Type    string           `json:"type"`
	Session string           `json:"session,omitempty"`
	HTML    string           `json:"html,omitempty"`
	Patches []reactive.Patch `json:"patches,omitempty"`
	Code    string           `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`
}

func decodeClientFrame(msg []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		return f, exterrors.New("E060").Wrap(err)
	}
	if f.Type != FrameEvent {
		return f, exterrors.New("E060").WithDetailf("unknown frame type %q", f.Type)
	}
	if f.Target == "" {
		return f, exterrors.New("E060").WithDetail("event has no target")
	}
	return f, nil
}

func helloFrame(session, html string) ServerFrame {
	return ServerFrame{Type: FrameHello, Session: session, HTML: html}
}

func patchFrame(patches []reactive.Patch) ServerFrame {
	return ServerFrame{Type: FramePatch, Patches: patches}
}

// errorFrame reports err to the client. Uncoded errors are sent as E004
// so internal messages stay on the server.
func errorFrame(err error) ServerFrame {
	code := exterrors.Code(err)
	if code == "" {
		return ServerFrame{Type: FrameError, Code: "E004", Message: "internal error"}
	}
	return ServerFrame{Type: FrameError, Code: code, Message: err.Error()}
}
