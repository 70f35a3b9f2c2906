// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package native talks to the native SDK helper process over a
// newline-delimited JSON stream and provides an in-process simulator of it.
package native

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

// Methods of the OS permission surface. They are answered by a reply frame.
const (
	MethodRequestMultiple = "requestMultiple"
	MethodRequest         = "request"
)

// MaxFrameSize bounds one encoded frame.
const MaxFrameSize = 1 << 20

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrUnknownEvent = errors.New("unknown event")
)

// Frame is one line on the wire. Commands carry Method, replies carry the
// command ID without Method, events carry Event.
type Frame struct {
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FrameKind classifies a Frame.
type FrameKind int

const (
	FrameInvalid FrameKind = iota
	FrameCommand
	FrameReply
	FrameEvent
)

// Kind classifies f by the fields it carries.
func (f Frame) Kind() FrameKind {
	switch {
	case f.Event != "" && f.Method == "" && f.ID == "":
		return FrameEvent
	case f.Method != "":
		return FrameCommand
	case f.ID != "":
		return FrameReply
	default:
		return FrameInvalid
	}
}

type initializeParams struct {
	APIKey string `json:"apiKey"`
}

type requestMultipleParams struct {
	Permissions []permission.Permission `json:"permissions"`
}

type requestMultipleResult struct {
	Results permission.Results `json:"results"`
}

type requestParams struct {
	Permission permission.Permission `json:"permission"`
}

type requestResult struct {
	Result any `json:"result"`
}

// NewCommand builds a command frame.
func NewCommand(id, method string, params any) (Frame, error) {
	f := Frame{ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Frame{}, fmt.Errorf("encode %s params: %w", method, err)
		}
		f.Params = raw
	}
	return f, nil
}

// NewReply builds a reply frame for the command id.
func NewReply(id string, result any, callErr error) (Frame, error) {
	f := Frame{ID: id}
	if callErr != nil {
		f.Error = callErr.Error()
		return f, nil
	}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return Frame{}, fmt.Errorf("encode reply: %w", err)
		}
		f.Result = raw
	}
	return f, nil
}

// NewEvent builds an event frame for one of the SDK channels.
func NewEvent(channel string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", channel, err)
	}
	return Frame{Event: channel, Payload: raw}, nil
}

// DecodeEvent turns an event frame into the typed payload the bridge
// consumes on sdk.TopicEvents.
func DecodeEvent(f Frame) (any, error) {
	switch f.Event {
	case sdk.ChannelState:
		var ev sdk.StateChanged
		if err := json.Unmarshal(f.Payload, &ev); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrInvalidFrame, f.Event, err)
		}
		return ev, nil
	case sdk.ChannelPermissions:
		var ev sdk.PermissionsRequested
		if err := json.Unmarshal(f.Payload, &ev); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrInvalidFrame, f.Event, err)
		}
		return ev, nil
	case sdk.ChannelError:
		var ev sdk.ErrorReported
		if err := json.Unmarshal(f.Payload, &ev); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrInvalidFrame, f.Event, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
}

// EncodeEvent is the inverse of DecodeEvent for the helper side.
func EncodeEvent(msg any) (Frame, error) {
	channel, ok := sdk.ChannelOf(msg)
	if !ok {
		return Frame{}, fmt.Errorf("%w: %T", ErrUnknownEvent, msg)
	}
	return NewEvent(channel, msg)
}
