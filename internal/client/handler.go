package client

import (
	"encoding/json"

	"github.com/Rajput-xv/room-T-D/internal/signaling"
)

// Signal is a WebRTC description or candidate forwarded from another peer.
type Signal struct {
	Kind    string
	From    string
	Payload json.RawMessage
}

// MediaToggle reports one member flipping one of their media channels.
type MediaToggle struct {
	Event    string
	Username string
	Enabled  bool
}

// Handler routes server events into typed channels for the command loop.
type Handler struct {
	client *Client

	RoomCreated    chan *signaling.RoomCreatedPayload
	RoomJoined     chan *signaling.RoomJoinedPayload
	AvailableRooms chan *signaling.AvailableRoomsPayload
	MemberJoined   chan *signaling.MemberChangePayload
	MemberLeft     chan *signaling.MemberChangePayload
	MemberKicked   chan *signaling.MemberKickedPayload
	Kicked         chan *signaling.KickedPayload
	RoomEnded      chan *signaling.RoomEndedPayload
	GameStarted    chan *signaling.GameStartedPayload
	ChoiceMade     chan *signaling.ChoiceMadePayload
	WheelSpinning  chan *signaling.WheelSpinningPayload
	WheelStopped   chan *signaling.WheelStoppedPayload
	TurnChanged    chan *signaling.TurnChangedPayload
	Chat           chan *signaling.ChatMessagePayload
	Prompt         chan *signaling.PromptPayload
	MediaToggled   chan *MediaToggle
	Signals        chan *Signal
	Errors         chan string
}

func NewHandler(client *Client) *Handler {
	return &Handler{
		client:         client,
		RoomCreated:    make(chan *signaling.RoomCreatedPayload, 1),
		RoomJoined:     make(chan *signaling.RoomJoinedPayload, 1),
		AvailableRooms: make(chan *signaling.AvailableRoomsPayload, 1),
		MemberJoined:   make(chan *signaling.MemberChangePayload, 8),
		MemberLeft:     make(chan *signaling.MemberChangePayload, 8),
		MemberKicked:   make(chan *signaling.MemberKickedPayload, 8),
		Kicked:         make(chan *signaling.KickedPayload, 1),
		RoomEnded:      make(chan *signaling.RoomEndedPayload, 1),
		GameStarted:    make(chan *signaling.GameStartedPayload, 1),
		ChoiceMade:     make(chan *signaling.ChoiceMadePayload, 4),
		WheelSpinning:  make(chan *signaling.WheelSpinningPayload, 4),
		WheelStopped:   make(chan *signaling.WheelStoppedPayload, 4),
		TurnChanged:    make(chan *signaling.TurnChangedPayload, 4),
		Chat:           make(chan *signaling.ChatMessagePayload, 32),
		Prompt:         make(chan *signaling.PromptPayload, 4),
		MediaToggled:   make(chan *MediaToggle, 8),
		Signals:        make(chan *Signal, 32),
		Errors:         make(chan string, 4),
	}
}

// Start consumes the client's incoming channel until the connection closes.
func (h *Handler) Start() {
	for evt := range h.client.Incoming() {
		h.route(evt)
	}
}

func (h *Handler) route(evt *signaling.Event) {
	switch evt.Type {
	case signaling.EvtRoomCreated:
		decodeInto(evt, h.RoomCreated)
	case signaling.EvtRoomJoined:
		decodeInto(evt, h.RoomJoined)
	case signaling.EvtAvailableRooms:
		decodeInto(evt, h.AvailableRooms)
	case signaling.EvtMemberJoined:
		decodeInto(evt, h.MemberJoined)
	case signaling.EvtMemberLeft:
		decodeInto(evt, h.MemberLeft)
	case signaling.EvtMemberKicked:
		decodeInto(evt, h.MemberKicked)
	case signaling.EvtKicked:
		decodeInto(evt, h.Kicked)
	case signaling.EvtRoomEnded:
		decodeInto(evt, h.RoomEnded)
	case signaling.EvtGameStarted:
		decodeInto(evt, h.GameStarted)
	case signaling.EvtChoiceMade:
		decodeInto(evt, h.ChoiceMade)
	case signaling.EvtWheelSpinning:
		decodeInto(evt, h.WheelSpinning)
	case signaling.EvtWheelStopped:
		decodeInto(evt, h.WheelStopped)
	case signaling.EvtTurnChanged:
		decodeInto(evt, h.TurnChanged)
	case signaling.EvtChatMessage:
		decodeInto(evt, h.Chat)
	case signaling.EvtTruthQuestion, signaling.EvtDareTask:
		decodeInto(evt, h.Prompt)

	case signaling.EvtMemberAudioToggled, signaling.EvtMemberMicToggled, signaling.EvtMemberVideoToggled:
		var p signaling.MemberToggledPayload
		if json.Unmarshal(evt.Payload, &p) == nil {
			select {
			case h.MediaToggled <- &MediaToggle{Event: evt.Type, Username: p.Username, Enabled: p.Enabled}:
			default:
			}
		}

	case signaling.EvtOffer, signaling.EvtAnswer, signaling.EvtICECandidate:
		var p signaling.ForwardedSignalPayload
		if json.Unmarshal(evt.Payload, &p) == nil {
			select {
			case h.Signals <- &Signal{Kind: evt.Type, From: p.From, Payload: p.Payload}:
			default:
			}
		}

	case signaling.EvtError:
		var p signaling.ErrorPayload
		if json.Unmarshal(evt.Payload, &p) == nil {
			select {
			case h.Errors <- p.Message:
			default:
			}
		}
	}
}

// decodeInto parses the payload and delivers it without blocking; a stalled
// consumer loses the event rather than wedging the routing loop.
func decodeInto[T any](evt *signaling.Event, ch chan *T) {
	var p T
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return
	}
	select {
	case ch <- &p:
	default:
	}
}
