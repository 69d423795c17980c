// Package signaling is the realtime transport between clients and the game
// server. A single hub goroutine owns dispatch so events for a room apply in
// arrival order; delivery fans out through per-connection write pumps.
package signaling

import (
	"encoding/json"
	"time"

	"github.com/Rajput-xv/room-T-D/internal/game"
)

// Client to server event names.
const (
	EvtCreateRoom        = "create-room"
	EvtJoinRoom          = "join-room"
	EvtLeaveRoom         = "leave-room"
	EvtGetAvailableRooms = "get-available-rooms"
	EvtStartGame         = "start-game"
	EvtChooseTruthOrDare = "choose-truth-or-dare"
	EvtSpinWheel         = "spin-wheel"
	EvtNextTurn          = "next-turn"
	EvtEndRoom           = "end-room"
	EvtSendMessage       = "send-message"
	EvtUpdateActivity    = "update-activity"
	EvtSelectTruth       = "select-truth"
	EvtSelectDare        = "select-dare"
	EvtToggleMedia       = "toggle-media"
	EvtToggleAudio       = "toggle-audio"
	EvtToggleMic         = "toggle-mic"
	EvtToggleVideo       = "toggle-video"
	EvtOffer             = "webrtc-offer"
	EvtAnswer            = "webrtc-answer"
	EvtICECandidate      = "webrtc-ice-candidate"
)

// Server to client event names.
const (
	EvtRoomCreated        = "room-created"
	EvtRoomJoined         = "room-joined"
	EvtAvailableRooms     = "available-rooms"
	EvtMemberJoined       = "member-joined"
	EvtMemberLeft         = "member-left"
	EvtMemberKicked       = "member-kicked"
	EvtKicked             = "kicked"
	EvtRoomEnded          = "room-ended"
	EvtGameStarted        = "game-started"
	EvtChoiceMade         = "choice-made"
	EvtWheelSpinning      = "wheel-spinning"
	EvtWheelStopped       = "wheel-stopped"
	EvtTurnChanged        = "turn-changed"
	EvtChatMessage        = "chat-message"
	EvtTruthQuestion      = "truth-question"
	EvtDareTask           = "dare-task"
	EvtMemberAudioToggled = "member-audio-toggled"
	EvtMemberMicToggled   = "member-mic-toggled"
	EvtMemberVideoToggled = "member-video-toggled"
	EvtError              = "error"
)

// Event is the wire envelope for every message in both directions. Payloads
// are decoded into the typed structs below at the hub boundary; unknown
// event names are rejected there.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// conn is the connection the event arrived on; never serialized.
	conn *Conn
}

// NewEvent builds an outbound event, marshaling v as the payload.
func NewEvent(eventType string, v any) *Event {
	if v == nil {
		return &Event{Type: eventType}
	}
	payload, _ := json.Marshal(v)
	return &Event{Type: eventType, Payload: payload}
}

// Inbound payloads.

type CreateRoomPayload struct {
	RoomName string `json:"roomName"`
	Username string `json:"username"`
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type ChoosePayload struct {
	RoomID string      `json:"roomId"`
	Choice game.Choice `json:"choice"`
}

type ChatPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type TogglePayload struct {
	RoomID  string            `json:"roomId"`
	Channel game.MediaChannel `json:"channel,omitempty"`
	Enabled bool              `json:"enabled"`
}

// SignalPayload carries an opaque WebRTC description or candidate to a
// specific connection; the relay never inspects Payload.
type SignalPayload struct {
	RoomID  string          `json:"roomId"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound payloads.

type RoomCreatedPayload struct {
	RoomID   string     `json:"roomId"`
	RoomName string     `json:"roomName"`
	Room     *game.Room `json:"room"`
}

type RoomJoinedPayload struct {
	Room *game.Room `json:"room"`
}

type AvailableRoomsPayload struct {
	Rooms []*game.Room `json:"rooms"`
}

type MemberChangePayload struct {
	Username string        `json:"username"`
	Members  []game.Member `json:"members"`
}

type MemberKickedPayload struct {
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

type KickedPayload struct {
	Reason string `json:"reason"`
}

type RoomEndedPayload struct {
	Message string `json:"message"`
}

type GameStartedPayload struct {
	Room      *game.Room     `json:"room"`
	GameState game.GameState `json:"gameState"`
}

type ChoiceMadePayload struct {
	Username  string      `json:"username"`
	Choice    game.Choice `json:"choice"`
	GamePhase game.Phase  `json:"gamePhase"`
}

type WheelSpinningPayload struct {
	Spinning bool `json:"spinning"`
}

type WheelStoppedPayload struct {
	Result  int         `json:"result"`
	Content string      `json:"content"`
	Type    game.Choice `json:"type"`
}

type TurnChangedPayload struct {
	CurrentPlayer    string     `json:"currentPlayer"`
	GamePhase        game.Phase `json:"gamePhase"`
	CurrentTurnIndex int        `json:"currentTurnIndex"`
	TurnOrder        []string   `json:"turnOrder"`
}

type ChatMessagePayload struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type PromptPayload struct {
	Question string `json:"question,omitempty"`
	Task     string `json:"task,omitempty"`
}

type MemberToggledPayload struct {
	Username string `json:"username"`
	Enabled  bool   `json:"enabled"`
}

type ForwardedSignalPayload struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
