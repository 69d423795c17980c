package game

import (
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultMaxMembers caps room size. The wheel UI assumes at most ten
	// visible players.
	DefaultMaxMembers = 10

	// SpinDelay is how long the wheel visibly spins before the result is
	// committed and broadcast.
	SpinDelay = 3 * time.Second

	// WheelSlots is the number of positions on the wheel.
	WheelSlots = 10
)

// Status is the coarse room state.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
)

// Phase is the game phase nested under an active room.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseChoose  Phase = "choose"
	PhaseSpin    Phase = "spin"
	PhaseResult  Phase = "result"
)

// Choice is the current player's pick for this turn.
type Choice string

const (
	ChoiceNone  Choice = ""
	ChoiceTruth Choice = "truth"
	ChoiceDare  Choice = "dare"
)

// MediaChannel identifies one of a member's toggleable media flags.
type MediaChannel string

const (
	ChannelAudio MediaChannel = "audio"
	ChannelMic   MediaChannel = "mic"
	ChannelVideo MediaChannel = "video"
)

// Member is one participant in a room. ConnID is the signaling connection
// the member is reachable on; peers use it to address WebRTC offers.
type Member struct {
	Username     string    `json:"username"`
	ConnID       string    `json:"socketId"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastActivity time.Time `json:"lastActivity"`
	AudioEnabled bool      `json:"audioEnabled"`
	MicEnabled   bool      `json:"micEnabled"`
	VideoEnabled bool      `json:"videoEnabled"`
}

// Room is one game session. TurnOrder is kept separate from Members so the
// turn sequence stays stable while media flags and activity churn; it is
// always a permutation of the member usernames.
type Room struct {
	ID               string    `json:"roomId"`
	Name             string    `json:"roomName"`
	Host             string    `json:"host"`
	Members          []Member  `json:"members"`
	MaxMembers       int       `json:"maxMembers"`
	Status           Status    `json:"status"`
	GamePhase        Phase     `json:"gamePhase"`
	CurrentPlayer    string    `json:"currentPlayer,omitempty"`
	CurrentTurnIndex int       `json:"currentTurnIndex"`
	TurnOrder        []string  `json:"turnOrder"`
	CurrentChoice    Choice    `json:"currentChoice,omitempty"`
	SpinResult       int       `json:"spinResult,omitempty"`
	CurrentContent   string    `json:"currentContent,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// GameState is the snapshot sent alongside game events.
type GameState struct {
	Status           Status   `json:"status"`
	GamePhase        Phase    `json:"gamePhase"`
	CurrentPlayer    string   `json:"currentPlayer,omitempty"`
	CurrentChoice    Choice   `json:"currentChoice,omitempty"`
	SpinResult       int      `json:"spinResult,omitempty"`
	CurrentContent   string   `json:"currentContent,omitempty"`
	TurnOrder        []string `json:"turnOrder"`
	CurrentTurnIndex int      `json:"currentTurnIndex"`
}

// State returns the room's game-state snapshot.
func (r *Room) State() GameState {
	return GameState{
		Status:           r.Status,
		GamePhase:        r.GamePhase,
		CurrentPlayer:    r.CurrentPlayer,
		CurrentChoice:    r.CurrentChoice,
		SpinResult:       r.SpinResult,
		CurrentContent:   r.CurrentContent,
		TurnOrder:        r.TurnOrder,
		CurrentTurnIndex: r.CurrentTurnIndex,
	}
}

// Member returns a pointer into the Members slice, or nil.
func (r *Room) Member(username string) *Member {
	for i := range r.Members {
		if r.Members[i].Username == username {
			return &r.Members[i]
		}
	}
	return nil
}

// Full reports whether the room is at capacity.
func (r *Room) Full() bool {
	return len(r.Members) >= r.MaxMembers
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidUsername reports whether username is 2-20 chars of [a-zA-Z0-9_-].
func ValidUsername(username string) bool {
	username = strings.TrimSpace(username)
	return len(username) >= 2 && len(username) <= 20 && usernameRe.MatchString(username)
}

// ValidRoomName reports whether name is 2-50 characters after trimming.
func ValidRoomName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 50
}

// Sanitize trims the string and strips angle brackets.
func Sanitize(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(strings.TrimSpace(s))
}
