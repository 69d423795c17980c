package game

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrUsernameTaken   = errors.New("username already taken in this room")
	ErrInvalidUsername = errors.New("invalid username (2-20 alphanumeric characters)")
	ErrInvalidRoomName = errors.New("invalid room name (2-50 characters)")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrWrongPhase      = errors.New("invalid game phase")
	ErrGameStarted     = errors.New("game already started")
	ErrNoChoice        = errors.New("no choice made")
	ErrNotHost         = errors.New("only host can end the room")
	ErrMemberNotFound  = errors.New("member not found")
	ErrInvalidChoice   = errors.New("choice must be truth or dare")
)
