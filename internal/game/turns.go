package game

// Turn and phase transitions. These methods mutate the room in place and are
// not safe for concurrent use; the Registry serializes calls per room.

// Start moves the room from the lobby into the game. The first player in
// join order takes the first turn. A room already past the lobby rejects the
// transition, so a replayed start-game cannot wipe the turn in progress.
func (r *Room) Start() error {
	if r.Status != StatusWaiting {
		return ErrGameStarted
	}
	r.Status = StatusActive
	r.GamePhase = PhaseChoose
	r.CurrentTurnIndex = 0
	if len(r.TurnOrder) > 0 {
		r.CurrentPlayer = r.TurnOrder[0]
	}
	r.clearTurn()
	return nil
}

// Choose records the current player's truth-or-dare pick and moves the room
// to the spin phase.
func (r *Room) Choose(username string, choice Choice) error {
	if choice != ChoiceTruth && choice != ChoiceDare {
		return ErrInvalidChoice
	}
	if r.CurrentPlayer != username {
		return ErrNotYourTurn
	}
	if r.GamePhase != PhaseChoose {
		return ErrWrongPhase
	}
	r.CurrentChoice = choice
	r.GamePhase = PhaseSpin
	return nil
}

// CheckSpin validates that username may spin the wheel right now.
func (r *Room) CheckSpin(username string) error {
	if r.CurrentPlayer != username {
		return ErrNotYourTurn
	}
	if r.GamePhase != PhaseSpin {
		return ErrWrongPhase
	}
	if r.CurrentChoice == ChoiceNone {
		return ErrNoChoice
	}
	return nil
}

// CommitSpin records the wheel result and the resolved content.
func (r *Room) CommitSpin(result int, content string) {
	r.SpinResult = result
	r.CurrentContent = content
	r.GamePhase = PhaseResult
}

// AdvanceTurn hands the turn to the next player in join order, cycling back
// to the first player after the last.
func (r *Room) AdvanceTurn() error {
	if len(r.TurnOrder) == 0 {
		return ErrRoomNotFound
	}
	r.CurrentTurnIndex = (r.CurrentTurnIndex + 1) % len(r.TurnOrder)
	r.CurrentPlayer = r.TurnOrder[r.CurrentTurnIndex]
	r.GamePhase = PhaseChoose
	r.clearTurn()
	return nil
}

// RemoveMember takes username out of the member list and the turn order,
// repairing the turn state so the invariants hold:
//
//   - TurnOrder stays a permutation of member usernames.
//   - CurrentTurnIndex stays in range while TurnOrder is non-empty.
//   - If the departing member held the turn, the player now at the clamped
//     index takes over and the phase resets to choose.
//   - A departing host hands the room to the first remaining member.
//
// It returns true when the room is now empty and must be destroyed.
func (r *Room) RemoveMember(username string) (empty bool) {
	kept := r.Members[:0]
	for _, m := range r.Members {
		if m.Username != username {
			kept = append(kept, m)
		}
	}
	r.Members = kept

	order := r.TurnOrder[:0]
	for _, u := range r.TurnOrder {
		if u != username {
			order = append(order, u)
		}
	}
	r.TurnOrder = order

	if len(r.Members) == 0 {
		return true
	}

	if len(r.TurnOrder) > 0 && r.CurrentTurnIndex >= len(r.TurnOrder) {
		r.CurrentTurnIndex = 0
	}

	if r.CurrentPlayer == username && len(r.TurnOrder) > 0 {
		r.CurrentPlayer = r.TurnOrder[r.CurrentTurnIndex]
		r.GamePhase = PhaseChoose
		r.clearTurn()
	}

	if r.Host == username {
		r.Host = r.Members[0].Username
	}

	return false
}

func (r *Room) clearTurn() {
	r.CurrentChoice = ChoiceNone
	r.SpinResult = 0
	r.CurrentContent = ""
}
