// Package turns holds the per-session turn-taking state machine.
//
// The machine is a pure data structure: it never performs I/O and never
// returns errors. Transitions that do not apply in the current phase are
// safe no-ops, because the orchestrator cannot fully prevent duplicate or
// racy client messages from reaching it.
package turns

// Role identifies a conversation participant.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
	RoleHuman       Role = "human"
	// RoleNone marks phases in which nobody holds the floor.
	RoleNone Role = ""
)

// Phase is the session-wide conversational phase.
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseInterviewer  Phase = "interviewer"
	PhaseCandidate    Phase = "candidate"
	PhaseUserChoice   Phase = "user_choice"
	PhaseUserSpeaking Phase = "user_speaking"
	PhaseEnded        Phase = "ended"
)

// Mode is the turn-advance policy.
type Mode string

const (
	// ModeStep pauses for a human decision after every agent turn.
	ModeStep Mode = "step"
	// ModeAuto chains interviewer to candidate automatically, but still
	// pauses after a candidate turn so the human can intervene.
	ModeAuto Mode = "auto"
)

func phaseFor(role Role) Phase {
	switch role {
	case RoleInterviewer:
		return PhaseInterviewer
	case RoleCandidate:
		return PhaseCandidate
	case RoleHuman:
		return PhaseUserSpeaking
	}
	return PhaseWaiting
}

// Snapshot is a point-in-time copy of the machine state, safe to hand to
// the protocol layer.
type Snapshot struct {
	Phase          Phase
	CurrentSpeaker Role
	WaitingForNext bool
	Mode           Mode
	TurnCount      int
	RoleTurns      map[Role]int
}

// Machine owns conversational phase, speaker and mode for one session.
// It is mutated by exactly one goroutine (the session orchestrator) and
// therefore carries no lock.
type Machine struct {
	phase          Phase
	currentSpeaker Role
	waitingForNext bool
	mode           Mode
	turnCount      int
	roleTurns      map[Role]int

	// lastAgentSpeaker remembers which agent held the floor most recently,
	// so OnNextTurn can alternate correctly out of user_choice.
	lastAgentSpeaker Role
}

// New returns a machine in the waiting phase with the given mode.
func New(mode Mode) *Machine {
	if mode != ModeAuto {
		mode = ModeStep
	}
	return &Machine{
		phase:     PhaseWaiting,
		mode:      mode,
		roleTurns: map[Role]int{},
	}
}

// Start begins the conversation with the given first speaker. Only valid
// from the waiting phase; a no-op otherwise.
func (m *Machine) Start(first Role) {
	if m.phase != PhaseWaiting {
		return
	}
	if first != RoleCandidate {
		first = RoleInterviewer
	}
	m.phase = phaseFor(first)
	m.currentSpeaker = first
	m.lastAgentSpeaker = first
	m.waitingForNext = false
	m.turnCount = 1
}

// OnAgentSpeakingDone records that an agent finished speaking and advances
// the phase according to the active mode.
func (m *Machine) OnAgentSpeakingDone(who Role) {
	if m.phase == PhaseEnded || m.phase == PhaseWaiting {
		return
	}
	if who != RoleInterviewer && who != RoleCandidate {
		return
	}

	m.roleTurns[who]++
	m.turnCount++
	m.lastAgentSpeaker = who

	if m.mode == ModeAuto && who == RoleInterviewer {
		m.setSpeaker(RoleCandidate)
		return
	}
	// Step mode always pauses; auto mode still pauses after a candidate
	// turn so the human can intervene.
	m.enterUserChoice()
}

// OnNextTurn resolves a pending user_choice by handing the floor to the
// agent opposite the one that spoke last. No-op unless waiting.
func (m *Machine) OnNextTurn() {
	if !m.waitingForNext || m.phase == PhaseEnded {
		return
	}
	if m.lastAgentSpeaker == RoleInterviewer {
		m.setSpeaker(RoleCandidate)
		return
	}
	m.setSpeaker(RoleInterviewer)
}

// OnHumanSpeakStart marks the human moderator as holding the floor.
func (m *Machine) OnHumanSpeakStart() {
	if m.phase == PhaseEnded || m.phase == PhaseWaiting {
		return
	}
	m.phase = PhaseUserSpeaking
	m.currentSpeaker = RoleHuman
	m.waitingForNext = false
}

// OnHumanSpeakDone records a completed human turn; step mode settles back
// into user_choice, auto mode proceeds straight to the interviewer.
func (m *Machine) OnHumanSpeakDone() {
	if m.phase == PhaseEnded || m.phase == PhaseWaiting {
		return
	}
	m.roleTurns[RoleHuman]++
	m.turnCount++
	if m.mode == ModeAuto {
		m.setSpeaker(RoleInterviewer)
		return
	}
	m.enterUserChoice()
}

// SetSpeaker forces the floor to a specific role, clearing any pending
// user_choice. Used when interview-pattern rules dictate the next speaker.
func (m *Machine) SetSpeaker(role Role) {
	if m.phase == PhaseEnded {
		return
	}
	if role != RoleInterviewer && role != RoleCandidate && role != RoleHuman {
		return
	}
	m.setSpeaker(role)
}

// SetMode switches the turn-advance policy mid-session.
func (m *Machine) SetMode(mode Mode) {
	if mode != ModeStep && mode != ModeAuto {
		return
	}
	m.mode = mode
}

// End moves the machine to the terminal ended phase. Irreversible except
// through Reset.
func (m *Machine) End() {
	m.phase = PhaseEnded
	m.currentSpeaker = RoleNone
	m.waitingForNext = false
}

// Reset returns the machine to its initial waiting state with all
// counters zeroed. The mode is retained.
func (m *Machine) Reset() {
	m.phase = PhaseWaiting
	m.currentSpeaker = RoleNone
	m.lastAgentSpeaker = RoleNone
	m.waitingForNext = false
	m.turnCount = 0
	m.roleTurns = map[Role]int{}
}

func (m *Machine) setSpeaker(role Role) {
	m.phase = phaseFor(role)
	m.currentSpeaker = role
	m.waitingForNext = false
	if role == RoleInterviewer || role == RoleCandidate {
		m.lastAgentSpeaker = role
	}
}

func (m *Machine) enterUserChoice() {
	m.phase = PhaseUserChoice
	m.currentSpeaker = RoleNone
	m.waitingForNext = true
}

// Phase reports the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// CurrentSpeaker reports who currently holds the floor.
func (m *Machine) CurrentSpeaker() Role { return m.currentSpeaker }

// WaitingForNext reports whether the machine is paused on a user choice.
func (m *Machine) WaitingForNext() bool { return m.waitingForNext }

// Mode reports the active turn-advance policy.
func (m *Machine) Mode() Mode { return m.mode }

// TurnCount reports the total number of turns including the active one.
func (m *Machine) TurnCount() int { return m.turnCount }

// RoleTurns reports how many completed turns the given role has taken.
func (m *Machine) RoleTurns(role Role) int { return m.roleTurns[role] }

// Ended reports whether the machine reached the terminal phase.
func (m *Machine) Ended() bool { return m.phase == PhaseEnded }

// Snapshot returns a copy of the observable state.
func (m *Machine) Snapshot() Snapshot {
	roleTurns := make(map[Role]int, len(m.roleTurns))
	for role, count := range m.roleTurns {
		roleTurns[role] = count
	}
	return Snapshot{
		Phase:          m.phase,
		CurrentSpeaker: m.currentSpeaker,
		WaitingForNext: m.waitingForNext,
		Mode:           m.mode,
		TurnCount:      m.turnCount,
		RoleTurns:      roleTurns,
	}
}
