package viewer

// SessionState is the lifecycle of the remote camera as seen by this client
type SessionState int

const (
	Idle SessionState = iota
	Running
)

func (s SessionState) String() string {
	switch s {
	case Running:
		return "running"
	default:
		return "idle"
	}
}

// sessionController owns SessionState. epoch changes on every transition so
// replies issued under an earlier session can be recognised and dropped.
type sessionController struct {
	state    SessionState
	starting bool
	epoch    uint64
}

func (s *sessionController) canStart() bool {
	return s.state == Idle && !s.starting
}

func (s *sessionController) canStop() bool {
	return s.state == Running
}

// begin moves to Running and returns the epoch of the new session
func (s *sessionController) begin() uint64 {
	s.state = Running
	s.epoch++
	return s.epoch
}

func (s *sessionController) end() {
	s.state = Idle
	s.epoch++
}

func (s *sessionController) current(epoch uint64) bool {
	return s.state == Running && s.epoch == epoch
}
