package player

// State is the output state.
//
//	Stopped --Play--> Playing --Pause--> Paused --Resume--> Playing
//	   ^                 |                  |
//	   +------Stop-------+-------Stop-------+
//
// Reaching the end of a source moves Playing to Paused without unbinding it;
// Resume from there restarts the source. Pause while Stopped and Resume while
// Playing are ignored.

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a source is bound (Playing or Paused).
func (s State) IsActive() bool {
	return s == Playing || s == Paused
}
