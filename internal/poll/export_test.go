package poll

// Current returns a copy of the active poll.
func (s *Session) Current() (*Poll, bool) {
	if s.state != Active {
		return nil, false
	}
	return s.poll.clone(), true
}
