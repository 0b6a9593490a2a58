package playback

const eventBufferSize = 16

// Subscription provides event channels for a subscriber. Channels are
// buffered and sends never block; a slow subscriber loses events rather
// than stalling playback.
type Subscription struct {
	TrackChanged <-chan TrackChange
	StateChanged <-chan StateChange
	Progressed   <-chan Progress
	ModeChanged  <-chan ModeChange
	Notices      <-chan Notice
	Done         <-chan struct{}

	// Internal write channels
	trackCh    chan TrackChange
	stateCh    chan StateChange
	progressCh chan Progress
	modeCh     chan ModeChange
	noticeCh   chan Notice
	doneCh     chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		trackCh:    make(chan TrackChange, eventBufferSize),
		stateCh:    make(chan StateChange, eventBufferSize),
		progressCh: make(chan Progress, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		noticeCh:   make(chan Notice, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.TrackChanged = s.trackCh
	s.StateChanged = s.stateCh
	s.Progressed = s.progressCh
	s.ModeChanged = s.modeCh
	s.Notices = s.noticeCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
		// Drop if buffer full
	}
}

func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
	}
}

func (s *Subscription) sendProgress(e Progress) {
	select {
	case s.progressCh <- e:
	default:
	}
}

func (s *Subscription) sendMode(e ModeChange) {
	select {
	case s.modeCh <- e:
	default:
	}
}

func (s *Subscription) sendNotice(e Notice) {
	select {
	case s.noticeCh <- e:
	default:
	}
}
