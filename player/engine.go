package player

import (
	"sync"

	"github.com/soundpulse-cli/soundpulse/log"
	"github.com/soundpulse-cli/soundpulse/util"
)

// engine is the shared driver core over a playback session. The embed and
// media drivers differ only in how they turn a target into a playable URL
// and in how engine failures map onto the error code space.
type engine struct {
	name     string
	resolve  func(target string) string
	classify func(err error) ErrorCode

	mu             sync.Mutex
	session        *session
	listener       *eventListener
	ready          bool
	readyCallbacks []func()
	stateCallbacks []func(State, string)
	errorCallbacks []func(ErrorCode, string)

	target      string
	state       State
	currentTime float64
	duration    float64
	volume      int
	muted       bool
}

func newEngine(name string, resolve func(string) string, classify func(error) ErrorCode) *engine {
	return &engine{
		name:     name,
		resolve:  resolve,
		classify: classify,
		state:    Unstarted,
		volume:   100,
	}
}

// Load loads a target, starting the playback session on first use.
func (e *engine) Load(target string) error {
	e.mu.Lock()
	e.target = target
	e.currentTime = 0
	e.duration = 0
	if e.session == nil {
		e.session = newSession()
	}
	sess := e.session
	e.mu.Unlock()

	e.setState(Buffering)

	playableURL := e.resolve(target)

	if err := sess.start(playableURL, target); err != nil {
		log.Errorf("%s driver: load %s: %v", e.name, target, err)
		e.emitError(e.classify(err), target)
		return err
	}

	e.mu.Lock()
	firstLoad := !e.ready
	volume := e.volume
	e.mu.Unlock()

	if firstLoad {
		listener := newEventListener(sess.socketPath, e.handleEvent)
		if err := listener.start(); err != nil {
			log.Errorf("%s driver: event listener: %v", e.name, err)
			e.emitError(e.classify(err), target)
			return err
		}

		e.mu.Lock()
		e.listener = listener
		e.ready = true
		callbacks := e.readyCallbacks
		e.readyCallbacks = nil
		e.mu.Unlock()

		for _, callback := range callbacks {
			callback()
		}
	}

	// Restore the driver's volume in the new playback context
	_ = sess.setProperty("volume", float64(volume))

	return nil
}

// handleEvent dispatches property change events from the playback session.
func (e *engine) handleEvent(property string, data interface{}) {
	switch property {
	case "time-pos":
		if pos, ok := data.(float64); ok {
			e.mu.Lock()
			e.currentTime = pos
			e.mu.Unlock()
		}
	case "duration":
		if dur, ok := data.(float64); ok {
			e.mu.Lock()
			e.duration = dur
			e.mu.Unlock()
		}
	case "pause":
		if paused, ok := data.(bool); ok {
			if paused {
				e.setState(Paused)
			} else {
				e.setState(Playing)
			}
		}
	case "paused-for-cache":
		if buffering, ok := data.(bool); ok && buffering {
			e.setState(Buffering)
		}
	case "eof-reached":
		if reached, ok := data.(bool); ok && reached {
			e.setState(Ended)
		}
	case "playback-restart":
		e.setState(Playing)
	case "end-file":
		// An end-file with an error reason is a playback failure; normal
		// end-of-file is covered by eof-reached.
		event, ok := data.(map[string]interface{})
		if !ok {
			return
		}
		if reason, _ := event["reason"].(string); reason == "error" {
			fileError, _ := event["file_error"].(string)
			e.mu.Lock()
			target := e.target
			e.mu.Unlock()

			log.Warnf("%s driver: end-file error for %s: %s", e.name, target, fileError)
			e.emitError(e.classify(errString(fileError)), target)
		}
	}
}

func (e *engine) setState(s State) {
	e.mu.Lock()
	if e.state == s {
		e.mu.Unlock()
		return
	}
	e.state = s
	target := e.target
	callbacks := e.stateCallbacks
	e.mu.Unlock()

	for _, callback := range callbacks {
		callback(s, target)
	}
}

func (e *engine) emitError(code ErrorCode, target string) {
	e.mu.Lock()
	callbacks := e.errorCallbacks
	e.mu.Unlock()

	for _, callback := range callbacks {
		callback(code, target)
	}
}

// currentSession returns the playback session under the lock; nil before
// the first Load. Transport calls on an unloaded engine are no-ops.
func (e *engine) currentSession() *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

func (e *engine) Play() error {
	sess := e.currentSession()
	if sess == nil {
		return nil
	}
	return sess.setProperty("pause", false)
}

func (e *engine) Pause() error {
	sess := e.currentSession()
	if sess == nil {
		return nil
	}
	return sess.setProperty("pause", true)
}

func (e *engine) Stop() error {
	sess := e.currentSession()
	if sess == nil {
		return nil
	}

	_, err := sess.send([]interface{}{"stop"})
	e.setState(Unstarted)
	return err
}

func (e *engine) SeekTo(seconds float64) error {
	sess := e.currentSession()
	if sess == nil {
		return nil
	}

	_, err := sess.send([]interface{}{"seek", seconds, "absolute"})
	if err == nil {
		e.mu.Lock()
		e.currentTime = seconds
		e.mu.Unlock()
	}
	return err
}

func (e *engine) SetVolume(volume int) error {
	volume = util.Clamp(volume, 0, 100)

	e.mu.Lock()
	e.volume = volume
	sess := e.session
	e.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.setProperty("volume", float64(volume))
}

func (e *engine) Mute() error {
	e.mu.Lock()
	e.muted = true
	sess := e.session
	e.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.setProperty("mute", true)
}

func (e *engine) Unmute() error {
	e.mu.Lock()
	e.muted = false
	sess := e.session
	e.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.setProperty("mute", false)
}

func (e *engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTime
}

func (e *engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *engine) Volume() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *engine) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

func (e *engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *engine) IsPlaying() bool {
	return e.State() == Playing
}

func (e *engine) IsPaused() bool {
	return e.State() == Paused
}

func (e *engine) OnReady(callback func()) {
	e.mu.Lock()
	if e.ready {
		e.mu.Unlock()
		callback()
		return
	}
	e.readyCallbacks = append(e.readyCallbacks, callback)
	e.mu.Unlock()
}

func (e *engine) OnStateChange(callback func(State, string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateCallbacks = append(e.stateCallbacks, callback)
}

func (e *engine) OnError(callback func(ErrorCode, string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorCallbacks = append(e.errorCallbacks, callback)
}

func (e *engine) Close() error {
	e.mu.Lock()
	listener := e.listener
	sess := e.session
	e.mu.Unlock()

	if listener != nil {
		listener.stop()
	}
	if sess != nil {
		return sess.close()
	}
	return nil
}

// errString wraps a raw engine failure string as an error for
// classification.
type errString string

func (e errString) Error() string {
	return string(e)
}
