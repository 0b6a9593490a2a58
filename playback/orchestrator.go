package playback

import (
	"math/rand"
	"sync"
	"time"

	"github.com/soundpulse-cli/soundpulse/api"
	"github.com/soundpulse-cli/soundpulse/key"
	"github.com/soundpulse-cli/soundpulse/log"
	"github.com/soundpulse-cli/soundpulse/player"
	"github.com/soundpulse-cli/soundpulse/storage"
	"github.com/soundpulse-cli/soundpulse/util"
	"github.com/spf13/viper"
)

const (
	// progressInterval drives position publishing and primary-driver end
	// detection.
	progressInterval = 100 * time.Millisecond

	// endedThreshold is how close to the duration the position must get
	// before the primary driver's track counts as ended. The primary has
	// no end-of-media signal the orchestrator trusts, so the progress
	// poller is the sole source of this transition.
	endedThreshold = 0.25

	// restartWindow is how far into a track previous() still navigates
	// backwards instead of restarting the current track.
	restartWindow = 3.0
)

// MetadataClient is the backend surface the orchestrator needs: track
// metadata plus stream resolution for the fallback path.
type MetadataClient interface {
	Song(id string) (*api.Song, error)
	StreamURL(id string) (string, error)
}

var _ MetadataClient = (*api.Client)(nil)

// Orchestrator owns all playback state: the queue and its modifiers, the
// published track, and which of the two drivers is active. It is the sole
// arbiter of driver selection; drivers never talk to each other.
type Orchestrator struct {
	mu sync.Mutex

	metadata   MetadataClient
	primary    player.Driver
	fallback   player.Driver
	prefetcher *Prefetcher

	queue      *Queue
	repeatMode RepeatMode
	shuffle    bool
	volume     int
	lastVolume int
	muted      bool

	status        Status
	current       Track
	usingFallback bool
	endedFired    bool

	// loadGen counts loads; late results carrying a stale generation are
	// discarded instead of clobbering the current track.
	loadGen uint64

	progressStop chan struct{}

	rng *rand.Rand

	subs   []*Subscription
	subsMu sync.RWMutex
}

// NewOrchestrator rehydrates persisted playback state and wires both
// drivers' event callbacks.
func NewOrchestrator(metadata MetadataClient, primary, fallback player.Driver) *Orchestrator {
	o := &Orchestrator{
		metadata:   metadata,
		primary:    primary,
		fallback:   fallback,
		prefetcher: NewPrefetcher(metadata.StreamURL),
		status:     StatusIdle,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	ids, err := storage.Queue()
	if err != nil {
		log.Warnf("restore queue: %v", err)
	}
	currentID, err := storage.CurrentTrack()
	if err != nil {
		log.Warnf("restore current track: %v", err)
	}
	o.queue = NewQueue(ids, currentID)

	if volume, err := storage.Volume(); err == nil {
		o.volume = volume
	} else {
		log.Warnf("restore volume: %v", err)
		o.volume = 100
	}
	o.lastVolume = o.volume

	if mode, err := storage.RepeatMode(); err == nil {
		o.repeatMode = ParseRepeatMode(mode)
	}
	if shuffle, err := storage.Shuffle(); err == nil {
		o.shuffle = shuffle
	}

	_ = primary.SetVolume(o.volume)
	_ = fallback.SetVolume(o.volume)

	primary.OnStateChange(o.handlePrimaryState)
	primary.OnError(o.handlePrimaryError)
	fallback.OnStateChange(o.handleFallbackState)
	fallback.OnError(o.handleFallbackError)

	return o
}

// Subscribe registers a new event subscriber.
func (o *Orchestrator) Subscribe() *Subscription {
	s := newSubscription()

	o.subsMu.Lock()
	o.subs = append(o.subs, s)
	o.subsMu.Unlock()

	return s
}

// Unsubscribe removes a subscriber and closes its done channel.
func (o *Orchestrator) Unsubscribe(sub *Subscription) {
	o.subsMu.Lock()
	for i, s := range o.subs {
		if s == sub {
			o.subs = append(o.subs[:i], o.subs[i+1:]...)
			s.close()
			break
		}
	}
	o.subsMu.Unlock()
}

func (o *Orchestrator) emitTrack(track Track) {
	o.subsMu.RLock()
	defer o.subsMu.RUnlock()
	for _, s := range o.subs {
		s.sendTrack(TrackChange{Track: track})
	}
}

func (o *Orchestrator) emitState(e StateChange) {
	o.subsMu.RLock()
	defer o.subsMu.RUnlock()
	for _, s := range o.subs {
		s.sendState(e)
	}
}

func (o *Orchestrator) emitProgress(e Progress) {
	o.subsMu.RLock()
	defer o.subsMu.RUnlock()
	for _, s := range o.subs {
		s.sendProgress(e)
	}
}

func (o *Orchestrator) emitMode() {
	o.mu.Lock()
	e := ModeChange{
		RepeatMode: o.repeatMode,
		Shuffle:    o.shuffle,
		Volume:     o.volume,
		Muted:      o.muted,
	}
	o.mu.Unlock()

	o.subsMu.RLock()
	defer o.subsMu.RUnlock()
	for _, s := range o.subs {
		s.sendMode(e)
	}
}

func (o *Orchestrator) emitNotice(level NoticeLevel, message string) {
	o.subsMu.RLock()
	defer o.subsMu.RUnlock()
	for _, s := range o.subs {
		s.sendNotice(Notice{Level: level, Message: message})
	}
}

func (o *Orchestrator) setStatus(status Status) {
	o.mu.Lock()
	if o.status == status {
		o.mu.Unlock()
		return
	}
	o.status = status
	usingFallback := o.usingFallback
	o.mu.Unlock()

	o.emitState(StateChange{Status: status, UsingFallback: usingFallback})
}

// activeLocked returns the driver currently receiving transport calls.
// Callers must hold o.mu.
func (o *Orchestrator) activeLocked() player.Driver {
	if o.usingFallback {
		return o.fallback
	}
	return o.primary
}

func (o *Orchestrator) active() player.Driver {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeLocked()
}

// LoadTrack loads a track into the primary driver. It publishes a
// placeholder immediately, starts stream prefetching, issues the metadata
// fetch when only an identifier was supplied, and records the identifier
// in the listening history. Returns false only when the request names no
// track.
func (o *Orchestrator) LoadTrack(request Request) bool {
	id := request.TrackID()
	if id == "" {
		return false
	}

	o.mu.Lock()
	o.loadGen++
	gen := o.loadGen
	o.usingFallback = false
	o.endedFired = false

	track, known := request.knownTrack()
	if !known {
		track = placeholderTrack(id)
	} else if track.Title == "" {
		track.Title = placeholderTitle
	}
	o.current = track
	o.status = StatusLoading
	o.mu.Unlock()

	// Each track gets a clean attempt at the primary path
	_ = o.fallback.Stop()

	o.emitTrack(track)
	o.emitState(StateChange{Status: StatusLoading, UsingFallback: false})

	if viper.GetBool(key.PlayerPrefetch) {
		o.prefetcher.Start(id)
	}

	if !known {
		go o.fetchMetadata(id, gen)
	}

	if err := o.primary.Load(id); err != nil {
		// The driver reports the failure through its error callback; the
		// switch or skip happens there.
		log.Warnf("primary load %s: %v", id, err)
	}

	if viper.GetBool(key.HistorySaveOnPlay) {
		if err := storage.AddRecentTrack(id); err != nil {
			log.Warnf("record recent track: %v", err)
		}
	}
	if err := storage.SetCurrentTrack(id); err != nil {
		log.Warnf("record current track: %v", err)
	}

	o.restartProgressLoop(gen)

	return true
}

// fetchMetadata resolves full metadata for a loading track and merges it
// into the published track unless a newer load superseded this one.
func (o *Orchestrator) fetchMetadata(id string, gen uint64) {
	song, err := o.metadata.Song(id)
	if err != nil {
		// Placeholder is retained; nothing user-visible
		log.Warnf("metadata fetch %s: %v", id, err)
		return
	}

	o.mu.Lock()
	if o.loadGen != gen || o.current.ID != id {
		o.mu.Unlock()
		return
	}
	merged := mergeSong(o.current, song)
	o.current = merged
	o.mu.Unlock()

	o.emitTrack(merged)
}

// PlayTrack loads a track and starts playback. A non-empty queueIDs
// replaces the queue, pointing the index at id and inserting it at the
// front if absent. Without queueIDs the track becomes a length-1 queue
// unless it is already queued, in which case the index moves to it.
func (o *Orchestrator) PlayTrack(id string, queueIDs []string) bool {
	if !o.LoadTrack(ByID(id)) {
		return false
	}

	o.mu.Lock()
	if len(queueIDs) > 0 {
		o.queue.Replace(queueIDs, id)
	} else {
		o.queue.Replace(o.queue.IDs(), id)
	}
	ids := o.queue.IDs()
	o.mu.Unlock()

	if err := storage.SetQueue(ids); err != nil {
		log.Warnf("persist queue: %v", err)
	}

	o.Play()
	return true
}

// loadAndPlay is the navigation path: it loads a queued identifier
// without touching queue order or index.
func (o *Orchestrator) loadAndPlay(id string) {
	o.LoadTrack(ByID(id))
	o.Play()
}

// Play resumes the active driver. No-op when nothing is loaded.
func (o *Orchestrator) Play() {
	o.mu.Lock()
	if o.status == StatusIdle {
		o.mu.Unlock()
		return
	}
	active := o.activeLocked()
	o.mu.Unlock()

	if err := active.Play(); err != nil {
		log.Warnf("play: %v", err)
		return
	}
	o.setStatus(StatusPlaying)
}

// Pause suspends the active driver. Pausing an already-paused driver is
// harmless.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	if o.status == StatusIdle {
		o.mu.Unlock()
		return
	}
	active := o.activeLocked()
	o.mu.Unlock()

	if err := active.Pause(); err != nil {
		log.Warnf("pause: %v", err)
		return
	}
	o.setStatus(StatusPaused)
}

// Next advances the queue according to the shuffle and repeat modifiers
// and plays the resulting track. At the queue's end without repeat-all it
// stays put and pauses.
func (o *Orchestrator) Next() {
	o.mu.Lock()
	id, result := o.queue.Next(o.shuffle, o.repeatMode, o.rng)
	o.mu.Unlock()

	switch result {
	case navPlay:
		o.loadAndPlay(id)
	case navHold:
		o.Pause()
	}
}

// Previous restarts the current track when more than a few seconds have
// elapsed, otherwise steps the queue backwards. At the queue's front
// without repeat-all it restarts the current track.
func (o *Orchestrator) Previous() {
	if o.active().CurrentTime() > restartWindow {
		o.Seek(0)
		return
	}

	o.mu.Lock()
	id, result := o.queue.Previous(o.repeatMode)
	o.mu.Unlock()

	switch result {
	case navPlay:
		o.loadAndPlay(id)
	case navHold:
		o.Seek(0)
	}
}

// Seek moves the active driver to an absolute position, clamped to the
// loaded media's duration.
func (o *Orchestrator) Seek(seconds float64) {
	active := o.active()

	if duration := active.Duration(); duration > 0 {
		seconds = util.Clamp(seconds, 0, duration)
	} else if seconds < 0 {
		seconds = 0
	}

	if err := active.SeekTo(seconds); err != nil {
		log.Warnf("seek: %v", err)
		return
	}

	o.mu.Lock()
	o.endedFired = false
	o.mu.Unlock()
}

// SetVolume adjusts and persists the playback volume.
func (o *Orchestrator) SetVolume(volume int) {
	volume = util.Clamp(volume, 0, 100)

	o.mu.Lock()
	o.volume = volume
	if volume > 0 {
		o.lastVolume = volume
		o.muted = false
	}
	o.mu.Unlock()

	_ = o.primary.SetVolume(volume)
	_ = o.fallback.SetVolume(volume)

	if err := storage.SetVolume(volume); err != nil {
		log.Warnf("persist volume: %v", err)
	}

	o.emitMode()
}

// ToggleMute drops the volume to 0, remembering the prior non-zero volume
// for the way back.
func (o *Orchestrator) ToggleMute() {
	o.mu.Lock()
	muted := o.muted || o.volume == 0
	restore := o.lastVolume
	o.mu.Unlock()

	if muted {
		if restore == 0 {
			restore = 100
		}
		o.SetVolume(restore)
		return
	}

	o.mu.Lock()
	o.lastVolume = o.volume
	o.volume = 0
	o.muted = true
	o.mu.Unlock()

	_ = o.primary.SetVolume(0)
	_ = o.fallback.SetVolume(0)

	if err := storage.SetVolume(0); err != nil {
		log.Warnf("persist volume: %v", err)
	}

	o.emitMode()
}

// ToggleRepeat cycles off -> all -> one and persists the result.
func (o *Orchestrator) ToggleRepeat() RepeatMode {
	o.mu.Lock()
	o.repeatMode = o.repeatMode.Cycle()
	mode := o.repeatMode
	o.mu.Unlock()

	if err := storage.SetRepeatMode(string(mode)); err != nil {
		log.Warnf("persist repeat mode: %v", err)
	}

	o.emitMode()
	return mode
}

// ToggleShuffle flips the shuffle modifier and persists the result.
func (o *Orchestrator) ToggleShuffle() bool {
	o.mu.Lock()
	o.shuffle = !o.shuffle
	shuffle := o.shuffle
	o.mu.Unlock()

	if err := storage.SetShuffle(shuffle); err != nil {
		log.Warnf("persist shuffle: %v", err)
	}

	o.emitMode()
	return shuffle
}

// CurrentTrack returns the published track.
func (o *Orchestrator) CurrentTrack() Track {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Status returns the orchestrator's coarse state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// UsingFallback reports whether the fallback driver is active.
func (o *Orchestrator) UsingFallback() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.usingFallback
}

// QueueIDs returns a snapshot of the queued identifiers.
func (o *Orchestrator) QueueIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.queue.IDs()
}

// QueueIndex returns the current queue position.
func (o *Orchestrator) QueueIndex() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.queue.CurrentIndex()
}

// Repeat returns the active repeat mode.
func (o *Orchestrator) Repeat() RepeatMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.repeatMode
}

// Shuffle reports whether shuffle is on.
func (o *Orchestrator) Shuffle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.shuffle
}

// Volume returns the current volume.
func (o *Orchestrator) Volume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// restartProgressLoop tears down the previous poller and starts a new one
// bound to the given load generation.
func (o *Orchestrator) restartProgressLoop(gen uint64) {
	o.mu.Lock()
	if o.progressStop != nil {
		close(o.progressStop)
	}
	stop := make(chan struct{})
	o.progressStop = stop
	o.mu.Unlock()

	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				o.pollProgress(gen)
			}
		}
	}()
}

// pollProgress publishes a position sample and performs end-of-track
// detection for the primary driver.
func (o *Orchestrator) pollProgress(gen uint64) {
	o.mu.Lock()
	if o.loadGen != gen {
		o.mu.Unlock()
		return
	}
	active := o.activeLocked()
	usingFallback := o.usingFallback
	ended := o.endedFired
	o.mu.Unlock()

	currentTime := active.CurrentTime()
	duration := active.Duration()

	o.emitProgress(Progress{CurrentTime: currentTime, Duration: duration})

	if usingFallback || ended {
		return
	}

	// The position sample nearing the duration is the usual signal. The
	// sampled ended state covers a final time-pos observation that froze
	// short of the threshold; it is read here so end detection stays
	// owned by this poller.
	finished := currentTime+endedThreshold >= duration ||
		active.State() == player.Ended

	if duration > 0 && finished {
		o.mu.Lock()
		if o.endedFired || o.loadGen != gen {
			o.mu.Unlock()
			return
		}
		o.endedFired = true
		o.mu.Unlock()

		o.handleTrackEnded()
	}
}

// handleTrackEnded routes end-of-track into repeat/next logic.
func (o *Orchestrator) handleTrackEnded() {
	o.mu.Lock()
	repeatOne := o.repeatMode == RepeatOne
	o.mu.Unlock()

	if repeatOne {
		o.Seek(0)
		o.Play()
		return
	}

	o.Next()
}

// handlePrimaryState maps the primary driver's raw states onto the coarse
// status while the primary is active. The primary's ended state is
// ignored: the progress poller owns that transition.
func (o *Orchestrator) handlePrimaryState(state player.State, target string) {
	o.mu.Lock()
	stale := o.usingFallback || target != o.current.ID
	o.mu.Unlock()
	if stale {
		return
	}

	switch state {
	case player.Playing:
		o.setStatus(StatusPlaying)
	case player.Paused:
		o.setStatus(StatusPaused)
	case player.Buffering:
		o.setStatus(StatusLoading)
	}
}

// handlePrimaryError implements the driver-switch protocol. Fatal errors
// for the loaded track switch to the fallback driver; everything else is
// logged and skipped.
func (o *Orchestrator) handlePrimaryError(code player.ErrorCode, target string) {
	o.mu.Lock()
	stale := o.usingFallback || target != o.current.ID
	o.mu.Unlock()
	if stale {
		return
	}

	if code.IsFatalForVideo() {
		o.switchToFallback(target)
		return
	}

	log.Errorf("primary driver error %d for %s: %s", code, target, code.Message())
	o.emitNotice(NoticeWarning, "Unable to play track, skipping...")
	o.Next()
}

// switchToFallback resolves a direct stream URL (prefetched when
// possible) and resumes the current track on the fallback driver from
// position 0.
func (o *Orchestrator) switchToFallback(id string) {
	o.emitNotice(NoticeInfo, "Please wait, switching playback...")

	streamURL, err := o.prefetcher.Resolve(id)
	if err != nil {
		log.Errorf("stream resolution for %s: %v", id, err)
		o.emitNotice(NoticeWarning, "Unable to play track, skipping...")
		o.Next()
		return
	}

	o.mu.Lock()
	if o.current.ID != id {
		// A newer load superseded this switch
		o.mu.Unlock()
		return
	}
	o.usingFallback = true
	o.status = StatusLoading
	volume := o.volume
	o.mu.Unlock()

	o.emitState(StateChange{Status: StatusLoading, UsingFallback: true})

	if err := o.fallback.Load(streamURL); err != nil {
		log.Errorf("fallback load for %s: %v", id, err)
		o.emitNotice(NoticeWarning, "Unable to play track, skipping...")
		o.Next()
		return
	}

	_ = o.fallback.SetVolume(volume)
	if err := o.fallback.Play(); err != nil {
		log.Warnf("fallback play: %v", err)
	}
	o.setStatus(StatusPlaying)
}

// handleFallbackState forwards the fallback driver's native transitions,
// including its end-of-media event, while the fallback is active.
func (o *Orchestrator) handleFallbackState(state player.State, _ string) {
	o.mu.Lock()
	inactive := !o.usingFallback
	o.mu.Unlock()
	if inactive {
		return
	}

	switch state {
	case player.Playing:
		o.setStatus(StatusPlaying)
	case player.Paused:
		o.setStatus(StatusPaused)
	case player.Buffering:
		o.setStatus(StatusLoading)
	case player.Ended:
		o.handleTrackEnded()
	}
}

// handleFallbackError ignores errors from an inactive fallback driver
// (its element may hold a stale source); while active, any error is
// terminal for the track.
func (o *Orchestrator) handleFallbackError(code player.ErrorCode, target string) {
	o.mu.Lock()
	inactive := !o.usingFallback
	o.mu.Unlock()
	if inactive {
		return
	}

	log.Errorf("fallback driver error %d for %s: %s", code, target, code.Message())
	o.emitNotice(NoticeWarning, "Unable to play track, skipping...")
	o.Next()
}

// Close persists the queue, tears down the progress loop, and releases
// both drivers.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.progressStop != nil {
		close(o.progressStop)
		o.progressStop = nil
	}
	ids := o.queue.IDs()
	o.mu.Unlock()

	if err := storage.SetQueue(ids); err != nil {
		log.Warnf("persist queue: %v", err)
	}

	o.subsMu.Lock()
	for _, s := range o.subs {
		s.close()
	}
	o.subs = nil
	o.subsMu.Unlock()

	if err := o.primary.Close(); err != nil {
		log.Warnf("close primary driver: %v", err)
	}
	return o.fallback.Close()
}
