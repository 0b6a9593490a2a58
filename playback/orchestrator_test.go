package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/soundpulse-cli/soundpulse/api"
	"github.com/soundpulse-cli/soundpulse/filesystem"
	"github.com/soundpulse-cli/soundpulse/key"
	"github.com/soundpulse-cli/soundpulse/player"
	"github.com/soundpulse-cli/soundpulse/storage"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.PlayerPrefetch, false)
	viper.Set(key.HistorySaveOnPlay, true)
}

// mockDriver records every call and lets tests fire callbacks manually.
// Setting failCode makes Load report that error synchronously, the way a
// blocked track fails immediately.
type mockDriver struct {
	mu sync.Mutex

	loads    []string
	plays    int
	pauses   int
	stops    int
	seeks    []float64
	volume   int
	muted    bool
	current  float64
	duration float64
	state    player.State

	stateCallback func(player.State, string)
	errorCallback func(player.ErrorCode, string)

	failCode player.ErrorCode
	failing  bool
}

func newMockDriver() *mockDriver {
	return &mockDriver{state: player.Unstarted, volume: 100}
}

func (m *mockDriver) Load(target string) error {
	m.mu.Lock()
	m.loads = append(m.loads, target)
	errorCallback := m.errorCallback
	failing := m.failing
	code := m.failCode
	m.mu.Unlock()

	if failing && errorCallback != nil {
		errorCallback(code, target)
	}
	return nil
}

func (m *mockDriver) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	m.state = player.Playing
	return nil
}

func (m *mockDriver) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	m.state = player.Paused
	return nil
}

func (m *mockDriver) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.state = player.Unstarted
	return nil
}

func (m *mockDriver) SeekTo(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, seconds)
	m.current = seconds
	return nil
}

func (m *mockDriver) SetVolume(volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

func (m *mockDriver) Mute() error   { m.muted = true; return nil }
func (m *mockDriver) Unmute() error { m.muted = false; return nil }

func (m *mockDriver) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *mockDriver) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *mockDriver) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *mockDriver) Muted() bool { return m.muted }

func (m *mockDriver) State() player.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockDriver) IsPlaying() bool { return m.State() == player.Playing }
func (m *mockDriver) IsPaused() bool  { return m.State() == player.Paused }

func (m *mockDriver) OnReady(callback func()) { callback() }

func (m *mockDriver) OnStateChange(callback func(player.State, string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCallback = callback
}

func (m *mockDriver) OnError(callback func(player.ErrorCode, string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCallback = callback
}

func (m *mockDriver) Close() error { return nil }

func (m *mockDriver) loadedTargets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loads...)
}

func (m *mockDriver) playCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

func (m *mockDriver) pauseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses
}

func (m *mockDriver) seekLog() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seeks...)
}

func (m *mockDriver) setPosition(current, duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = current
	m.duration = duration
}

func (m *mockDriver) setState(state player.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// mockMetadata serves canned songs and stream URLs, with optional gates
// to hold a response open.
type mockMetadata struct {
	mu         sync.Mutex
	songs      map[string]*api.Song
	streamURLs map[string]string
	songGates  map[string]chan struct{}
	songCalls  []string
}

func newMockMetadata() *mockMetadata {
	return &mockMetadata{
		songs:      map[string]*api.Song{},
		streamURLs: map[string]string{},
		songGates:  map[string]chan struct{}{},
	}
}

func (m *mockMetadata) Song(id string) (*api.Song, error) {
	m.mu.Lock()
	m.songCalls = append(m.songCalls, id)
	gate := m.songGates[id]
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if song, ok := m.songs[id]; ok {
		return song, nil
	}
	return nil, errors.New("no metadata")
}

func (m *mockMetadata) StreamURL(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if url, ok := m.streamURLs[id]; ok {
		return url, nil
	}
	return "", errors.New("no stream")
}

// eventually polls a condition for up to a second.
func eventually(condition func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// never asserts a condition stays false for a short observation window.
func never(condition func() bool) bool {
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		if condition() {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}

func reset(t *testing.T) {
	t.Helper()
	So(storage.SetQueue(nil), ShouldBeNil)
	So(storage.SetCurrentTrack(""), ShouldBeNil)
	So(storage.SetVolume(100), ShouldBeNil)
	So(storage.SetRepeatMode("off"), ShouldBeNil)
	So(storage.SetShuffle(false), ShouldBeNil)
	So(storage.ClearRecentTracks(), ShouldBeNil)
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *mockDriver, *mockDriver, *mockMetadata) {
	t.Helper()
	metadata := newMockMetadata()
	primary := newMockDriver()
	fallback := newMockDriver()
	o := NewOrchestrator(metadata, primary, fallback)
	return o, primary, fallback, metadata
}

func TestLoadTrack(t *testing.T) {
	Convey("Given an orchestrator", t, func() {
		reset(t)
		o, primary, _, metadata := newTestOrchestrator(t)
		defer o.Close()

		Convey("An empty request is refused", func() {
			So(o.LoadTrack(Request{}), ShouldBeFalse)
		})

		Convey("A load publishes a placeholder even with no metadata ever arriving", func() {
			So(o.LoadTrack(ByID("x")), ShouldBeTrue)

			track := o.CurrentTrack()
			So(track.ID, ShouldEqual, "x")
			So(track.Title, ShouldEqual, "loading")
			So(primary.loadedTargets(), ShouldResemble, []string{"x"})
		})

		Convey("The identifier lands in the listening history", func() {
			So(o.LoadTrack(ByID("x")), ShouldBeTrue)

			recent, err := storage.RecentTracks()
			So(err, ShouldBeNil)
			So(recent, ShouldResemble, []string{"x"})

			current, err := storage.CurrentTrack()
			So(err, ShouldBeNil)
			So(current, ShouldEqual, "x")
		})

		Convey("A known track skips the metadata fetch", func() {
			So(o.LoadTrack(ByTrack(Track{ID: "x", Title: "Known"})), ShouldBeTrue)

			So(o.CurrentTrack().Title, ShouldEqual, "Known")

			metadata.mu.Lock()
			calls := len(metadata.songCalls)
			metadata.mu.Unlock()
			So(calls, ShouldEqual, 0)
		})
	})
}

func TestLateMetadataDiscarded(t *testing.T) {
	Convey("Given a metadata fetch that resolves after a newer load", t, func() {
		reset(t)
		o, _, _, metadata := newTestOrchestrator(t)
		defer o.Close()

		gate := make(chan struct{})
		metadata.mu.Lock()
		metadata.songGates["x"] = gate
		metadata.songs["x"] = &api.Song{VideoID: "x", Title: "Stale Title"}
		metadata.songs["y"] = &api.Song{VideoID: "y", Title: "Fresh Title"}
		metadata.mu.Unlock()

		So(o.LoadTrack(ByID("x")), ShouldBeTrue)
		So(o.LoadTrack(ByID("y")), ShouldBeTrue)

		// y's metadata arrives
		So(eventually(func() bool { return o.CurrentTrack().Title == "Fresh Title" }), ShouldBeTrue)

		// x's late response must not clobber the current track
		close(gate)
		So(never(func() bool { return o.CurrentTrack().Title == "Stale Title" }), ShouldBeTrue)
		So(o.CurrentTrack().ID, ShouldEqual, "y")
	})
}

func TestPlayPause(t *testing.T) {
	Convey("Given a loaded track", t, func() {
		reset(t)
		o, primary, _, _ := newTestOrchestrator(t)
		defer o.Close()

		o.PlayTrack("x", nil)

		Convey("Play reaches the primary driver", func() {
			So(primary.playCount(), ShouldEqual, 1)
			So(o.Status(), ShouldEqual, StatusPlaying)
		})

		Convey("Pausing twice equals pausing once", func() {
			o.Pause()
			statusAfterOne := o.Status()

			o.Pause()
			So(o.Status(), ShouldEqual, statusAfterOne)
			So(o.Status(), ShouldEqual, StatusPaused)
		})
	})

	Convey("Given no loaded track", t, func() {
		reset(t)
		o, primary, _, _ := newTestOrchestrator(t)
		defer o.Close()

		Convey("Play and pause are no-ops", func() {
			o.Play()
			o.Pause()
			So(primary.playCount(), ShouldEqual, 0)
			So(primary.pauseCount(), ShouldEqual, 0)
			So(o.Status(), ShouldEqual, StatusIdle)
		})
	})
}

func TestVolume(t *testing.T) {
	Convey("Given an orchestrator", t, func() {
		reset(t)
		o, primary, fallback, _ := newTestOrchestrator(t)

		Convey("Volume clamps and reads back", func() {
			o.SetVolume(150)
			So(o.Volume(), ShouldEqual, 100)

			o.SetVolume(-10)
			So(o.Volume(), ShouldEqual, 0)

			o.SetVolume(55)
			So(o.Volume(), ShouldEqual, 55)
			So(primary.Volume(), ShouldEqual, 55)
			So(fallback.Volume(), ShouldEqual, 55)
		})

		Convey("Volume survives reconstruction", func() {
			o.SetVolume(55)
			o.Close()

			rebuilt, _, _, _ := newTestOrchestrator(t)
			defer rebuilt.Close()
			So(rebuilt.Volume(), ShouldEqual, 55)
		})

		Convey("Mute toggles to zero and back", func() {
			o.SetVolume(70)

			o.ToggleMute()
			So(o.Volume(), ShouldEqual, 0)
			So(primary.Volume(), ShouldEqual, 0)

			o.ToggleMute()
			So(o.Volume(), ShouldEqual, 70)
		})
	})
}

func TestModifiers(t *testing.T) {
	Convey("Given an orchestrator", t, func() {
		reset(t)
		o, _, _, _ := newTestOrchestrator(t)
		defer o.Close()

		Convey("Repeat cycles off, all, one, off and persists", func() {
			So(o.ToggleRepeat(), ShouldEqual, RepeatAll)
			So(o.ToggleRepeat(), ShouldEqual, RepeatOne)
			So(o.ToggleRepeat(), ShouldEqual, RepeatOff)

			o.ToggleRepeat()
			persisted, _ := storage.RepeatMode()
			So(persisted, ShouldEqual, "all")
		})

		Convey("Shuffle flips and persists", func() {
			So(o.ToggleShuffle(), ShouldBeTrue)

			persisted, _ := storage.Shuffle()
			So(persisted, ShouldBeTrue)

			So(o.ToggleShuffle(), ShouldBeFalse)
		})
	})
}

func TestNavigation(t *testing.T) {
	Convey("Given a queue of three tracks", t, func() {
		reset(t)
		o, primary, _, _ := newTestOrchestrator(t)
		defer o.Close()

		o.PlayTrack("a", []string{"a", "b", "c"})

		Convey("Under repeat-all three nexts visit 1, 2, 0", func() {
			o.ToggleRepeat() // all

			var indexes []int
			for i := 0; i < 3; i++ {
				o.Next()
				indexes = append(indexes, o.QueueIndex())
			}
			So(indexes, ShouldResemble, []int{1, 2, 0})
			So(primary.loadedTargets(), ShouldResemble, []string{"a", "b", "c", "a"})
		})

		Convey("At the end without repeat, next clamps and pauses", func() {
			o.Next()
			o.Next()
			So(o.QueueIndex(), ShouldEqual, 2)

			pausesBefore := primary.pauseCount()
			o.Next()
			So(o.QueueIndex(), ShouldEqual, 2)
			So(primary.pauseCount(), ShouldEqual, pausesBefore+1)
		})

		Convey("Navigation never mutates queue order", func() {
			o.Next()
			o.Next()
			So(o.QueueIDs(), ShouldResemble, []string{"a", "b", "c"})
		})

		Convey("Previous early in a track steps backwards", func() {
			o.Next()
			So(o.QueueIndex(), ShouldEqual, 1)

			primary.setPosition(1.0, 200)
			o.Previous()
			So(o.QueueIndex(), ShouldEqual, 0)
		})

		Convey("Previous late in a track restarts it", func() {
			o.Next()
			primary.setPosition(10.0, 200)

			o.Previous()
			So(o.QueueIndex(), ShouldEqual, 1)
			seeks := primary.seekLog()
			So(seeks[len(seeks)-1], ShouldEqual, 0)
		})

		Convey("Previous at the front without repeat restarts the track", func() {
			primary.setPosition(1.0, 200)

			o.Previous()
			So(o.QueueIndex(), ShouldEqual, 0)
			seeks := primary.seekLog()
			So(seeks[len(seeks)-1], ShouldEqual, 0)
		})

		Convey("With shuffle, next never repeats the prior position", func() {
			o.ToggleShuffle()

			for i := 0; i < 30; i++ {
				before := o.QueueIndex()
				o.Next()
				So(o.QueueIndex(), ShouldNotEqual, before)
			}
		})
	})
}

func TestTrackEnded(t *testing.T) {
	Convey("Given a playing track", t, func() {
		reset(t)
		o, primary, _, _ := newTestOrchestrator(t)
		defer o.Close()

		o.PlayTrack("a", []string{"a", "b"})

		Convey("Repeat-one replays the same track from zero", func() {
			o.ToggleRepeat() // all
			o.ToggleRepeat() // one

			playsBefore := primary.playCount()
			o.handleTrackEnded()

			So(o.QueueIndex(), ShouldEqual, 0)
			So(o.CurrentTrack().ID, ShouldEqual, "a")
			seeks := primary.seekLog()
			So(seeks[len(seeks)-1], ShouldEqual, 0)
			So(primary.playCount(), ShouldEqual, playsBefore+1)
		})

		Convey("Otherwise the queue advances", func() {
			o.handleTrackEnded()
			So(o.QueueIndex(), ShouldEqual, 1)
			So(o.CurrentTrack().ID, ShouldEqual, "b")
		})

		Convey("The progress poller detects the primary track's end", func() {
			primary.setPosition(199.9, 200)
			o.mu.Lock()
			gen := o.loadGen
			o.mu.Unlock()

			o.pollProgress(gen)

			So(o.QueueIndex(), ShouldEqual, 1)
			So(o.CurrentTrack().ID, ShouldEqual, "b")
		})

		Convey("A position frozen short of the threshold still ends once the driver reports eof", func() {
			primary.setPosition(198.6, 200)
			primary.setState(player.Ended)
			o.mu.Lock()
			gen := o.loadGen
			o.mu.Unlock()

			o.pollProgress(gen)

			So(o.QueueIndex(), ShouldEqual, 1)
			So(o.CurrentTrack().ID, ShouldEqual, "b")
		})
	})
}

func TestFallbackSwitch(t *testing.T) {
	Convey("Given a primary driver that rejects the track as unplayable", t, func() {
		reset(t)
		metadata := newMockMetadata()
		metadata.streamURLs["x"] = "https://media.example/x.m4a"

		primary := newMockDriver()
		primary.failing = true
		primary.failCode = player.ErrEmbedRestricted

		fallback := newMockDriver()
		o := NewOrchestrator(metadata, primary, fallback)
		defer o.Close()

		Convey("The fallback receives the resolved stream URL", func() {
			So(o.LoadTrack(ByID("x")), ShouldBeTrue)

			So(fallback.loadedTargets(), ShouldResemble, []string{"https://media.example/x.m4a"})
			So(o.UsingFallback(), ShouldBeTrue)
			So(fallback.playCount(), ShouldEqual, 1)
			So(primary.playCount(), ShouldEqual, 0)
		})

		Convey("A new load for a different track resets to the primary path", func() {
			o.LoadTrack(ByID("x"))
			So(o.UsingFallback(), ShouldBeTrue)

			primary.mu.Lock()
			primary.failing = false
			primary.mu.Unlock()

			o.LoadTrack(ByID("y"))
			So(o.UsingFallback(), ShouldBeFalse)
			So(fallback.stops, ShouldBeGreaterThan, 0)
		})

		Convey("Failed stream resolution skips to the next track", func() {
			primary.mu.Lock()
			primary.failing = false
			primary.mu.Unlock()

			o.PlayTrack("z", []string{"z", "y"})
			sub := o.Subscribe()

			// z is unplayable on the primary and has no stream URL, so
			// the switch fails and the queue advances
			primary.mu.Lock()
			callback := primary.errorCallback
			primary.mu.Unlock()
			callback(player.ErrEmbedDisabled, "z")

			So(o.UsingFallback(), ShouldBeFalse)
			So(o.CurrentTrack().ID, ShouldEqual, "y")
			So(o.QueueIndex(), ShouldEqual, 1)

			var sawWarning bool
			for done := false; !done; {
				select {
				case notice := <-sub.Notices:
					if notice.Level == NoticeWarning {
						sawWarning = true
					}
				default:
					done = true
				}
			}
			So(sawWarning, ShouldBeTrue)
		})

		Convey("The fallback's native ended event advances the queue", func() {
			o.PlayTrack("x", []string{"x", "y"})
			So(o.UsingFallback(), ShouldBeTrue)

			primary.mu.Lock()
			primary.failing = false
			primary.mu.Unlock()

			fallback.mu.Lock()
			callback := fallback.stateCallback
			fallback.mu.Unlock()
			callback(player.Ended, "https://media.example/x.m4a")

			So(o.CurrentTrack().ID, ShouldEqual, "y")
			So(o.UsingFallback(), ShouldBeFalse)
		})

		Convey("Fallback errors while inactive are ignored", func() {
			primary.mu.Lock()
			primary.failing = false
			primary.mu.Unlock()

			o.PlayTrack("y", []string{"y", "z"})
			So(o.UsingFallback(), ShouldBeFalse)

			fallback.mu.Lock()
			callback := fallback.errorCallback
			fallback.mu.Unlock()
			callback(player.ErrPlayerFailure, "stale")

			So(o.CurrentTrack().ID, ShouldEqual, "y")
			So(o.QueueIndex(), ShouldEqual, 0)
		})
	})
}

func TestOtherPrimaryErrors(t *testing.T) {
	Convey("Given a primary driver failing with a non-fatal code", t, func() {
		reset(t)
		o, primary, fallback, _ := newTestOrchestrator(t)
		defer o.Close()

		Convey("The track is skipped instead of switched", func() {
			o.PlayTrack("a", []string{"a", "b"})
			sub := o.Subscribe()

			primary.mu.Lock()
			callback := primary.errorCallback
			primary.mu.Unlock()
			callback(player.ErrNotFound, "a")

			So(o.UsingFallback(), ShouldBeFalse)
			So(fallback.loadedTargets(), ShouldBeEmpty)
			So(o.CurrentTrack().ID, ShouldEqual, "b")
			So(o.QueueIndex(), ShouldEqual, 1)

			select {
			case notice := <-sub.Notices:
				So(notice.Level, ShouldEqual, NoticeWarning)
			default:
				t.Fatal("expected a user-facing notice")
			}
		})
	})
}

func TestSubscriptions(t *testing.T) {
	Convey("Given a subscriber", t, func() {
		reset(t)
		o, _, _, _ := newTestOrchestrator(t)
		defer o.Close()

		sub := o.Subscribe()

		Convey("Loading publishes the placeholder track first", func() {
			o.LoadTrack(ByID("x"))

			select {
			case change := <-sub.TrackChanged:
				So(change.Track.ID, ShouldEqual, "x")
				So(change.Track.Title, ShouldEqual, "loading")
			default:
				t.Fatal("expected a track change event")
			}
		})

		Convey("Mode toggles publish mode changes", func() {
			o.ToggleShuffle()

			select {
			case change := <-sub.ModeChanged:
				So(change.Shuffle, ShouldBeTrue)
			default:
				t.Fatal("expected a mode change event")
			}
		})

		Convey("Unsubscribing closes the done channel", func() {
			o.Unsubscribe(sub)

			select {
			case <-sub.Done:
			default:
				t.Fatal("expected done to be closed")
			}
		})
	})
}

func TestTransportBeforeLoad(t *testing.T) {
	Convey("Given an orchestrator rehydrated over real drivers before any load", t, func() {
		reset(t)
		So(storage.SetQueue([]string{"a", "b", "c"}), ShouldBeNil)
		So(storage.SetCurrentTrack("a"), ShouldBeNil)

		o := NewOrchestrator(newMockMetadata(), player.NewEmbed(), player.NewMedia())
		defer o.Close()

		Convey("Seek and navigation at the queue front are harmless", func() {
			So(func() { o.Seek(10) }, ShouldNotPanic)
			So(func() { o.Previous() }, ShouldNotPanic)
			So(func() { o.Play() }, ShouldNotPanic)
			So(func() { o.Pause() }, ShouldNotPanic)

			So(o.Status(), ShouldEqual, StatusIdle)
			So(o.QueueIndex(), ShouldEqual, 0)
		})
	})
}
