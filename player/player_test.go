package player

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStateNames(t *testing.T) {
	Convey("Given raw state codes", t, func() {
		So(Unstarted.Name(), ShouldEqual, "unstarted")
		So(Ended.Name(), ShouldEqual, "ended")
		So(Playing.Name(), ShouldEqual, "playing")
		So(Paused.Name(), ShouldEqual, "paused")
		So(Buffering.Name(), ShouldEqual, "buffering")
		So(Cued.Name(), ShouldEqual, "cued")
		So(State(42).Name(), ShouldEqual, "unknown")
	})
}

func TestErrorCodes(t *testing.T) {
	Convey("Given the error code space", t, func() {
		Convey("Only the embed-restriction codes are fatal for a track", func() {
			So(ErrEmbedDisabled.IsFatalForVideo(), ShouldBeTrue)
			So(ErrEmbedRestricted.IsFatalForVideo(), ShouldBeTrue)

			So(ErrInvalidParam.IsFatalForVideo(), ShouldBeFalse)
			So(ErrPlayerFailure.IsFatalForVideo(), ShouldBeFalse)
			So(ErrNotFound.IsFatalForVideo(), ShouldBeFalse)
		})

		Convey("Every code has a message", func() {
			for _, code := range []ErrorCode{ErrInvalidParam, ErrPlayerFailure, ErrNotFound, ErrEmbedDisabled, ErrEmbedRestricted} {
				So(code.Message(), ShouldNotBeEmpty)
			}
			So(ErrorCode(999).Message(), ShouldEqual, "unknown playback error")
		})
	})
}

func TestClassifyLoadError(t *testing.T) {
	Convey("Given engine failure strings", t, func() {
		So(classifyLoadError(errString("HTTP 403 Forbidden")), ShouldEqual, ErrEmbedDisabled)
		So(classifyLoadError(errString("embed not allowed")), ShouldEqual, ErrEmbedDisabled)
		So(classifyLoadError(errString("video unavailable")), ShouldEqual, ErrNotFound)
		So(classifyLoadError(errString("404 not found")), ShouldEqual, ErrNotFound)
		So(classifyLoadError(errString("invalid id")), ShouldEqual, ErrInvalidParam)
		So(classifyLoadError(errString("some opaque failure")), ShouldEqual, ErrPlayerFailure)
		So(classifyLoadError(nil), ShouldEqual, ErrPlayerFailure)
	})
}

func TestSanitizeMediaTarget(t *testing.T) {
	Convey("Given media targets", t, func() {
		Convey("Valid HTTP URLs pass through", func() {
			url, err := sanitizeMediaTarget("https://media.example/stream.m4a")
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://media.example/stream.m4a")
		})

		Convey("Flag-shaped targets are rejected", func() {
			_, err := sanitizeMediaTarget("--script=evil.lua")
			So(err, ShouldNotBeNil)
		})

		Convey("Control characters are rejected", func() {
			_, err := sanitizeMediaTarget("https://media.example/a\nb")
			So(err, ShouldNotBeNil)
		})

		Convey("Unsupported schemes are rejected", func() {
			_, err := sanitizeMediaTarget("ftp://media.example/stream")
			So(err, ShouldNotBeNil)
		})

		Convey("Empty targets are rejected", func() {
			_, err := sanitizeMediaTarget("  ")
			So(err, ShouldNotBeNil)
		})

		Convey("Local paths are cleaned", func() {
			path, err := sanitizeMediaTarget("music/./track.m4a")
			So(err, ShouldBeNil)
			So(path, ShouldEqual, "music/track.m4a")
		})
	})
}

func TestEngineEvents(t *testing.T) {
	Convey("Given an engine with registered callbacks", t, func() {
		e := newEngine("test", func(t string) string { return t }, classifyLoadError)

		var states []State
		e.OnStateChange(func(s State, _ string) {
			states = append(states, s)
		})

		var errors []ErrorCode
		e.OnError(func(code ErrorCode, _ string) {
			errors = append(errors, code)
		})

		Convey("Pause property changes map to playing/paused", func() {
			e.handleEvent("pause", false)
			e.handleEvent("pause", true)
			So(states, ShouldResemble, []State{Playing, Paused})
		})

		Convey("Repeated states are not re-emitted", func() {
			e.handleEvent("pause", false)
			e.handleEvent("pause", false)
			So(states, ShouldResemble, []State{Playing})
		})

		Convey("End of media maps to ended", func() {
			e.handleEvent("eof-reached", true)
			So(states, ShouldResemble, []State{Ended})
		})

		Convey("Time and duration properties update the getters", func() {
			e.handleEvent("time-pos", 12.5)
			e.handleEvent("duration", 180.0)
			So(e.CurrentTime(), ShouldEqual, 12.5)
			So(e.Duration(), ShouldEqual, 180.0)
		})

		Convey("An end-file error event is classified and emitted", func() {
			e.handleEvent("end-file", map[string]interface{}{
				"reason":     "error",
				"file_error": "HTTP 403 Forbidden",
			})
			So(errors, ShouldResemble, []ErrorCode{ErrEmbedDisabled})
		})

		Convey("A normal end-file event is not an error", func() {
			e.handleEvent("end-file", map[string]interface{}{"reason": "eof"})
			So(errors, ShouldBeEmpty)
		})
	})
}

func TestEngineReadiness(t *testing.T) {
	Convey("Given an engine that is not ready", t, func() {
		e := newEngine("test", func(t string) string { return t }, classifyLoadError)

		Convey("Ready callbacks are deferred until readiness", func() {
			var fired int
			e.OnReady(func() { fired++ })
			So(fired, ShouldEqual, 0)

			e.mu.Lock()
			e.ready = true
			callbacks := e.readyCallbacks
			e.readyCallbacks = nil
			e.mu.Unlock()
			for _, callback := range callbacks {
				callback()
			}
			So(fired, ShouldEqual, 1)

			Convey("And fire immediately once ready", func() {
				e.OnReady(func() { fired++ })
				So(fired, ShouldEqual, 2)
			})
		})
	})
}

func TestEngineVolume(t *testing.T) {
	Convey("Given an engine without a live session", t, func() {
		e := newEngine("test", func(t string) string { return t }, classifyLoadError)

		Convey("Volume is clamped and remembered", func() {
			So(e.SetVolume(150), ShouldBeNil)
			So(e.Volume(), ShouldEqual, 100)

			So(e.SetVolume(-5), ShouldBeNil)
			So(e.Volume(), ShouldEqual, 0)

			So(e.SetVolume(60), ShouldBeNil)
			So(e.Volume(), ShouldEqual, 60)
		})

		Convey("Mute state is remembered", func() {
			So(e.Mute(), ShouldBeNil)
			So(e.Muted(), ShouldBeTrue)

			So(e.Unmute(), ShouldBeNil)
			So(e.Muted(), ShouldBeFalse)
		})
	})
}

func TestEngineTransportBeforeLoad(t *testing.T) {
	Convey("Given drivers that never loaded anything", t, func() {
		drivers := []Driver{NewEmbed(), NewMedia()}

		Convey("Transport calls are harmless no-ops", func() {
			for _, d := range drivers {
				So(d.Play(), ShouldBeNil)
				So(d.Pause(), ShouldBeNil)
				So(d.SeekTo(5), ShouldBeNil)
				So(d.Stop(), ShouldBeNil)
				So(d.CurrentTime(), ShouldEqual, 0)
				So(d.Close(), ShouldBeNil)
			}
		})
	})
}
