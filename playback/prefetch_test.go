package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// gatedResolver blocks each resolution until released, recording calls.
type gatedResolver struct {
	mu    sync.Mutex
	calls []string
	gate  chan struct{}
	urls  map[string]string
	errs  map[string]error
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{
		gate: make(chan struct{}),
		urls: map[string]string{},
		errs: map[string]error{},
	}
}

func (r *gatedResolver) resolve(id string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, id)
	r.mu.Unlock()

	<-r.gate

	if err := r.errs[id]; err != nil {
		return "", err
	}
	return r.urls[id], nil
}

func (r *gatedResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestPrefetcher(t *testing.T) {
	Convey("Given a prefetcher over a gated resolver", t, func() {
		resolver := newGatedResolver()
		resolver.urls["x"] = "https://media.example/x.m4a"
		p := NewPrefetcher(resolver.resolve)

		Convey("Start is idempotent per identifier", func() {
			p.Start("x")
			p.Start("x")
			p.Start("x")

			close(resolver.gate)
			time.Sleep(20 * time.Millisecond)

			So(resolver.callCount(), ShouldEqual, 1)
		})

		Convey("Resolve awaits the in-flight resolution", func() {
			p.Start("x")

			results := make(chan string, 1)
			go func() {
				url, _ := p.Resolve("x")
				results <- url
			}()

			close(resolver.gate)

			select {
			case url := <-results:
				So(url, ShouldEqual, "https://media.example/x.m4a")
			case <-time.After(time.Second):
				t.Fatal("resolve never returned")
			}

			So(resolver.callCount(), ShouldEqual, 1)
		})

		Convey("A settled record resolves without another backend call", func() {
			p.Start("x")
			close(resolver.gate)
			time.Sleep(20 * time.Millisecond)

			url, err := p.Resolve("x")
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://media.example/x.m4a")
			So(resolver.callCount(), ShouldEqual, 1)
		})

		Convey("Resolve for an unknown identifier calls the backend directly", func() {
			resolver.urls["y"] = "https://media.example/y.m4a"
			close(resolver.gate)

			url, err := p.Resolve("y")
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://media.example/y.m4a")
		})

		Convey("A newer identifier supersedes the outstanding record", func() {
			resolver.urls["y"] = "https://media.example/y.m4a"

			p.Start("x")
			p.Start("y")
			close(resolver.gate)
			time.Sleep(20 * time.Millisecond)

			// x's record is gone; resolving it reaches the backend again
			url, err := p.Resolve("x")
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://media.example/x.m4a")
			So(resolver.callCount(), ShouldEqual, 3)
		})

		Convey("Resolution failure is swallowed by Start and retried by Resolve", func() {
			failing := newGatedResolver()
			failing.errs["x"] = errors.New("boom")
			close(failing.gate)

			fp := NewPrefetcher(failing.resolve)
			fp.Start("x")
			time.Sleep(20 * time.Millisecond)

			_, err := fp.Resolve("x")
			So(err, ShouldNotBeNil)
			So(failing.callCount(), ShouldEqual, 2)
		})
	})
}
