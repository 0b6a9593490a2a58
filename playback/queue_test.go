package playback

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestQueueNavigation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	Convey("Given an empty queue", t, func() {
		q := NewQueue(nil, "")

		So(q.IsEmpty(), ShouldBeTrue)

		_, result := q.Next(false, RepeatOff, rng)
		So(result, ShouldEqual, navNone)

		_, result = q.Previous(RepeatOff)
		So(result, ShouldEqual, navNone)
	})

	Convey("Given a queue of three tracks", t, func() {
		q := NewQueue([]string{"a", "b", "c"}, "a")

		Convey("Next advances in order", func() {
			id, result := q.Next(false, RepeatOff, rng)
			So(result, ShouldEqual, navPlay)
			So(id, ShouldEqual, "b")
			So(q.CurrentIndex(), ShouldEqual, 1)
		})

		Convey("Under repeat-all three nexts wrap 1, 2, 0", func() {
			var indexes []int
			for i := 0; i < 3; i++ {
				_, result := q.Next(false, RepeatAll, rng)
				So(result, ShouldEqual, navPlay)
				indexes = append(indexes, q.CurrentIndex())
			}
			So(indexes, ShouldResemble, []int{1, 2, 0})
		})

		Convey("Without repeat the last position clamps and holds", func() {
			q.Next(false, RepeatOff, rng)
			q.Next(false, RepeatOff, rng)
			So(q.CurrentIndex(), ShouldEqual, 2)

			id, result := q.Next(false, RepeatOff, rng)
			So(result, ShouldEqual, navHold)
			So(id, ShouldEqual, "c")
			So(q.CurrentIndex(), ShouldEqual, 2)
		})

		Convey("Previous at the front holds without repeat", func() {
			id, result := q.Previous(RepeatOff)
			So(result, ShouldEqual, navHold)
			So(id, ShouldEqual, "a")
			So(q.CurrentIndex(), ShouldEqual, 0)
		})

		Convey("Previous at the front wraps under repeat-all", func() {
			id, result := q.Previous(RepeatAll)
			So(result, ShouldEqual, navPlay)
			So(id, ShouldEqual, "c")
			So(q.CurrentIndex(), ShouldEqual, 2)
		})

		Convey("Shuffle never picks the current position", func() {
			for i := 0; i < 100; i++ {
				before := q.CurrentIndex()
				_, result := q.Next(true, RepeatOff, rng)
				So(result, ShouldEqual, navPlay)
				So(q.CurrentIndex(), ShouldNotEqual, before)
			}
		})

		Convey("The index invariant holds across every mode combination", func() {
			for _, shuffle := range []bool{false, true} {
				for _, repeat := range []RepeatMode{RepeatOff, RepeatAll, RepeatOne} {
					for i := 0; i < 50; i++ {
						q.Next(shuffle, repeat, rng)
						So(q.CurrentIndex(), ShouldBeGreaterThanOrEqualTo, 0)
						So(q.CurrentIndex(), ShouldBeLessThan, q.Len())

						q.Previous(repeat)
						So(q.CurrentIndex(), ShouldBeGreaterThanOrEqualTo, 0)
						So(q.CurrentIndex(), ShouldBeLessThan, q.Len())
					}
				}
			}
		})
	})

	Convey("Given a single-track queue with shuffle", t, func() {
		q := NewQueue([]string{"only"}, "only")

		_, result := q.Next(true, RepeatOff, rng)
		So(result, ShouldEqual, navNone)
		So(q.CurrentIndex(), ShouldEqual, 0)
	})
}

func TestQueueReplace(t *testing.T) {
	Convey("Given a queue", t, func() {
		q := NewQueue(nil, "")

		Convey("Replace points the index at the named track", func() {
			q.Replace([]string{"a", "b", "c"}, "b")
			So(q.CurrentIndex(), ShouldEqual, 1)

			current, ok := q.Current()
			So(ok, ShouldBeTrue)
			So(current, ShouldEqual, "b")
		})

		Convey("A track absent from the list is inserted at the front", func() {
			q.Replace([]string{"a", "b"}, "x")
			So(q.IDs(), ShouldResemble, []string{"x", "a", "b"})
			So(q.CurrentIndex(), ShouldEqual, 0)
		})
	})

	Convey("Given persisted identifiers", t, func() {
		Convey("Restoration points at the last played track", func() {
			q := NewQueue([]string{"a", "b", "c"}, "c")
			So(q.CurrentIndex(), ShouldEqual, 2)
		})

		Convey("An unknown last played track leaves the index at 0", func() {
			q := NewQueue([]string{"a", "b"}, "zzz")
			So(q.CurrentIndex(), ShouldEqual, 0)
		})
	})
}
