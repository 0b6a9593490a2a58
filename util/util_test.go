package util

import (
	"testing"

	"github.com/soundpulse-cli/soundpulse/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseClock(t *testing.T) {
	Convey("Given clock-style duration strings", t, func() {
		Convey("Minute form parses as seconds", func() {
			So(ParseClock("3:45"), ShouldEqual, 225)
		})

		Convey("Hour form parses as seconds", func() {
			So(ParseClock("1:02:03"), ShouldEqual, 3723)
		})

		Convey("Malformed input yields zero", func() {
			So(ParseClock(""), ShouldEqual, 0)
			So(ParseClock("abc"), ShouldEqual, 0)
			So(ParseClock("225"), ShouldEqual, 0)
			So(ParseClock("-1:30"), ShouldEqual, 0)
		})
	})
}

func TestFormatClock(t *testing.T) {
	Convey("Given second counts", t, func() {
		So(FormatClock(225), ShouldEqual, "3:45")
		So(FormatClock(3723), ShouldEqual, "1:02:03")
		So(FormatClock(5), ShouldEqual, "0:05")
		So(FormatClock(-3), ShouldEqual, "0:00")
	})
}

func TestFormatDuration(t *testing.T) {
	Convey("Given second counts", t, func() {
		So(FormatDuration(5023), ShouldEqual, "1h 23min")
		So(FormatDuration(180), ShouldEqual, "3min")
	})
}

func TestClamp(t *testing.T) {
	Convey("Given values around a range", t, func() {
		So(Clamp(5, 0, 10), ShouldEqual, 5)
		So(Clamp(-5, 0, 10), ShouldEqual, 0)
		So(Clamp(15, 0, 10), ShouldEqual, 10)
	})
}

func TestQuantify(t *testing.T) {
	Convey("Given counts", t, func() {
		So(Quantify(1, "track", "tracks"), ShouldEqual, "1 track")
		So(Quantify(2, "track", "tracks"), ShouldEqual, "2 tracks")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Given strings", t, func() {
		So(Capitalize("hello"), ShouldEqual, "Hello")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestDelete(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()

		Convey("Deleting a file removes it", func() {
			So(fs.WriteFile("/test.txt", []byte("data"), 0o644), ShouldBeNil)
			So(Delete("/test.txt"), ShouldBeNil)

			exists, _ := fs.Exists("/test.txt")
			So(exists, ShouldBeFalse)
		})

		Convey("Deleting a directory removes it recursively", func() {
			So(fs.MkdirAll("/dir/sub", 0o755), ShouldBeNil)
			So(fs.WriteFile("/dir/sub/file", []byte("data"), 0o644), ShouldBeNil)
			So(Delete("/dir"), ShouldBeNil)

			exists, _ := fs.Exists("/dir")
			So(exists, ShouldBeFalse)
		})

		Convey("Deleting a missing path errors", func() {
			So(Delete("/nope"), ShouldNotBeNil)
		})
	})
}
