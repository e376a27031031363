package timing_test

import (
	"math"
	"testing"

	"github.com/okian/battle64/internal/domain/timing"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidateFormat(t *testing.T) {
	Convey("Given raw time strings", t, func() {
		Convey("When they match M:SS.mmm or MM:SS.mmm", func() {
			Convey("Then they are valid", func() {
				So(timing.ValidateFormat("1:32.456"), ShouldBeTrue)
				So(timing.ValidateFormat("12:00.000"), ShouldBeTrue)
				So(timing.ValidateFormat("0:00.000"), ShouldBeTrue)
				So(timing.ValidateFormat("  1:32.456\t"), ShouldBeTrue)
			})
		})

		Convey("When they are empty, non-numeric or have the wrong digit counts", func() {
			Convey("Then they are invalid", func() {
				for _, raw := range []string{
					"", "   ", "garbage", "65", "1:5.000", "1:05.00", "1:05.0000",
					"123:00.000", "1-05.000", "1:05,000", "1:05", ":05.000", "a:bc.def",
					"١:٠٥.٠٠٠",
				} {
					So(timing.ValidateFormat(raw), ShouldBeFalse)
				}
			})
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given the normalizer", t, func() {
		Convey("When the input is empty or garbage", func() {
			Convey("Then it returns the fallback", func() {
				So(timing.Normalize(""), ShouldEqual, "0:00.000")
				So(timing.Normalize("  "), ShouldEqual, "0:00.000")
				So(timing.Normalize("garbage"), ShouldEqual, "0:00.000")
				So(timing.Normalize("1:2:3"), ShouldEqual, "0:00.000")
				So(timing.Normalize("-5"), ShouldEqual, "0:00.000")
				So(timing.Normalize("1.2.3"), ShouldEqual, "0:00.000")
				So(timing.Normalize("."), ShouldEqual, "0:00.000")
			})
		})

		Convey("When the input is already valid", func() {
			Convey("Then it passes through trimmed", func() {
				So(timing.Normalize("1:32.456"), ShouldEqual, "1:32.456")
				So(timing.Normalize(" 01:32.456 "), ShouldEqual, "01:32.456")
			})
		})

		Convey("When the input is a bare seconds count", func() {
			Convey("Then it is converted to minutes and seconds", func() {
				So(timing.Normalize("65"), ShouldEqual, "1:05.000")
				So(timing.Normalize("5"), ShouldEqual, "0:05.000")
				So(timing.Normalize("75.32"), ShouldEqual, "1:15.320")
				So(timing.Normalize("0.5"), ShouldEqual, "0:00.500")
				So(timing.Normalize("600"), ShouldEqual, "10:00.000")
				So(timing.Normalize("65."), ShouldEqual, "1:05.000")
			})
		})

		Convey("When bare seconds exceed two minute digits", func() {
			Convey("Then it falls back", func() {
				So(timing.Normalize("6000"), ShouldEqual, "0:00.000")
				So(timing.Normalize("99999999999999999999999999"), ShouldEqual, "0:00.000")
			})
		})

		Convey("When normalizing any input", func() {
			Convey("Then the result is always a valid format", func() {
				for _, raw := range []string{"", "x", "65", "1:32.456", "5999.999", "🏁", "1:32.4567"} {
					So(timing.ValidateFormat(timing.Normalize(raw)), ShouldBeTrue)
				}
			})
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given the classifier", t, func() {
		Convey("Then each path reports its outcome", func() {
			_, o := timing.Classify("1:00.000")
			So(o, ShouldEqual, timing.Valid)
			_, o = timing.Classify("60")
			So(o, ShouldEqual, timing.Repaired)
			_, o = timing.Classify("soon")
			So(o, ShouldEqual, timing.Fallback)
			So(timing.Repaired.String(), ShouldEqual, "repaired")
		})
	})
}

func TestToComparableKey(t *testing.T) {
	Convey("Given normalized times", t, func() {
		Convey("Then the key is minutes*60 + seconds", func() {
			So(timing.ToComparableKey("2:00.000"), ShouldEqual, 120.0)
			So(timing.ToComparableKey("1:15.320"), ShouldAlmostEqual, 75.32, 1e-9)
			So(timing.ToComparableKey("0:59.999"), ShouldAlmostEqual, 59.999, 1e-9)
			So(timing.ToComparableKey("0:00.000"), ShouldEqual, 0.0)
		})

		Convey("Then unnormalized input never outranks a real time", func() {
			So(math.IsInf(timing.ToComparableKey("bogus"), 1), ShouldBeTrue)
		})
	})
}

func TestMillis(t *testing.T) {
	Convey("Given millisecond conversions", t, func() {
		Convey("Then formatting and parsing agree", func() {
			s, ok := timing.FormatMillis(75_320)
			So(ok, ShouldBeTrue)
			So(s, ShouldEqual, "1:15.320")

			ms, ok := timing.Milliseconds(s)
			So(ok, ShouldBeTrue)
			So(ms, ShouldEqual, 75_320)
		})

		Convey("Then out of range values are rejected", func() {
			_, ok := timing.FormatMillis(-1)
			So(ok, ShouldBeFalse)
			_, ok = timing.FormatMillis(100 * 60 * 1000)
			So(ok, ShouldBeFalse)
			_, ok = timing.Milliseconds("nope")
			So(ok, ShouldBeFalse)
		})
	})
}
