package ctl

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func execute(stdin string, args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const jsonEntries = `[
  {"id": "a", "user_id": "u1", "username": "Alice", "time": "1:05.000", "verified": true},
  {"id": "b", "user_id": "u2", "username": "Bob", "time": "garbage"},
  {"id": "c", "user_id": "u3", "username": "Carol", "time": 59},
  {"id": "d", "user_id": "u4", "username": "Dave", "time": null}
]`

const yamlEntries = `
- id: a
  user_id: u1
  username: Alice
  time: "1:05.000"
- id: b
  user_id: u2
  username: Bob
  time: 65
  submitted_at: 2024-01-02T00:00:00Z
- id: c
  user_id: u3
  username: Carol
  time: "1:05.000"
  submitted_at: 2024-01-01T00:00:00Z
`

func TestRankCommand(t *testing.T) {
	Convey("Given entries on stdin", t, func() {
		Convey("When ranking as JSON", func() {
			out, err := execute(jsonEntries, "rank", "-", "--format", "json")
			So(err, ShouldBeNil)

			var rows []jsonRow
			So(json.Unmarshal([]byte(out), &rows), ShouldBeNil)

			Convey("Then valid times lead and unusable ones follow in input order", func() {
				So(rows, ShouldHaveLength, 4)
				So(rows[0].ID, ShouldEqual, "c")
				So(rows[0].Time, ShouldEqual, "0:59.000")
				So(rows[0].ValidFormat, ShouldBeFalse)
				So(rows[1].ID, ShouldEqual, "a")
				So(rows[2].ID, ShouldEqual, "b")
				So(rows[2].IsFallback, ShouldBeTrue)
				So(rows[3].ID, ShouldEqual, "d")
				So(rows[3].Time, ShouldEqual, "0:00.000")
				for i, r := range rows {
					So(r.Rank, ShouldEqual, i+1)
				}
			})
		})

		Convey("When ranking as a table", func() {
			out, err := execute(jsonEntries, "rank", "-")

			Convey("Then fallback times carry the marker", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Runner")
				So(out, ShouldContainSubstring, "0:00.000 !")
				So(out, ShouldContainSubstring, "1:05.000")
				So(strings.Index(out, "Carol"), ShouldBeLessThan, strings.Index(out, "Alice"))
			})
		})

		Convey("When limiting the output", func() {
			out, err := execute(jsonEntries, "rank", "-", "-o", "json", "-n", "2")
			So(err, ShouldBeNil)
			var rows []jsonRow
			So(json.Unmarshal([]byte(out), &rows), ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
		})

		Convey("When the input is not a list", func() {
			_, err := execute(`{"id": "a"}`, "rank", "-")
			So(errors.Is(err, ErrInput), ShouldBeTrue)
		})

		Convey("When the format is unknown", func() {
			_, err := execute(jsonEntries, "rank", "-", "-o", "xml")
			So(err, ShouldNotBeNil)
		})

		Convey("When the tie break is unknown", func() {
			_, err := execute(jsonEntries, "rank", "-", "--tie-break", "fastest")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a YAML file with tied times", t, func() {
		path := filepath.Join(t.TempDir(), "entries.yaml")
		So(os.WriteFile(path, []byte(yamlEntries), 0o600), ShouldBeNil)

		Convey("When ranking in input order", func() {
			out, err := execute("", "rank", path, "-o", "json")
			So(err, ShouldBeNil)
			var rows []jsonRow
			So(json.Unmarshal([]byte(out), &rows), ShouldBeNil)

			Convey("Then ties keep file order", func() {
				So([]string{rows[0].ID, rows[1].ID, rows[2].ID}, ShouldResemble, []string{"a", "b", "c"})
				So(rows[1].Time, ShouldEqual, "1:05.000")
			})
		})

		Convey("When ranking by submission date", func() {
			out, err := execute("", "rank", path, "-o", "json", "--tie-break", "submission_date")
			So(err, ShouldBeNil)
			var rows []jsonRow
			So(json.Unmarshal([]byte(out), &rows), ShouldBeNil)

			Convey("Then the earlier submission wins the tie", func() {
				So(rows[0].ID, ShouldEqual, "a")
				So(rows[1].ID, ShouldEqual, "c")
				So(rows[2].ID, ShouldEqual, "b")
			})
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := execute("", "rank", filepath.Join(t.TempDir(), "nope.json"))
		So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
	})
}

func TestUsernameTruncation(t *testing.T) {
	Convey("Given a long username", t, func() {
		in := `[{"id":"a","user_id":"u","username":"averyveryverylongname","time":"1:00.000"}]`
		out, err := execute(in, "rank", "-", "-o", "json", "--max-name", "8")
		So(err, ShouldBeNil)
		var rows []jsonRow
		So(json.Unmarshal([]byte(out), &rows), ShouldBeNil)
		So(rows[0].Username, ShouldEqual, "averyve…")
	})
}
