package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/battle64/internal/domain/types"
)

type recordingConn struct {
	msgs    []*nats.Msg
	err     error
	drained bool
}

func (c *recordingConn) PublishMsg(msg *nats.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingConn) Drain() error {
	c.drained = true
	return nil
}

func TestPublisher(t *testing.T) {
	Convey("Given a publisher with a subject prefix", t, func() {
		nc := &recordingConn{}
		p := newPublisher(nc, "battle64.leaderboard.", nil)

		So(p.Name(), ShouldEqual, "nats")
		So(p.Subject("spring-cup"), ShouldEqual, "battle64.leaderboard.spring-cup")

		Convey("When an update is broadcast", func() {
			err := p.Broadcast(context.Background(), types.Update{
				EventID: "spring-cup",
				Version: 7,
				Entries: []types.Entry{{Rank: 1, ID: "a", Time: "1:05.000"}},
			})

			Convey("Then it is published as JSON with headers", func() {
				So(err, ShouldBeNil)
				So(nc.msgs, ShouldHaveLength, 1)
				msg := nc.msgs[0]
				So(msg.Subject, ShouldEqual, "battle64.leaderboard.spring-cup")
				So(msg.Header.Get(HeaderEventID), ShouldEqual, "spring-cup")
				So(msg.Header.Get(HeaderVersion), ShouldEqual, "7")

				var got types.Update
				So(json.Unmarshal(msg.Data, &got), ShouldBeNil)
				So(got.Entries[0].Time, ShouldEqual, "1:05.000")
			})
		})

		Convey("When the update has no event id", func() {
			err := p.Broadcast(context.Background(), types.Update{})

			Convey("Then nothing is published", func() {
				So(err, ShouldEqual, ErrNoEvent)
				So(nc.msgs, ShouldBeEmpty)
			})
		})

		Convey("When the connection rejects the publish", func() {
			nc.err = nats.ErrConnectionClosed
			err := p.Broadcast(context.Background(), types.Update{EventID: "x"})

			Convey("Then the cause is wrapped", func() {
				So(errors.Is(err, nats.ErrConnectionClosed), ShouldBeTrue)
			})
		})

		Convey("When the publisher is closed", func() {
			So(p.Close(), ShouldBeNil)
			So(nc.drained, ShouldBeTrue)
		})
	})

	Convey("Given an empty prefix", t, func() {
		p := newPublisher(&recordingConn{}, "", nil)
		So(p.Subject("e"), ShouldEqual, "e")
	})
}
