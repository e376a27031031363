package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/battle64/internal/app"
	"github.com/okian/battle64/internal/domain/types"
)

type fakeBroadcaster struct {
	mu      sync.Mutex
	updates []types.Update
	err     error
}

func (f *fakeBroadcaster) Name() string { return "fake" }

func (f *fakeBroadcaster) Broadcast(_ context.Context, u types.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return f.err
}

func (f *fakeBroadcaster) received() []types.Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Update(nil), f.updates...)
}

// tickUntil advances the clock one interval at a time until cond holds.
func tickUntil(clock *clockwork.FakeClock, interval time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		clock.Advance(interval)
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestLiveRefresh(t *testing.T) {
	Convey("Given a service with live broadcasters on a fake clock", t, func() {
		const interval = time.Second
		clock := clockwork.NewFakeClock()
		sink := &fakeBroadcaster{}
		broken := &fakeBroadcaster{err: errors.New("socket closed")}
		svc := newService(
			service.WithClock(clock),
			service.WithRefreshInterval(interval),
			service.WithBroadcaster(broken),
			service.WithBroadcaster(sink),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		So(clock.BlockUntilContext(ctx, 1), ShouldBeNil)

		Convey("When no event has changed", func() {
			clock.Advance(interval)
			time.Sleep(20 * time.Millisecond)

			Convey("Then nothing is broadcast", func() {
				So(sink.received(), ShouldBeEmpty)
			})
		})

		Convey("When entries arrive", func() {
			_, _ = svc.Submit(ctx, "race", raceEntry("a", "alice", "1:10.000"))
			_, _ = svc.Submit(ctx, "race", raceEntry("b", "bob", "1:20.000"))
			So(waitForEntries(ctx, svc, "race", 2), ShouldBeTrue)
			So(tickUntil(clock, interval, func() bool {
				got := sink.received()
				return len(got) > 0 && len(got[len(got)-1].Entries) == 2
			}), ShouldBeTrue)

			Convey("Then every newcomer is reported as new", func() {
				first := sink.received()[len(sink.received())-1]
				So(first.EventID, ShouldEqual, "race")
				So(first.Entries[0].ID, ShouldEqual, "a")
				for _, m := range first.Movements {
					So(m.IsNew, ShouldBeTrue)
				}
			})

			Convey("Then a failing sink does not block the others", func() {
				So(broken.received(), ShouldNotBeEmpty)
			})

			Convey("And a faster time moves a user up", func() {
				before := len(sink.received())
				_, _ = svc.Submit(ctx, "race", raceEntry("c", "bob", "1:00.000"))
				So(waitForEntries(ctx, svc, "race", 3), ShouldBeTrue)
				So(tickUntil(clock, interval, func() bool { return len(sink.received()) > before }), ShouldBeTrue)

				update := sink.received()[len(sink.received())-1]
				moves := map[string]types.Movement{}
				for _, m := range update.Movements {
					moves[m.UserID] = m
				}

				Convey("Then the movement carries the previous rank and delta", func() {
					So(update.Entries[0].ID, ShouldEqual, "c")
					So(moves["bob"].PreviousRank, ShouldEqual, 2)
					So(moves["bob"].Rank, ShouldEqual, 1)
					So(moves["bob"].Delta, ShouldEqual, 1)
					So(moves["alice"].Delta, ShouldEqual, -1)
				})
			})
		})

		Convey("When a subscriber asks for the current state", func() {
			_, _ = svc.Submit(ctx, "race", raceEntry("a", "alice", "1:10.000"))
			So(waitForEntries(ctx, svc, "race", 1), ShouldBeTrue)
			update, err := svc.CurrentUpdate(ctx, "race")

			Convey("Then it gets the ranking without movements", func() {
				So(err, ShouldBeNil)
				So(update.Entries, ShouldHaveLength, 1)
				So(update.Movements, ShouldBeEmpty)
				So(update.Version, ShouldBeGreaterThan, 0)
			})
		})
	})
}
