package page

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"robogrid/animation"
	"robogrid/grid_world"
	"robogrid/models"
	"robogrid/robot"

	. "github.com/smartystreets/goconvey/convey"
)

// scheduler records the functions a page schedules instead of running them.
type scheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (s *scheduler) afterFunc(d time.Duration, fn func()) *time.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, fn)
	return nil
}

func newTestPage(opts ...grid_world.GridOption) (*Page, *animation.Recorder, *scheduler) {
	rec := animation.NewRecorder()
	an := animation.New(rec)
	grid := grid_world.NewGrid(grid_world.DefaultWidth, grid_world.DefaultHeight, an, opts...)
	rb := robot.New(grid, an, robot.DefaultConfig())
	pg := New(context.Background(), grid, rb, an, DefaultConfig())
	sched := &scheduler{}
	pg.afterFunc = sched.afterFunc
	return pg, rec, sched
}

func goDisabled(rec *animation.Recorder) (states []bool) {
	for _, cmd := range rec.CommandsOfKind(animation.KindProperty) {
		if cmd.EleId == models.GoEleId {
			states = append(states, cmd.Ops[0].Value.(bool))
		}
	}
	return
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestGo(t *testing.T) {
	Convey("When go is clicked", t, func() {
		pg, rec, sched := newTestPage()

		Convey("The button is disabled for the length of the sweep", func() {
			So(pg.Go(), ShouldBeNil)
			pg.Wait()

			So(goDisabled(rec), ShouldResemble, []bool{true, false})
			cmds := rec.Commands()
			So(cmds[0].EleId, ShouldEqual, models.GoEleId)
			So(cmds[len(cmds)-1].EleId, ShouldEqual, models.GoEleId)
			So(pg.Running(), ShouldBeFalse)
			So(pg.Robot().Position(), ShouldResemble, models.Position{})
		})

		Convey("A click during a sweep is refused and not counted", func() {
			rec.Hold()
			So(pg.Go(), ShouldBeNil)
			So(pg.Running(), ShouldBeTrue)
			So(errors.Is(pg.Go(), ErrSweepInFlight), ShouldBeTrue)
			So(pg.GoCount(), ShouldEqual, 1)

			rec.Release(nil)
			pg.Wait()
			So(pg.Running(), ShouldBeFalse)
			So(pg.Go(), ShouldBeNil)
			pg.Wait()
			So(pg.GoCount(), ShouldEqual, 2)
		})

		Convey("Only the second click schedules the joke, five seconds later", func() {
			for i := 0; i < 4; i++ {
				So(pg.Go(), ShouldBeNil)
				pg.Wait()
				if i == 0 {
					So(sched.delays, ShouldBeEmpty)
				}
			}
			So(sched.delays, ShouldResemble, []time.Duration{5 * time.Second})
		})

		Convey("The joke is scheduled without waiting for the sweep", func() {
			So(pg.Go(), ShouldBeNil)
			pg.Wait()

			rec.Hold()
			So(pg.Go(), ShouldBeNil)
			So(pg.Running(), ShouldBeTrue)
			So(len(sched.delays), ShouldEqual, 1)

			rec.Release(nil)
			pg.Wait()
		})

		Convey("The scheduled joke animates the page body", func() {
			So(pg.Go(), ShouldBeNil)
			pg.Wait()
			So(pg.Go(), ShouldBeNil)
			pg.Wait()
			rec.Clear()

			sched.fns[0]()
			jokes := rec.CommandsOfKind(animation.KindAnimate)
			So(len(jokes), ShouldEqual, 1)
			So(jokes[0].EleId, ShouldEqual, models.PageEleId)
			So(jokes[0].Timing.Duration, ShouldEqual, 30000.0)
			So(len(jokes[0].Frames), ShouldEqual, len(JokeFrames()))
		})
	})
}

func TestJokeFrames(t *testing.T) {
	Convey("The joke's keyframes", t, func() {
		frames := JokeFrames()

		Convey("Start still and end a full turn around", func() {
			So(len(frames), ShouldEqual, 70)
			So(frames[0], ShouldResemble, animation.Keyframe{"offset": 0, "transform": "translate(0, 0)"})
			So(frames[len(frames)-1]["transform"], ShouldEqual, "translate(0, 0) rotate(-360deg)")
			So(frames[len(frames)-1]["easing"], ShouldEqual, "ease-out")
		})

		Convey("Alternate the shake before the wobble", func() {
			for i := 1; i <= 36; i++ {
				if i%2 == 1 {
					So(frames[i]["transform"], ShouldEqual, "translate(-0.5%, -0.5%)")
				} else {
					So(frames[i]["transform"], ShouldEqual, "translate(0.4%, 0.4%)")
				}
			}
			So(frames[37]["offset"], ShouldEqual, 0.05)
		})

		Convey("Have explicit offsets in increasing order", func() {
			last := -1.0
			for _, frame := range frames {
				offset, ok := frame["offset"]
				if !ok {
					continue
				}
				var value float64
				switch v := offset.(type) {
				case int:
					value = float64(v)
				case float64:
					value = v
				}
				So(value, ShouldBeGreaterThan, last)
				last = value
			}
			So(last, ShouldEqual, 1.0)
		})
	})
}

func TestGridControls(t *testing.T) {
	Convey("When the grid controls are used", t, func() {
		ctx := context.Background()

		Convey("Reset returns at once and clears the grid in the background", func() {
			pg, rec, _ := newTestPage()
			So(pg.ToggleCell(ctx, 3, 3), ShouldBeNil)
			So(pg.ToggleCell(ctx, 4, 3), ShouldBeNil)
			rec.Hold()

			pg.Reset()
			waitFor(t, func() bool { return rec.Pending() == 2 })
			So(pg.Grid().MarkedCount(), ShouldEqual, 0)
			rec.Release(nil)
		})

		Convey("Randomize waits and marks the scan row", func() {
			pg, _, _ := newTestPage(grid_world.WithMarkProbability(1.0))
			So(pg.Randomize(ctx), ShouldBeNil)
			So(pg.Grid().MarkedCount(), ShouldEqual, grid_world.DefaultWidth)
			So((<-pg.Snapshots()).Marked, ShouldEqual, grid_world.DefaultWidth)
		})

		Convey("A cell click toggles that cell", func() {
			pg, _, _ := newTestPage()
			So(pg.ToggleCell(ctx, 5, 6), ShouldBeNil)
			So(pg.Grid().MustCell(5, 6).Marked(), ShouldBeTrue)
			So(pg.ToggleCell(ctx, 5, 6), ShouldBeNil)
			So(pg.Grid().MustCell(5, 6).Marked(), ShouldBeFalse)
		})

		Convey("A click outside the grid is reported", func() {
			pg, _, _ := newTestPage()
			So(errors.Is(pg.ToggleCell(ctx, 30, 0), grid_world.ErrOutOfRange), ShouldBeTrue)
		})
	})
}

func TestSnapshots(t *testing.T) {
	Convey("Snapshots keep only the latest board summary", t, func() {
		ctx := context.Background()
		pg, _, _ := newTestPage()

		So(pg.ToggleCell(ctx, 0, 0), ShouldBeNil)
		So(pg.ToggleCell(ctx, 1, 0), ShouldBeNil)
		So(pg.Robot().FlyTo(ctx, 2, 3), ShouldBeNil)

		snap := <-pg.Snapshots()
		So(snap, ShouldResemble, models.Snapshot{
			Robot:  models.Position{X: 2, Y: 3},
			Marked: 2,
			Cells:  210,
		})
		select {
		case <-pg.Snapshots():
			t.Fatal("stale snapshot retained")
		default:
		}
	})
}
