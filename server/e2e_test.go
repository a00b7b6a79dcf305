package server

import (
	"context"
	"flag"
	"log"
	"strings"
	"testing"
	"time"

	"robogrid/grid_world"
	"robogrid/server/fastview"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	. "github.com/smartystreets/goconvey/convey"
)

var withChromeDP = flag.String("with-chromedp", "", "devtools websocket url of a chrome instance for browser tests")

func TestBrowserSweep(t *testing.T) {
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}

	Convey("Given the page open in a browser", t, func() {
		appCtx, appCancel := context.WithCancel(context.Background())
		defer appCancel()
		stage := fastview.NewStage()
		srv, pg, _ := newTestServer(appCtx, stage, grid_world.WithMarkProbability(0))
		defer srv.Close()

		ctx, cancel := chromedp.NewRemoteAllocator(appCtx, *withChromeDP)
		defer cancel()
		ctx, cancel = chromedp.NewContext(ctx,
			chromedp.WithErrorf(log.Printf),
			chromedp.WithLogf(log.Printf),
		)
		defer cancel()
		ctx, cancel = context.WithTimeout(ctx, 90*time.Second)
		defer cancel()

		chromedp.ListenTarget(ctx, func(ev interface{}) {
			if ev, ok := ev.(*runtime.EventConsoleAPICalled); ok {
				args := make([]string, len(ev.Args))
				for i, arg := range ev.Args {
					args[i] = string(arg.Value)
				}
				t.Logf("JS CONSOLE (%s): %s", ev.Type, strings.Join(args, " "))
			}
		})

		So(chromedp.Run(ctx,
			chromedp.Navigate(srv.URL),
			chromedp.WaitVisible(`#grid .content`),
			chromedp.WaitVisible(`#robot`),
		), ShouldBeNil)
		for deadline := time.Now().Add(5 * time.Second); !stage.Attached() && time.Now().Before(deadline); {
			time.Sleep(10 * time.Millisecond)
		}
		So(stage.Attached(), ShouldBeTrue)

		Convey("Clicking a cell marks it", func() {
			So(chromedp.Run(ctx,
				chromedp.Click(`#cell-2-3`),
				chromedp.WaitVisible(`#cell-2-3.marked`),
			), ShouldBeNil)
			So(pg.Grid().MustCell(2, 3).Marked(), ShouldBeTrue)

			Convey("The sweep marks its neighbours and flies home", func() {
				So(chromedp.Run(ctx,
					chromedp.Click(`#go`),
					chromedp.WaitVisible(`#cell-2-2.marked`),
					chromedp.WaitVisible(`#cell-2-4.marked`),
				), ShouldBeNil)

				for pg.Running() && ctx.Err() == nil {
					time.Sleep(50 * time.Millisecond)
				}
				So(pg.Grid().MarkedCount(), ShouldEqual, 3)
				So(pg.Robot().Position().X, ShouldEqual, 0)

				var disabled bool
				So(chromedp.Run(ctx,
					chromedp.WaitVisible(`#go:enabled`),
					chromedp.Evaluate(`document.getElementById("go").disabled`, &disabled),
				), ShouldBeNil)
				So(disabled, ShouldBeFalse)
			})
		})
	})
}
