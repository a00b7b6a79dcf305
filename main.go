/*
Robogrid is a single page app in which a small robot sweeps a grid of cells: it walks to the scan
row, inspects each cell from left to right, marks the cells above and below every marked cell it
finds, and flies home. The server owns the board; the browser only renders it and reports when
each animation has finished, so every move on the server waits on the page.

With -headless no browser is involved: animations complete after their nominal duration and the
board is printed to the console as the robot moves.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"robogrid/animation"
	"robogrid/config"
	"robogrid/grid_world"
	"robogrid/page"
	"robogrid/robot"
	"robogrid/server"
	"robogrid/server/fastview"
)

var (
	configPath *string
	dbg        *bool
	headless   *bool
	speed      *float64
	host       *string
	port       *string
)

func init() {
	configPath = flag.String("config", "./config.yaml", "path to the page config")
	dbg = flag.Bool("debug", false, "log every animation command")
	headless = flag.Bool("headless", false, "run one randomized sweep in the console, without a browser")
	speed = flag.Float64("speed", 1.0, "headless playback speed; 0 skips animation time entirely")
	host = flag.String("host", "", "The host ip, overrides the config")
	port = flag.String("port", "", "The host port, overrides the config")
}

// loggingHost logs each command before passing it on.
type loggingHost struct {
	animation.Host
}

func (lh loggingHost) Submit(ctx context.Context, cmd animation.Command) <-chan error {
	log.Printf("%s %s %s", cmd.Kind, cmd.EleId, cmd.Class)
	return lh.Host.Submit(ctx, cmd)
}

func loadConfig() (*config.PageConfig, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	return cfg, nil
}

// buildPage wires the board to the passed host.
func buildPage(ctx context.Context, cfg *config.PageConfig, host animation.Host) *page.Page {
	if *dbg {
		host = loggingHost{host}
	}
	an := animation.New(host)
	grid := grid_world.NewGrid(
		cfg.Grid.Width,
		cfg.Grid.Height,
		an,
		grid_world.WithScanRow(cfg.Grid.ScanRow),
		grid_world.WithMarkProbability(cfg.Grid.MarkProbability))
	rb := robot.New(grid, an, cfg.RobotConfig())
	return page.New(ctx, grid, rb, an, page.Config{
		JokeTrigger:  cfg.Joke.Trigger,
		JokeDelay:    cfg.Joke.Delay,
		JokeDuration: cfg.Joke.Duration,
	})
}

func runServer(ctx context.Context, cfg *config.PageConfig) error {
	stage := fastview.NewStage()
	pg := buildPage(ctx, cfg, stage)

	srv, err := server.NewServer(
		ctx,
		cfg.Addr(),
		pg,
		stage,
		cfg.CellSize(),
		cfg.Robot.BorderColor)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// runHeadless randomizes the board and runs one sweep, printing the board on every change.
func runHeadless(ctx context.Context, cfg *config.PageConfig) error {
	timed := animation.NewTimed(cfg.Grid.TransitionLength)
	if *speed <= 0 {
		timed.Scale = 0
	} else {
		timed.Scale = 1 / *speed
	}
	pg := buildPage(ctx, cfg, timed)

	printed := make(chan struct{})
	printCtx, stopPrinting := context.WithCancel(ctx)
	go func() {
		defer close(printed)
		for {
			select {
			case <-printCtx.Done():
				return
			case snap := <-pg.Snapshots():
				fmt.Printf("robot %v, marked %d\n", snap.Robot, snap.Marked)
				pg.Grid().Show(os.Stdout, snap.Robot)
				fmt.Println()
			}
		}
	}()

	if err := pg.Randomize(ctx); err != nil {
		stopPrinting()
		return err
	}
	if err := pg.Go(); err != nil {
		stopPrinting()
		return err
	}
	pg.Wait()

	stopPrinting()
	<-printed
	pg.Grid().Show(os.Stdout, pg.Robot().Position())
	return ctx.Err()
}

func runApp() (err error) {
	flag.Parse()

	var cfg *config.PageConfig
	if cfg, err = loadConfig(); err != nil {
		return
	}

	appCtx, appCancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer appCancel()

	if *headless {
		return runHeadless(appCtx, cfg)
	}
	return runServer(appCtx, cfg)
}

func main() {
	if err := runApp(); err != nil {
		log.Fatal(err)
	}
}
