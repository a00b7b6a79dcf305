package page

import (
	"context"
	"fmt"

	"robogrid/animation"
	"robogrid/models"
)

const (
	shakeTilt   = "translate(-0.5%, -0.5%)"
	shakeReturn = "translate(0.4%, 0.4%)"
	shakes      = 18
	wobbles     = 12
)

// JokeFrames is the joke's keyframe sequence: the page shakes, wobbles, slumps, then turns
// upside down and finally all the way around.
func JokeFrames() []animation.Keyframe {
	frames := []animation.Keyframe{{"offset": 0, "transform": "translate(0, 0)"}}
	for i := 0; i < shakes; i++ {
		frames = append(frames,
			animation.Keyframe{"transform": shakeTilt},
			animation.Keyframe{"transform": shakeReturn})
	}

	frames = append(frames,
		animation.Keyframe{"offset": 0.05, "transform": rotate(-1)},
		animation.Keyframe{"offset": 0.18, "transform": rotate(-1)})
	for i := 0; i < wobbles; i++ {
		frames = append(frames,
			animation.Keyframe{"transform": rotate(-1)},
			animation.Keyframe{"transform": rotate(-2)})
	}
	frames = append(frames,
		animation.Keyframe{"transform": rotate(-1)},
		animation.Keyframe{"offset": 0.21, "transform": rotate(-2)},
		animation.Keyframe{"offset": 0.22, "transform": "translate(1%, 1%) rotate(-7deg)"},
		animation.Keyframe{"offset": 0.39, "transform": "translate(1%, 1%) rotate(-7deg)", "easing": "ease-out"},
		animation.Keyframe{"offset": 0.42, "transform": "translate(0, 0) rotate(-180deg)", "easing": "ease-out"},
		animation.Keyframe{"offset": 0.95, "transform": "translate(0, 0) rotate(-180deg)", "easing": "ease-out"},
		animation.Keyframe{"offset": 1, "transform": "translate(0, 0) rotate(-360deg)", "easing": "ease-out"})
	return frames
}

func rotate(deg int) string {
	return fmt.Sprintf("rotate(%ddeg)", deg)
}

// Joke plays the joke on the page body and waits for it to finish.
func (pg *Page) Joke(ctx context.Context) error {
	done := pg.animator.Animate(
		ctx,
		models.PageEleId,
		JokeFrames(),
		animation.Timing{Duration: float64(pg.cfg.JokeDuration.Milliseconds())})
	if err := animation.Await(ctx, done); err != nil {
		return fmt.Errorf("joke: %w", err)
	}
	return nil
}
