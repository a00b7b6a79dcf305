package fastview

import (
	"context"
	"errors"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// DefaultBatchRate is the window within which updates for the same element are coalesced.
const DefaultBatchRate = time.Millisecond * 50

// ViewBuilder constructs one or more live views sharing a common view-model, and fans
// their updates into a single batched channel.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source      <-chan DataModel
	viewModelFn func(DataModel) ViewModel
	builderFns  []ViewBuilderFunc[ViewModel]
	done        <-chan struct{} // Okay if nil
	rate        time.Duration
}

// NewViewBuilder returns a builder for a given data-model and view-model.
func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{
		rate: DefaultBatchRate,
	}
}

// WithModel sets the source of data models and the function converting each to a view-model.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = input
	vb.viewModelFn = convert
	return vb
}

// ViewBuilderFunc builds a view from an input view-model channel and a 'done' channel for cleanup.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) LiveView

// WithView adds a view to the list of views to build.
// They are returned in the same order as built when Build() is called.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	builderFn ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.builderFns = append(vb.builderFns, builderFn)
	return vb
}

// WithContext ensures that all downstream channels are closed when context is cancelled.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

// WithBatchRate overrides DefaultBatchRate.
func (vb *ViewBuilder[DataModel, ViewModel]) WithBatchRate(
	rate time.Duration,
) *ViewBuilder[DataModel, ViewModel] {
	vb.rate = rate
	return vb
}

// ErrNoViews is returned when Build() is called before the caller has added any views.
var ErrNoViews error = errors.New("no views to build: WithView must be called")

// ErrNoModel is returned when Build() is called before WithModel() has been called.
var ErrNoModel error = errors.New("no model specified: WithModel must be called")

// Build executes the stored builders, connecting the channels together and returning
// the views and their aggregated ele-update channel.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() (
	views []ViewComponent,
	updates <-chan []EleUpdate,
	err error,
) {
	if len(vb.builderFns) == 0 {
		return nil, nil, ErrNoViews
	}
	if vb.viewModelFn == nil || vb.source == nil {
		return nil, nil, ErrNoModel
	}

	vmChan := channerics.Convert(vb.done, vb.source, vb.viewModelFn)
	vmChans := channerics.Broadcast(vb.done, vmChan, len(vb.builderFns))
	inputs := make([]<-chan []EleUpdate, 0, len(vb.builderFns))
	for i, build := range vb.builderFns {
		view := build(vb.done, vmChans[i])
		views = append(views, view)
		inputs = append(inputs, view.Updates())
	}

	updates = batchify(vb.done, channerics.Merge(vb.done, inputs...), vb.rate)
	return
}

// batchify batches within the passed time frame before sending, over-writing previously
// received values for the same ele-id, so only the latest values are sent. A pending
// batch is flushed on the next tick even if no further updates arrive.
func batchify(
	done <-chan struct{},
	source <-chan []EleUpdate,
	rate time.Duration,
) <-chan []EleUpdate {
	output := make(chan []EleUpdate)

	go func() {
		defer close(output)

		data := map[string]EleUpdate{}
		flush := func() bool {
			if len(data) == 0 {
				return true
			}
			select {
			case output <- slicedVals(data):
				data = map[string]EleUpdate{}
				return true
			case <-done:
				return false
			}
		}

		ticker := channerics.NewTicker(done, rate)
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					flush()
					return
				}
				// Intentionally overwrites pre-existing values for an ele-id within this batch's time frame.
				for _, update := range updates {
					data[update.EleId] = update
				}
			case <-ticker:
				if !flush() {
					return
				}
			}
		}
	}()

	return output
}

// returns the values of a map as a slice
func slicedVals[T1 comparable, T2 any](mp map[T1]T2) (sliced []T2) {
	for _, v := range mp {
		sliced = append(sliced, v)
	}
	return
}
