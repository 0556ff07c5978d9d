package datasets

import "context"
import "math/rand"

import "github.com/pkg/errors"

import "github.com/neurlang/ncss/parallel"

// Result is one step of an epoch: a collated batch or the error that ended the epoch
type Result struct {
	Index int
	Batch *Batch
	Err   error
}

// Loader splits a Dataset into batches. While the consumer trains on one batch a
// background goroutine loads and collates the next one.
type Loader struct {
	Dataset       Dataset
	BatchSize     int
	Shuffle       bool
	DropLast      bool
	Threads       int
	PadID         int
	FramesPerStep int

	// Rand drives the per-epoch shuffle; nil means no shuffling
	Rand *rand.Rand
}

// Len is the number of batches per epoch
func (l *Loader) Len() int {
	if l.BatchSize <= 0 {
		return 0
	}
	n := l.Dataset.Len() / l.BatchSize
	if !l.DropLast && l.Dataset.Len()%l.BatchSize != 0 {
		n++
	}
	return n
}

func (l *Loader) order() []int {
	var order = make([]int, l.Dataset.Len())
	for i := range order {
		order[i] = i
	}
	if l.Shuffle && l.Rand != nil {
		l.Rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

// Load reads and collates the items at the given dataset indices
func (l *Loader) Load(indices []int) (*Batch, error) {
	var items = make([]Item, len(indices))
	err := parallel.ForEachErr(len(indices), parallel.Threads(l.Threads), func(i int) (err error) {
		items[i], err = l.Dataset.Get(indices[i])
		return errors.Wrapf(err, "item %d", indices[i])
	})
	if err != nil {
		return nil, err
	}
	return Collate(items, l.PadID, l.FramesPerStep), nil
}

// Epoch starts producing the batches of one epoch. The channel is closed after
// the last batch or after the first error. Cancelling ctx stops the producer.
func (l *Loader) Epoch(ctx context.Context) <-chan Result {
	var order = l.order()
	var batches = l.Len()
	var out = make(chan Result, 1)
	go func() {
		defer close(out)
		for n := 0; n < batches; n++ {
			end := (n + 1) * l.BatchSize
			if end > len(order) {
				end = len(order)
			}
			batch, err := l.Load(order[n*l.BatchSize : end])
			select {
			case out <- Result{Index: n, Batch: batch, Err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}
