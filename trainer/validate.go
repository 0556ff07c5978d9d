package trainer

import "context"

import "github.com/pkg/errors"

import "github.com/neurlang/ncss/datasets"
import "github.com/neurlang/ncss/loss"

// Validate computes the average loss over the validation loader. The running
// training loss is not touched.
func (t *Trainer) Validate(ctx context.Context) (loss.Loss, error) {
	if t.ValLoader == nil {
		return loss.Loss{}, nil
	}
	return Validate(ctx, t.Net, t.ValLoader, t.Criterion)
}

// Validate puts net in eval mode, averages the loss of every batch of loader
// and restores the previous mode when it returns or panics.
func Validate(ctx context.Context, net Network, loader *datasets.Loader, criterion loss.NeuralConcatenativeLoss) (total loss.Loss, err error) {
	defer restoreMode(net, net.Training())
	net.Eval()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var batches int
	for r := range loader.Epoch(ctx) {
		if r.Err != nil {
			return loss.Loss{}, errors.Wrapf(r.Err, "validation batch %d", r.Index)
		}
		out, err := net.Forward(r.Batch)
		if err != nil {
			return loss.Loss{}, errors.Wrapf(err, "validation batch %d", r.Index)
		}
		l, _ := criterion.Compute(out, r.Batch)
		total.Add(l)
		batches++
	}
	if err := ctx.Err(); err != nil {
		return loss.Loss{}, err
	}
	if batches > 0 {
		total.Scale(1 / float64(batches))
	}
	return total, nil
}
