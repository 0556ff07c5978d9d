// Package loss implements the training objective: mel spectrogram reconstruction
// plus stop token classification
package loss

import "math"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/datasets"
import "github.com/neurlang/ncss/model"

// Loss is the value of the objective for one batch
type Loss struct {
	Total float64
	Mel   float64
	Gate  float64
}

// Add accumulates another loss
func (l *Loss) Add(o Loss) {
	l.Total += o.Total
	l.Mel += o.Mel
	l.Gate += o.Gate
}

// Scale multiplies every component by f
func (l *Loss) Scale(f float64) {
	l.Total *= f
	l.Mel *= f
	l.Gate *= f
}

// NeuralConcatenativeLoss is the mean squared mel error plus the binary cross
// entropy of the gate logits. With MaskPadding the padded frames of every item
// are excluded from both terms.
type NeuralConcatenativeLoss struct {
	MaskPadding bool
}

// bceWithLogits is the numerically stable binary cross entropy of a logit
func bceWithLogits(x, y float64) float64 {
	return math.Max(x, 0) - x*y + math.Log1p(math.Exp(-math.Abs(x)))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Compute returns the loss and its gradient with respect to the model output
func (c NeuralConcatenativeLoss) Compute(out *model.Output, b *datasets.Batch) (Loss, *model.OutputGrad) {
	n, frames := out.Gate.Dims()
	channels := b.Channels()
	var grad = &model.OutputGrad{
		Mel:  make([]*mat.Dense, n),
		Gate: mat.NewDense(n, frames, nil),
	}

	var valid = make([]int, n)
	var count int
	for i := range valid {
		valid[i] = frames
		if c.MaskPadding {
			valid[i] = b.OutputLengths[i]
		}
		count += valid[i]
	}
	if count == 0 {
		for i := range grad.Mel {
			grad.Mel[i] = mat.NewDense(frames, channels, nil)
		}
		return Loss{}, grad
	}

	var l Loss
	var melCount = float64(count * channels)
	for i := 0; i < n; i++ {
		g := mat.NewDense(frames, channels, nil)
		for t := 0; t < valid[i]; t++ {
			pred := out.Mel[i].RawRowView(t)
			target := b.Mel[i].RawRowView(t)
			row := g.RawRowView(t)
			for k := range pred {
				d := pred[k] - target[k]
				l.Mel += d * d
				row[k] = 2 * d / melCount
			}
		}
		grad.Mel[i] = g
	}
	l.Mel /= melCount

	var gateCount = float64(count)
	for i := 0; i < n; i++ {
		for t := 0; t < valid[i]; t++ {
			x, y := out.Gate.At(i, t), b.Gate.At(i, t)
			l.Gate += bceWithLogits(x, y)
			grad.Gate.Set(i, t, (sigmoid(x)-y)/gateCount)
		}
	}
	l.Gate /= gateCount

	l.Total = l.Mel + l.Gate
	return l, grad
}
