package trainer

import "context"
import "math"
import "math/rand"
import "os"
import "path/filepath"

import "github.com/op/go-logging"
import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/datasets"
import "github.com/neurlang/ncss/hparams"
import "github.com/neurlang/ncss/learning"
import "github.com/neurlang/ncss/loss"
import "github.com/neurlang/ncss/monitor"
import "github.com/neurlang/ncss/text"

var log = logging.MustGetLogger("trainer")

// Trainer owns the optimization state of one training run
type Trainer struct {
	HParams   *hparams.HyperParameters
	Net       Network
	Criterion loss.NeuralConcatenativeLoss
	Optimizer *learning.Adam

	TrainLoader *datasets.Loader
	ValLoader   *datasets.Loader // nil disables validation

	// Sink receives scalar and image summaries, nil disables them
	Sink *monitor.Writer

	// Iteration counts optimizer steps over the whole run
	Iteration int

	// History keeps every logged running average loss
	History []float64

	running  float64
	runningN int
}

// New prepares a training run of net over trainset. valset and sink may be nil.
func New(h *hparams.HyperParameters, net Network, trainset, valset datasets.Dataset, sink *monitor.Writer) *Trainer {
	t := &Trainer{
		HParams:   h,
		Net:       net,
		Criterion: CriterionOf(h),
		Optimizer: learning.NewAdam(learning.FromHParams(h), net.Parameters()),
		Sink:      sink,
		TrainLoader: &datasets.Loader{
			Dataset:       trainset,
			BatchSize:     h.BatchSize,
			Shuffle:       true,
			DropLast:      true,
			Threads:       h.Threads,
			PadID:         text.PadID,
			FramesPerStep: h.NFramesPerStep,
			Rand:          rand.New(rand.NewSource(h.Seed)),
		},
	}
	if valset != nil && valset.Len() > 0 {
		t.ValLoader = &datasets.Loader{
			Dataset:       valset,
			BatchSize:     h.BatchSize,
			Threads:       h.Threads,
			PadID:         text.PadID,
			FramesPerStep: h.NFramesPerStep,
		}
	}
	return t
}

// CriterionOf returns the training objective configured by h
func CriterionOf(h *hparams.HyperParameters) loss.NeuralConcatenativeLoss {
	return loss.NeuralConcatenativeLoss{MaskPadding: h.MaskPadding}
}

// Train runs HParams.Epochs epochs of net over trainset
func Train(ctx context.Context, h *hparams.HyperParameters, net Network, trainset, valset datasets.Dataset, sink *monitor.Writer) (*Trainer, error) {
	t := New(h, net, trainset, valset, sink)
	return t, t.Run(ctx)
}

// RunningLoss is the average loss of the batches since the last log line
func (t *Trainer) RunningLoss() float64 {
	if t.runningN == 0 {
		return 0
	}
	return t.running / float64(t.runningN)
}

// Run trains every epoch. The first batch error aborts the run.
func (t *Trainer) Run(ctx context.Context) error {
	if t.TrainLoader.Len() == 0 {
		return errors.Errorf("trainer: %d training items do not fill a batch of %d",
			t.TrainLoader.Dataset.Len(), t.TrainLoader.BatchSize)
	}
	for epoch := 0; epoch < t.HParams.Epochs; epoch++ {
		if err := t.Epoch(ctx, epoch); err != nil {
			return err
		}
	}
	log.Infof("finished training after %d iterations", t.Iteration)
	return nil
}

// Epoch trains one pass over the training set, validates and writes the checkpoint
func (t *Trainer) Epoch(ctx context.Context, epoch int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.Net.Train()
	t.running, t.runningN = 0, 0
	for r := range t.TrainLoader.Epoch(ctx) {
		if r.Err != nil {
			return errors.Wrapf(r.Err, "trainer: epoch %d batch %d", epoch, r.Index)
		}
		l, err := t.Step(r.Batch)
		if err != nil {
			return errors.Wrapf(err, "trainer: epoch %d batch %d", epoch, r.Index)
		}
		t.running += l.Total
		t.runningN++
		if r.Index%t.interval(t.HParams.LogInterval) == 0 {
			avg := t.RunningLoss()
			log.Infof("[%d, %5d] loss: %.3f", epoch+1, r.Index+1, avg)
			t.History = append(t.History, avg)
			t.running, t.runningN = 0, 0
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "trainer: epoch %d", epoch)
	}

	if t.ValLoader != nil {
		l, err := t.Validate(ctx)
		if err != nil {
			return errors.Wrapf(err, "trainer: epoch %d validation", epoch)
		}
		log.Infof("epoch %d validation loss: %.5f (mel %.5f gate %.5f)", epoch+1, l.Total, l.Mel, l.Gate)
		if t.Sink != nil {
			if err := t.addLoss("validation", l); err != nil {
				return err
			}
		}
	}

	if err := t.Save(); err != nil {
		return err
	}
	if t.Sink != nil && len(t.Sink.Series("training.loss")) > 0 {
		return t.Sink.AddCurve("training.loss", t.Iteration)
	}
	return nil
}

func (t *Trainer) interval(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// Step performs one optimizer update on b
func (t *Trainer) Step(b *datasets.Batch) (loss.Loss, error) {
	out, err := t.Net.Forward(b)
	if err != nil {
		return loss.Loss{}, err
	}
	l, grad := t.Criterion.Compute(out, b)
	if math.IsNaN(l.Total) || math.IsInf(l.Total, 0) {
		return l, errors.Errorf("trainer: loss is %v at iteration %d", l.Total, t.Iteration)
	}

	params := t.Net.Parameters()
	t.Net.ZeroGrad()
	if err := t.Net.Backward(out, grad); err != nil {
		return l, err
	}
	norm := learning.ClipGradNorm(params, t.HParams.GradClipThresh)
	t.Optimizer.Step(params)
	t.Iteration++

	if t.Sink != nil && t.Iteration%t.interval(t.HParams.SummaryInterval) == 0 {
		if err := t.summarize(b, out.Mel[0], out.Gate, out.Alignments[0], l, norm); err != nil {
			return l, err
		}
	}
	return l, nil
}

func (t *Trainer) addLoss(prefix string, l loss.Loss) error {
	for _, s := range []struct {
		tag   string
		value float64
	}{
		{prefix + ".loss", l.Total},
		{prefix + ".mel_loss", l.Mel},
		{prefix + ".gate_loss", l.Gate},
	} {
		if err := t.Sink.AddScalar(s.tag, s.value, t.Iteration); err != nil {
			return err
		}
	}
	return nil
}

// summarize writes the scalars of the current step and the images of the first batch item
func (t *Trainer) summarize(b *datasets.Batch, mel *mat.Dense, gate *mat.Dense, align *mat.Dense, l loss.Loss, norm float64) error {
	if err := t.addLoss("training", l); err != nil {
		return err
	}
	if err := t.Sink.AddScalar("grad.norm", norm, t.Iteration); err != nil {
		return err
	}
	if err := t.Sink.AddScalar("learning.rate", t.Optimizer.LearningRate, t.Iteration); err != nil {
		return err
	}

	frames, symbols := b.OutputLengths[0], b.InputLengths[0]
	if frames == 0 || symbols == 0 {
		return nil
	}
	channels := b.Channels()
	if err := t.Sink.AddImage("mel.target", b.Mel[0].Slice(0, frames, 0, channels), t.Iteration); err != nil {
		return err
	}
	if err := t.Sink.AddImage("mel.predicted", mel.Slice(0, frames, 0, channels), t.Iteration); err != nil {
		return err
	}
	if err := t.Sink.AddImage("alignment", align.Slice(0, frames, 0, symbols), t.Iteration); err != nil {
		return err
	}
	var predicted = make([]float64, frames)
	for i := range predicted {
		predicted[i] = sigmoid(gate.At(0, i))
	}
	return t.Sink.AddLines("gate", t.Iteration, []string{"target", "predicted"},
		mat.Row(nil, 0, b.Gate)[:frames], predicted)
}

// Save overwrites the checkpoint at HParams.ModelSavePath when Net can persist itself
func (t *Trainer) Save() error {
	c, ok := t.Net.(Checkpointer)
	if !ok || t.HParams.ModelSavePath == "" {
		return nil
	}
	if dir := filepath.Dir(t.HParams.ModelSavePath); dir != "" {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return errors.Wrap(err, "trainer: checkpoint directory")
		}
	}
	if err := c.WriteCompressedWeightsToFile(t.HParams.ModelSavePath); err != nil {
		return err
	}
	log.Infof("saved checkpoint %s at iteration %d", t.HParams.ModelSavePath, t.Iteration)
	return nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
