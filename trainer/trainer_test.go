package trainer

import "context"
import "errors"
import "math"
import "os"
import "path/filepath"
import "testing"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/audio"
import "github.com/neurlang/ncss/datasets"
import "github.com/neurlang/ncss/datasets/textmel"
import "github.com/neurlang/ncss/hparams"
import "github.com/neurlang/ncss/model"
import "github.com/neurlang/ncss/monitor"

func smallParams(dir string) *hparams.HyperParameters {
	h := hparams.Default()
	h.Epochs = 1
	h.SamplingRate = 8000
	h.FilterLength = 256
	h.HopLength = 64
	h.WinLength = 256
	h.NMelChannels = 20
	h.MelFmax = 4000
	h.SymbolsEmbeddingDim = 8
	h.EncoderDim = 8
	h.PrenetDim = 8
	h.MaxDecoderSteps = 20
	h.BatchSize = 2
	h.Threads = 2
	h.LogInterval = 1
	h.SummaryInterval = 1
	h.ModelSavePath = filepath.Join(dir, "checkpoints", "ncss.json.lzw")
	h.LogDirectory = filepath.Join(dir, "logs")
	return h
}

func writeSine(t *testing.T, name string, freq float64, sr, n int) {
	var x = make([]float64, n)
	for i := range x {
		x[i] = 0.3 * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	if err := audio.SaveWav(name, x, sr); err != nil {
		t.Fatal(err)
	}
}

func writeManifest(t *testing.T, dir string, h *hparams.HyperParameters) string {
	writeSine(t, filepath.Join(dir, "a.wav"), 220, h.SamplingRate, 1200)
	writeSine(t, filepath.Join(dir, "b.wav"), 440, h.SamplingRate, 1800)
	manifest := filepath.Join(dir, "list.txt")
	body := filepath.Join(dir, "a.wav") + "|Hello world.\n" + filepath.Join(dir, "b.wav") + "|Good bye!\n"
	if err := os.WriteFile(manifest, []byte(body), 0666); err != nil {
		t.Fatal(err)
	}
	return manifest
}

func TestTrainEndToEnd(t *testing.T) {
	dir := t.TempDir()
	h := smallParams(dir)
	manifest := writeManifest(t, dir, h)
	trainset, err := textmel.New(manifest, h)
	if err != nil {
		t.Fatal(err)
	}
	valset, err := textmel.New(manifest, h)
	if err != nil {
		t.Fatal(err)
	}
	sink, err := monitor.NewWriter(h.LogDirectory)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	net := model.New(h)
	tr, err := Train(context.Background(), h, net, trainset, valset, sink)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Iteration != 1 {
		t.Errorf("iterations %d", tr.Iteration)
	}
	if len(tr.History) != 1 || !(tr.History[0] > 0) || math.IsInf(tr.History[0], 0) {
		t.Fatalf("loss history %v", tr.History)
	}
	if !net.Training() {
		t.Error("validation left the model in eval mode")
	}
	if len(sink.Series("validation.loss")) != 1 || len(sink.Series("training.loss")) != 1 {
		t.Error("missing loss scalars")
	}
	if _, err := os.Stat(sink.ImagePath("alignment", 1)); err != nil {
		t.Error(err)
	}

	restored := model.New(h)
	ok, err := Resume(restored, h.ModelSavePath)
	if err != nil || !ok {
		t.Fatalf("resume %v %v", ok, err)
	}
	for i, p := range restored.Parameters() {
		if !mat.Equal(p.Value, net.Parameters()[i].Value) {
			t.Errorf("%s differs after resume", p.Name)
		}
	}
}

func TestTrainTooFewItems(t *testing.T) {
	h := smallParams(t.TempDir())
	h.BatchSize = 3
	items := datasets.Slice{{Text: []int{5}, Mel: mat.NewDense(2, h.NMelChannels, nil)}}
	if _, err := Train(context.Background(), h, model.New(h), items, nil, nil); err == nil {
		t.Error("expected error for a dataset smaller than one batch")
	}
}

func TestResumeMissing(t *testing.T) {
	h := smallParams(t.TempDir())
	ok, err := Resume(model.New(h), h.ModelSavePath)
	if ok || err != nil {
		t.Errorf("resume of a missing checkpoint: %v %v", ok, err)
	}
}

// faulty is a Network whose forward pass fails or panics
type faulty struct {
	*model.Model
	panics bool
}

var errForward = errors.New("forward failed")

func (f *faulty) Forward(b *datasets.Batch) (*model.Output, error) {
	if f.panics {
		panic("forward")
	}
	return nil, errForward
}

func valLoader(h *hparams.HyperParameters) *datasets.Loader {
	items := datasets.Slice{
		{Text: []int{5, 6}, Mel: mat.NewDense(3, h.NMelChannels, nil)},
		{Text: []int{7}, Mel: mat.NewDense(2, h.NMelChannels, nil)},
	}
	return &datasets.Loader{Dataset: items, BatchSize: 2, FramesPerStep: 1}
}

func TestValidateRestoresMode(t *testing.T) {
	h := smallParams(t.TempDir())
	for _, training := range []bool{true, false} {
		net := &faulty{Model: model.New(h)}
		if !training {
			net.Eval()
		}
		_, err := Validate(context.Background(), net, valLoader(h), CriterionOf(h))
		if !errors.Is(err, errForward) {
			t.Errorf("expected forward error, got %v", err)
		}
		if net.Training() != training {
			t.Errorf("mode %v after error, want %v", net.Training(), training)
		}
	}
}

func TestValidateRestoresModeOnPanic(t *testing.T) {
	h := smallParams(t.TempDir())
	net := &faulty{Model: model.New(h), panics: true}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		Validate(context.Background(), net, valLoader(h), CriterionOf(h))
	}()
	if !net.Training() {
		t.Error("panic left the model in eval mode")
	}
}

func TestValidateKeepsRunningLoss(t *testing.T) {
	h := smallParams(t.TempDir())
	items := valLoader(h).Dataset
	tr := New(h, model.New(h), items, items, nil)
	tr.running, tr.runningN = 3, 2

	l, err := tr.Validate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !(l.Total > 0) || math.Abs(l.Total-(l.Mel+l.Gate)) > 1e-12 {
		t.Errorf("validation loss %+v", l)
	}
	if tr.RunningLoss() != 1.5 {
		t.Errorf("running loss %v", tr.RunningLoss())
	}
	if !tr.Net.Training() {
		t.Error("model left in eval mode")
	}
}

// canned is a Synthesizer returning a fixed generation
type canned struct {
	gen      *model.Generation
	training bool
}

func (c *canned) Inference(text []int) (*model.Generation, error) { return c.gen, nil }
func (c *canned) Train()                                        { c.training = true }
func (c *canned) Eval()                                         { c.training = false }
func (c *canned) Training() bool                                { return c.training }

func TestInferCapped(t *testing.T) {
	dir := t.TempDir()
	h := smallParams(dir)
	writeSine(t, filepath.Join(dir, "a.wav"), 220, h.SamplingRate, 1200)
	stft := audio.NewMelSTFT(h)

	for _, capped := range []bool{true, false} {
		frames := 7
		if capped {
			frames = h.MaxDecoderSteps
		}
		net := &canned{training: true, gen: &model.Generation{
			Mel:       mat.NewDense(frames, h.NMelChannels, nil),
			Gate:      make([]float64, frames),
			Alignment: mat.NewDense(frames, 3, nil),
			Capped:    capped,
		}}
		d, err := Infer(net, stft, []int{5, 6, 7}, filepath.Join(dir, "a.wav"), h.MaxWavValue)
		if err != nil {
			t.Fatal(err)
		}
		if d.Compared == capped {
			t.Errorf("capped %v compared %v", capped, d.Compared)
		}
		if !capped && (math.IsNaN(d.MelError) || d.MelError <= 0) {
			t.Errorf("mel error %v", d.MelError)
		}
		if !net.training {
			t.Error("mode not restored")
		}
	}
}

// recorder keeps every batch and output of the forward passes
type recorder struct {
	*model.Model
	batches []*datasets.Batch
	outs    []*model.Output
}

func (r *recorder) Forward(b *datasets.Batch) (*model.Output, error) {
	out, err := r.Model.Forward(b)
	if err == nil {
		r.batches = append(r.batches, b)
		r.outs = append(r.outs, out)
	}
	return out, err
}

func TestRunningLossPerEpoch(t *testing.T) {
	h := smallParams(t.TempDir())
	h.Epochs = 2
	h.BatchSize = 1
	h.LogInterval = 2
	items := datasets.Slice{
		{Text: []int{5, 6, 7}, Mel: mat.NewDense(4, h.NMelChannels, nil)},
		{Text: []int{8, 9}, Mel: mat.NewDense(3, h.NMelChannels, nil)},
	}
	for i, it := range items {
		it.Mel.Apply(func(r, c int, _ float64) float64 { return -float64(i+r+c) / 10 }, it.Mel)
	}

	net := &recorder{Model: model.New(h)}
	tr, err := Train(context.Background(), h, net, items, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(net.outs) != 4 {
		t.Fatalf("%d forward passes", len(net.outs))
	}
	// batch 0 of every epoch is logged alone, batch 1 is left over
	if len(tr.History) != 2 {
		t.Fatalf("history %v", tr.History)
	}
	criterion := CriterionOf(h)
	for epoch, pass := range []int{0, 2} {
		l, _ := criterion.Compute(net.outs[pass], net.batches[pass])
		if math.Abs(tr.History[epoch]-l.Total) > 1e-12 {
			t.Errorf("epoch %d first log line %v, want the loss of its own batch %v", epoch, tr.History[epoch], l.Total)
		}
	}
}
