package trainer

import "math"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/audio"
import "github.com/neurlang/ncss/model"
import "github.com/neurlang/ncss/monitor"

// Diagnosis compares the free running prediction of one utterance with the
// mel spectrogram of its recording
type Diagnosis struct {
	Generation *model.Generation
	Reference  *mat.Dense

	// Compared is false when the generation was cut off by the decoder step limit
	Compared bool

	// MelError is the mean squared error over the frames both spectrograms cover
	MelError float64
}

// Infer generates the mel spectrogram of seq in eval mode and loads the
// reference spectrogram of the recording at wavPath. The previous mode of net is
// restored on return.
func Infer(net Synthesizer, stft *audio.MelSTFT, seq []int, wavPath string, maxWavValue float64) (*Diagnosis, error) {
	defer restoreMode(net, net.Training())
	net.Eval()

	gen, err := net.Inference(seq)
	if err != nil {
		return nil, err
	}
	var d = &Diagnosis{Generation: gen, MelError: math.NaN()}
	if wavPath == "" {
		return d, nil
	}
	d.Reference, err = stft.LoadMel(wavPath, maxWavValue)
	if err != nil {
		return nil, err
	}

	ref, _ := d.Reference.Dims()
	if gen.Capped {
		log.Warningf("generation stopped at the decoder step limit after %d frames, reference has %d; skipping comparison",
			gen.Frames(), ref)
		return d, nil
	}
	if ref != gen.Frames() {
		log.Infof("generated %d frames, reference has %d", gen.Frames(), ref)
	}
	d.MelError = meanSquaredError(gen.Mel, d.Reference)
	d.Compared = true
	return d, nil
}

// meanSquaredError compares the leading frames the two spectrograms share
func meanSquaredError(a, b *mat.Dense) float64 {
	ra, c := a.Dims()
	rb, _ := b.Dims()
	frames := ra
	if rb < frames {
		frames = rb
	}
	if frames == 0 || c == 0 {
		return math.NaN()
	}
	var diff mat.Dense
	diff.Sub(a.Slice(0, frames, 0, c), b.Slice(0, frames, 0, c))
	norm := mat.Norm(&diff, 2)
	return norm * norm / float64(frames*c)
}

// WriteSummaries renders the diagnosis to sink
func (d *Diagnosis) WriteSummaries(sink *monitor.Writer, step int) error {
	gen := d.Generation
	if gen.Frames() == 0 {
		return nil
	}
	if err := sink.AddImage("inference.mel_predicted", gen.Mel, step); err != nil {
		return err
	}
	if err := sink.AddImage("inference.alignment", gen.Alignment, step); err != nil {
		return err
	}
	var gate = make([]float64, len(gen.Gate))
	for i := range gate {
		gate[i] = sigmoid(gen.Gate[i])
	}
	if err := sink.AddLines("inference.gate", step, []string{"predicted"}, gate); err != nil {
		return err
	}
	if d.Reference != nil {
		if err := sink.AddImage("inference.mel_reference", d.Reference, step); err != nil {
			return err
		}
	}
	if d.Compared {
		return sink.AddScalar("inference.mel_error", d.MelError, step)
	}
	return nil
}
