package audio

import "math"
import "math/rand"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/floats"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/hparams"

const compressionFactor = 1.0
const compressionClip = 1e-5

// MelSTFT turns normalized waveforms into log compressed mel spectrograms and back
type MelSTFT struct {
	*STFT

	SamplingRate int
	NMels        int

	basis *mat.Dense
}

// NewMelSTFT configures the extractor from the audio hyperparameters
func NewMelSTFT(h *hparams.HyperParameters) *MelSTFT {
	return &MelSTFT{
		STFT:         NewSTFT(h.FilterLength, h.HopLength, h.WinLength),
		SamplingRate: h.SamplingRate,
		NMels:        h.NMelChannels,
		basis:        MelBasis(h.SamplingRate, h.FilterLength, h.NMelChannels, h.MelFmin, h.MelFmax),
	}
}

// MelSpectrogram returns the frames×channels mel spectrogram of samples in [-1, 1]
func (m *MelSTFT) MelSpectrogram(samples []float64) (*mat.Dense, error) {
	if len(samples) == 0 {
		return nil, errors.New("audio: empty signal")
	}
	if floats.Min(samples) < -1 || floats.Max(samples) > 1 {
		return nil, errors.Errorf("audio: signal out of range [%v, %v]", floats.Min(samples), floats.Max(samples))
	}
	var mag = m.Magnitude(samples)
	var mel mat.Dense
	mel.Mul(mag, m.basis.T())
	DynamicRangeCompression(&mel, compressionFactor, compressionClip)
	return &mel, nil
}

// LoadMel reads a wav file and computes its mel spectrogram. The file must be
// recorded at the configured sampling rate; samples are divided by maxWavValue.
func (m *MelSTFT) LoadMel(name string, maxWavValue float64) (*mat.Dense, error) {
	samples, sr, err := LoadWav(name)
	if err != nil {
		return nil, err
	}
	if sr != m.SamplingRate {
		return nil, errors.Errorf("audio: %s has %d SR, which doesn't match target %d SR", name, sr, m.SamplingRate)
	}
	floats.Scale(1/maxWavValue, samples)
	mel, err := m.MelSpectrogram(samples)
	return mel, errors.Wrap(err, name)
}

// InverseMel estimates the linear magnitude spectrogram of a compressed mel spectrogram
func (m *MelSTFT) InverseMel(mel *mat.Dense) (*mat.Dense, error) {
	var lin mat.Dense
	lin.CloneFrom(mel)
	DynamicRangeDecompression(&lin, compressionFactor)

	// minimum norm solution of basis · spec = mel, one column per frame
	var spec mat.Dense
	err := spec.Solve(m.basis, lin.T())
	if _, ill := err.(mat.Condition); err != nil && !ill {
		return nil, errors.Wrap(err, "audio: inverse mel")
	}
	var out mat.Dense
	out.CloneFrom(spec.T())
	out.Apply(func(_, _ int, v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}, &out)
	return &out, nil
}

// GriffinLim reconstructs a waveform of a magnitude spectrogram by iterative phase estimation
func (m *MelSTFT) GriffinLim(mag *mat.Dense, iterations int, rng *rand.Rand) []float64 {
	frames, bins := mag.Dims()
	var n = (frames - 1) * m.HopLength
	var phase = make([][]complex128, frames)
	for t := range phase {
		phase[t] = make([]complex128, bins)
		for f := range phase[t] {
			phase[t][f] = complex(rng.NormFloat64(), rng.NormFloat64())
		}
	}
	var signal = m.Inverse(polar(mag, phase), n)
	for i := 0; i < iterations; i++ {
		spec := m.Transform(signal)
		if len(spec) != frames {
			break
		}
		signal = m.Inverse(polar(mag, spec), n)
	}
	return signal
}

// Vocode converts a compressed mel spectrogram to a waveform in [-1, 1]
func (m *MelSTFT) Vocode(mel *mat.Dense, iterations int, rng *rand.Rand) ([]float64, error) {
	mag, err := m.InverseMel(mel)
	if err != nil {
		return nil, err
	}
	signal := m.GriffinLim(mag, iterations, rng)
	if peak := floats.Norm(signal, math.Inf(1)); peak > 1 {
		floats.Scale(1/peak, signal)
	}
	return signal, nil
}
