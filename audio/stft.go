package audio

import "math"
import "math/cmplx"

import "gonum.org/v1/gonum/dsp/fourier"
import "gonum.org/v1/gonum/dsp/window"
import "gonum.org/v1/gonum/mat"

// STFT is a centered short time Fourier transform with a periodic Hann window
type STFT struct {
	FilterLength int
	HopLength    int
	WinLength    int

	window []float64
}

// NewSTFT prepares the transform. The Hann window of winLength samples is
// zero-padded on both sides up to filterLength.
func NewSTFT(filterLength, hopLength, winLength int) *STFT {
	if winLength > filterLength {
		winLength = filterLength
	}
	// periodic Hann: symmetric window of N+1 points without the last one
	var hann = make([]float64, winLength+1)
	for i := range hann {
		hann[i] = 1
	}
	window.Hann(hann)

	var w = make([]float64, filterLength)
	copy(w[(filterLength-winLength)/2:], hann[:winLength])

	return &STFT{
		FilterLength: filterLength,
		HopLength:    hopLength,
		WinLength:    winLength,
		window:       w,
	}
}

// Bins is the number of frequency bins of each frame
func (s *STFT) Bins() int {
	return s.FilterLength/2 + 1
}

// Frames is the number of frames for a signal of n samples
func (s *STFT) Frames(n int) int {
	return 1 + n/s.HopLength
}

// reflect mirrors index i into [0, n) the way numpy reflect padding does
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	var period = 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// Transform returns the complex spectrum of every frame
func (s *STFT) Transform(samples []float64) [][]complex128 {
	if len(samples) == 0 {
		return nil
	}
	var pad = s.FilterLength / 2
	var frames = s.Frames(len(samples))
	var fft = fourier.NewFFT(s.FilterLength)
	var out = make([][]complex128, frames)
	var seq = make([]float64, s.FilterLength)
	for t := range out {
		var start = t*s.HopLength - pad
		for k := range seq {
			seq[k] = samples[reflect(start+k, len(samples))] * s.window[k]
		}
		out[t] = fft.Coefficients(nil, seq)
	}
	return out
}

// Magnitude returns the spectrogram magnitudes as a frames×bins matrix
func (s *STFT) Magnitude(samples []float64) *mat.Dense {
	spec := s.Transform(samples)
	if len(spec) == 0 {
		return nil
	}
	var m = mat.NewDense(len(spec), s.Bins(), nil)
	for t, frame := range spec {
		for f, c := range frame {
			m.Set(t, f, cmplx.Abs(c))
		}
	}
	return m
}

// Inverse overlap-adds the frames back into a signal of length n
func (s *STFT) Inverse(spec [][]complex128, n int) []float64 {
	var pad = s.FilterLength / 2
	var total = s.FilterLength + (len(spec)-1)*s.HopLength
	var signal = make([]float64, total)
	var norm = make([]float64, total)
	var fft = fourier.NewFFT(s.FilterLength)
	var seq = make([]float64, s.FilterLength)
	for t, frame := range spec {
		fft.Sequence(seq, frame)
		for k, v := range seq {
			// the gonum transform pair scales by the sequence length
			signal[t*s.HopLength+k] += v / float64(s.FilterLength) * s.window[k]
			norm[t*s.HopLength+k] += s.window[k] * s.window[k]
		}
	}
	for i := range signal {
		if norm[i] > 1e-11 {
			signal[i] /= norm[i]
		}
	}
	var out = make([]float64, n)
	for i := range out {
		if i+pad < len(signal) {
			out[i] = signal[i+pad]
		}
	}
	return out
}

// polar builds a complex spectrum from magnitudes and the phase of another spectrum
func polar(mag *mat.Dense, phase [][]complex128) [][]complex128 {
	rows, cols := mag.Dims()
	var out = make([][]complex128, rows)
	for t := range out {
		out[t] = make([]complex128, cols)
		for f := range out[t] {
			var angle float64
			if phase != nil {
				angle = cmplx.Phase(phase[t][f])
			}
			out[t][f] = complex(mag.At(t, f)*math.Cos(angle), mag.At(t, f)*math.Sin(angle))
		}
	}
	return out
}
