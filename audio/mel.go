package audio

import "math"

import "gonum.org/v1/gonum/floats"
import "gonum.org/v1/gonum/mat"

const slaneyFSp = 200.0 / 3
const slaneyMinLogHz = 1000.0
const slaneyMinLogMel = slaneyMinLogHz / slaneyFSp

var slaneyLogStep = math.Log(6.4) / 27.0

// HzToMel converts frequency to the Slaney mel scale
func HzToMel(hz float64) float64 {
	if hz >= slaneyMinLogHz {
		return slaneyMinLogMel + math.Log(hz/slaneyMinLogHz)/slaneyLogStep
	}
	return hz / slaneyFSp
}

// MelToHz converts a Slaney mel value back to frequency
func MelToHz(mel float64) float64 {
	if mel >= slaneyMinLogMel {
		return slaneyMinLogHz * math.Exp(slaneyLogStep*(mel-slaneyMinLogMel))
	}
	return mel * slaneyFSp
}

// MelBasis builds an nMels×(nFFT/2+1) matrix of area normalized triangular filters
func MelBasis(sampleRate, nFFT, nMels int, fmin, fmax float64) *mat.Dense {
	if fmax <= 0 {
		fmax = float64(sampleRate) / 2
	}
	var bins = nFFT/2 + 1
	var fftFreqs = make([]float64, bins)
	floats.Span(fftFreqs, 0, float64(sampleRate)/2)

	var melPoints = make([]float64, nMels+2)
	floats.Span(melPoints, HzToMel(fmin), HzToMel(fmax))
	for i := range melPoints {
		melPoints[i] = MelToHz(melPoints[i])
	}

	var basis = mat.NewDense(nMels, bins, nil)
	for i := 0; i < nMels; i++ {
		lowDiff := melPoints[i+1] - melPoints[i]
		highDiff := melPoints[i+2] - melPoints[i+1]
		enorm := 2.0 / (melPoints[i+2] - melPoints[i])
		for j, f := range fftFreqs {
			lower := (f - melPoints[i]) / lowDiff
			upper := (melPoints[i+2] - f) / highDiff
			w := math.Max(0, math.Min(lower, upper))
			basis.Set(i, j, w*enorm)
		}
	}
	return basis
}

// DynamicRangeCompression is log(max(x, clip) * c) applied elementwise in place
func DynamicRangeCompression(m *mat.Dense, c, clip float64) {
	m.Apply(func(_, _ int, v float64) float64 {
		return math.Log(math.Max(v, clip) * c)
	}, m)
}

// DynamicRangeDecompression inverts DynamicRangeCompression in place
func DynamicRangeDecompression(m *mat.Dense, c float64) {
	m.Apply(func(_, _ int, v float64) float64 {
		return math.Exp(v) / c
	}, m)
}
