package model

import "math/rand"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

// Generation is the result of autoregressive inference for one utterance
type Generation struct {
	// Mel is the frames×channels predicted spectrogram
	Mel *mat.Dense

	// Gate holds the stop token logit of every generated frame
	Gate []float64

	// Alignment is the frames×symbols attention matrix
	Alignment *mat.Dense

	// Capped reports that decoding ended at MaxDecoderSteps without a stop token
	Capped bool
}

// Frames is the number of generated frames
func (g *Generation) Frames() int {
	return len(g.Gate)
}

// Inference generates mel frames one at a time, feeding each prediction back as
// the next decoder input, until the stop token fires or MaxDecoderSteps is hit.
func (m *Model) Inference(text []int) (*Generation, error) {
	if m.MaxDecoderSteps <= 0 {
		return nil, errors.New("model: no decoder steps")
	}
	_, enc, err := m.encode(text)
	if err != nil {
		return nil, err
	}
	var rng *rand.Rand
	if m.training {
		rng = rand.New(rand.NewSource(m.rng.Int63()))
	}

	var mels, aligns [][]float64
	var gates []float64
	var prev = mat.NewDense(1, m.NMels, nil)
	var capped = true
	for step := 0; step < m.MaxDecoderSteps; step++ {
		_, _, pre := m.prenet(prev, rng)
		_, align, z := m.attend(pre, enc)
		mel, gate := m.project(z)

		mels = append(mels, mat.Row(nil, 0, mel))
		aligns = append(aligns, mat.Row(nil, 0, align))
		gates = append(gates, gate.At(0, 0))
		if sigmoid(gate.At(0, 0)) > m.GateThreshold {
			capped = false
			break
		}
		prev = mel
	}
	if capped {
		log.Warningf("reached max decoder steps (%d)", m.MaxDecoderSteps)
	}

	var g = &Generation{
		Mel:       mat.NewDense(len(mels), m.NMels, nil),
		Gate:      gates,
		Alignment: mat.NewDense(len(aligns), len(text), nil),
		Capped:    capped,
	}
	for t := range mels {
		g.Mel.SetRow(t, mels[t])
		g.Alignment.SetRow(t, aligns[t])
	}
	return g, nil
}
