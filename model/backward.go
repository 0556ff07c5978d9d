package model

import "math"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/parallel"

// Backward accumulates the parameter gradients of a training mode Output into
// the Grad field of every Parameter. Items are processed concurrently into
// private buffers which are summed at the end.
func (m *Model) Backward(out *Output, grad *OutputGrad) error {
	if out == nil || out.traces == nil {
		return ErrNoTrace
	}
	if len(grad.Mel) != len(out.traces) {
		return errors.Errorf("model: gradient for %d items, output has %d", len(grad.Mel), len(out.traces))
	}
	var grads = make([][]*mat.Dense, len(out.traces))
	parallel.ForEach(len(out.traces), m.threads(), func(i int) {
		grads[i] = m.zeroGrads()
		_, frames := grad.Gate.Dims()
		var dGate = mat.NewDense(frames, 1, nil)
		dGate.SetCol(0, grad.Gate.RawRowView(i))
		m.backwardItem(out.traces[i], grad.Mel[i], dGate, grads[i])
	})
	for _, g := range grads {
		for k, p := range m.params {
			p.Grad.Add(p.Grad, g[k])
		}
	}
	return nil
}

func (m *Model) zeroGrads() []*mat.Dense {
	var g = make([]*mat.Dense, len(m.params))
	for k, p := range m.params {
		r, c := p.Value.Dims()
		g[k] = mat.NewDense(r, c, nil)
	}
	return g
}

// accumulate adds a·b (with optional transposes already applied) into dst
func accumulate(dst *mat.Dense, a, b mat.Matrix) {
	var tmp mat.Dense
	tmp.Mul(a, b)
	dst.Add(dst, &tmp)
}

// backwardItem backpropagates one item. g is indexed like m.params.
func (m *Model) backwardItem(tr *trace, dMel, dGate *mat.Dense, g []*mat.Dense) {
	const (
		embedding = iota
		encW
		encB
		preW
		preB
		queryW
		melW
		melB
		gateW
		gateB
	)
	frames, _ := tr.z.Dims()
	symbols := len(tr.text)

	// projections
	accumulate(g[melW], dMel.T(), tr.z)
	addColSum(g[melB], dMel)
	accumulate(g[gateW], dGate.T(), tr.z)
	addColSum(g[gateB], dGate)

	var dZ mat.Dense
	dZ.Mul(dMel, m.melW.Value)
	accumulate(&dZ, dGate, m.gateW.Value)

	dPre := mat.DenseCopyOf(dZ.Slice(0, frames, 0, m.PrenetDim))
	dCtx := mat.DenseCopyOf(dZ.Slice(0, frames, m.PrenetDim, m.PrenetDim+m.EncoderDim))

	// context = align · enc
	var dAlign mat.Dense
	dAlign.Mul(dCtx, tr.enc.T())
	var dEnc mat.Dense
	dEnc.Mul(tr.align.T(), dCtx)

	// softmax
	var dScores = mat.NewDense(frames, symbols, nil)
	for t := 0; t < frames; t++ {
		a := tr.align.RawRowView(t)
		da := dAlign.RawRowView(t)
		var dot float64
		for j := range a {
			dot += a[j] * da[j]
		}
		ds := dScores.RawRowView(t)
		for j := range a {
			ds[j] = a[j] * (da[j] - dot)
		}
	}
	dScores.Scale(1/math.Sqrt(float64(m.EncoderDim)), dScores)

	// scores = query · encᵀ
	var dQuery mat.Dense
	dQuery.Mul(dScores, tr.enc)
	accumulate(&dEnc, dScores.T(), tr.query)

	// query = pre · queryWᵀ
	accumulate(g[queryW], dQuery.T(), tr.pre)
	accumulate(dPre, &dQuery, m.queryW.Value)

	// prenet
	if tr.mask != nil {
		dPre.MulElem(dPre, tr.mask)
	}
	dPre.Apply(func(i, j int, v float64) float64 {
		if tr.u.At(i, j) > 0 {
			return v
		}
		return 0
	}, dPre)
	accumulate(g[preW], dPre.T(), tr.prev)
	addColSum(g[preB], dPre)

	// encoder
	dEnc.Apply(func(i, j int, v float64) float64 {
		h := tr.enc.At(i, j)
		return v * (1 - h*h)
	}, &dEnc)
	accumulate(g[encW], dEnc.T(), tr.x)
	addColSum(g[encB], &dEnc)

	var dX mat.Dense
	dX.Mul(&dEnc, m.encW.Value)
	for i, id := range tr.text {
		row := g[embedding].RawRowView(id)
		for j, v := range dX.RawRowView(i) {
			row[j] += v
		}
	}
}
