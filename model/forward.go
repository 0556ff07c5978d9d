package model

import "math"
import "math/rand"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/datasets"
import "github.com/neurlang/ncss/parallel"

// ErrNoTrace is returned by Backward for outputs computed in eval mode
var ErrNoTrace = errors.New("model: output has no gradient trace, it was computed in eval mode")

// Output is the prediction for a batch decoded from the target frames
type Output struct {
	// Mel holds one maxFrames×channels prediction per item
	Mel []*mat.Dense

	// Gate holds the N×maxFrames stop token logits
	Gate *mat.Dense

	// Alignments holds one maxFrames×inputLength attention matrix per item
	Alignments []*mat.Dense

	traces []*trace
}

// OutputGrad is the gradient of the loss with respect to an Output
type OutputGrad struct {
	Mel  []*mat.Dense
	Gate *mat.Dense
}

// trace keeps the intermediate values of one item for backpropagation
type trace struct {
	text  []int
	x     *mat.Dense // symbols×embedding
	enc   *mat.Dense // symbols×encoder
	prev  *mat.Dense // frames×mels, target frames shifted by one
	u     *mat.Dense // frames×prenet, before relu
	mask  *mat.Dense // frames×prenet dropout scale, nil without dropout
	pre   *mat.Dense // frames×prenet
	query *mat.Dense // frames×encoder
	align *mat.Dense // frames×symbols
	z     *mat.Dense // frames×(prenet+encoder)
}

// addRow adds the 1×c row vector b to every row of m
func addRow(m *mat.Dense, b *mat.Dense) {
	bias := b.RawRowView(0)
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
}

// addColSum adds the column sums of m to the 1×c row vector dst
func addColSum(dst *mat.Dense, m *mat.Dense) {
	out := dst.RawRowView(0)
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			out[j] += v
		}
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// encode embeds the symbols and runs the encoder
func (m *Model) encode(text []int) (x, enc *mat.Dense, err error) {
	if len(text) == 0 {
		return nil, nil, errors.New("model: empty symbol sequence")
	}
	x = mat.NewDense(len(text), m.EmbeddingDim, nil)
	for i, id := range text {
		if id < 0 || id >= m.NSymbols {
			return nil, nil, errors.Errorf("model: symbol id %d outside of vocabulary of %d", id, m.NSymbols)
		}
		x.SetRow(i, m.embedding.Value.RawRowView(id))
	}
	enc = new(mat.Dense)
	enc.Mul(x, m.encW.Value.T())
	addRow(enc, m.encB.Value)
	enc.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, enc)
	return x, enc, nil
}

// prenet runs the decoder prenet. Dropout is applied when rng is not nil.
func (m *Model) prenet(prev *mat.Dense, rng *rand.Rand) (u, mask, pre *mat.Dense) {
	u = new(mat.Dense)
	u.Mul(prev, m.preW.Value.T())
	addRow(u, m.preB.Value)
	pre = new(mat.Dense)
	pre.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, u)
	if rng != nil && m.PrenetDropout > 0 {
		keep := 1 - m.PrenetDropout
		r, c := u.Dims()
		mask = mat.NewDense(r, c, nil)
		mask.Apply(func(_, _ int, _ float64) float64 {
			if rng.Float64() < keep {
				return 1 / keep
			}
			return 0
		}, mask)
		pre.MulElem(pre, mask)
	}
	return
}

// attend computes the attention weights over the encoded symbols and the
// decoder projection input [prenet; context]
func (m *Model) attend(pre, enc *mat.Dense) (query, align, z *mat.Dense) {
	query = new(mat.Dense)
	query.Mul(pre, m.queryW.Value.T())
	align = new(mat.Dense)
	align.Mul(query, enc.T())
	align.Scale(1/math.Sqrt(float64(m.EncoderDim)), align)
	r, _ := align.Dims()
	for t := 0; t < r; t++ {
		row := align.RawRowView(t)
		peak := math.Inf(-1)
		for _, v := range row {
			peak = math.Max(peak, v)
		}
		var sum float64
		for j, v := range row {
			row[j] = math.Exp(v - peak)
			sum += row[j]
		}
		for j := range row {
			row[j] /= sum
		}
	}
	var ctx mat.Dense
	ctx.Mul(align, enc)
	z = new(mat.Dense)
	z.Augment(pre, &ctx)
	return
}

// project computes mel frames and gate logits
func (m *Model) project(z *mat.Dense) (mel, gate *mat.Dense) {
	mel = new(mat.Dense)
	mel.Mul(z, m.melW.Value.T())
	addRow(mel, m.melB.Value)
	gate = new(mat.Dense)
	gate.Mul(z, m.gateW.Value.T())
	addRow(gate, m.gateB.Value)
	return
}

// Forward predicts every frame of the batch from the previous ground truth
// frame. In training mode the result can be passed to Backward.
func (m *Model) Forward(b *datasets.Batch) (*Output, error) {
	n, frames := b.Len(), b.MaxOutputLength()
	if n == 0 {
		return nil, errors.New("model: empty batch")
	}
	if b.Channels() != m.NMels {
		return nil, errors.Errorf("model: batch has %d mel channels, model expects %d", b.Channels(), m.NMels)
	}
	var out = &Output{
		Mel:        make([]*mat.Dense, n),
		Gate:       mat.NewDense(n, frames, nil),
		Alignments: make([]*mat.Dense, n),
	}
	var seeds []int64
	if m.training {
		out.traces = make([]*trace, n)
		seeds = make([]int64, n)
		for i := range seeds {
			seeds[i] = m.rng.Int63()
		}
	}
	err := parallel.ForEachErr(n, m.threads(), func(i int) error {
		var tr = &trace{text: b.Text[i][:b.InputLengths[i]]}
		var err error
		tr.x, tr.enc, err = m.encode(tr.text)
		if err != nil {
			return errors.Wrapf(err, "batch item %d", i)
		}
		tr.prev = mat.NewDense(frames, m.NMels, nil)
		for t := 1; t < frames; t++ {
			tr.prev.SetRow(t, b.Mel[i].RawRowView(t-1))
		}
		var rng *rand.Rand
		if seeds != nil {
			rng = rand.New(rand.NewSource(seeds[i]))
		}
		tr.u, tr.mask, tr.pre = m.prenet(tr.prev, rng)
		tr.query, tr.align, tr.z = m.attend(tr.pre, tr.enc)
		mel, gate := m.project(tr.z)

		out.Mel[i] = mel
		out.Gate.SetRow(i, gate.RawMatrix().Data)
		out.Alignments[i] = tr.align
		if out.traces != nil {
			out.traces[i] = tr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
