// Package model implements the attention based text to mel network: a symbol
// embedding, a tanh encoder, a prenet over the previous frame, dot product
// attention over the encoded text and linear mel and stop token projections.
// Gradients are computed by hand-written backpropagation.
package model

import "math"
import "math/rand"

import "github.com/op/go-logging"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/hparams"
import "github.com/neurlang/ncss/parallel"

var log = logging.MustGetLogger("model")

// Parameter is one trainable tensor and its accumulated gradient
type Parameter struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// Model is the speech synthesis network
type Model struct {
	NSymbols     int
	EmbeddingDim int
	EncoderDim   int
	PrenetDim    int
	NMels        int

	MaxDecoderSteps int
	GateThreshold   float64
	PrenetDropout   float64
	Threads         int

	embedding *Parameter // NSymbols×EmbeddingDim
	encW      *Parameter // EncoderDim×EmbeddingDim
	encB      *Parameter // 1×EncoderDim
	preW      *Parameter // PrenetDim×NMels
	preB      *Parameter // 1×PrenetDim
	queryW    *Parameter // EncoderDim×PrenetDim
	melW      *Parameter // NMels×(PrenetDim+EncoderDim)
	melB      *Parameter // 1×NMels
	gateW     *Parameter // 1×(PrenetDim+EncoderDim)
	gateB     *Parameter // 1×1

	params   []*Parameter
	training bool
	rng      *rand.Rand
}

func newParameter(name string, rows, cols int) *Parameter {
	return &Parameter{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

func uniform(p *Parameter, limit float64, rng *rand.Rand) {
	p.Value.Apply(func(_, _ int, _ float64) float64 {
		return (2*rng.Float64() - 1) * limit
	}, p.Value)
}

// xavier initializes p uniformly with the Glorot limit of its shape
func xavier(p *Parameter, rng *rand.Rand) {
	fanOut, fanIn := p.Value.Dims()
	uniform(p, math.Sqrt(6/float64(fanIn+fanOut)), rng)
}

// New builds a freshly initialized model in training mode. Weights depend only
// on h, so two models built from the same hyperparameters are identical.
func New(h *hparams.HyperParameters) *Model {
	m := &Model{
		NSymbols:        h.NSymbols,
		EmbeddingDim:    h.SymbolsEmbeddingDim,
		EncoderDim:      h.EncoderDim,
		PrenetDim:       h.PrenetDim,
		NMels:           h.NMelChannels,
		MaxDecoderSteps: h.MaxDecoderSteps,
		GateThreshold:   h.GateThreshold,
		PrenetDropout:   h.PrenetDropout,
		Threads:         h.Threads,
		training:        true,
		rng:             rand.New(rand.NewSource(h.Seed)),
	}
	z := m.PrenetDim + m.EncoderDim
	m.embedding = newParameter("embedding.weight", m.NSymbols, m.EmbeddingDim)
	m.encW = newParameter("encoder.linear.weight", m.EncoderDim, m.EmbeddingDim)
	m.encB = newParameter("encoder.linear.bias", 1, m.EncoderDim)
	m.preW = newParameter("decoder.prenet.weight", m.PrenetDim, m.NMels)
	m.preB = newParameter("decoder.prenet.bias", 1, m.PrenetDim)
	m.queryW = newParameter("decoder.attention.query.weight", m.EncoderDim, m.PrenetDim)
	m.melW = newParameter("decoder.mel_projection.weight", m.NMels, z)
	m.melB = newParameter("decoder.mel_projection.bias", 1, m.NMels)
	m.gateW = newParameter("decoder.gate_layer.weight", 1, z)
	m.gateB = newParameter("decoder.gate_layer.bias", 1, 1)
	m.params = []*Parameter{m.embedding, m.encW, m.encB, m.preW, m.preB, m.queryW, m.melW, m.melB, m.gateW, m.gateB}

	uniform(m.embedding, math.Sqrt(3)*math.Sqrt(2/float64(m.NSymbols+m.EmbeddingDim)), m.rng)
	for _, p := range []*Parameter{m.encW, m.preW, m.queryW, m.melW, m.gateW} {
		xavier(p, m.rng)
	}
	return m
}

// Parameters returns the trainable tensors in a stable order
func (m *Model) Parameters() []*Parameter {
	return m.params
}

// NumParameters counts the trainable scalars
func (m *Model) NumParameters() (o int) {
	for _, p := range m.params {
		r, c := p.Value.Dims()
		o += r * c
	}
	return
}

// ZeroGrad clears the accumulated gradients
func (m *Model) ZeroGrad() {
	for _, p := range m.params {
		p.Grad.Zero()
	}
}

// Train enables dropout and gradient traces
func (m *Model) Train() {
	m.training = true
}

// Eval disables dropout and gradient traces
func (m *Model) Eval() {
	m.training = false
}

// Training reports whether the model is in training mode
func (m *Model) Training() bool {
	return m.training
}

func (m *Model) threads() int {
	return parallel.Threads(m.Threads)
}
