package learning

import "math"
import "testing"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/model"

func param(values ...float64) *model.Parameter {
	return &model.Parameter{
		Name:  "p",
		Value: mat.NewDense(1, len(values), values),
		Grad:  mat.NewDense(1, len(values), nil),
	}
}

// minimizes (x-3)^2
func TestAdamConverges(t *testing.T) {
	p := param(0)
	params := []*model.Parameter{p}
	a := NewAdam(HyperParameters{LearningRate: 0.1, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}, params)
	for i := 0; i < 500; i++ {
		x := p.Value.At(0, 0)
		p.Grad.Set(0, 0, 2*(x-3))
		a.Step(params)
	}
	if math.Abs(p.Value.At(0, 0)-3) > 1e-2 {
		t.Errorf("x = %v", p.Value.At(0, 0))
	}
	if a.Steps() != 500 {
		t.Errorf("steps %d", a.Steps())
	}
}

func TestAdamFirstStep(t *testing.T) {
	p := param(1, 1)
	p.Grad.Set(0, 0, 5)
	p.Grad.Set(0, 1, -0.01)
	params := []*model.Parameter{p}
	NewAdam(HyperParameters{LearningRate: 0.01, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}, params).Step(params)
	// the bias corrected first update has magnitude lr regardless of the gradient scale
	if math.Abs(p.Value.At(0, 0)-0.99) > 1e-6 || math.Abs(p.Value.At(0, 1)-1.01) > 1e-6 {
		t.Errorf("values %v %v", p.Value.At(0, 0), p.Value.At(0, 1))
	}
}

func TestClipGradNorm(t *testing.T) {
	a, b := param(0, 0), param(0)
	a.Grad.Set(0, 0, 3)
	b.Grad.Set(0, 0, 4)
	params := []*model.Parameter{a, b}
	if n := ClipGradNorm(params, 10); n != 5 || a.Grad.At(0, 0) != 3 {
		t.Errorf("norm %v, clipped below threshold", n)
	}
	ClipGradNorm(params, 1)
	if n := ClipGradNorm(params, 0); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm after clipping %v", n)
	}
}
