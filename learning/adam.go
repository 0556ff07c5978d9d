// Package learning implements the optimization stage: gradient clipping and the Adam update
package learning

import "math"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/model"

// Adam keeps the moment estimates of every parameter
type Adam struct {
	HyperParameters

	t    int
	m, v []*mat.Dense
}

// NewAdam creates the optimizer state for params
func NewAdam(h HyperParameters, params []*model.Parameter) *Adam {
	a := &Adam{HyperParameters: h}
	for _, p := range params {
		r, c := p.Value.Dims()
		a.m = append(a.m, mat.NewDense(r, c, nil))
		a.v = append(a.v, mat.NewDense(r, c, nil))
	}
	return a
}

// Steps returns the number of updates applied so far
func (a *Adam) Steps() int {
	return a.t
}

// Step applies one bias corrected Adam update from the accumulated gradients.
// params must be the slice the optimizer was created with.
func (a *Adam) Step(params []*model.Parameter) {
	a.t++
	c1 := 1 - math.Pow(a.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.Beta2, float64(a.t))
	for k, p := range params {
		value := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		m := a.m[k].RawMatrix().Data
		v := a.v[k].RawMatrix().Data
		for i, g := range grad {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
			value[i] -= a.LearningRate * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.Epsilon)
		}
	}
}

// ClipGradNorm rescales all gradients so their global L2 norm is at most
// maxNorm. It returns the norm before clipping.
func ClipGradNorm(params []*model.Parameter, maxNorm float64) float64 {
	var sum float64
	for _, p := range params {
		n := mat.Norm(p.Grad, 2)
		sum += n * n
	}
	norm := math.Sqrt(sum)
	if maxNorm > 0 && norm > maxNorm {
		for _, p := range params {
			p.Grad.Scale(maxNorm/(norm+1e-6), p.Grad)
		}
	}
	return norm
}
