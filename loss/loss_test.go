package loss

import "math"
import "testing"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/ncss/datasets"
import "github.com/neurlang/ncss/model"

func fixture() (*model.Output, *datasets.Batch) {
	b := datasets.Collate([]datasets.Item{
		{Text: []int{3}, Mel: mat.NewDense(2, 2, []float64{1, 1, 1, 1})},
		{Text: []int{3}, Mel: mat.NewDense(3, 2, []float64{0, 0, 0, 0, 0, 0})},
	}, 0, 1)
	out := &model.Output{
		Mel: []*mat.Dense{
			mat.NewDense(3, 2, []float64{2, 2, 2, 2, 9, 9}),
			mat.NewDense(3, 2, []float64{1, 1, 1, 1, 1, 1}),
		},
		Gate: mat.NewDense(2, 3, []float64{0, 0, 0, 0, 0, 0}),
	}
	return out, b
}

func TestMaskedLoss(t *testing.T) {
	out, b := fixture()
	l, grad := NeuralConcatenativeLoss{MaskPadding: true}.Compute(out, b)

	// 5 valid frames × 2 channels, every squared error is 1
	if math.Abs(l.Mel-1) > 1e-12 {
		t.Errorf("mel loss %v", l.Mel)
	}
	if math.Abs(l.Gate-math.Log(2)) > 1e-12 {
		t.Errorf("gate loss %v", l.Gate)
	}
	if l.Total != l.Mel+l.Gate {
		t.Errorf("total %v", l.Total)
	}
	if grad.Mel[0].At(2, 0) != 0 || grad.Gate.At(0, 2) != 0 {
		t.Error("padding received gradient")
	}
	if math.Abs(grad.Mel[0].At(0, 0)-2.0/10) > 1e-12 {
		t.Errorf("mel gradient %v", grad.Mel[0].At(0, 0))
	}
	if math.Abs(grad.Gate.At(0, 1)-(0.5-1)/5) > 1e-12 {
		t.Errorf("gate gradient %v", grad.Gate.At(0, 1))
	}
}

func TestUnmaskedLoss(t *testing.T) {
	out, b := fixture()
	l, grad := NeuralConcatenativeLoss{}.Compute(out, b)
	// the padded frame of item 0 predicts 9 against 0
	if math.Abs(l.Mel-(5*2+2*81)/12.0) > 1e-12 {
		t.Errorf("mel loss %v", l.Mel)
	}
	if grad.Mel[0].At(2, 0) == 0 {
		t.Error("padding excluded without masking")
	}
}

func TestLossGradient(t *testing.T) {
	out, b := fixture()
	c := NeuralConcatenativeLoss{MaskPadding: true}
	_, grad := c.Compute(out, b)
	const eps = 1e-6
	for i := 0; i < 2; i++ {
		for f := 0; f < 3; f++ {
			orig := out.Gate.At(i, f)
			out.Gate.Set(i, f, orig+eps)
			plus, _ := c.Compute(out, b)
			out.Gate.Set(i, f, orig-eps)
			minus, _ := c.Compute(out, b)
			out.Gate.Set(i, f, orig)
			numeric := (plus.Total - minus.Total) / (2 * eps)
			if math.Abs(numeric-grad.Gate.At(i, f)) > 1e-6 {
				t.Errorf("gate %d,%d: %v != %v", i, f, grad.Gate.At(i, f), numeric)
			}
		}
	}
}
