package learning

import "github.com/neurlang/ncss/hparams"

// HyperParameters configures the optimizer
type HyperParameters struct {
	LearningRate float64
	Beta1        float64 // decay of the first moment estimate
	Beta2        float64 // decay of the second moment estimate
	Epsilon      float64

	GradClipThresh float64 // maximum global gradient norm, 0 disables clipping
}

// FromHParams picks the optimization settings of the experiment configuration
func FromHParams(h *hparams.HyperParameters) HyperParameters {
	return HyperParameters{
		LearningRate:   h.LearningRate,
		Beta1:          h.AdamBeta1,
		Beta2:          h.AdamBeta2,
		Epsilon:        h.AdamEpsilon,
		GradClipThresh: h.GradClipThresh,
	}
}
