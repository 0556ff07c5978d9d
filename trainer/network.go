package trainer

import "github.com/neurlang/ncss/datasets"
import "github.com/neurlang/ncss/model"

// Network is the model surface the trainer drives
type Network interface {
	Forward(b *datasets.Batch) (*model.Output, error)
	Backward(out *model.Output, grad *model.OutputGrad) error
	Parameters() []*model.Parameter
	ZeroGrad()

	Train()
	Eval()
	Training() bool
}

// Checkpointer persists the full parameter state
type Checkpointer interface {
	WriteCompressedWeightsToFile(name string) error
	ReadCompressedWeightsFromFile(name string) error
}

// Synthesizer generates a mel spectrogram for one utterance
type Synthesizer interface {
	Inference(text []int) (*model.Generation, error)

	Train()
	Eval()
	Training() bool
}

// restoreMode puts net back into the mode it had before evaluation
func restoreMode(net interface {
	Train()
	Eval()
}, training bool) {
	if training {
		net.Train()
	} else {
		net.Eval()
	}
}
