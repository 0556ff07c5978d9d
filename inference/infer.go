// Package inference implements the synthesis stage: text to symbols, symbols to
// mel frames, mel frames to a waveform
package inference

import "math/rand"

import "github.com/neurlang/ncss/audio"
import "github.com/neurlang/ncss/model"
import "github.com/neurlang/ncss/text"

// Model generates mel frames for a symbol sequence
type Model interface {
	Inference(text []int) (*model.Generation, error)
}

// Utterance is the synthesized form of one transcript
type Utterance struct {
	Sequence   []int
	Generation *model.Generation
	Samples    []float64
}

// Sequence cleans a transcript and maps it to symbol ids
func Sequence(transcript string) ([]int, error) {
	return text.TextToSequence(text.Clean(transcript))
}

// Synthesize generates the mel spectrogram of transcript with m and vocodes it
// with iterations rounds of Griffin-Lim. Zero iterations skip vocoding.
func Synthesize(m Model, stft *audio.MelSTFT, transcript string, iterations int, rng *rand.Rand) (*Utterance, error) {
	seq, err := Sequence(transcript)
	if err != nil {
		return nil, err
	}
	gen, err := m.Inference(seq)
	if err != nil {
		return nil, err
	}
	var u = &Utterance{Sequence: seq, Generation: gen}
	if iterations <= 0 || gen.Frames() < 2 {
		return u, nil
	}
	u.Samples, err = stft.Vocode(gen.Mel, iterations, rng)
	if err != nil {
		return nil, err
	}
	return u, nil
}
