package textmel

import "github.com/pkg/errors"

import "github.com/neurlang/ncss/audio"
import "github.com/neurlang/ncss/datasets"
import "github.com/neurlang/ncss/hparams"
import "github.com/neurlang/ncss/text"

// Loader is a lazy datasets.Dataset over a manifest. Audio is decoded and
// converted to a mel spectrogram on every Get.
type Loader struct {
	Entries []Entry

	stft        *audio.MelSTFT
	maxWavValue float64
}

// New reads the manifest and prepares the mel extractor
func New(manifest string, h *hparams.HyperParameters) (*Loader, error) {
	entries, err := ReadManifest(manifest)
	if err != nil {
		return nil, err
	}
	return NewFromEntries(entries, h), nil
}

// NewFromEntries builds a loader over already parsed entries
func NewFromEntries(entries []Entry, h *hparams.HyperParameters) *Loader {
	return &Loader{
		Entries:     entries,
		stft:        audio.NewMelSTFT(h),
		maxWavValue: h.MaxWavValue,
	}
}

// Len returns the number of manifest entries
func (l *Loader) Len() int {
	return len(l.Entries)
}

// Text converts the n-th transcript to symbol ids
func (l *Loader) Text(n int) ([]int, error) {
	seq, err := text.TextToSequence(text.Clean(l.Entries[n].Text))
	return seq, errors.Wrapf(err, "textmel: manifest line %d", l.Entries[n].Line)
}

// Get loads the n-th item
func (l *Loader) Get(n int) (datasets.Item, error) {
	seq, err := l.Text(n)
	if err != nil {
		return datasets.Item{}, err
	}
	mel, err := l.stft.LoadMel(l.Entries[n].AudioPath, l.maxWavValue)
	if err != nil {
		return datasets.Item{}, errors.Wrapf(err, "textmel: manifest line %d", l.Entries[n].Line)
	}
	return datasets.Item{Text: seq, Mel: mel}, nil
}
