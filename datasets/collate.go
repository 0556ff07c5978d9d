package datasets

import "gonum.org/v1/gonum/mat"

// Batch is a padded group of items. Row i of every field belongs to the i-th
// collated item.
type Batch struct {
	// Text is right-padded with the padding symbol id up to the longest sequence
	Text         [][]int
	InputLengths []int

	// Mel holds one maxFrames×channels matrix per item, zero padded
	Mel []*mat.Dense

	// Gate is the N×maxFrames stop token target: 0 before the last valid frame, 1 from it on
	Gate          *mat.Dense
	OutputLengths []int
}

// Len is the number of items in the batch
func (b *Batch) Len() int {
	return len(b.Text)
}

// MaxInputLength is the padded symbol sequence length
func (b *Batch) MaxInputLength() int {
	if len(b.Text) == 0 {
		return 0
	}
	return len(b.Text[0])
}

// MaxOutputLength is the padded frame count
func (b *Batch) MaxOutputLength() int {
	if b.Gate == nil {
		return 0
	}
	_, c := b.Gate.Dims()
	return c
}

// Channels is the number of mel channels
func (b *Batch) Channels() int {
	if len(b.Mel) == 0 {
		return 0
	}
	_, c := b.Mel[0].Dims()
	return c
}

// Collate pads a list of items into a batch. Item order is preserved. The
// padded frame count is rounded up to a multiple of framesPerStep.
func Collate(items []Item, padID, framesPerStep int) *Batch {
	var b = &Batch{
		Text:          make([][]int, len(items)),
		InputLengths:  make([]int, len(items)),
		Mel:           make([]*mat.Dense, len(items)),
		OutputLengths: make([]int, len(items)),
	}
	if len(items) == 0 {
		return b
	}

	var maxIn, maxOut, channels int
	for _, it := range items {
		if len(it.Text) > maxIn {
			maxIn = len(it.Text)
		}
		if it.Frames() > maxOut {
			maxOut = it.Frames()
		}
		if it.Mel != nil {
			_, channels = it.Mel.Dims()
		}
	}
	if framesPerStep > 1 && maxOut%framesPerStep != 0 {
		maxOut += framesPerStep - maxOut%framesPerStep
	}
	if maxOut == 0 {
		maxOut = 1
	}
	if channels == 0 {
		channels = 1
	}

	b.Gate = mat.NewDense(len(items), maxOut, nil)
	for i, it := range items {
		var row = make([]int, maxIn)
		n := copy(row, it.Text)
		for j := n; j < maxIn; j++ {
			row[j] = padID
		}
		b.Text[i] = row
		b.InputLengths[i] = len(it.Text)

		var mel = mat.NewDense(maxOut, channels, nil)
		frames := it.Frames()
		if frames > 0 {
			mel.Slice(0, frames, 0, channels).(*mat.Dense).Copy(it.Mel)
		}
		b.Mel[i] = mel
		b.OutputLengths[i] = frames

		var last = frames - 1
		if last < 0 {
			last = 0
		}
		for t := last; t < maxOut; t++ {
			b.Gate.Set(i, t, 1)
		}
	}
	return b
}
