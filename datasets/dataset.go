// Package datasets implements the text-mel dataset types, the batch collate
// function and the prefetching batch loader
package datasets

import "gonum.org/v1/gonum/mat"

// Item is one utterance: a symbol id sequence and its frames×channels mel spectrogram
type Item struct {
	Text []int
	Mel  *mat.Dense
}

// Frames is the number of mel frames of the item
func (i Item) Frames() int {
	if i.Mel == nil {
		return 0
	}
	r, _ := i.Mel.Dims()
	return r
}

// Dataset is a finite randomly indexable sequence of items
type Dataset interface {
	Len() int
	Get(n int) (Item, error)
}

// Slice is an in-memory Dataset
type Slice []Item

// Len returns the number of items
func (s Slice) Len() int {
	return len(s)
}

// Get returns n-th item
func (s Slice) Get(n int) (Item, error) {
	return s[n], nil
}
