// Package trainer provides high-level training orchestration for the speech
// synthesis network. It runs the epoch and batch loop with a prefetching data
// loader, validates on held out data, writes summaries and checkpoints, and
// produces single utterance inference diagnostics.
package trainer
