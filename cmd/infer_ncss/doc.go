// Package main synthesizes one utterance with a trained checkpoint. It writes the
// predicted mel spectrogram, the attention alignment and the stop token curve as
// images, and a Griffin-Lim waveform. With -wav the prediction is compared with
// the mel spectrogram of a reference recording.
package main
