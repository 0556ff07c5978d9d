// Package audio implements the audio feature extraction used by the text-mel pipeline:
// WAV input and output, the short time Fourier transform, mel filterbanks and
// Griffin-Lim reconstruction.
package audio

import "os"

import "github.com/go-audio/audio"
import "github.com/go-audio/wav"
import "github.com/pkg/errors"

// LoadWav reads the first channel of a PCM wav file. Samples are returned
// unscaled, at the integer range of the file's bit depth.
func LoadWav(name string) (samples []float64, sampleRate int, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "audio: open %s", name)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, errors.Errorf("audio: %s is not a valid wav file", name)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, errors.Wrapf(err, "audio: decode %s", name)
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	samples = make([]float64, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, float64(buf.Data[i]))
	}
	return samples, buf.Format.SampleRate, nil
}

// SaveWav writes samples in the range [-1, 1] as a 16-bit mono wav file.
func SaveWav(name string, samples []float64, sampleRate int) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "audio: create %s", name)
	}
	defer f.Close()

	var data = make([]int, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		data[i] = int(v * 32767)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	err = enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	})
	if err != nil {
		return errors.Wrapf(err, "audio: encode %s", name)
	}
	return errors.Wrapf(enc.Close(), "audio: close %s", name)
}
