// Package hparams holds the hyperparameters of the speech synthesis experiment
package hparams

import "os"

import "github.com/caarlos0/env/v11"
import "github.com/pkg/errors"
import "gopkg.in/yaml.v3"

// HyperParameters is the flat experiment configuration. It is shared read-only
// by the data pipeline, the model and the trainer.
type HyperParameters struct {
	// experiment
	Epochs int   `yaml:"epochs" env:"EPOCHS"`
	Seed   int64 `yaml:"seed" env:"SEED"`

	// data
	TrainingFiles   string `yaml:"training_files" env:"TRAINING_FILES"`
	ValidationFiles string `yaml:"validation_files" env:"VALIDATION_FILES"`

	// audio
	MaxWavValue  float64 `yaml:"max_wav_value" env:"MAX_WAV_VALUE"`
	SamplingRate int     `yaml:"sampling_rate" env:"SAMPLING_RATE"`
	FilterLength int     `yaml:"filter_length" env:"FILTER_LENGTH"`
	HopLength    int     `yaml:"hop_length" env:"HOP_LENGTH"`
	WinLength    int     `yaml:"win_length" env:"WIN_LENGTH"`
	NMelChannels int     `yaml:"n_mel_channels" env:"N_MEL_CHANNELS"`
	MelFmin      float64 `yaml:"mel_fmin" env:"MEL_FMIN"`
	MelFmax      float64 `yaml:"mel_fmax" env:"MEL_FMAX"`

	// model
	NSymbols            int `yaml:"n_symbols"`
	SymbolsEmbeddingDim int `yaml:"symbols_embedding_dim" env:"SYMBOLS_EMBEDDING_DIM"`
	EncoderDim          int `yaml:"encoder_dim" env:"ENCODER_DIM"`
	PrenetDim           int `yaml:"prenet_dim" env:"PRENET_DIM"`

	// decoder
	NFramesPerStep  int     `yaml:"n_frames_per_step"` // currently only 1 is supported
	MaxDecoderSteps int     `yaml:"max_decoder_steps" env:"MAX_DECODER_STEPS"`
	GateThreshold   float64 `yaml:"gate_threshold" env:"GATE_THRESHOLD"`
	PrenetDropout   float64 `yaml:"prenet_dropout" env:"PRENET_DROPOUT"`

	// optimization
	BatchSize      int     `yaml:"batch_size" env:"BATCH_SIZE"`
	LearningRate   float64 `yaml:"learning_rate" env:"LEARNING_RATE"`
	AdamBeta1      float64 `yaml:"adam_beta1"`
	AdamBeta2      float64 `yaml:"adam_beta2"`
	AdamEpsilon    float64 `yaml:"adam_epsilon"`
	GradClipThresh float64 `yaml:"grad_clip_thresh" env:"GRAD_CLIP_THRESH"`
	MaskPadding    bool    `yaml:"mask_padding" env:"MASK_PADDING"`

	// output
	ModelSavePath   string `yaml:"model_save_path" env:"MODEL_SAVE_PATH"`
	LogDirectory    string `yaml:"log_directory" env:"LOG_DIRECTORY"`
	LogInterval     int    `yaml:"log_interval" env:"LOG_INTERVAL"`
	SummaryInterval int    `yaml:"summary_interval" env:"SUMMARY_INTERVAL"`

	Threads int `yaml:"threads" env:"THREADS"` // 0 means one per physical core
}

// Default returns the compiled experiment configuration.
func Default() *HyperParameters {
	return &HyperParameters{
		Epochs: 500,
		Seed:   1234,

		TrainingFiles:   "filelists/ljs_audio_text_train_filelist.txt",
		ValidationFiles: "filelists/ljs_audio_text_val_filelist.txt",

		MaxWavValue:  32768.0,
		SamplingRate: 22050,
		FilterLength: 1024,
		HopLength:    256,
		WinLength:    1024,
		NMelChannels: 80,
		MelFmin:      0.0,
		MelFmax:      8000.0,

		NSymbols:            len(Symbols),
		SymbolsEmbeddingDim: 512,
		EncoderDim:          256,
		PrenetDim:           256,

		NFramesPerStep:  1,
		MaxDecoderSteps: 1000,
		GateThreshold:   0.5,
		PrenetDropout:   0.5,

		BatchSize:      4,
		LearningRate:   1e-3,
		AdamBeta1:      0.9,
		AdamBeta2:      0.999,
		AdamEpsilon:    1e-6,
		GradClipThresh: 1.0,
		MaskPadding:    true,

		ModelSavePath:   "checkpoints/ncss.json.lzw",
		LogDirectory:    "logs",
		LogInterval:     100,
		SummaryInterval: 100,
	}
}

// FromEnv overrides fields of h from NCSS_* environment variables.
func FromEnv(h *HyperParameters) error {
	err := env.ParseWithOptions(h, env.Options{Prefix: "NCSS_"})
	if err != nil {
		return errors.Wrap(err, "hparams: environment")
	}
	return nil
}

// WriteYAMLFile stores the effective configuration next to a checkpoint.
func (h *HyperParameters) WriteYAMLFile(name string) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return errors.Wrap(err, "hparams: marshal")
	}
	return errors.Wrapf(os.WriteFile(name, data, 0666), "hparams: write %s", name)
}

// ReadYAMLFile loads a configuration written by WriteYAMLFile. Fields missing
// from the file keep their compiled defaults.
func ReadYAMLFile(name string) (*HyperParameters, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "hparams: read %s", name)
	}
	h := Default()
	if err := yaml.Unmarshal(data, h); err != nil {
		return nil, errors.Wrapf(err, "hparams: parse %s", name)
	}
	return h, nil
}
