package main

import "flag"
import "math/rand"
import "os"
import "path/filepath"

import "github.com/op/go-logging"

import "github.com/neurlang/ncss/audio"
import "github.com/neurlang/ncss/hparams"
import "github.com/neurlang/ncss/inference"
import "github.com/neurlang/ncss/model"
import "github.com/neurlang/ncss/monitor"
import "github.com/neurlang/ncss/trainer"

var log = logging.MustGetLogger("infer_ncss")

var format = logging.MustStringFormatter(`%{time:15:04:05.000} %{module:-10s} %{level:.4s} %{message}`)

func main() {
	logging.SetBackend(logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), format))

	defaults := hparams.Default()
	hparamsFile := flag.String("hparams", filepath.Join(filepath.Dir(defaults.ModelSavePath), "hparams.yaml"), "saved hyperparameters")
	checkpoint := flag.String("model", "", "checkpoint file (default: model_save_path of the hyperparameters)")
	transcript := flag.String("text", "Waveglow is really awesome!", "text to synthesize")
	reference := flag.String("wav", "", "reference recording of the text")
	out := flag.String("out", "inference", "output directory")
	iterations := flag.Int("griffin", 60, "Griffin-Lim iterations, 0 skips audio")
	flag.Parse()

	h, err := hparams.ReadYAMLFile(*hparamsFile)
	if err != nil {
		log.Warningf("%v, using compiled hyperparameters", err)
		h = defaults
	}
	if *checkpoint == "" {
		*checkpoint = h.ModelSavePath
	}

	var net = model.New(h)
	if err := net.ReadCompressedWeightsFromFile(*checkpoint); err != nil {
		log.Fatal(err)
	}
	net.Eval()

	sink, err := monitor.NewWriter(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer sink.Close()

	var stft = audio.NewMelSTFT(h)
	utt, err := inference.Synthesize(net, stft, *transcript, *iterations, rand.New(rand.NewSource(h.Seed)))
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("%d symbols, %d frames", len(utt.Sequence), utt.Generation.Frames())

	var diagnosis = &trainer.Diagnosis{Generation: utt.Generation}
	if *reference != "" {
		diagnosis, err = trainer.Infer(net, stft, utt.Sequence, *reference, h.MaxWavValue)
		if err != nil {
			log.Fatal(err)
		}
		if diagnosis.Compared {
			log.Infof("mel error against %s: %.5f", *reference, diagnosis.MelError)
		}
	}
	if err := diagnosis.WriteSummaries(sink, 1); err != nil {
		log.Fatal(err)
	}

	if utt.Samples != nil {
		name := filepath.Join(*out, "synthesized.wav")
		if err := audio.SaveWav(name, utt.Samples, h.SamplingRate); err != nil {
			log.Fatal(err)
		}
		log.Infof("wrote %s", name)
	}
}
