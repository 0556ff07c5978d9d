package main

import "context"
import "os"
import "path/filepath"

import "github.com/op/go-logging"

import "github.com/neurlang/ncss/datasets"
import "github.com/neurlang/ncss/datasets/textmel"
import "github.com/neurlang/ncss/hparams"
import "github.com/neurlang/ncss/model"
import "github.com/neurlang/ncss/monitor"
import "github.com/neurlang/ncss/parallel"
import "github.com/neurlang/ncss/trainer"

var log = logging.MustGetLogger("train_ncss")

var format = logging.MustStringFormatter(`%{time:15:04:05.000} %{module:-10s} %{level:.4s} %{message}`)

func main() {
	logging.SetBackend(logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), format))

	var h = hparams.Default()
	if err := hparams.FromEnv(h); err != nil {
		log.Fatal(err)
	}
	startProfile()
	log.Infof("cpu: %s, %d threads", parallel.Describe(), parallel.Threads(h.Threads))

	trainset, err := textmel.New(h.TrainingFiles, h)
	if err != nil {
		log.Fatal(err)
	}
	var valset datasets.Dataset
	if h.ValidationFiles != "" {
		v, err := textmel.New(h.ValidationFiles, h)
		if err != nil {
			log.Fatal(err)
		}
		valset = v
	}
	log.Infof("%d training and %d validation utterances", trainset.Len(), lenOf(valset))

	var net = model.New(h)
	log.Infof("parameter numbers: %d", net.NumParameters())

	dir := filepath.Dir(h.ModelSavePath)
	if err := os.MkdirAll(dir, 0777); err != nil {
		log.Fatal(err)
	}
	if err := h.WriteYAMLFile(filepath.Join(dir, "hparams.yaml")); err != nil {
		log.Fatal(err)
	}
	if _, err := trainer.Resume(net, h.ModelSavePath); err != nil {
		log.Fatal(err)
	}

	sink, err := monitor.NewWriter(h.LogDirectory)
	if err != nil {
		log.Fatal(err)
	}
	defer sink.Close()
	log.Infof("summaries of run %s in %s", sink.Run, sink.Dir)

	if _, err := trainer.Train(context.Background(), h, net, trainset, valset, sink); err != nil {
		sink.Close()
		log.Fatal(err)
	}
}

func lenOf(d datasets.Dataset) int {
	if d == nil {
		return 0
	}
	return d.Len()
}
