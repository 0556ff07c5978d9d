package hparams

import "path/filepath"
import "testing"

func TestSymbols(t *testing.T) {
	if len(Symbols) != 64 {
		t.Errorf("vocabulary size %d, expected 64", len(Symbols))
	}
	if Symbols[0] != '_' {
		t.Errorf("padding symbol must be first, got %q", Symbols[0])
	}
	var seen = make(map[rune]struct{})
	for _, r := range Symbols {
		if _, ok := seen[r]; ok {
			t.Errorf("duplicate symbol %q", r)
		}
		seen[r] = struct{}{}
	}
	if Default().NSymbols != len(Symbols) {
		t.Errorf("n_symbols %d != vocabulary %d", Default().NSymbols, len(Symbols))
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("NCSS_BATCH_SIZE", "2")
	t.Setenv("NCSS_LEARNING_RATE", "0.5")
	h := Default()
	if err := FromEnv(h); err != nil {
		t.Fatal(err)
	}
	if h.BatchSize != 2 || h.LearningRate != 0.5 {
		t.Errorf("overrides not applied: batch %d lr %v", h.BatchSize, h.LearningRate)
	}
	if h.Epochs != 500 {
		t.Errorf("untouched field changed: %d", h.Epochs)
	}
}

func TestYAMLFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "hparams.yaml")
	h := Default()
	h.NMelChannels = 20
	h.ModelSavePath = "x.lzw"
	if err := h.WriteYAMLFile(name); err != nil {
		t.Fatal(err)
	}
	g, err := ReadYAMLFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if *g != *h {
		t.Errorf("configuration changed on disk: %+v != %+v", g, h)
	}
}
