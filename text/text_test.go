package text

import "errors"
import "testing"

import "github.com/neurlang/ncss/hparams"

func TestTextToSequence(t *testing.T) {
	seq, err := TextToSequence("Hi, there!")
	if err != nil {
		t.Fatal(err)
	}
	if len(seq) != 10 {
		t.Fatalf("len %d", len(seq))
	}
	if SequenceToText(seq) != "Hi, there!" {
		t.Errorf("round trip: %q", SequenceToText(seq))
	}
	if PadID != 0 {
		t.Errorf("pad id %d", PadID)
	}
}

func TestUnknownSymbol(t *testing.T) {
	for _, s := range []string{"abc1", "\"quoted\"", "naïve", "tab\there"} {
		_, err := TextToSequence(s)
		var unk *UnknownSymbolError
		if !errors.As(err, &unk) {
			t.Errorf("%q: expected unknown symbol error, got %v", s, err)
		}
	}
	_, err := TextToSequence("ab1")
	var unk *UnknownSymbolError
	if errors.As(err, &unk) && (unk.Position != 2 || unk.Symbol != '1') {
		t.Errorf("wrong position/symbol: %v", unk)
	}
}

func TestClean(t *testing.T) {
	cases := map[string]string{
		"  naïve   café\n":   "naive cafe",
		"Hello,\tWorld":      "Hello, World",
		"":                   "",
		"already clean.":     "already clean.",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanNumbers(t *testing.T) {
	for _, in := range []string{"Chapter 3", "Chapter 3, in 1963.", "room 101b", "  42  "} {
		out := Clean(in)
		for _, r := range out {
			if isDigit(r) {
				t.Fatalf("Clean(%q) = %q keeps digits", in, out)
			}
		}
		seq, err := TextToSequence(out)
		if err != nil {
			t.Fatalf("Clean(%q) = %q: %v", in, out, err)
		}
		if len(seq) == 0 {
			t.Errorf("Clean(%q) is empty", in)
		}
	}
	if out := Clean("Chapter 3"); len(out) <= len("Chapter ") || out[:len("Chapter ")] != "Chapter " {
		t.Errorf("Clean(%q) = %q", "Chapter 3", out)
	}
	if out := Clean("room 101b"); out[len(out)-2:] != " b" {
		t.Errorf("letters after a number must stay a separate word: %q", out)
	}
}

// mapping is total: either every rune maps to its vocabulary position or an error is returned
func FuzzTextToSequence(f *testing.F) {
	f.Add("Printing, in the only sense with which we are at present concerned.")
	f.Add("x\x00y")
	f.Fuzz(func(t *testing.T, s string) {
		seq, err := TextToSequence(s)
		var known = true
		for _, r := range s {
			var found bool
			for _, v := range hparams.Symbols {
				if v == r {
					found = true
				}
			}
			known = known && found
		}
		if known != (err == nil) {
			t.Fatalf("%q: known=%v err=%v", s, known, err)
		}
		if err == nil && SequenceToText(seq) != s {
			t.Fatalf("%q: round trip %q", s, SequenceToText(seq))
		}
	})
}
