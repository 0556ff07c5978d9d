// Package text maps transcripts to symbol id sequences and back
package text

import "fmt"
import "strconv"
import "strings"
import "unicode"

import "github.com/neurlang/NumToWordsGo/NumToWords"
import "golang.org/x/text/unicode/norm"

import "github.com/neurlang/ncss/hparams"

var symbolToID = func() map[rune]int {
	m := make(map[rune]int, len(hparams.Symbols))
	for i, s := range hparams.Symbols {
		m[s] = i
	}
	return m
}()

// PadID is the id of the padding symbol
var PadID = symbolToID['_']

// UnknownSymbolError is returned when a transcript contains a rune outside of the vocabulary
type UnknownSymbolError struct {
	Symbol   rune
	Position int
	Text     string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("text: unknown symbol %q at position %d in %q", e.Symbol, e.Position, e.Text)
}

// TextToSequence converts text to a sequence of symbol ids
func TextToSequence(text string) ([]int, error) {
	var seq = make([]int, 0, len(text))
	var pos int
	for _, r := range text {
		id, ok := symbolToID[r]
		if !ok {
			return nil, &UnknownSymbolError{Symbol: r, Position: pos, Text: text}
		}
		seq = append(seq, id)
		pos++
	}
	return seq, nil
}

// SequenceToText converts a sequence of symbol ids back to text. Ids outside of
// the vocabulary are skipped.
func SequenceToText(seq []int) string {
	var b strings.Builder
	for _, id := range seq {
		if id < 0 || id >= len(hparams.Symbols) {
			continue
		}
		b.WriteRune(hparams.Symbols[id])
	}
	return b.String()
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// numberWords spells a decimal number in English
func numberWords(digits string) (string, error) {
	num, err := strconv.Atoi(digits)
	if err != nil {
		return "", err
	}
	words, err := NumToWords.Convert(num, "en")
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(words), " "), nil
}

// SpellNumbers replaces every run of digits with its English words. Runs that
// cannot be spelled are kept as they are.
func SpellNumbers(text string) string {
	var runes = []rune(text)
	var b strings.Builder
	for i := 0; i < len(runes); {
		if !isDigit(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isDigit(runes[j]) {
			j++
		}
		words, err := numberWords(string(runes[i:j]))
		if err != nil {
			b.WriteString(string(runes[i:j]))
			i = j
			continue
		}
		if i > 0 && unicode.IsLetter(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteString(words)
		if j < len(runes) && unicode.IsLetter(runes[j]) {
			b.WriteRune(' ')
		}
		i = j
	}
	return b.String()
}

// Clean decomposes text, spells out numbers, drops combining marks and collapses whitespace.
func Clean(text string) string {
	var b strings.Builder
	var space bool
	for _, r := range SpellNumbers(norm.NFKD.String(text)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteRune(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
