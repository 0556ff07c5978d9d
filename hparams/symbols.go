package hparams

const pad = "_"
const punctuation = "!'(),.:;? "
const special = "-"
const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Symbols is the ordered symbol vocabulary. The index of a symbol is its id,
// so the order must never change once a model has been trained.
var Symbols = func() (o []rune) {
	o = append(o, []rune(pad)...)
	o = append(o, []rune(special)...)
	o = append(o, []rune(punctuation)...)
	o = append(o, []rune(letters)...)
	return
}()
