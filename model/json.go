package model

import "compress/lzw"
import "encoding/json"
import "io"
import "os"

import "github.com/pkg/errors"

type jsonParameter struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// WriteCompressedWeightsToFile writes model weights to a lzw file, replacing it
func (m *Model) WriteCompressedWeightsToFile(name string) error {
	file, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "model: checkpoint")
	}
	err = m.WriteCompressedWeights(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return errors.Wrapf(err, "model: checkpoint %s", name)
}

// WriteCompressedWeights writes model weights to a writer
func (m *Model) WriteCompressedWeights(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	var state = make([]jsonParameter, len(m.params))
	for i, p := range m.params {
		r, c := p.Value.Dims()
		state[i] = jsonParameter{Name: p.Name, Rows: r, Cols: c, Data: p.Value.RawMatrix().Data}
	}
	if err := json.NewEncoder(lw).Encode(state); err != nil {
		lw.Close()
		return err
	}
	return lw.Close()
}

// ReadCompressedWeightsFromFile reads model weights from a lzw file
func (m *Model) ReadCompressedWeightsFromFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "model: checkpoint")
	}
	defer file.Close()
	return errors.Wrapf(m.ReadCompressedWeights(file), "model: checkpoint %s", name)
}

// ReadCompressedWeights reads model weights from a reader. Every parameter of
// the model must be present with the same shape.
func (m *Model) ReadCompressedWeights(r io.Reader) error {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()
	var state []jsonParameter
	if err := json.NewDecoder(lr).Decode(&state); err != nil {
		return err
	}
	var byName = make(map[string]jsonParameter, len(state))
	for _, s := range state {
		byName[s.Name] = s
	}
	for _, p := range m.params {
		s, ok := byName[p.Name]
		if !ok {
			return errors.Errorf("missing parameter %s", p.Name)
		}
		r, c := p.Value.Dims()
		if s.Rows != r || s.Cols != c || len(s.Data) != r*c {
			return errors.Errorf("parameter %s has shape %dx%d, model expects %dx%d", p.Name, s.Rows, s.Cols, r, c)
		}
	}
	for _, p := range m.params {
		copy(p.Value.RawMatrix().Data, byName[p.Name].Data)
	}
	return nil
}
