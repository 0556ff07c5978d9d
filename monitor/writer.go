// Package monitor is the training summary sink. Scalars are appended as JSON
// lines to scalars.jsonl; spectrograms, alignments and curves are rendered to
// PNG files under images/.
package monitor

import "encoding/json"
import "fmt"
import "image/color"
import "math"
import "os"
import "path/filepath"
import "strings"
import "sync"
import "time"

import "github.com/google/uuid"
import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"
import "gonum.org/v1/plot"
import "gonum.org/v1/plot/palette"
import "gonum.org/v1/plot/plotter"
import "gonum.org/v1/plot/vg"

// Scalar is one point of a named time series
type Scalar struct {
	Run      string  `json:"run"`
	Tag      string  `json:"tag"`
	Step     int     `json:"step"`
	Value    float64 `json:"value"`
	WallTime float64 `json:"wall_time"`
}

// Writer writes summaries of one training run into a log directory
type Writer struct {
	Dir string
	Run string

	mut     sync.Mutex
	file    *os.File
	enc     *json.Encoder
	series  map[string]plotter.XYs
	lastTag map[string]int
}

// NewWriter creates the log directory and opens the scalar log for appending
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0777); err != nil {
		return nil, errors.Wrap(err, "monitor: log directory")
	}
	file, err := os.OpenFile(filepath.Join(dir, "scalars.jsonl"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, errors.Wrap(err, "monitor: scalar log")
	}
	return &Writer{
		Dir:     dir,
		Run:     uuid.NewString(),
		file:    file,
		enc:     json.NewEncoder(file),
		series:  make(map[string]plotter.XYs),
		lastTag: make(map[string]int),
	}, nil
}

// AddScalar records value of the series tag at step. Steps of one series must increase.
func (w *Writer) AddScalar(tag string, value float64, step int) error {
	w.mut.Lock()
	defer w.mut.Unlock()
	if last, ok := w.lastTag[tag]; ok && step <= last {
		return errors.Errorf("monitor: %s step %d is not after %d", tag, step, last)
	}
	w.lastTag[tag] = step
	w.series[tag] = append(w.series[tag], plotter.XY{X: float64(step), Y: value})
	err := w.enc.Encode(Scalar{
		Run:      w.Run,
		Tag:      tag,
		Step:     step,
		Value:    value,
		WallTime: float64(time.Now().UnixNano()) / 1e9,
	})
	return errors.Wrap(err, "monitor: scalar")
}

// Series returns the recorded points of tag
func (w *Writer) Series(tag string) plotter.XYs {
	w.mut.Lock()
	defer w.mut.Unlock()
	return append(plotter.XYs(nil), w.series[tag]...)
}

// ImagePath is the file an image summary of tag at step is written to
func (w *Writer) ImagePath(tag string, step int) string {
	name := strings.NewReplacer("/", "_", ".", "_", " ", "_").Replace(tag)
	return filepath.Join(w.Dir, "images", fmt.Sprintf("%s_%08d.png", name, step))
}

// grid adapts a frames×bins matrix to a heat map with frames on the x axis
type grid struct {
	m mat.Matrix
}

func (g grid) Dims() (c, r int) { return g.m.Dims() }
func (g grid) Z(c, r int) float64 { return g.m.At(c, r) }
func (g grid) X(c int) float64 { return float64(c) }
func (g grid) Y(r int) float64 { return float64(r) }

// AddImage renders a frames×bins matrix (a spectrogram or an alignment) as a heat map
func (w *Writer) AddImage(tag string, m mat.Matrix, step int) error {
	if r, c := m.Dims(); r == 0 || c == 0 {
		return errors.Errorf("monitor: %s is empty", tag)
	}
	heat := plotter.NewHeatMap(grid{m}, palette.Heat(64, 1))
	if math.IsInf(heat.Min, 0) || math.IsInf(heat.Max, 0) {
		return errors.Errorf("monitor: %s has no finite values", tag)
	}
	if heat.Min == heat.Max {
		heat.Max = heat.Min + 1
	}
	p := plot.New()
	p.Title.Text = tag
	p.X.Label.Text = "frame"
	p.Add(heat)
	return w.save(p, tag, step)
}

// AddLines plots named series sharing one x axis, such as target and predicted gates
func (w *Writer) AddLines(tag string, step int, names []string, values ...[]float64) error {
	p := plot.New()
	p.Title.Text = tag
	colors := []color.Color{color.RGBA{G: 160, A: 255}, color.RGBA{R: 200, A: 255}, color.RGBA{B: 200, A: 255}}
	for i, v := range values {
		var xys = make(plotter.XYs, len(v))
		for j := range v {
			xys[j] = plotter.XY{X: float64(j), Y: v[j]}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrapf(err, "monitor: %s", tag)
		}
		line.LineStyle.Color = colors[i%len(colors)]
		p.Add(line)
		if i < len(names) {
			p.Legend.Add(names[i], line)
		}
	}
	return w.save(p, tag, step)
}

// AddCurve plots the recorded scalar series tag
func (w *Writer) AddCurve(tag string, step int) error {
	xys := w.Series(tag)
	if len(xys) == 0 {
		return nil
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrapf(err, "monitor: %s", tag)
	}
	p := plot.New()
	p.Title.Text = tag
	p.X.Label.Text = "step"
	p.Add(line)
	return w.save(p, tag+"_curve", step)
}

func (w *Writer) save(p *plot.Plot, tag string, step int) error {
	err := p.Save(6*vg.Inch, 4*vg.Inch, w.ImagePath(tag, step))
	return errors.Wrapf(err, "monitor: %s", tag)
}

// Close flushes and closes the scalar log
func (w *Writer) Close() error {
	w.mut.Lock()
	defer w.mut.Unlock()
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return errors.Wrap(err, "monitor: close")
	}
	return errors.Wrap(w.file.Close(), "monitor: close")
}
