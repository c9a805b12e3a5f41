// Package render draws the spectrogram and waveform plots as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	ErrRender    = errors.New("rendering failed")
	errNoSamples = errors.New("no samples to plot")
)

// Options controls plot geometry and the mel analysis behind the spectrogram.
type Options struct {
	Width  vg.Length // default 10in
	Height vg.Length // default 4in

	Mels    int // default 64
	FFTSize int // default 1024
	Hop     int // default 512

	// MaxColumns caps spectrogram columns; adjacent frames are averaged beyond it.
	MaxColumns int // default 800
	// MaxPoints caps waveform vertices; the signal is reduced to per-bucket min/max beyond it.
	MaxPoints int // default 4000
}

func DefaultOptions() Options {
	return Options{
		Width:      10 * vg.Inch,
		Height:     4 * vg.Inch,
		Mels:       64,
		FFTSize:    1024,
		Hop:        512,
		MaxColumns: 800,
		MaxPoints:  4000,
	}
}

func (o *Options) applyDefaults() {
	def := DefaultOptions()

	if o.Width == 0 {
		o.Width = def.Width
	}

	if o.Height == 0 {
		o.Height = def.Height
	}

	if o.Mels == 0 {
		o.Mels = def.Mels
	}

	if o.FFTSize == 0 {
		o.FFTSize = def.FFTSize
	}

	if o.Hop == 0 {
		o.Hop = o.FFTSize / 2
	}

	if o.MaxColumns == 0 {
		o.MaxColumns = def.MaxColumns
	}

	if o.MaxPoints == 0 {
		o.MaxPoints = def.MaxPoints
	}
}

// melGrid adapts mel energies to plotter.GridXYZ, columns being time.
type melGrid struct {
	values  [][]float64
	seconds float64 // per column
}

func (g melGrid) Dims() (int, int) { return len(g.values), len(g.values[0]) }
func (g melGrid) Z(c, r int) float64 { return g.values[c][r] }
func (g melGrid) X(c int) float64 { return float64(c) * g.seconds }
func (g melGrid) Y(r int) float64 { return float64(r) }
func (g melGrid) Min() float64 { return g.extreme(floats.Min) }
func (g melGrid) Max() float64 { return g.extreme(floats.Max) }

func (g melGrid) extreme(pick func([]float64) float64) float64 {
	values := make([]float64, len(g.values))
	for c, column := range g.values {
		values[c] = pick(column)
	}

	return pick(values)
}

// Spectrogram renders the log-power mel spectrogram of samples with a colorbar.
func Spectrogram(samples []float64, sampleRate int, opts Options) (img []byte, err error) {
	opts.applyDefaults()

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrRender, errNoSamples)
	}

	defer recoverRender(&err)

	mel, err := melSpectrogram(samples, sampleRate, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	columns, group := decimateFrames(mel, opts.MaxColumns)
	grid := melGrid{values: columns, seconds: float64(opts.Hop*group) / float64(sampleRate)}

	lo, hi := grid.Min(), grid.Max()
	if hi <= lo {
		// Flat input (silence): give the colormap a non-empty range.
		hi = lo + 1
	}

	colors := moreland.ExtendedBlackBody()
	colors.SetMin(lo)
	colors.SetMax(hi)

	heat := plotter.NewHeatMap(grid, colors.Palette(256))
	heat.Min, heat.Max = lo, hi
	heat.Rasterized = true

	spec := plot.New()
	spec.Title.Text = "Mel Spectrogram"
	spec.X.Label.Text = "Time"
	spec.Y.Label.Text = "Mel Frequency"
	spec.Add(heat)

	bar := plot.New()
	bar.Title.Text = "dB"
	bar.HideX()
	bar.Add(&plotter.ColorBar{ColorMap: colors, Vertical: true})

	canvas := vgimg.New(opts.Width, opts.Height)
	dc := draw.New(canvas)

	barWidth := vg.Inch
	spec.Draw(draw.Crop(dc, 0, -barWidth, 0, 0))
	bar.Draw(draw.Crop(dc, opts.Width-barWidth, 0, 0, 0))

	return writePNG(canvas)
}

// Waveform renders a time/amplitude line plot of samples.
func Waveform(samples []float64, sampleRate int, opts Options) (img []byte, err error) {
	opts.applyDefaults()

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrRender, errNoSamples)
	}

	defer recoverRender(&err)

	line, err := plotter.NewLine(envelope(samples, sampleRate, opts.MaxPoints))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	p := plot.New()
	p.Title.Text = "Waveform"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Amplitude"
	p.Add(line)

	canvas := vgimg.New(opts.Width, opts.Height)
	p.Draw(draw.New(canvas))

	return writePNG(canvas)
}

// envelope reduces samples to at most limit points, keeping each bucket's min and max
// in time order so peaks survive.
func envelope(samples []float64, sampleRate, limit int) plotter.XYs {
	rate := float64(sampleRate)

	if len(samples) <= limit || limit < 2 {
		xys := make(plotter.XYs, len(samples))
		for i, v := range samples {
			xys[i] = plotter.XY{X: float64(i) / rate, Y: v}
		}

		return xys
	}

	buckets := limit / 2
	size := int(math.Ceil(float64(len(samples)) / float64(buckets)))
	xys := make(plotter.XYs, 0, 2*buckets)

	for start := 0; start < len(samples); start += size {
		end := min(start+size, len(samples))
		bucket := samples[start:end]

		lo, hi := floats.MinIdx(bucket), floats.MaxIdx(bucket)
		first, second := lo, hi

		if hi < lo {
			first, second = hi, lo
		}

		xys = append(xys,
			plotter.XY{X: float64(start+first) / rate, Y: bucket[first]},
			plotter.XY{X: float64(start+second) / rate, Y: bucket[second]},
		)
	}

	return xys
}

func writePNG(canvas *vgimg.Canvas) ([]byte, error) {
	var out bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	return out.Bytes(), nil
}

// recoverRender turns a plotting panic into ErrRender.
func recoverRender(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrRender, r)
	}
}
