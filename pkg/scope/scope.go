// Package scope provides Fyne widgets for tuning pedals: a trace of recent
// raw and output values and a plot of the transfer curve with the live
// operating point.
package scope

import (
	"image/color"
	"strconv"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/pedals/pkg/pedal"
	"github.com/itohio/pedals/pkg/sample"
)

var (
	backgroundColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	gridColor       = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor      = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	rawColor        = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	outputColor     = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	ceilingColor    = color.RGBA{R: 200, G: 60, B: 60, A: 255}
	markerColor     = color.RGBA{R: 120, G: 255, B: 120, A: 255}
)

// TraceWidget plots the recent raw reading and output of one channel over time.
type TraceWidget struct {
	widget.BaseWidget

	mu     sync.RWMutex
	window time.Duration

	// Display buffer (reused for downsampling)
	display          []sample.Point
	maxDisplayPoints int
}

// NewTrace creates a trace showing the last window of data.
func NewTrace(window time.Duration) *TraceWidget {
	t := &TraceWidget{
		window:           window,
		display:          make([]sample.Point, 0, 1000),
		maxDisplayPoints: 1000,
	}
	t.ExtendBaseWidget(t)
	return t
}

// UpdateData replaces the plotted points. Call it on the Fyne main thread.
func (t *TraceWidget) UpdateData(points []sample.Point) {
	t.mu.Lock()
	t.display = sample.Downsample(t.display, points, t.maxDisplayPoints)
	t.mu.Unlock()

	t.Refresh()
}

func (t *TraceWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(backgroundColor)
	return &traceRenderer{
		trace:   t,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}

type traceRenderer struct {
	trace    *TraceWidget
	bg       *canvas.Rectangle
	objects  []fyne.CanvasObject
	lastSize fyne.Size
}

func (r *traceRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 200)
}

func (r *traceRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.trace.BaseWidget.Refresh()
	}
}

func (r *traceRenderer) Refresh() {
	r.trace.mu.RLock()
	points := r.trace.display
	window := r.trace.window
	r.trace.mu.RUnlock()

	size := r.trace.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.bg}
	plot := plotArea(size)
	r.objects = appendGrid(r.objects, plot, 4, 10, func(i int) string {
		return strconv.Itoa(pedal.FullScale - i*pedal.FullScale/4)
	})

	if len(points) < 2 {
		return
	}

	xMax := points[len(points)-1].Timestamp
	xMin := xMax.Add(-window)
	toX := func(ts time.Time) float32 {
		return plot.X + float32(ts.Sub(xMin).Seconds()/window.Seconds())*plot.W
	}
	toY := func(v int) float32 {
		return plot.Y + plot.H - float32(v)/float32(pedal.FullScale)*plot.H
	}

	for i := range len(points) - 1 {
		a, b := points[i], points[i+1]
		if a.Timestamp.Before(xMin) {
			continue
		}
		r.objects = append(r.objects,
			segment(rawColor, 1.5, toX(a.Timestamp), toY(a.Raw), toX(b.Timestamp), toY(b.Raw)),
			segment(outputColor, 2.5, toX(a.Timestamp), toY(a.Output), toX(b.Timestamp), toY(b.Output)))
	}
}

func (r *traceRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *traceRenderer) Destroy() {}
