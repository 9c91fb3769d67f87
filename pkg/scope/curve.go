package scope

import (
	"strconv"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/pedals/pkg/pedal"
)

// CurveWidget plots a channel's transfer curve (input travel against output
// percentage), its ceiling and where the pedal currently sits on it.
type CurveWidget struct {
	widget.BaseWidget

	mu    sync.RWMutex
	cfg   pedal.Config
	stage pedal.Stage
	live  bool
}

// NewCurve creates a curve widget showing cfg.
func NewCurve(cfg pedal.Config) *CurveWidget {
	c := &CurveWidget{cfg: cfg}
	c.ExtendBaseWidget(c)
	return c
}

// SetConfig changes the plotted configuration. Call it on the Fyne main thread.
func (c *CurveWidget) SetConfig(cfg pedal.Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	c.Refresh()
}

// SetRaw moves the operating point to where raw lands under the current
// configuration. Call it on the Fyne main thread.
func (c *CurveWidget) SetRaw(raw int) {
	c.mu.Lock()
	c.stage = pedal.Evaluate(raw, c.cfg)
	c.live = true
	c.mu.Unlock()
	c.Refresh()
}

func (c *CurveWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(backgroundColor)
	return &curveRenderer{
		curve:   c,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}

type curveRenderer struct {
	curve    *CurveWidget
	bg       *canvas.Rectangle
	objects  []fyne.CanvasObject
	lastSize fyne.Size
}

func (r *curveRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *curveRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.curve.BaseWidget.Refresh()
	}
}

func (r *curveRenderer) Refresh() {
	r.curve.mu.RLock()
	cfg := r.curve.cfg
	stage := r.curve.stage
	live := r.curve.live
	r.curve.mu.RUnlock()

	size := r.curve.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.bg}
	plot := plotArea(size)
	r.objects = appendGrid(r.objects, plot, 10, 10, func(i int) string {
		return strconv.Itoa(100-i*10) + "%"
	})

	ceilY := plot.percentY(float32(cfg.OutputCeiling))
	r.objects = append(r.objects, segment(ceilingColor, 1, plot.X, ceilY, plot.X+plot.W, ceilY))

	points := curvePositions(cfg.Curve, plot)
	for i := range len(points) - 1 {
		r.objects = append(r.objects, segment(outputColor, 2.5, points[i].X, points[i].Y, points[i+1].X, points[i+1].Y))
	}
	for _, p := range points {
		dot := canvas.NewCircle(outputColor)
		dot.Resize(fyne.NewSize(6, 6))
		dot.Move(fyne.NewPos(p.X-3, p.Y-3))
		r.objects = append(r.objects, dot)
	}

	if live {
		pos := operatingPoint(stage, plot)
		marker := canvas.NewCircle(markerColor)
		marker.Resize(fyne.NewSize(10, 10))
		marker.Move(fyne.NewPos(pos.X-5, pos.Y-5))
		label := canvas.NewText(strconv.Itoa(stage.Permille/10)+"% > "+strconv.FormatFloat(float64(stage.Limited), 'f', 0, 32)+"%", markerColor)
		label.TextSize = 11
		label.Move(fyne.NewPos(plot.X+10, plot.Y+5))
		r.objects = append(r.objects, marker, label)
	}
}

func (r *curveRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *curveRenderer) Destroy() {}

// curvePositions places the curve breakpoints in the plot.
func curvePositions(curve pedal.Curve, plot rect) []fyne.Position {
	points := make([]fyne.Position, len(curve))
	for i, pct := range curve {
		points[i] = fyne.NewPos(plot.permilleX(i*100), plot.percentY(float32(pct)))
	}
	return points
}

// operatingPoint places the current input and limited output in the plot.
func operatingPoint(stage pedal.Stage, plot rect) fyne.Position {
	return fyne.NewPos(plot.permilleX(stage.Permille), plot.percentY(stage.Limited))
}
