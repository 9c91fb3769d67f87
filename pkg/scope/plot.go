package scope

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/pedals/pkg/pedal"
)

// rect is the plotting area inside the widget margins.
type rect struct {
	X, Y, W, H float32
}

func plotArea(size fyne.Size) rect {
	const (
		marginLeft   = 50
		marginRight  = 15
		marginTop    = 15
		marginBottom = 25
	)
	return rect{
		X: marginLeft,
		Y: marginTop,
		W: size.Width - marginLeft - marginRight,
		H: size.Height - marginTop - marginBottom,
	}
}

func (p rect) permilleX(permille int) float32 {
	return p.X + float32(permille)/pedal.PermilleMax*p.W
}

func (p rect) percentY(pct float32) float32 {
	return p.Y + p.H - pct/100*p.H
}

// appendGrid adds hLines+1 horizontal lines labelled by label(i), top to
// bottom, and vLines+1 unlabelled vertical lines.
func appendGrid(objects []fyne.CanvasObject, p rect, hLines, vLines int, label func(i int) string) []fyne.CanvasObject {
	for i := range hLines + 1 {
		y := p.Y + float32(i)*p.H/float32(hLines)
		objects = append(objects, segment(gridColor, 1, p.X, y, p.X+p.W, y))

		text := canvas.NewText(label(i), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.X-5, y-6))
		objects = append(objects, text)
	}
	for i := range vLines + 1 {
		x := p.X + float32(i)*p.W/float32(vLines)
		objects = append(objects, segment(gridColor, 1, x, p.Y, x, p.Y+p.H))
	}
	return objects
}

func segment(c color.Color, width, x1, y1, x2, y2 float32) *canvas.Line {
	line := canvas.NewLine(c)
	line.Position1 = fyne.NewPos(x1, y1)
	line.Position2 = fyne.NewPos(x2, y2)
	line.StrokeWidth = width
	return line
}
