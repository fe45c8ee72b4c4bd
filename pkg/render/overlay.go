package render

import (
	"fmt"
	"image"
	"math"
	"math/big"

	"github.com/teslashibe/go-objectcam/pkg/detection"
)

// LabelText formats a detection as "<class> <percent>%" with two decimals.
func LabelText(d detection.Detection) string {
	return d.Class + " " + fixed2(d.Score*100) + "%"
}

// fixed2 formats x with two decimals, rounding exact halves away from zero
// (12.125 -> "12.13"). fmt's %.2f would round them to even.
func fixed2(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Sprintf("%.2f", x)
	}

	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}

	// exact value of x times 100, plus one half, floored
	r := new(big.Rat).SetFloat64(x)
	r.Mul(r, big.NewRat(100, 1))
	r.Add(r, big.NewRat(1, 2))
	n := new(big.Int).Quo(r.Num(), r.Denom())

	whole, frac := new(big.Int).QuoRem(n, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s%s.%02d", sign, whole.String(), frac.Int64())
}

// LabelOrigin returns where the label baseline starts. Labels sit 5px above
// the box, except near the top edge where they are pinned at y=10.
func LabelOrigin(d detection.Detection) (x, y float64) {
	x = d.BBox[0]
	if d.BBox[1] > 10 {
		y = d.BBox[1] - 5
	} else {
		y = 10
	}
	return x, y
}

// DrawFrame clears the canvas, draws frame at full canvas size, then strokes
// each detection box and fills its label, in result order.
func DrawFrame(c Canvas, frame image.Image, result detection.Result, style Style) {
	w, h := float64(c.Width()), float64(c.Height())
	c.ClearRect(0, 0, w, h)
	c.DrawImage(frame, 0, 0, w, h)

	for _, d := range result {
		c.StrokeRect(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3], style)
		x, y := LabelOrigin(d)
		c.FillText(LabelText(d), x, y, style)
	}
}
