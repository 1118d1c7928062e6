package viewport

import "time"

type tween struct {
	from, to Transform
	start    time.Time
	duration time.Duration
}

// at returns the interpolated transform at now and whether the tween ended
func (tw *tween) at(now time.Time) (Transform, bool) {
	elapsed := now.Sub(tw.start)
	if elapsed >= tw.duration {
		return tw.to, true
	}
	if elapsed < 0 {
		elapsed = 0
	}
	p := easeInOutCubic(float64(elapsed) / float64(tw.duration))
	return Transform{
		X:    lerp(tw.from.X, tw.to.X, p),
		Y:    lerp(tw.from.Y, tw.to.Y, p),
		Zoom: lerp(tw.from.Zoom, tw.to.Zoom, p),
	}, false
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := -2*t + 2
	return 1 - f*f*f/2
}
