package synthesis

import (
	"math"
	"math/rand/v2"
	"time"
)

const ticksPerHour = float64(time.Hour / TickInterval)

// synthesizeWater returns litres drawn per tick by the house and the garden.
func synthesizeWater(p MasterProfile, r *rand.Rand) (house, garden []float64) {
	house = make([]float64, len(p.Ticks))
	garden = make([]float64, len(p.Ticks))
	summer := p.Date.Month() >= time.May && p.Date.Month() <= time.September
	for i, t := range p.Ticks {
		h := t.Hour()
		rate := 2.5
		switch {
		case h >= 7 && h <= 9:
			rate = 18
		case h >= 18 && h <= 21:
			rate = 13
		}
		house[i] = math.Max(0, rate*(1+jitter(r, 0.1))) / ticksPerHour
		if summer && (h == 6 || h == 7 || h == 19 || h == 20) {
			garden[i] = 25 / ticksPerHour
		}
	}
	return house, garden
}
