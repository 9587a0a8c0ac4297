package synthesis

import (
	"fmt"
	"math"
)

// ConservationToleranceW bounds the floating point residual of a balanced tick.
const ConservationToleranceW = 1e-6

// Flows is the balanced power picture of one tick, in watts.
type Flows struct {
	SolarW      float64
	BatteryInW  float64
	BatteryOutW float64
	GridImportW float64
	GridReturnW float64
	HouseW      float64
	DeviceW     []float64
}

// Balance closes the tick by taking the grid exchange as the residual:
// solar + battery_out + grid_import = battery_in + grid_return + house.
// Inputs are floored at zero first, so noise never breaks the equation.
func Balance(solarW, houseW, chargeW, dischargeW float64) Flows {
	f := Flows{
		SolarW:      math.Max(0, solarW),
		HouseW:      math.Max(0, houseW),
		BatteryInW:  math.Max(0, chargeW),
		BatteryOutW: math.Max(0, dischargeW),
	}
	net := f.HouseW + f.BatteryInW - f.SolarW - f.BatteryOutW
	if net >= 0 {
		f.GridImportW = net
	} else {
		f.GridReturnW = -net
	}
	return f
}

// Residual returns supply minus demand; zero for a balanced tick.
func (f Flows) Residual() float64 {
	return f.SolarW + f.BatteryOutW + f.GridImportW - f.BatteryInW - f.GridReturnW - f.HouseW
}

// Check verifies conservation and non-negativity.
func (f Flows) Check() error {
	for _, v := range []float64{f.SolarW, f.BatteryInW, f.BatteryOutW, f.GridImportW, f.GridReturnW, f.HouseW} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: flow %v", ErrNegativeValue, v)
		}
	}
	for _, v := range f.DeviceW {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: device flow %v", ErrNegativeValue, v)
		}
	}
	if r := f.Residual(); math.Abs(r) > ConservationToleranceW {
		return fmt.Errorf("%w: residual %.9f W", ErrConservationViolated, r)
	}
	return nil
}
