// Package units converts raw controller quantities into physical ones.
package units

import (
	"math"

	"github.com/itohio/goushi/pkg/config"
)

// Converter maps HX711 counts to weight and stepper delay periods to rpm.
// It is built once per process from the configured physical constants.
type Converter struct {
	lsb         float64 // volts per ADC count
	scale       float64 // volts per weight unit at the amplifier output
	offset      float64
	stepsPerRev float64
}

// New creates a Converter from load cell and motor constants.
func New(cell config.LoadCellConfig, motor config.MotorConfig) *Converter {
	return &Converter{
		lsb:         cell.SupplyVoltage / math.Ldexp(1, cell.ADCBits),
		scale:       cell.RatedOutput * cell.SupplyVoltage / cell.RatedLoad * cell.Gain,
		offset:      cell.Offset,
		stepsPerRev: float64(motor.StepsPerRev),
	}
}

// LSB returns the voltage of one ADC count.
func (c *Converter) LSB() float64 { return c.lsb }

// Scale returns the amplifier output voltage per weight unit.
func (c *Converter) Scale() float64 { return c.scale }

// CountToWeight converts a raw ADC count to weight.
// The load cell is mounted inverted, hence the sign flip.
func (c *Converter) CountToWeight(count int64) float64 {
	return -float64(count)*c.lsb/c.scale - c.offset
}

// PeriodToRPM converts a step delay period (microseconds per step) to rpm.
// Zero period means the motor is stopped.
func (c *Converter) PeriodToRPM(period int64) float64 {
	if period == 0 {
		return 0
	}
	return 60 / (float64(period) / 1e6 * c.stepsPerRev)
}

// RPMToPeriod converts rpm to the nearest step delay period.
// Zero rpm maps to the zero-period stop sentinel.
func (c *Converter) RPMToPeriod(rpm float64) int64 {
	if rpm == 0 {
		return 0
	}
	return int64(math.Round(60 / (rpm * c.stepsPerRev) * 1e6))
}
