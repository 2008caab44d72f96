package layout

import "math"

// Params controls the force simulation. Zero fields are filled from
// DefaultParams by New.
type Params struct {
	Width  float64
	Height float64

	// LinkDistance is the spring rest length between connected nodes.
	LinkDistance float64
	// Charge is the many-body strength; negative values repel.
	Charge float64
	// CenterStrength pulls unpinned nodes toward the middle of the canvas.
	CenterStrength float64
	// VelocityDecay is the fraction of velocity lost per tick.
	VelocityDecay float64

	AlphaMin    float64
	AlphaDecay  float64
	ReheatAlpha float64
}

// DefaultParams matches the flow view: a 800x400 canvas, 120px springs and a
// -400 charge.
func DefaultParams() Params {
	p := Params{
		Width:          800,
		Height:         400,
		LinkDistance:   120,
		Charge:         -400,
		CenterStrength: 0.05,
		VelocityDecay:  0.4,
		AlphaMin:       0.001,
		ReheatAlpha:    0.3,
	}
	p.AlphaDecay = 1 - math.Pow(p.AlphaMin, 1.0/300)
	return p
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Width <= 0 {
		p.Width = d.Width
	}
	if p.Height <= 0 {
		p.Height = d.Height
	}
	if p.LinkDistance <= 0 {
		p.LinkDistance = d.LinkDistance
	}
	if p.Charge == 0 {
		p.Charge = d.Charge
	}
	if p.CenterStrength <= 0 {
		p.CenterStrength = d.CenterStrength
	}
	if p.VelocityDecay <= 0 || p.VelocityDecay >= 1 {
		p.VelocityDecay = d.VelocityDecay
	}
	if p.AlphaMin <= 0 {
		p.AlphaMin = d.AlphaMin
	}
	if p.AlphaDecay <= 0 || p.AlphaDecay >= 1 {
		p.AlphaDecay = 1 - math.Pow(p.AlphaMin, 1.0/300)
	}
	if p.ReheatAlpha <= 0 {
		p.ReheatAlpha = d.ReheatAlpha
	}
	return p
}
