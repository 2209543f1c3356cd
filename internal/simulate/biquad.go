package simulate

import (
	"math"
	"math/cmplx"
)

// coefficients of one second-order section, a0 normalized to 1.
type coefficients struct {
	b0, b1, b2 float64
	a1, a2     float64
}

var unity = coefficients{b0: 1}

// design returns RBJ cookbook coefficients for band at sampleRate. Bands the
// sample rate cannot represent come back as unity.
func design(band Band, sampleRate float64) coefficients {
	if sampleRate <= 0 || !(band.Hz > 0) || band.Hz >= sampleRate/2 {
		return unity
	}
	q := band.Q
	if !(q > 0) {
		q = ShelfQ
	}

	w0 := 2 * math.Pi * band.Hz / sampleRate
	cw, sw := math.Cos(w0), math.Sin(w0)
	alpha := sw / (2 * q)
	a := math.Pow(10, band.GainDb/40)

	var b0, b1, b2, a0, a1, a2 float64
	switch band.Kind {
	case LowShelf:
		beta := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) - (a-1)*cw + beta)
		b1 = 2 * a * ((a - 1) - (a+1)*cw)
		b2 = a * ((a + 1) - (a-1)*cw - beta)
		a0 = (a + 1) + (a-1)*cw + beta
		a1 = -2 * ((a - 1) + (a+1)*cw)
		a2 = (a + 1) + (a-1)*cw - beta
	case HighShelf:
		beta := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) + (a-1)*cw + beta)
		b1 = -2 * a * ((a - 1) + (a+1)*cw)
		b2 = a * ((a + 1) + (a-1)*cw - beta)
		a0 = (a + 1) - (a-1)*cw + beta
		a1 = 2 * ((a - 1) - (a+1)*cw)
		a2 = (a + 1) - (a-1)*cw - beta
	default:
		b0 = 1 + alpha*a
		b1 = -2 * cw
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cw
		a2 = 1 - alpha/a
	}

	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return unity
	}
	return coefficients{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

// response is H(e^jw) at hz.
func (c coefficients) response(hz, sampleRate float64) complex128 {
	w := 2 * math.Pi * hz / sampleRate
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(c.b0, 0) + complex(c.b1, 0)*z1 + complex(c.b2, 0)*z2
	den := 1 + complex(c.a1, 0)*z1 + complex(c.a2, 0)*z2
	return num / den
}

// section is a biquad in Direct Form II transposed.
type section struct {
	coefficients
	d0, d1 float64
}

func (s *section) process(x float64) float64 {
	y := s.b0*x + s.d0
	s.d0 = s.b1*x - s.a1*y + s.d1
	s.d1 = s.b2*x - s.a2*y
	return y
}
