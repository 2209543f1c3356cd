package device

import (
	"errors"
	"math"
	"testing"
)

func TestFlatProfileIsZeroEverywhere(t *testing.T) {
	p := MustLookup(FlatID)
	for hz := 20.0; hz <= 20000; hz *= 1.07 {
		if got := p.AttenuationAt(hz); got != 0 {
			t.Fatalf("AttenuationAt(%g) = %g, want 0", hz, got)
		}
	}
	if got := p.AttenuationAt(20000); got != 0 {
		t.Fatalf("AttenuationAt(20000) = %g, want 0", got)
	}
}

func TestAttenuationAtExactAnchors(t *testing.T) {
	for _, p := range All() {
		for _, a := range p.Anchors {
			if got := p.AttenuationAt(a.Hz); got != a.Db {
				t.Fatalf("%s: AttenuationAt(%g) = %g, want %g", p.ID, a.Hz, got, a.Db)
			}
		}
	}
}

func TestAttenuationAtClampsOutsideRange(t *testing.T) {
	for _, p := range All() {
		first, last := p.Anchors[0], p.Anchors[len(p.Anchors)-1]
		if got := p.AttenuationAt(10); got != first.Db {
			t.Fatalf("%s: AttenuationAt(10) = %g, want %g", p.ID, got, first.Db)
		}
		if got := p.AttenuationAt(30000); got != last.Db {
			t.Fatalf("%s: AttenuationAt(30000) = %g, want %g", p.ID, got, last.Db)
		}
		if got := p.AttenuationAt(0); got != first.Db {
			t.Fatalf("%s: AttenuationAt(0) = %g, want %g", p.ID, got, first.Db)
		}
		if got := p.AttenuationAt(math.NaN()); got != first.Db {
			t.Fatalf("%s: AttenuationAt(NaN) = %g, want %g", p.ID, got, first.Db)
		}
	}
}

func TestAttenuationAtInterpolatesInLogFrequency(t *testing.T) {
	p := Profile{ID: "test", Anchors: []Anchor{{100, 0}, {10000, -20}}}
	// 1 kHz is the log-midpoint of 100 Hz..10 kHz.
	if got := p.AttenuationAt(1000); math.Abs(got+10) > 1e-9 {
		t.Fatalf("AttenuationAt(1000) = %g, want -10", got)
	}
}

func TestAverageAttenuationGolden(t *testing.T) {
	golden := map[string]float64{
		FlatID:                0,
		"iphone14pm_approx":   -13.541135472216713,
		"airpods_pro_approx":  -1.4374251305013779,
		"samsung_tv_approx":   -11.956049367506804,
		"car_speakers_approx": -4.548268798773217,
		"laptop_approx":       -12.796848267584188,
	}
	for id, want := range golden {
		p := MustLookup(id)
		got := p.AverageAttenuation()
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("%s: AverageAttenuation() = %.12f, want %.12f", id, got, want)
		}
		if again := p.AverageAttenuation(); again != got {
			t.Fatalf("%s: AverageAttenuation not deterministic: %g then %g", id, got, again)
		}
	}
}

func TestAverageGainIsLinear(t *testing.T) {
	p := MustLookup("iphone14pm_approx")
	want := math.Pow(10, p.AverageAttenuation()/20)
	if got := p.AverageGain(); math.Abs(got-want) > 1e-12 {
		t.Fatalf("AverageGain() = %g, want %g", got, want)
	}
	if got := MustLookup(FlatID).AverageGain(); got != 1 {
		t.Fatalf("flat AverageGain() = %g, want 1", got)
	}
}

func TestIPhoneLossAt16k(t *testing.T) {
	p := MustLookup("iphone14pm_approx")
	if got := p.AttenuationAt(16000); got != -14 {
		t.Fatalf("AttenuationAt(16000) = %g, want -14", got)
	}
}

func TestLookupUnknownDevice(t *testing.T) {
	_, err := Lookup("gramophone")
	if !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("Lookup() error = %v, want ErrUnknownDevice", err)
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	p := MustLookup("laptop_approx")
	p.Anchors[0].Db = 99
	if again := MustLookup("laptop_approx"); again.Anchors[0].Db == 99 {
		t.Fatal("mutating a looked-up profile changed the registry")
	}
}

func TestValidateRejectsMalformedProfiles(t *testing.T) {
	cases := map[string]Profile{
		"empty":    {ID: "x"},
		"unsorted": {ID: "x", Anchors: []Anchor{{100, 0}, {50, 0}}},
		"dup":      {ID: "x", Anchors: []Anchor{{100, 0}, {100, 1}}},
		"mono":     {ID: "x", Anchors: []Anchor{{100, 0}}, MonoFactor: 1.5},
		"zero hz":  {ID: "x", Anchors: []Anchor{{0, 0}}},
		"no id":    {Anchors: []Anchor{{100, 0}}},
	}
	for name, p := range cases {
		if err := Validate(p); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestNextWraps(t *testing.T) {
	ids := IDs()
	last := ids[len(ids)-1]
	if got := Next(last, 1); got != ids[0] {
		t.Fatalf("Next(last, 1) = %q, want %q", got, ids[0])
	}
	if got := Next(ids[0], -1); got != last {
		t.Fatalf("Next(first, -1) = %q, want %q", got, last)
	}
}
