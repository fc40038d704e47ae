package demo

import (
	"math"
	"time"
)

const seedStep = 10 * time.Minute

// Seed fills s with a day of synthetic readings ending at now: object 101 on
// ports 1-3 and object 102 on ports 1-2. The values are deterministic.
func Seed(s *Store, now time.Time) {
	now = now.Truncate(seedStep)
	start := now.Add(-24 * time.Hour)

	layout := []struct {
		object float64
		ports  []float64
	}{
		{101, []float64{1, 2, 3}},
		{102, []float64{1, 2}},
	}

	var records []Record
	for _, device := range layout {
		object := device.object
		for _, port := range device.ports {
			phase := object/50 + port
			step := 0
			for ts := start; !ts.After(now); ts = ts.Add(seedStep) {
				x := float64(step)/12 + phase
				voltage := 12 + 0.6*math.Sin(x)
				current := 2 + 0.4*math.Cos(x/2)
				records = append(records, Record{
					Timestamp:     ts,
					ObjectID:      object,
					PortNum:       port,
					CreatedAt:     now,
					Voltage:       round(voltage),
					Current:       round(current),
					SupplyCurrent: round(current * 1.05),
					SupplyVolt:    round(voltage + 0.8),
					VoltageDrop:   round(0.8 + 0.1*math.Sin(x*3)),
					VOC:           round(voltage * 1.15),
					State:         float64(step % 4),
					StepNumber:    float64(step),
					FWVersion:     "1.4.2",
					VendorID:      "demo",
				})
				step++
			}
		}
	}
	s.Add(records...)
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
