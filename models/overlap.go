package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// VigenciaIntervalo is a half-open [Desde, Hasta) interval carrying a
// weight (an ownership percentage). Hasta == nil means open-ended.
type VigenciaIntervalo struct {
	Desde time.Time
	Hasta *time.Time
	Peso  decimal.Decimal
}

// MomentoClave is one point where the cumulative weight changes, with
// the weight active from that instant on.
type MomentoClave struct {
	Fecha time.Time
	Peso  decimal.Decimal
}

// ComputeKeyMoments runs a sweep line over the intervals: +Peso at each
// Desde, -Peso at each (exclusive) Hasta, sorted by date, emitting one
// snapshot per distinct date. Open-ended intervals never emit an end
// event. Pure function; zero-length intervals are the caller's problem.
func ComputeKeyMoments(intervalos []VigenciaIntervalo) []MomentoClave {
	type evento struct {
		fecha time.Time
		delta decimal.Decimal
	}

	eventos := make([]evento, 0, len(intervalos)*2)
	for _, iv := range intervalos {
		eventos = append(eventos, evento{fecha: iv.Desde, delta: iv.Peso})
		if iv.Hasta != nil {
			eventos = append(eventos, evento{fecha: *iv.Hasta, delta: iv.Peso.Neg()})
		}
	}
	sort.Slice(eventos, func(i, j int) bool {
		return eventos[i].fecha.Before(eventos[j].fecha)
	})

	momentos := make([]MomentoClave, 0, len(eventos))
	acumulado := decimal.Zero
	for i, ev := range eventos {
		acumulado = acumulado.Add(ev.delta)
		// Collapse events sharing the same instant into one snapshot.
		if i+1 < len(eventos) && eventos[i+1].fecha.Equal(ev.fecha) {
			continue
		}
		momentos = append(momentos, MomentoClave{Fecha: ev.fecha, Peso: acumulado})
	}
	return momentos
}

// MaxWeightInRange returns the maximum cumulative weight active at any
// instant within [desde, hasta). hasta == nil extends the window into
// the open future. Used to detect over-100% allocation windows.
func MaxWeightInRange(intervalos []VigenciaIntervalo, desde time.Time, hasta *time.Time) decimal.Decimal {
	momentos := ComputeKeyMoments(intervalos)

	max := decimal.Zero
	for i, m := range momentos {
		// The weight at momentos[i] holds until momentos[i+1].Fecha, so a
		// moment before the window still applies inside it.
		if hasta != nil && !m.Fecha.Before(*hasta) {
			break
		}
		if m.Fecha.Before(desde) {
			if i+1 < len(momentos) && !momentos[i+1].Fecha.After(desde) {
				continue
			}
		}
		if m.Peso.GreaterThan(max) {
			max = m.Peso
		}
	}
	return max
}
