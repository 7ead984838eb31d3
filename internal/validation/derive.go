package validation

import (
	"strconv"

	"github.com/kmallmaperez/geocore/internal/domain"
)

// Round2 is the single two-decimal rounding rule for every derived value.
func Round2(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return x
	}
	return r
}

// Advance is to - from rounded to two decimals.
func Advance(from, to float64) float64 { return Round2(to - from) }

// numberOr returns the numeric value of v, or def when it does not parse.
func numberOr(v domain.Value, def float64) float64 {
	if f, ok := v.Float(); ok {
		return f
	}
	return def
}

// shiftLength is the contribution of one drilling shift to the day total:
// its advance when the pair was measured and ordered, zero otherwise.
func shiftLength(c pairCheck) float64 {
	if !c.present || !c.ok {
		return 0
	}
	return Advance(c.iv.from, c.iv.to)
}

// deriveDrilling writes Turno_Dia, Turno_Noche, Total_Dia and Acumulado.
func deriveDrilling(out domain.Fields, day, night pairCheck, history []domain.Fields) {
	d := shiftLength(day)
	n := shiftLength(night)
	total := Round2(d + n)

	prior := 0.0
	for _, h := range history {
		prior += numberOr(h.Get("Total_Dia"), 0)
	}

	out["Turno_Dia"] = domain.Number(d)
	out["Turno_Noche"] = domain.Number(n)
	out["Total_Dia"] = domain.Number(total)
	out["Acumulado"] = domain.Number(Round2(prior + total))
}

const msgStormOrder = "must be later than Desde"

// deriveStorm computes Minutos, Horas and TOTAL from Desde/Hasta. A Hasta
// earlier than Desde is a finding and nothing is derived.
func deriveStorm(out domain.Fields) []domain.Finding {
	from, ok1 := clockMinutes(out.Get("Desde"))
	to, ok2 := clockMinutes(out.Get("Hasta"))
	if !ok1 || !ok2 {
		return nil
	}
	mins := to - from
	if mins < 0 {
		return []domain.Finding{{Field: "Hasta", Message: msgStormOrder}}
	}
	out["Minutos"] = domain.Number(float64(mins))
	out["Horas"] = domain.Number(Round2(float64(mins) / 60))
	out["TOTAL"] = domain.Number(float64(mins))
	return nil
}
