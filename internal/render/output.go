package render

// PowerBudget caps the estimated strip current. A zero BudgetMA disables the
// limiter.
type PowerBudget struct {
	BudgetMA float64 // global budget in mA
	ChanMA   float64 // mA per color channel at full scale; WS2812 ≈ 20
}

// encode writes buf as RGB triples into dst, scaled by brightness the way the
// strip controller does it (255 is identity, 0 is black).
func encode(dst []byte, buf []Color, brightness uint8) {
	scale := uint16(brightness) + 1
	for i, c := range buf {
		dst[i*3+0] = uint8((uint16(c.R()) * scale) >> 8)
		dst[i*3+1] = uint8((uint16(c.G()) * scale) >> 8)
		dst[i*3+2] = uint8((uint16(c.B()) * scale) >> 8)
	}
}

// limit scales the whole frame down so the estimated current stays under
// the budget.
func (p PowerBudget) limit(rgb []byte) {
	if p.BudgetMA <= 0 {
		return
	}
	total := p.EstimateMA(rgb)
	if total <= p.BudgetMA {
		return
	}

	scale := p.BudgetMA / total
	for i, v := range rgb {
		rgb[i] = uint8(float64(v) * scale)
	}
}

// EstimateMA returns the estimated current draw of an encoded frame.
func (p PowerBudget) EstimateMA(rgb []byte) float64 {
	chanMA := p.ChanMA
	if chanMA <= 0 {
		chanMA = 20
	}
	var sum float64
	for _, v := range rgb {
		sum += float64(v)
	}
	return sum / 255 * chanMA
}
