package sim

// Ledger accrues cost and sustainability totals. It is a pure observer:
// every station completion, scrap, arrival, and material pull posts an
// entry, and nothing here ever influences scheduling (no backpressure from
// cost state). Net cost = debits minus credits.
type Ledger struct {
	rates CostRates

	MaterialNewUnits   int64
	MaterialRemanUnits int64
	MaterialNewCost    float64
	MaterialRemanCost  float64

	LaborMinutes float64
	LaborCost    float64

	EnergyKWh  float64
	EnergyCost float64

	AirM3   float64
	AirCost float64

	ScrapUnits int64
	ScrapCost  float64

	ReturnUnits         int64
	ReturnPremiumCredit float64
}

// NewLedger creates a Ledger applying the given cost rates.
func NewLedger(rates CostRates) *Ledger {
	return &Ledger{rates: rates}
}

// PostMaterial debits the material cost of one unit entering the line and
// returns the amount for per-part accounting.
func (l *Ledger) PostMaterial(kind PartKind) float64 {
	if kind == KindReman {
		l.MaterialRemanUnits++
		l.MaterialRemanCost += l.rates.MaterialReman
		return l.rates.MaterialReman
	}
	l.MaterialNewUnits++
	l.MaterialNewCost += l.rates.MaterialNew
	return l.rates.MaterialNew
}

// PostProcessing debits the energy, compressed air, and labor of one
// completed unit and returns the total for per-part accounting.
func (l *Ledger) PostProcessing(kwh, airM3, laborMin float64) float64 {
	l.EnergyKWh += kwh
	l.AirM3 += airM3
	l.LaborMinutes += laborMin

	energy := kwh * l.rates.EnergyPerKWh
	air := airM3 * l.rates.AirPerM3
	labor := laborMin * l.rates.LaborPerMin
	l.EnergyCost += energy
	l.AirCost += air
	l.LaborCost += labor
	return energy + air + labor
}

// PostScrap debits the disposal cost of one scrapped unit.
func (l *Ledger) PostScrap() {
	l.ScrapUnits++
	l.ScrapCost += l.rates.ScrapDisposal
}

// PostReturnPremium credits the premium for one accepted return.
func (l *Ledger) PostReturnPremium() {
	l.ReturnUnits++
	l.ReturnPremiumCredit += l.rates.ReturnPremium
}

// Debits returns the sum of all cost debits.
func (l *Ledger) Debits() float64 {
	return l.MaterialNewCost + l.MaterialRemanCost + l.LaborCost + l.EnergyCost + l.AirCost + l.ScrapCost
}

// Credits returns the sum of all credits.
func (l *Ledger) Credits() float64 {
	return l.ReturnPremiumCredit
}

// NetCost returns debits minus credits.
func (l *Ledger) NetCost() float64 {
	return l.Debits() - l.Credits()
}

// CO2Kg converts the accumulated energy and air draws to kg CO2 using the
// given emission factors. Compressed air is converted to electrical energy
// first.
func (l *Ledger) CO2Kg(f EmissionFactors) float64 {
	return l.EnergyKWh*f.CO2PerKWh + l.AirM3*f.KWhPerM3Air*f.CO2PerKWh
}
