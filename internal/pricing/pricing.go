package pricing

import (
	"math"
	"regexp"
	"strconv"

	"github.com/spigell/bidwin/internal/tender"
)

const (
	LogisticsRate = 0.05
	MarginRate    = 0.20
	TaxRate       = 0.18

	Currency = "INR"

	defaultQuantity = 1.0
)

var quantityPattern = regexp.MustCompile(`[-+]?(\d+(\.\d+)?|\.\d+)`)

// ParseQuantity returns the first number found in a free-text quantity. Units are not
// validated. Missing, unparseable and negative values fall back to 1.
func ParseQuantity(text string) float64 {
	match := quantityPattern.FindString(text)
	if match == "" {
		return defaultQuantity
	}

	qty, err := strconv.ParseFloat(match, 64)
	if err != nil || qty < 0 || math.IsInf(qty, 0) {
		return defaultQuantity
	}

	return qty
}

// Price computes the cost of every matched line. Unmatched lines are skipped.
// The subtotal is the rounded sum of the already rounded line totals.
func Price(lines []tender.LineMatch) ([]tender.CommercialLine, float64) {
	out := make([]tender.CommercialLine, 0, len(lines))
	subtotal := 0.0

	for _, line := range lines {
		if !line.Matched() {
			continue
		}

		priced := priceLine(line)
		subtotal += priced.LineTotal
		out = append(out, priced)
	}

	return out, Round(subtotal)
}

func priceLine(line tender.LineMatch) tender.CommercialLine {
	qty := ParseQuantity(line.Requirement.Quantity)
	unitPrice := line.Match.UnitPrice

	base := unitPrice * qty
	logistics := LogisticsRate * base
	margin := MarginRate * base
	tax := TaxRate * (base + logistics + margin)

	return tender.CommercialLine{
		ItemName:  line.Requirement.ItemName,
		SKU:       line.Match.SKU,
		Quantity:  qty,
		UnitPrice: Round(unitPrice),
		LineTotal: Round(base + logistics + margin + tax),
		Breakdown: tender.Breakdown{
			Base:      Round(base),
			Logistics: Round(logistics),
			Margin:    Round(margin),
			Tax:       Round(tax),
		},
	}
}

// Quote prices the matched lines and the required services of one RFP.
// Both subtotals are rounded first and the grand total is their plain sum,
// so GrandTotal == ProductTotal+ServiceTotal holds for float64 comparison.
func Quote(lines []tender.LineMatch, tests []string, card RateCard) *tender.CommercialQuote {
	commercial, productTotal := Price(lines)
	services, serviceTotal := EstimateServices(tests, card)
	serviceTotal = Round(serviceTotal)

	return &tender.CommercialQuote{
		Lines:        commercial,
		Services:     services,
		ProductTotal: productTotal,
		ServiceTotal: serviceTotal,
		GrandTotal:   productTotal + serviceTotal,
		Currency:     Currency,
	}
}

// Round rounds a monetary value to 2 decimal places.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
