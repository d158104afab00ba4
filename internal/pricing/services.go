package pricing

import (
	"regexp"
	"strings"

	"github.com/spigell/bidwin/internal/tender"
)

const (
	DefaultServiceLabel = "Miscellaneous Testing"
	DefaultServiceRate  = 5000.0
)

// Rate is one rate card entry. Key is matched against required test names.
type Rate struct {
	Key  string
	Cost float64
}

// RateCard is evaluated in order, the first matching entry wins.
type RateCard []Rate

// DefaultRateCard lists the more specific keys before the generic ones so that
// "Factory Acceptance Test" is not priced as a plain "Acceptance Test". The short
// "FAT" key goes last because it is the most likely to match by accident.
var DefaultRateCard = RateCard{
	{Key: "Factory Acceptance Test", Cost: 10000},
	{Key: "Third Party Inspection", Cost: 25000},
	{Key: "High Voltage Test", Cost: 3000},
	{Key: "Salt Spray Test", Cost: 4500},
	{Key: "Type Test", Cost: 15000},
	{Key: "Routine Test", Cost: 2000},
	{Key: "Acceptance Test", Cost: 5000},
	{Key: "FAT", Cost: 10000},
}

var wordPattern = regexp.MustCompile(`\w+`)

// Lookup returns the first entry matching the test name.
func (c RateCard) Lookup(testName string) (Rate, bool) {
	name := strings.ToLower(testName)
	words := wordSet(name)

	for _, rate := range c {
		key := strings.ToLower(strings.TrimSpace(rate.Key))
		if key == "" {
			continue
		}
		if strings.Contains(name, key) || containsAllWords(words, key) {
			return rate, true
		}
	}

	return Rate{}, false
}

// EstimateServices assigns a rate card cost to every required test.
func EstimateServices(testNames []string, card RateCard) ([]tender.ServiceLine, float64) {
	lines := make([]tender.ServiceLine, 0, len(testNames))
	total := 0.0

	for _, name := range testNames {
		line := tender.ServiceLine{
			TestName:       name,
			MatchedService: DefaultServiceLabel,
			Cost:           DefaultServiceRate,
		}

		if rate, ok := card.Lookup(name); ok {
			line.MatchedService = rate.Key
			line.Cost = rate.Cost
		}

		total += line.Cost
		lines = append(lines, line)
	}

	return lines, total
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range wordPattern.FindAllString(text, -1) {
		set[word] = struct{}{}
	}
	return set
}

func containsAllWords(words map[string]struct{}, key string) bool {
	keyWords := wordPattern.FindAllString(key, -1)
	if len(keyWords) == 0 {
		return false
	}
	for _, word := range keyWords {
		if _, ok := words[word]; !ok {
			return false
		}
	}
	return true
}
