package matching

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/spigell/bidwin/internal/tender"
)

// Ensemble weights in tenths: semantic 0.5, keyword 0.3, rule 0.2.
const (
	semanticWeight = 5
	keywordWeight  = 3
	ruleWeight     = 2

	ruleThreshold = 80
	ruleHigh      = 100
	ruleLow       = 50
)

var tokenPattern = regexp.MustCompile(`\w+`)

// Score computes the confidence breakdown of a candidate product for a requirement.
func Score(req tender.Requirement, product tender.Product, candidate tender.MatchCandidate) tender.ScoreBreakdown {
	semantic := clampSemantic(candidate.Semantic)
	keyword := KeywordScore(req, product)
	rule := RuleScore(semantic)

	return tender.ScoreBreakdown{
		Ensemble: EnsembleScore(semantic, keyword, rule),
		Semantic: semantic,
		Keyword:  keyword,
		Rule:     rule,
	}
}

// KeywordScore is the share of requirement tokens found in the product text, 0-100.
func KeywordScore(req tender.Requirement, product tender.Product) int {
	reqTokens := tokenSet(req.ItemName + " " + req.Specs)
	if len(reqTokens) == 0 {
		return 0
	}

	productTokens := tokenSet(product.Name + " " + product.Description + " " + specsText(product.Specs))

	common := 0
	for token := range reqTokens {
		if _, ok := productTokens[token]; ok {
			common++
		}
	}

	return common * 100 / len(reqTokens)
}

// RuleScore rewards confident semantic judgments.
func RuleScore(semantic float64) int {
	if semantic > ruleThreshold {
		return ruleHigh
	}
	return ruleLow
}

// EnsembleScore combines the three signals and truncates to an integer.
func EnsembleScore(semantic float64, keyword, rule int) int {
	total := semanticWeight*semantic + float64(keywordWeight*keyword+ruleWeight*rule)
	return int(math.Floor(total / 10))
}

// Resolve finds the product referenced by a candidate.
func Resolve(catalog []tender.Product, id int) (tender.Product, error) {
	for _, product := range catalog {
		if product.ID == id {
			return product, nil
		}
	}
	return tender.Product{}, &tender.UnresolvedProductError{ProductID: id}
}

func clampSemantic(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func tokenSet(text string) map[string]struct{} {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// specsText renders the spec mapping deterministically as "key: value" pairs.
func specsText(specs map[string]string) string {
	keys := make([]string, 0, len(specs))
	for key := range specs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+specs[key])
	}
	return strings.Join(parts, ", ")
}
