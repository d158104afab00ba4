package tender

import (
	"time"
)

// Status is the lifecycle state of an RFP record.
type Status string

const (
	StatusNew             Status = "New"
	StatusProcessed       Status = "Processed"
	StatusPricingComplete Status = "Pricing Complete"
	StatusReadyToSubmit   Status = "Ready to Submit"
)

// CurrentSchemaVersion is written with every technical analysis. Records carrying an
// older version (or none at all) must be re-analyzed before pricing.
const CurrentSchemaVersion = 2

// Product is a catalog entry. It is read-only for the pipeline.
type Product struct {
	ID          int               `json:"id"`
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	BasePrice   float64           `json:"base_price"`
	Specs       map[string]string `json:"specs"`
}

// Requirement is one row extracted from a tender document.
type Requirement struct {
	ItemName string `json:"item_name" mapstructure:"item_name"`
	Specs    string `json:"specs" mapstructure:"specs"`
	Quantity string `json:"quantity" mapstructure:"quantity"`
}

// MatchCandidate is the raw judgment of the reasoning capability for a requirement.
type MatchCandidate struct {
	ProductID int
	Semantic  float64
	Reason    string
	Raw       string
}

// ScoreBreakdown holds the individual confidence signals and their combination.
type ScoreBreakdown struct {
	Ensemble int     `json:"ensemble"`
	Semantic float64 `json:"semantic"`
	Keyword  int     `json:"keyword"`
	Rule     int     `json:"rule"`
}

// ProductMatch is a resolved catalog product for a requirement.
type ProductMatch struct {
	ProductID   int            `json:"product_id"`
	ProductName string         `json:"product_name"`
	SKU         string         `json:"sku"`
	UnitPrice   float64        `json:"unit_price"`
	Reason      string         `json:"reason"`
	Scores      ScoreBreakdown `json:"scores"`
}

// LineMatch pairs a requirement with either a match or an error, never both.
type LineMatch struct {
	Requirement Requirement   `json:"requirement"`
	Match       *ProductMatch `json:"match"`
	Error       string        `json:"error,omitempty"`
}

// NewMatchedLine builds a successfully matched line.
func NewMatchedLine(req Requirement, match ProductMatch) LineMatch {
	return LineMatch{Requirement: req, Match: &match}
}

// NewUnmatchedLine builds a line carrying the reason it could not be matched.
func NewUnmatchedLine(req Requirement, err error) LineMatch {
	reason := "unknown error"
	if err != nil && err.Error() != "" {
		reason = err.Error()
	}
	return LineMatch{Requirement: req, Error: reason}
}

// Matched reports whether the line has a resolved product.
func (l LineMatch) Matched() bool {
	return l.Match != nil && l.Error == ""
}

// Breakdown is the per-line cost decomposition.
type Breakdown struct {
	Base      float64 `json:"base"`
	Logistics float64 `json:"logistics"`
	Margin    float64 `json:"margin"`
	Tax       float64 `json:"gst"`
}

// CommercialLine is the priced form of a matched line.
type CommercialLine struct {
	ItemName  string    `json:"item_name"`
	SKU       string    `json:"sku"`
	Quantity  float64   `json:"qty"`
	UnitPrice float64   `json:"unit_price"`
	LineTotal float64   `json:"line_total"`
	Breakdown Breakdown `json:"breakdown"`
}

// ServiceLine is the cost of one required test or service.
type ServiceLine struct {
	TestName       string  `json:"test_name"`
	MatchedService string  `json:"matched_service"`
	Cost           float64 `json:"cost"`
}

// CommercialQuote aggregates product and service costs for one RFP.
type CommercialQuote struct {
	Lines        []CommercialLine `json:"lines"`
	Services     []ServiceLine    `json:"services"`
	ProductTotal float64          `json:"product_total"`
	ServiceTotal float64          `json:"service_total"`
	GrandTotal   float64          `json:"grand_total_inr"`
	Currency     string           `json:"currency"`
}

// Record is the structured output persisted on an RFP. Each stage replaces its own part.
type Record struct {
	SchemaVersion int              `json:"schema_version"`
	Requirements  []Requirement    `json:"requirements"`
	LineItems     []LineMatch      `json:"line_items"`
	RequiredTests []string         `json:"required_tests"`
	Commercial    *CommercialQuote `json:"commercial,omitempty"`
}

// RequireTechnical checks that the technical analysis output is present and current.
func (r *Record) RequireTechnical() error {
	if r == nil {
		return &SchemaVersionError{Want: CurrentSchemaVersion, Reason: "no technical analysis stored"}
	}
	if r.LineItems == nil {
		return &SchemaVersionError{Found: r.SchemaVersion, Want: CurrentSchemaVersion, Reason: "line_items missing"}
	}
	if r.SchemaVersion < CurrentSchemaVersion {
		return &SchemaVersionError{Found: r.SchemaVersion, Want: CurrentSchemaVersion, Reason: "outdated technical analysis"}
	}
	return nil
}

// RequireCommercial checks that both technical and commercial outputs are present.
func (r *Record) RequireCommercial() error {
	if err := r.RequireTechnical(); err != nil {
		return err
	}
	if r.Commercial == nil {
		return ErrNotReady
	}
	return nil
}

// MatchedCount returns the number of lines with a resolved product.
func (r *Record) MatchedCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, line := range r.LineItems {
		if line.Matched() {
			n++
		}
	}
	return n
}

// RFP is a tender document tracked by the system.
type RFP struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	ClientName string    `json:"client_name"`
	FileURL    string    `json:"file_url"`
	Status     Status    `json:"status"`
	Deadline   string    `json:"deadline"`
	Data       *Record   `json:"extracted_data"`
	CreatedAt  time.Time `json:"created_at"`
}
