package notice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"agrigate/internal/domain"
)

// JSONInterpreter handles notices published as structured JSON documents. It
// covers agency feeds that already emit machine-readable notices; free-text
// notices need a model-backed interpreter behind the same port.
type JSONInterpreter struct{}

func NewJSONInterpreter() *JSONInterpreter {
	return &JSONInterpreter{}
}

type noticeDocument struct {
	ProgramID        string `json:"programId"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	EligibilityRules struct {
		MinAcres          *float64 `json:"minAcres"`
		MaxAcres          *float64 `json:"maxAcres"`
		RequiredCrops     []string `json:"requiredCrops"`
		RequiredPractices []string `json:"requiredPractices"`
		OtherRequirements []string `json:"otherRequirements"`
	} `json:"eligibilityRules"`
	PaymentRates struct {
		PerAcre    *decimal.Decimal           `json:"perAcre"`
		BasePay    *decimal.Decimal           `json:"basePay"`
		Practices  map[string]decimal.Decimal `json:"practices"`
		MaxPayment *decimal.Decimal           `json:"maxPayment"`
	} `json:"paymentRates"`
	FormsRequired []string   `json:"formsRequired"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
}

func (i *JSONInterpreter) Parse(_ context.Context, content string) (*Extraction, error) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "{") {
		return nil, fmt.Errorf("notice content is not a structured document")
	}

	var doc noticeDocument
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("decode notice document: %w", err)
	}
	if doc.ProgramID == "" || doc.Name == "" {
		return nil, fmt.Errorf("notice document missing programId or name")
	}

	return &Extraction{
		ProgramID:   doc.ProgramID,
		Name:        doc.Name,
		Description: doc.Description,
		EligibilityRules: domain.EligibilityRules{
			MinAcres:          doc.EligibilityRules.MinAcres,
			MaxAcres:          doc.EligibilityRules.MaxAcres,
			RequiredCrops:     doc.EligibilityRules.RequiredCrops,
			RequiredPractices: doc.EligibilityRules.RequiredPractices,
			OtherRequirements: doc.EligibilityRules.OtherRequirements,
		},
		PaymentRates: domain.PaymentRates{
			PerAcre:    doc.PaymentRates.PerAcre,
			BasePay:    doc.PaymentRates.BasePay,
			Practices:  doc.PaymentRates.Practices,
			MaxPayment: doc.PaymentRates.MaxPayment,
		},
		FormsRequired: doc.FormsRequired,
		ProgramPeriod: ProgramPeriod{Start: doc.StartDate, End: doc.EndDate},
	}, nil
}
