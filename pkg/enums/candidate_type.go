package enums

import "fmt"

// CandidateType maps to the candidates.type column.
type CandidateType string

const (
	CandidateTypeDemand            CandidateType = "DEMAND"
	CandidateTypeSupply            CandidateType = "SUPPLY"
	CandidateTypeStock             CandidateType = "STOCK"
	CandidateTypeUnrelatedIncrease CandidateType = "UNRELATED_INCREASE"
	CandidateTypeUnrelatedDecrease CandidateType = "UNRELATED_DECREASE"
)

var validCandidateTypes = []CandidateType{
	CandidateTypeDemand,
	CandidateTypeSupply,
	CandidateTypeStock,
	CandidateTypeUnrelatedIncrease,
	CandidateTypeUnrelatedDecrease,
}

// IsValid reports whether the value matches a known candidate type.
func (t CandidateType) IsValid() bool {
	for _, candidate := range validCandidateTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCandidateType converts raw input into CandidateType.
func ParseCandidateType(value string) (CandidateType, error) {
	for _, candidate := range validCandidateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid candidate type %q", value)
}

// BusinessCase is the originating process of a candidate. It is derived from the
// candidate's business case detail and stored for querying.
type BusinessCase string

const (
	BusinessCaseNone         BusinessCase = ""
	BusinessCaseProduction   BusinessCase = "PRODUCTION"
	BusinessCaseDistribution BusinessCase = "DISTRIBUTION"
	BusinessCaseShipment     BusinessCase = "SHIPMENT"
	BusinessCasePurchase     BusinessCase = "PURCHASE"
)
