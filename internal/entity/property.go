package entity

import (
	"path"
	"strings"
)

// Property is a deal record owned by a customer, linked to a CRM contact.
type Property struct {
	CustomerID       string   `json:"customer_id" dynamodbav:"customerid"`
	ID               string   `json:"id" dynamodbav:"id"`
	CRMURL           string   `json:"reicb_url,omitempty" dynamodbav:"reicb_url,omitempty"`
	CashToSeller     *float64 `json:"cash_to_seller,omitempty" dynamodbav:"cash_to_seller,omitempty"`
	SellerCarryTerms string   `json:"seller_carry_terms,omitempty" dynamodbav:"seller_carry_terms,omitempty"`
	AgentCommission  *float64 `json:"agent_commission,omitempty" dynamodbav:"agent_commission,omitempty"`
	Debt             *float64 `json:"debt,omitempty" dynamodbav:"debt,omitempty"`
	ContractPrice    *float64 `json:"contract_price,omitempty" dynamodbav:"contract_price,omitempty"`
}

// ContactID extracts the CRM contact id from the linked contact URL
// (its last path segment).
func (p *Property) ContactID() string {
	u := strings.TrimRight(strings.TrimSpace(p.CRMURL), "/")
	if u == "" {
		return ""
	}
	return path.Base(u)
}
