package entity

// AddressParts is the split property address of a county notice.
type AddressParts struct {
	Street string `json:"property_street,omitempty" dynamodbav:"property_street,omitempty"`
	City   string `json:"property_city,omitempty" dynamodbav:"property_city,omitempty"`
	State  string `json:"property_state,omitempty" dynamodbav:"property_state,omitempty"`
	Zip    string `json:"property_zip,omitempty" dynamodbav:"property_zip,omitempty"`
}

type LegalDescriptionParts struct {
	Lot         string `json:"lot,omitempty" dynamodbav:"lot,omitempty"`
	Block       string `json:"blk,omitempty" dynamodbav:"blk,omitempty"`
	Subdivision string `json:"subdivision,omitempty" dynamodbav:"subdivision,omitempty"`
	Section     string `json:"section,omitempty" dynamodbav:"section,omitempty"`
}

type PhoneVerification struct {
	Name      string   `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Ownership *float64 `json:"ownership,omitempty" dynamodbav:"ownership,omitempty"`
}

type CountyPhone struct {
	Phone        string             `json:"phone" dynamodbav:"phone"`
	Type         string             `json:"type,omitempty" dynamodbav:"type,omitempty"`
	Verification *PhoneVerification `json:"verification,omitempty" dynamodbav:"verification,omitempty"`
	Metadata     map[string]string  `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

// CountyRecord is one county-stream notice stored per tenant, keyed by
// tenant and ingestion timestamp.
type CountyRecord struct {
	TenantID              string                 `json:"tenant_id" dynamodbav:"tenant_id"`
	Timestamp             string                 `json:"timestamp" dynamodbav:"timestamp"`
	LeadID                string                 `json:"lead_id,omitempty" dynamodbav:"lead_id,omitempty"`
	NoticeID              *float64               `json:"Notice_id,omitempty" dynamodbav:"notice_id,omitempty"`
	InstrumentNumber      string                 `json:"instrument_number,omitempty" dynamodbav:"instrument_number,omitempty"`
	PropertyAddress       string                 `json:"property_address,omitempty" dynamodbav:"property_address,omitempty"`
	AuctionDatetime       string                 `json:"auction_datetime,omitempty" dynamodbav:"auction_datetime,omitempty"`
	AuctionLocation       string                 `json:"auction_location,omitempty" dynamodbav:"auction_location,omitempty"`
	PrincipalBalance      *float64               `json:"principal_balance,omitempty" dynamodbav:"principal_balance,omitempty"`
	Lender                string                 `json:"lender,omitempty" dynamodbav:"lender,omitempty"`
	OriginalLender        string                 `json:"original_lender,omitempty" dynamodbav:"original_lender,omitempty"`
	LawFirm               string                 `json:"law_firm,omitempty" dynamodbav:"law_firm,omitempty"`
	LawFirmPhone          string                 `json:"law_firm_phone,omitempty" dynamodbav:"law_firm_phone,omitempty"`
	Grantor1              string                 `json:"grantor_1,omitempty" dynamodbav:"grantor_1,omitempty"`
	Grantor2              string                 `json:"grantor_2,omitempty" dynamodbav:"grantor_2,omitempty"`
	PropertyCity          string                 `json:"-" dynamodbav:"property_city,omitempty"`
	PropertyState         string                 `json:"-" dynamodbav:"property_state,omitempty"`
	PropertyZip           string                 `json:"-" dynamodbav:"property_zip,omitempty"`
	LegalDescription      string                 `json:"legal_description,omitempty" dynamodbav:"legal_description,omitempty"`
	PropertyAddressParts  *AddressParts          `json:"property_address_parts,omitempty" dynamodbav:"property_address_parts,omitempty"`
	LegalDescriptionParts *LegalDescriptionParts `json:"legal_description_parts,omitempty" dynamodbav:"legal_description_parts,omitempty"`
	Phones                []CountyPhone          `json:"phones,omitempty" dynamodbav:"phones,omitempty"`
}

// FlattenAddress copies the split address parts to the top-level columns.
func (r *CountyRecord) FlattenAddress() {
	if r.PropertyAddressParts == nil {
		return
	}
	r.PropertyCity = r.PropertyAddressParts.City
	r.PropertyState = r.PropertyAddressParts.State
	r.PropertyZip = r.PropertyAddressParts.Zip
}
