package docusign

// EnvelopeRequest asks for an envelope from a named template. Values are
// keyed the same way as the layout's tab maps.
type EnvelopeRequest struct {
	TemplateName string
	ContactID    string
	EmailSubject string
	Values       map[string]string
}

type EnvelopeResult struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

type Tab struct {
	TabLabel string `json:"tabLabel"`
	Value    string `json:"value"`
}

type Tabs struct {
	TextTabs     []Tab `json:"textTabs"`
	FullNameTabs []Tab `json:"fullNameTabs"`
}

type Signer struct {
	RoleName    string `json:"roleName"`
	RecipientID string `json:"recipientId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Tabs        Tabs   `json:"tabs"`
}

type serverTemplate struct {
	Sequence   string `json:"sequence"`
	TemplateID string `json:"templateId"`
}

type inlineTemplate struct {
	Sequence   string `json:"sequence"`
	Recipients struct {
		Signers []Signer `json:"signers"`
	} `json:"recipients"`
}

type compositeTemplate struct {
	ServerTemplates []serverTemplate `json:"serverTemplates"`
	InlineTemplates []inlineTemplate `json:"inlineTemplates"`
}

type envelopeDefinition struct {
	EmailSubject       string              `json:"emailSubject"`
	Status             string              `json:"status"`
	CompositeTemplates []compositeTemplate `json:"compositeTemplates"`
	CustomFields       *customFields       `json:"customFields,omitempty"`
}

type customFields struct {
	TextCustomFields []textCustomField `json:"textCustomFields"`
}

type textCustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Show  string `json:"show"`
}

type template struct {
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
}

type templateList struct {
	EnvelopeTemplates []template `json:"envelopeTemplates"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}
