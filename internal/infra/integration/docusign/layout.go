package docusign

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Layout is the operator-supplied description of templates: which CRM
// fields feed which values, which tabs show them, and how a template is
// picked for a contact.
type Layout struct {
	DefaultTemplate string                  `yaml:"default_template"`
	EnvelopeStatus  string                  `yaml:"envelope_status"`
	RoleName        string                  `yaml:"role_name"`
	FieldLabels     map[string]string       `yaml:"field_labels"`
	UnsignedAmounts []string                `yaml:"unsigned_amounts"`
	ValueSuffixes   map[string]string       `yaml:"value_suffixes"`
	TemplateRules   []TemplateRule          `yaml:"template_rules"`
	Templates       map[string]TemplateTabs `yaml:"templates"`
	TitleCompanies  map[string]TitleCompany `yaml:"title_companies"`
}

// TemplateRule selects Template when the document type mentions every
// entry of All and none of None.
type TemplateRule struct {
	Template string   `yaml:"template"`
	All      []string `yaml:"all"`
	None     []string `yaml:"none"`
}

func (r TemplateRule) Matches(docType string) bool {
	for _, s := range r.All {
		if !strings.Contains(docType, s) {
			return false
		}
	}
	for _, s := range r.None {
		if strings.Contains(docType, s) {
			return false
		}
	}
	return len(r.All) > 0
}

// TemplateTabs maps a value key to the tab labels it fills.
type TemplateTabs struct {
	TextTabs     map[string][]string `yaml:"text_tabs"`
	FullNameTabs map[string][]string `yaml:"full_name_tabs"`
}

type TitleCompany struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
	Email   string `yaml:"email"`
}

func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read envelope layout: %w", err)
	}
	return ParseLayout(data)
}

func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse envelope layout: %w", err)
	}
	if l.DefaultTemplate == "" {
		return nil, fmt.Errorf("envelope layout: default_template is required")
	}
	if l.EnvelopeStatus == "" {
		l.EnvelopeStatus = "created"
	}
	if l.RoleName == "" {
		l.RoleName = "Signer 1"
	}
	return &l, nil
}

// TemplateFor picks the template for a contact's document type.
func (l *Layout) TemplateFor(docType string) string {
	for _, r := range l.TemplateRules {
		if r.Matches(docType) {
			return r.Template
		}
	}
	return l.DefaultTemplate
}

func (l *Layout) IsUnsignedAmount(key string) bool {
	for _, k := range l.UnsignedAmounts {
		if k == key {
			return true
		}
	}
	return false
}
