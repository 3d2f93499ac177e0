// Package config loads the service settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageDynamo   = "dynamodb"
	StoragePostgres = "postgres"
)

type Config struct {
	Port               string
	CORSOrigins        []string
	HTTPTimeout        time.Duration
	// TokenSweepInterval paces the background refresh of expired
	// connections. Zero disables it.
	TokenSweepInterval time.Duration
	Log                LogConfig
	CRM                CRMConfig
	Storage            StorageConfig
	County             CountyConfig
	RabbitMQURL        string
	DocuSign           DocuSignConfig
	Mail               MailConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type CRMConfig struct {
	BaseURL      string
	APIVersion   string
	TokenURL     string
	AuthorizeURL string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// EncKey is a Fernet key; empty keeps tokens in clear text.
	EncKey string
	// StateSecret signs the OAuth state parameter. Falls back to ClientSecret.
	StateSecret string
}

// ConnectURL is this service's /auth/connect, derived from the redirect
// URL. Links sent to operators point here so each visit gets a fresh state.
func (c CRMConfig) ConnectURL() string {
	u, err := url.Parse(c.RedirectURL)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/redirect") + "/connect"
	u.RawQuery = ""
	return u.String()
}

type StorageConfig struct {
	Driver          string
	DatabaseURL     string
	DynamoPrefix    string
	DynamoRegion    string
	DynamoEndpoint  string
	AccessKeyID     string
	SecretAccessKey string
}

type CountyConfig struct {
	Table      string
	WebhookURL string
}

type DocuSignConfig struct {
	IntegrationKey string
	UserID         string
	AccountID      string
	OAuthBaseURL   string
	APIBaseURL     string
	PrivateKey     string
	SignerName     string
	SignerEmail    string
	LayoutFile     string
}

// Enabled reports whether enough is configured to request JWT grants.
func (c DocuSignConfig) Enabled() bool {
	return c.IntegrationKey != "" && c.UserID != "" && c.AccountID != "" && c.PrivateKey != ""
}

type MailConfig struct {
	Host       string
	Port       int
	User       string
	Pass       string
	AlertEmail string
}

func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.AlertEmail != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("TOKEN_SWEEP_INTERVAL", "15m")

	v.SetDefault("CRM_BASE_URL", "https://services.leadconnectorhq.com")
	v.SetDefault("CRM_API_VERSION", "2021-07-28")
	v.SetDefault("CRM_AUTHORIZE_URL", "https://marketplace.gohighlevel.com/oauth/chooselocation")
	v.SetDefault("CRM_SCOPES", "contacts.readonly contacts.write locations.readonly locations/customFields.readonly")

	v.SetDefault("STORAGE_DRIVER", StorageDynamo)
	v.SetDefault("DYNAMODB_PREFIX", "homedispo")
	v.SetDefault("DYNAMODB_REGION", "us-east-2")
	v.SetDefault("COUNTY_TABLE", "craimer_countystream")

	v.SetDefault("DOCUSIGN_OAUTH_BASE_URL", "https://account-d.docusign.com")
	v.SetDefault("DOCUSIGN_API_BASE_URL", "https://demo.docusign.net/restapi/v2.1")
	v.SetDefault("ENVELOPE_LAYOUT_FILE", "configs/envelope_layout.yaml")

	v.SetDefault("MAIL_PORT", 587)
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	timeout, err := time.ParseDuration(v.GetString("HTTP_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	sweep, err := time.ParseDuration(v.GetString("TOKEN_SWEEP_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_SWEEP_INTERVAL: %w", err)
	}

	baseURL := strings.TrimRight(v.GetString("CRM_BASE_URL"), "/")
	tokenURL := v.GetString("CRM_OAUTH_URL")
	if tokenURL == "" {
		tokenURL = baseURL + "/oauth/token"
	}

	cfg := &Config{
		Port:               v.GetString("PORT"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS"), ","),
		HTTPTimeout:        timeout,
		TokenSweepInterval: sweep,
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		CRM: CRMConfig{
			BaseURL:      baseURL,
			APIVersion:   v.GetString("CRM_API_VERSION"),
			TokenURL:     tokenURL,
			AuthorizeURL: v.GetString("CRM_AUTHORIZE_URL"),
			ClientID:     v.GetString("CRM_CLIENT_ID"),
			ClientSecret: v.GetString("CRM_CLIENT_SECRET"),
			RedirectURL:  v.GetString("CRM_REDIRECT_URL"),
			Scopes:       strings.Fields(v.GetString("CRM_SCOPES")),
			EncKey:       v.GetString("ENC_KEY"),
			StateSecret:  v.GetString("OAUTH_STATE_SECRET"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
			DatabaseURL:     v.GetString("DATABASE_URL"),
			DynamoPrefix:    v.GetString("DYNAMODB_PREFIX"),
			DynamoRegion:    v.GetString("DYNAMODB_REGION"),
			DynamoEndpoint:  v.GetString("DYNAMODB_ENDPOINT"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
		},
		County: CountyConfig{
			Table:      v.GetString("COUNTY_TABLE"),
			WebhookURL: v.GetString("COUNTY_WEBHOOK_URL"),
		},
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
		DocuSign: DocuSignConfig{
			IntegrationKey: v.GetString("DOCUSIGN_INTEGRATION_KEY"),
			UserID:         v.GetString("DOCUSIGN_USER_ID"),
			AccountID:      v.GetString("DOCUSIGN_ACCOUNT_ID"),
			OAuthBaseURL:   strings.TrimRight(v.GetString("DOCUSIGN_OAUTH_BASE_URL"), "/"),
			APIBaseURL:     strings.TrimRight(v.GetString("DOCUSIGN_API_BASE_URL"), "/"),
			PrivateKey:     v.GetString("DOCUSIGN_PRIVATE_KEY"),
			SignerName:     v.GetString("DOCUSIGN_SIGNER_NAME"),
			SignerEmail:    v.GetString("DOCUSIGN_SIGNER_EMAIL"),
			LayoutFile:     v.GetString("ENVELOPE_LAYOUT_FILE"),
		},
		Mail: MailConfig{
			Host:       v.GetString("MAIL_HOST"),
			Port:       v.GetInt("MAIL_PORT"),
			User:       v.GetString("MAIL_USER"),
			Pass:       v.GetString("MAIL_PASS"),
			AlertEmail: v.GetString("ALERT_EMAIL"),
		},
	}

	if cfg.CRM.StateSecret == "" {
		cfg.CRM.StateSecret = cfg.CRM.ClientSecret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDynamo:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", StoragePostgres)
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
