package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/edustack/identity/internal/flagx"
	"github.com/edustack/identity/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "10m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	DatabaseDSN                       string         `json:"database_dsn"`
	AccessSecretKey                   string         `json:"access_secret_key"`
	RefreshSecretKey                  string         `json:"refresh_secret_key"`
	AccessTokenValidityDuration       timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration      timex.Duration `json:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration timex.Duration `json:"verification_token_validity_duration"`
	ResetTokenValidityDuration        timex.Duration `json:"reset_token_validity_duration"`
	BcryptCost                        int            `json:"bcrypt_cost"`
	MailAPIURL                        string         `json:"mail_api_url"`
	MailAPIKey                        string         `json:"mail_api_key"`
	MailFromEmail                     string         `json:"mail_from_email"`
	MailFromName                      string         `json:"mail_from_name"`
	FrontendBaseURL                   string         `json:"frontend_base_url"`
	AdminUsername                     string         `json:"admin_username"`
	AdminPassword                     string         `json:"admin_password"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path comes from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics: a half-applied configuration is
// worse than a refusal to start.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.AccessSecretKey = c.AccessSecretKey
	config.RefreshSecretKey = c.RefreshSecretKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.VerificationTokenValidityDuration = time.Duration(c.VerificationTokenValidityDuration.Duration)
	config.ResetTokenValidityDuration = time.Duration(c.ResetTokenValidityDuration.Duration)
	config.BcryptCost = c.BcryptCost
	config.MailAPIURL = c.MailAPIURL
	config.MailAPIKey = c.MailAPIKey
	config.MailFromEmail = c.MailFromEmail
	config.MailFromName = c.MailFromName
	config.FrontendBaseURL = c.FrontendBaseURL
	config.AdminUsername = c.AdminUsername
	config.AdminPassword = c.AdminPassword
}
