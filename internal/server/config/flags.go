package config

import (
	"flag"
	"os"
	"time"

	"github.com/edustack/identity/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-d string    PostgreSQL DSN
//	-as string   access-token HMAC secret
//	-rs string   refresh-token HMAC secret
//	-at int      access token validity, minutes
//	-rt int      refresh token validity, minutes
//	-vt int      verification challenge TTL, minutes
//	-pt int      reset challenge TTL, minutes (0 = no expiry)
//	-bc int      bcrypt cost
//	-mu string   mail API URL
//	-mk string   mail API key
//	-me string   mail sender email
//	-mn string   mail sender name
//	-f string    frontend base URL for email links
//	-au string   initial admin username
//	-ap string   initial admin password
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-d", "-as", "-rs", "-at", "-rt", "-vt", "-pt", "-bc",
		"-mu", "-mk", "-me", "-mn", "-f", "-au", "-ap",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessSecretKey, "as", config.AccessSecretKey, "access token secret key")
	fs.StringVar(&config.RefreshSecretKey, "rs", config.RefreshSecretKey, "refresh token secret key")

	accessTokenValidityDuration := fs.Int("at", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("rt", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	verificationTokenValidityDuration := fs.Int("vt", int(config.VerificationTokenValidityDuration.Minutes()), "verification_token_validity_duration (in minutes)")
	resetTokenValidityDuration := fs.Int("pt", int(config.ResetTokenValidityDuration.Minutes()), "reset_token_validity_duration (in minutes, 0 = no expiry)")

	fs.IntVar(&config.BcryptCost, "bc", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.MailAPIURL, "mu", config.MailAPIURL, "mail API URL")
	fs.StringVar(&config.MailAPIKey, "mk", config.MailAPIKey, "mail API key")
	fs.StringVar(&config.MailFromEmail, "me", config.MailFromEmail, "mail sender email")
	fs.StringVar(&config.MailFromName, "mn", config.MailFromName, "mail sender name")
	fs.StringVar(&config.FrontendBaseURL, "f", config.FrontendBaseURL, "frontend base URL")
	fs.StringVar(&config.AdminUsername, "au", config.AdminUsername, "initial admin username")
	fs.StringVar(&config.AdminPassword, "ap", config.AdminPassword, "initial admin password")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.VerificationTokenValidityDuration = time.Duration(*verificationTokenValidityDuration) * time.Minute
	config.ResetTokenValidityDuration = time.Duration(*resetTokenValidityDuration) * time.Minute
}
