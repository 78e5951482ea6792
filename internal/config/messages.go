package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// MessagesConfig holds every user-facing response string. Keeping them in one
// yaml file lets deployments reword responses without a rebuild, and keeps
// enumeration-sensitive messages (forgot-password, resend-verification)
// identical across code paths.
type MessagesConfig struct {
	Auth struct {
		Success struct {
			Registration     string `yaml:"registration"`
			Logout           string `yaml:"logout"`
			EmailVerified    string `yaml:"email_verified"`
			PasswordReset    string `yaml:"password_reset"`
			ResetRequested   string `yaml:"reset_requested"`
			VerificationSent string `yaml:"verification_sent"`
		} `yaml:"success"`
		Error struct {
			InvalidCredentials string `yaml:"invalid_credentials"`
			AccountBlocked     string `yaml:"account_blocked"`
			EmailUnverified    string `yaml:"email_unverified"`
			EmailExists        string `yaml:"email_exists"`
			UsernameExists     string `yaml:"username_exists"`
			InvalidToken       string `yaml:"invalid_token"`
			TokenReuse         string `yaml:"token_reuse"`
			Forbidden          string `yaml:"forbidden"`
		} `yaml:"error"`
	} `yaml:"auth"`
	Validation struct {
		InvalidRequest string `yaml:"invalid_request"`
	} `yaml:"validation"`
	Server struct {
		Internal string `yaml:"internal"`
	} `yaml:"server"`
}

// LoadMessages reads the messages file, falling back to built-in defaults for
// any field left empty so a sparse file stays valid.
func LoadMessages(path string) (*MessagesConfig, error) {
	m := defaultMessages()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, err
	}
	fillDefaults(m)
	return m, nil
}

func defaultMessages() *MessagesConfig {
	m := &MessagesConfig{}
	fillDefaults(m)
	return m
}

func fillDefaults(m *MessagesConfig) {
	def := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}
	def(&m.Auth.Success.Registration, "registration successful, please verify your email")
	def(&m.Auth.Success.Logout, "logged out")
	def(&m.Auth.Success.EmailVerified, "email verified")
	def(&m.Auth.Success.PasswordReset, "password has been reset")
	def(&m.Auth.Success.ResetRequested, "if the account exists, a reset email has been sent")
	def(&m.Auth.Success.VerificationSent, "if the account exists, a verification email has been sent")
	def(&m.Auth.Error.InvalidCredentials, "invalid email or password")
	def(&m.Auth.Error.AccountBlocked, "account is blocked")
	def(&m.Auth.Error.EmailUnverified, "email address is not verified")
	def(&m.Auth.Error.EmailExists, "email is already registered")
	def(&m.Auth.Error.UsernameExists, "username is already taken")
	def(&m.Auth.Error.InvalidToken, "invalid or expired token")
	def(&m.Auth.Error.TokenReuse, "invalid or expired token")
	def(&m.Auth.Error.Forbidden, "forbidden")
	def(&m.Validation.InvalidRequest, "invalid request")
	def(&m.Server.Internal, "internal server error")
}
