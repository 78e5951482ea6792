package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Mailer hands messages to an external delivery service over HTTP. Actual
// delivery (SMTP, templates) is that service's problem; this side only posts
// the payload. With no URI configured it logs and succeeds so local setups
// work without a mail stack.
type Mailer struct {
	URI    string
	Client *http.Client
}

func New(uri string) *Mailer {
	return &Mailer{
		URI:    uri,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type message struct {
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables"`
}

func (m *Mailer) SendVerificationEmail(to, token string) error {
	return m.send(message{
		To:       to,
		Subject:  "Verify your email",
		Template: "verification",
		Variables: map[string]string{
			"token": token,
		},
	})
}

func (m *Mailer) SendPasswordResetEmail(to, token string) error {
	return m.send(message{
		To:       to,
		Subject:  "Reset your password",
		Template: "password_reset",
		Variables: map[string]string{
			"token": token,
		},
	})
}

func (m *Mailer) send(msg message) error {
	if m.URI == "" {
		log.Printf("mailer disabled, skipping %q email to %s", msg.Template, msg.To)
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	resp, err := m.Client.Post(m.URI, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mailer responded with status %d", resp.StatusCode)
	}
	return nil
}
