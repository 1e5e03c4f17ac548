// Package webhook pushes signed appointment events to an external endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"carwash/pkg/logger"

	"github.com/google/uuid"
)

const SignatureHeader = "X-Signature"

// Event types
const (
	EventAppointmentCreated = "appointment.created"
	EventAppointmentUpdated = "appointment.updated"
	EventAppointmentDeleted = "appointment.deleted"
)

// AppointmentEvent is the JSON body posted for appointment changes.
type AppointmentEvent struct {
	Event         string     `json:"event"`
	ID            uuid.UUID  `json:"id"`
	CarWash       uuid.UUID  `json:"car_wash"`
	Customer      *uuid.UUID `json:"customer"`
	Status        string     `json:"status"`
	StartsOn      time.Time  `json:"starts_on"`
	EndsOn        time.Time  `json:"ends_on"`
	Booking       *uuid.UUID `json:"booking"`
	Box           *uuid.UUID `json:"box"`
	PaymentStatus string     `json:"payment_status"`
	TS            int64      `json:"ts"`
}

// Sign returns hex(HMAC-SHA256(secret, body)).
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature in constant time.
func Verify(secret, body []byte, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// Sender posts events. A Sender without a URL is disabled.
type Sender struct {
	url    string
	secret []byte
	client *http.Client
}

func NewSender(url, secret string, timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sender{url: url, secret: []byte(secret), client: &http.Client{Timeout: timeout}}
}

func (s *Sender) Enabled() bool { return s != nil && s.url != "" }

// Send posts event synchronously and returns delivery errors.
func (s *Sender) Send(ctx context.Context, event interface{}) error {
	if !s.Enabled() {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode webhook event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(s.secret, body))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Push delivers event in the background and only logs failures.
func (s *Sender) Push(event interface{}) {
	if !s.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
		defer cancel()
		if err := s.Send(ctx, event); err != nil {
			logger.Warnf("%v", err)
		}
	}()
}
