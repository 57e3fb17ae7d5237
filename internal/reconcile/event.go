package reconcile

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const EventTransactionUpdated = "transaction.updated"

var (
	ErrInvalidChecksum = errors.New("invalid checksum")
	ErrMalformedEvent  = errors.New("malformed event")
)

// Event is the envelope the payment gateway posts to the webhook.
type Event struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Signature Signature       `json:"signature"`
	Timestamp json.Number     `json:"timestamp"`
	SentAt    string          `json:"sent_at"`
}

type Signature struct {
	Properties []string `json:"properties"`
	Checksum   string   `json:"checksum"`
}

type Transaction struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Reference         string `json:"reference"`
	PaymentMethodType string `json:"payment_method_type"`
	AmountInCents     int64  `json:"amount_in_cents"`
	Currency          string `json:"currency"`
}

func ParseEvent(body []byte) (*Event, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var ev Event
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return &ev, nil
}

// Transaction decodes data.transaction. The raw transaction object is returned
// alongside so it can be stored verbatim. A nil transaction means the event carried none.
func (e *Event) Transaction() (*Transaction, json.RawMessage, error) {
	if len(e.Data) == 0 {
		return nil, nil, nil
	}
	var data struct {
		Transaction json.RawMessage `json:"transaction"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if len(data.Transaction) == 0 || string(data.Transaction) == "null" {
		return nil, nil, nil
	}

	var tx Transaction
	if err := json.Unmarshal(data.Transaction, &tx); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return &tx, data.Transaction, nil
}

// Checksum computes hex(sha256(values of signature.properties + timestamp + secret)).
// Property paths such as "transaction.id" are resolved inside data.
func Checksum(e *Event, secret string) (string, error) {
	var data map[string]any
	if len(e.Data) > 0 {
		dec := json.NewDecoder(bytes.NewReader(e.Data))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedEvent, err)
		}
	}

	var b strings.Builder
	for _, prop := range e.Signature.Properties {
		b.WriteString(stringify(lookup(data, strings.Split(prop, "."))))
	}
	b.WriteString(e.Timestamp.String())
	b.WriteString(secret)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// Verify is a no-op when no secret is configured.
func Verify(e *Event, secret string) error {
	if secret == "" {
		return nil
	}
	if e.Signature.Checksum == "" {
		return ErrInvalidChecksum
	}

	computed, err := Checksum(e, secret)
	if err != nil {
		return err
	}
	given := strings.ToLower(e.Signature.Checksum)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(given)) != 1 {
		return ErrInvalidChecksum
	}
	return nil
}

func lookup(v any, path []string) any {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}
