package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrInvalidPayload is returned when required payload fields are missing.
var ErrInvalidPayload = errors.New("invalid payload")

// ProductRef asks for one supporting-data subsection.
type ProductRef struct {
	Product string `json:"product"`
	Why     string `json:"why,omitempty"`
}

// Payload is the analytics result a report is rendered from.
type Payload struct {
	Answer     string       `json:"answer"`
	Rationale  []string     `json:"rationale"`
	KeyMetrics []string     `json:"key_metrics"`
	Products   []ProductRef `json:"products,omitempty"`
}

// Validate checks the required fields. An empty rationale or metrics list
// is accepted; an absent one is not.
func (p Payload) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Answer) == "" {
		missing = append(missing, "answer")
	}
	if p.Rationale == nil {
		missing = append(missing, "rationale")
	}
	if p.KeyMetrics == nil {
		missing = append(missing, "key_metrics")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	return nil
}

// ProductKeys returns the non-empty product keys in order.
func (p Payload) ProductKeys() []string {
	var keys []string
	for _, ref := range p.Products {
		if ref.Product != "" {
			keys = append(keys, ref.Product)
		}
	}
	return keys
}

// DecodePayload reads and validates a JSON payload.
func DecodePayload(r io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, p.Validate()
}

// ParsePayload accepts either inline JSON or the path of a JSON file.
func ParsePayload(arg string) (Payload, error) {
	trimmed := strings.TrimSpace(arg)
	if strings.HasPrefix(trimmed, "{") {
		return DecodePayload(strings.NewReader(trimmed))
	}
	f, err := os.Open(trimmed)
	if err != nil {
		return Payload{}, fmt.Errorf("read payload: %w", err)
	}
	defer f.Close()
	return DecodePayload(f)
}
