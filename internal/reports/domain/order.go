package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// OrderID is the opaque order identifier. WooCommerce sends it as a JSON
// number; other senders use strings. Both decode to the same value.
type OrderID string

func (id *OrderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = OrderID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("order id must be a string or number: %w", err)
	}
	*id = OrderID(n.String())
	return nil
}

func (id OrderID) String() string {
	return string(id)
}

// Validate ensures the id can be embedded in an artifact name and object key.
func (id OrderID) Validate() error {
	if id == "" {
		return errors.New("order id is required")
	}
	if len(id) > 64 {
		return errors.New("order id is too long")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("order id contains invalid character %q", r)
		}
	}
	return nil
}

type Billing struct {
	Email string `json:"email,omitempty"`
}

type LineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderPayload is the subset of a WooCommerce order the pipeline reads.
type OrderPayload struct {
	ID        OrderID    `json:"id"`
	Billing   Billing    `json:"billing"`
	LineItems []LineItem `json:"line_items"`
}

// DecodeOrder parses a raw webhook body. Failures wrap ErrParse.
func DecodeOrder(body []byte) (OrderPayload, error) {
	var order OrderPayload
	if err := json.Unmarshal(body, &order); err != nil {
		return OrderPayload{}, fmt.Errorf("%w: decode order: %w", ErrParse, err)
	}
	if err := order.ID.Validate(); err != nil {
		return OrderPayload{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return order, nil
}

// ExtractCode returns the classification code of the first line item whose
// name contains a '-'. The code is the trimmed text after the last '-'.
// Later items are never inspected, and an empty code counts as absent.
func ExtractCode(order OrderPayload) (string, bool) {
	for _, item := range order.LineItems {
		idx := strings.LastIndex(item.Name, "-")
		if idx < 0 {
			continue
		}
		code := strings.TrimSpace(item.Name[idx+1:])
		return code, code != ""
	}
	return "", false
}

// ArtifactName derives the deterministic artifact file name for an order.
func ArtifactName(id OrderID) string {
	return "report_" + string(id) + ".csv"
}
