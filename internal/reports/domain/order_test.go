package domain_test

import (
	"errors"
	"testing"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
)

func items(names ...string) domain.OrderPayload {
	order := domain.OrderPayload{ID: "1"}
	for _, name := range names {
		order.LineItems = append(order.LineItems, domain.LineItem{Name: name, Quantity: 1})
	}
	return order
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name      string
		order     domain.OrderPayload
		wantCode  string
		wantFound bool
	}{
		{name: "single separator", order: items("Report-A"), wantCode: "A", wantFound: true},
		{name: "last segment wins", order: items("Report-A-Premium-B"), wantCode: "B", wantFound: true},
		{name: "no separator", order: items("ReportOnly"), wantFound: false},
		{name: "no line items", order: items(), wantFound: false},
		{name: "whitespace is trimmed", order: items("DPE -  C  "), wantCode: "C", wantFound: true},
		{name: "items before a match are skipped", order: items("Gift card", "DPE-D"), wantCode: "D", wantFound: true},
		{name: "first match wins", order: items("DPE-C", "DPE-E"), wantCode: "C", wantFound: true},
		{name: "empty code after separator is absent", order: items("DPE-", "DPE-F"), wantFound: false},
		{name: "blank code after separator is absent", order: items("DPE-   "), wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, found := domain.ExtractCode(tt.order)
			if found != tt.wantFound {
				t.Fatalf("ExtractCode() found = %v, want %v", found, tt.wantFound)
			}
			if code != tt.wantCode {
				t.Errorf("ExtractCode() code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestDecodeOrder(t *testing.T) {
	t.Run("decodes numeric id", func(t *testing.T) {
		order, err := domain.DecodeOrder([]byte(`{"id": 4521, "billing": {"email": "a@b.fr"}, "line_items": [{"name": "DPE-C", "quantity": 2}]}`))
		if err != nil {
			t.Fatalf("DecodeOrder() error = %v", err)
		}
		if order.ID != "4521" {
			t.Errorf("expected id 4521, got %q", order.ID)
		}
		if order.Billing.Email != "a@b.fr" {
			t.Errorf("expected billing email, got %q", order.Billing.Email)
		}
		if len(order.LineItems) != 1 || order.LineItems[0].Quantity != 2 {
			t.Errorf("unexpected line items: %+v", order.LineItems)
		}
	})

	t.Run("decodes string id", func(t *testing.T) {
		order, err := domain.DecodeOrder([]byte(`{"id": "WC-77", "line_items": []}`))
		if err != nil {
			t.Fatalf("DecodeOrder() error = %v", err)
		}
		if order.ID != "WC-77" {
			t.Errorf("expected id WC-77, got %q", order.ID)
		}
	})

	t.Run("billing is optional", func(t *testing.T) {
		order, err := domain.DecodeOrder([]byte(`{"id": 1}`))
		if err != nil {
			t.Fatalf("DecodeOrder() error = %v", err)
		}
		if order.Billing.Email != "" {
			t.Errorf("expected empty email, got %q", order.Billing.Email)
		}
	})

	failures := map[string]string{
		"invalid json":        `{"id": `,
		"missing id":          `{"line_items": []}`,
		"null id":             `{"id": null}`,
		"path traversal id":   `{"id": "../../etc/passwd"}`,
		"id with slash":       `{"id": "a/b"}`,
		"object id":           `{"id": {"x": 1}}`,
		"line items not list": `{"id": 1, "line_items": "DPE-C"}`,
	}
	for name, body := range failures {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := domain.DecodeOrder([]byte(body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, domain.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestArtifactName(t *testing.T) {
	if got := domain.ArtifactName("4521"); got != "report_4521.csv" {
		t.Errorf("ArtifactName() = %q", got)
	}
}

func TestReportRecordRow(t *testing.T) {
	rec := domain.ReportRecord{ID: "1", LastName: "Martin", FirstName: "Léa", Mobile: "0600000000", Email: "lea@example.fr", PostalCode: "75011", Classification: "C"}
	row := rec.Row()
	if len(row) != len(domain.ReportHeader) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(domain.ReportHeader))
	}
	if row[0] != "1" || row[6] != "C" {
		t.Errorf("unexpected row: %v", row)
	}
}
