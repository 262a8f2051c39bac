package transfer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

// QRPayload is the content of a payment QR code:
//
//	account_number|ifsc|name[|amount]
type QRPayload struct {
	AccountNumber string
	IFSCCode      string
	Name          string
	Amount        *decimal.Decimal
}

func ParseQRPayload(raw string) (QRPayload, error) {
	parts := strings.Split(strings.TrimSpace(raw), "|")
	if len(parts) < 3 {
		return QRPayload{}, fmt.Errorf("ParseQRPayload: expected at least 3 fields, got %d: %w", len(parts), domain.ErrInvalidQRPayload)
	}

	p := QRPayload{
		AccountNumber: strings.TrimSpace(parts[0]),
		IFSCCode:      strings.ToUpper(strings.TrimSpace(parts[1])),
		Name:          strings.TrimSpace(parts[2]),
	}
	if p.AccountNumber == "" {
		return QRPayload{}, fmt.Errorf("ParseQRPayload: empty account number: %w", domain.ErrInvalidQRPayload)
	}

	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		amount, err := decimal.NewFromString(strings.TrimSpace(parts[3]))
		if err != nil {
			return QRPayload{}, fmt.Errorf("ParseQRPayload: amount: %w", domain.ErrInvalidQRPayload)
		}
		p.Amount = &amount
	}
	return p, nil
}

func (p QRPayload) String() string {
	fields := []string{p.AccountNumber, p.IFSCCode, p.Name}
	if p.Amount != nil {
		fields = append(fields, p.Amount.StringFixed(2))
	}
	return strings.Join(fields, "|")
}
