package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// BankDetails is where an approved withdrawal is paid out.
type BankDetails struct {
	AccountHolder string `json:"accountHolder" validate:"required"`
	AccountNumber string `json:"accountNumber" validate:"required"`
	IFSC          string `json:"ifsc" validate:"required"`
	BankName      string `json:"bankName,omitempty"`
	UPI           string `json:"upi,omitempty"`
}

// Present reports whether enough details exist to pay a withdrawal.
func (b BankDetails) Present() bool {
	return b.AccountHolder != "" && b.AccountNumber != "" && b.IFSC != ""
}

// Value implements the driver.Valuer interface
func (b BankDetails) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements the sql.Scanner interface
func (b *BankDetails) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*b = BankDetails{}
		return nil
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported bank details type %T", value)
	}
}

// Metadata is free-form context attached to an audit transaction.
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface
func (m *Metadata) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		if s, isString := value.(string); isString {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, m)
}
