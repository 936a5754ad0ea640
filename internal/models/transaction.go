package models

import (
	"time"

	"gorm.io/datatypes"
)

type TransactionStatus string
type Operator string

const (
	TransactionPending  TransactionStatus = "PENDING"
	TransactionSuccess  TransactionStatus = "SUCCESS"
	TransactionFailed   TransactionStatus = "FAILED"
	TransactionExpired  TransactionStatus = "EXPIRED"
	TransactionRefunded TransactionStatus = "REFUNDED"
)

const (
	OperatorOrange Operator = "ORANGE"
	OperatorMTN    Operator = "MTN"
)

const DefaultCurrency = "XAF"

// Transaction is a mobile-money collection requested by a merchant.
// Only Status, ProviderTransactionID and Metadata change after creation.
type Transaction struct {
	ID                    uint                         `gorm:"primarykey" json:"id"`
	Reference             string                       `gorm:"type:varchar(32);uniqueIndex;not null" json:"reference"`
	Amount                int64                        `gorm:"not null" json:"amount"`
	Currency              string                       `gorm:"type:varchar(3);not null;default:'XAF'" json:"currency"`
	CustomerPhone         string                       `gorm:"type:varchar(20);not null;index" json:"customer_phone"`
	Operator              Operator                     `gorm:"type:varchar(10);not null" json:"operator"`
	Status                TransactionStatus            `gorm:"type:varchar(10);not null;default:'PENDING';index" json:"status"`
	ProviderTransactionID string                       `gorm:"type:varchar(100);index" json:"provider_transaction_id,omitempty"`
	MerchantID            string                       `gorm:"type:varchar(64);not null;index" json:"merchant_id"`
	Metadata              datatypes.JSONType[Metadata] `json:"metadata"`
	CreatedAt             time.Time                    `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time                    `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Metadata holds diagnostics appended by the system and whatever the merchant
// sent along with the payment. Nothing in here drives business logic.
type Metadata struct {
	Diagnostics *Diagnostics   `json:"diagnostics,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

type Diagnostics struct {
	LastError string     `json:"last_error,omitempty"`
	Source    string     `json:"source,omitempty"`
	FailedAt  *time.Time `json:"failed_at,omitempty"`
}

func NewMetadata(extra map[string]any) datatypes.JSONType[Metadata] {
	return datatypes.NewJSONType(Metadata{Extra: extra})
}
