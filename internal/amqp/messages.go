package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"custdash/internal/core"
)

// Message kinds carried by IngestMessage.
const (
	KindCustomer    = "customer"
	KindTransaction = "transaction"
)

// ErrUnknownKind is returned for messages with an unsupported kind.
var ErrUnknownKind = errors.New("unknown message kind")

// IngestMessage carries one customer or one transaction to be stored.
type IngestMessage struct {
	Kind        string            `json:"kind"`
	Customer    *core.Customer    `json:"customer,omitempty"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewCustomerMessage wraps a customer for publishing.
func NewCustomerMessage(c core.Customer) *IngestMessage {
	return &IngestMessage{Kind: KindCustomer, Customer: &c, Timestamp: time.Now()}
}

// NewTransactionMessage wraps a transaction for publishing.
func NewTransactionMessage(t core.Transaction) *IngestMessage {
	return &IngestMessage{Kind: KindTransaction, Transaction: &t, Timestamp: time.Now()}
}

// Validate checks that the payload matches the kind and is itself valid.
func (m *IngestMessage) Validate() error {
	switch m.Kind {
	case KindCustomer:
		if m.Customer == nil {
			return fmt.Errorf("customer message without customer payload")
		}
		return m.Customer.Validate()
	case KindTransaction:
		if m.Transaction == nil {
			return fmt.Errorf("transaction message without transaction payload")
		}
		return m.Transaction.Validate()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
}

// ToJSON converts the message to JSON bytes
func (m *IngestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// IngestMessageFromJSON creates a message from JSON bytes
func IngestMessageFromJSON(data []byte) (*IngestMessage, error) {
	var msg IngestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// permanentError marks a handler failure that redelivery cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the consumer rejects the delivery instead of
// requeueing it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
