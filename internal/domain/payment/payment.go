// Package payment models the payment record attached to an order as a
// closed sum type. Every variant shares the amount and payment timestamp;
// variant-specific fields live on the concrete type, and consumers that need
// them (persistence, reporting) narrow via a type switch or the Kind tag.
package payment

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags a concrete payment variant. Storage maps the tag to a
// variant-specific column set.
type Kind string

// KindCard identifies a card payment.
const KindCard Kind = "card"

// Method is the polymorphic payment record. A Method is immutable once
// constructed; there is no re-typing a payment.
type Method interface {
	Kind() Kind
	Amount() decimal.Decimal
	PaidAt() time.Time
}

// InvalidFieldsError indicates a payment could not be constructed because a
// field failed validation.
type InvalidFieldsError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldsError) Error() string {
	return fmt.Sprintf("invalid payment field %s: %s", e.Field, e.Reason)
}

var (
	cardNumberPattern   = regexp.MustCompile(`^[0-9]{16}$`)
	securityCodePattern = regexp.MustCompile(`^[0-9]{3}$`)
)

// base carries the fields shared by every variant.
type base struct {
	amount decimal.Decimal
	paidAt time.Time
}

func (b base) Amount() decimal.Decimal { return b.amount }
func (b base) PaidAt() time.Time       { return b.paidAt }

// Card is a card payment. Number and security code are validated at
// construction and never change afterwards.
type Card struct {
	base
	number       string
	securityCode string
}

// Kind implements Method.
func (*Card) Kind() Kind { return KindCard }

// Number returns the 16-digit card number.
func (c *Card) Number() string { return c.number }

// SecurityCode returns the 3-digit security code.
func (c *Card) SecurityCode() string { return c.securityCode }

// CardDetails carries the caller-supplied fields specific to a card payment.
type CardDetails struct {
	Number       string
	SecurityCode string
}

// NewCard validates the card fields and constructs a Card payment.
func NewCard(amount decimal.Decimal, paidAt time.Time, d CardDetails) (*Card, error) {
	if amount.IsNegative() {
		return nil, &InvalidFieldsError{Field: "amount", Reason: "must not be negative"}
	}
	if !cardNumberPattern.MatchString(d.Number) {
		return nil, &InvalidFieldsError{Field: "cardNumber", Reason: "must be exactly 16 digits"}
	}
	if !securityCodePattern.MatchString(d.SecurityCode) {
		return nil, &InvalidFieldsError{Field: "securityCode", Reason: "must be exactly 3 digits"}
	}
	return &Card{
		base:         base{amount: amount, paidAt: paidAt},
		number:       d.Number,
		securityCode: d.SecurityCode,
	}, nil
}

// Details carries the variant-specific fields for New. Exactly the field
// matching the requested kind must be set.
type Details struct {
	Card *CardDetails
}

// New constructs the variant named by kind from the matching details.
func New(kind Kind, amount decimal.Decimal, paidAt time.Time, d Details) (Method, error) {
	switch kind {
	case KindCard:
		if d.Card == nil {
			return nil, &InvalidFieldsError{Field: "card", Reason: "card details required"}
		}
		return NewCard(amount, paidAt, *d.Card)
	default:
		return nil, &InvalidFieldsError{Field: "kind", Reason: fmt.Sprintf("unknown payment kind %q", string(kind))}
	}
}
