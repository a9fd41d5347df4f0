package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/Julien07012002/boutique/internal/domain/checkout"
	"github.com/Julien07012002/boutique/internal/domain/payment"
)

func decodeCheckoutRequest(r *http.Request) (checkout.PaymentDetails, error) {
	var details checkout.PaymentDetails
	card := payment.CardDetails{}
	d := jx.Decode(r.Body, decodeBufSize)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "payment" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "kind":
				var kind string
				kind, err = d.Str()
				details.Kind = payment.Kind(kind)
			case "amount":
				details.Amount, err = decodeDecimal(d)
			case "cardNumber":
				card.Number, err = d.Str()
			case "securityCode":
				card.SecurityCode, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		})
	})
	if err != nil {
		return details, err
	}
	if details.Kind == payment.KindCard {
		details.Card = &card
	}
	return details, nil
}

func (h *Handler) checkoutCart(w http.ResponseWriter, r *http.Request) {
	scope := r.PathValue("scope")
	details, err := decodeCheckoutRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	orderID, err := h.checkout.Checkout(r.Context(), checkout.Request{
		Scope:   scope,
		Payment: details,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Str(orderID) })
	})
	writeJSON(w, http.StatusCreated, &e)
}
