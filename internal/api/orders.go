package api

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/Julien07012002/boutique/internal/domain/order"
	"github.com/Julien07012002/boutique/internal/domain/payment"
)

// listOrders mirrors the reporting query: all orders newest-first with the
// user and payment attached.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListWithUserAndPayment(r.Context())
	if err != nil {
		logError(r, "list orders", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("total", func(e *jx.Encoder) { e.Num(jx.Num(o.Total.String())) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format(time.RFC3339)) })
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, line := range o.Lines {
					encodeOrderLine(e, line)
				}
			})
		})
		e.Field("user", func(e *jx.Encoder) {
			if o.User == nil {
				e.Null()
				return
			}
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(o.User.ID) })
				e.Field("email", func(e *jx.Encoder) { e.Str(o.User.Email) })
				e.Field("fullName", func(e *jx.Encoder) { e.Str(o.User.FullName) })
			})
		})
		e.Field("payment", func(e *jx.Encoder) { encodePayment(e, o.Payment) })
	})
}

func encodeOrderLine(e *jx.Encoder, line order.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(line.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(line.ProductName) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(line.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { e.Num(jx.Num(line.UnitPrice.String())) })
	})
}

// encodePayment narrows the payment variant to expose its specific fields.
// Card numbers are masked down to the last four digits.
func encodePayment(e *jx.Encoder, m payment.Method) {
	if m == nil {
		e.Null()
		return
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(m.Kind())) })
		e.Field("amount", func(e *jx.Encoder) { e.Num(jx.Num(m.Amount().String())) })
		e.Field("paidAt", func(e *jx.Encoder) { e.Str(m.PaidAt().Format(time.RFC3339)) })
		switch v := m.(type) {
		case *payment.Card:
			e.Field("cardLast4", func(e *jx.Encoder) { e.Str(v.Number()[12:]) })
		}
	})
}
