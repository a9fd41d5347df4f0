package api

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Julien07012002/boutique/internal/domain/cart"
	"github.com/Julien07012002/boutique/internal/domain/product"
)

type addItemRequest struct {
	ProductID string
	Quantity  int
}

func decodeAddItemRequest(r *http.Request) (addItemRequest, error) {
	var req addItemRequest
	d := jx.Decode(r.Body, decodeBufSize)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeQuantityRequest(r *http.Request) (int, error) {
	var quantity int
	d := jx.Decode(r.Body, decodeBufSize)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return quantity, err
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	scope := r.PathValue("scope")
	req, err := decodeAddItemRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId required")
		return
	}

	if err := h.carts.Add(r.Context(), scope, req.ProductID, req.Quantity); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	scope := r.PathValue("scope")
	productID := r.PathValue("product")
	quantity, err := decodeQuantityRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.carts.SetQuantity(r.Context(), scope, productID, quantity); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	scope := r.PathValue("scope")
	productID := r.PathValue("product")

	if err := h.carts.Remove(r.Context(), scope, productID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), r.PathValue("scope")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listCartItems returns the cart rows joined with current product data so
// the storefront can render names and a running total.
func (h *Handler) listCartItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.carts.Items(ctx, r.PathValue("scope"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	byID := make(map[string]product.Product)
	if len(items) > 0 {
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ProductID
		}
		products, err := h.products.GetByIDs(ctx, ids)
		if err != nil {
			logError(r, "get cart products", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		for _, p := range products {
			byID[p.ID] = p
		}
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		total := decimal.Zero
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range items {
					// Rows whose product is gone from the catalog are
					// omitted rather than rendered with zero-value data.
					p, ok := byID[it.ProductID]
					if !ok {
						continue
					}
					lineTotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
					total = total.Add(lineTotal)
					encodeCartItem(e, it, p, lineTotal)
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { e.Num(jx.Num(total.String())) })
	})
	writeJSON(w, http.StatusOK, &e)
}

func encodeCartItem(e *jx.Encoder, it cart.Item, p product.Product, lineTotal decimal.Decimal) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { e.Num(jx.Num(p.Price.String())) })
		e.Field("lineTotal", func(e *jx.Encoder) { e.Num(jx.Num(lineTotal.String())) })
	})
}
