package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/failure"
	"github.com/xenking/orderdesk/internal/domain/order"
)

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	var req order.CreateRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		if key == "customerId" {
			req.CustomerID, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.svc.Orders.Create(r.Context(), who, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	h.respondOrder(w, r, who, h.svc.Orders.Get)
}

// AddOrderItems handles POST /api/orders/{id}/items.
func (h *Handler) AddOrderItems(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	var items []order.ItemRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var it order.ItemRequest
			err := decodeObject(d, func(d *jx.Decoder, key string) (err error) {
				switch key {
				case "productId":
					it.ProductID, err = d.Str()
				case "quantity":
					it.Quantity, err = d.Int()
				default:
					err = d.Skip()
				}
				return err
			})
			items = append(items, it)
			return err
		})
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(items) == 0 {
		writeError(w, r, failure.New(failure.ReasonFieldEmpty, "items"))
		return
	}

	o, err := h.svc.Orders.AddItems(r.Context(), who, r.PathValue("id"), items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// PlaceOrder handles POST /api/orders/{id}/place.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	h.respondOrder(w, r, who, h.svc.Orders.Place)
}

// CompleteOrder handles POST /api/orders/{id}/complete.
func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	h.respondOrder(w, r, who, h.svc.Orders.Complete)
}

// CancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	h.respondOrder(w, r, who, h.svc.Orders.Cancel)
}

// OrderRecipient handles GET /api/orders/{id}/recipient.
func (h *Handler) OrderRecipient(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	id := r.PathValue("id")
	email, err := h.svc.Orders.NotificationRecipient(r.Context(), who, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orderId", func(e *jx.Encoder) { e.Str(id) })
			e.Field("email", func(e *jx.Encoder) { e.Str(email) })
		})
	})
}

type orderOp func(ctx context.Context, who auth.Identity, id string) (*order.Order, error)

func (h *Handler) respondOrder(w http.ResponseWriter, r *http.Request, who auth.Identity, op orderOp) {
	o, err := op(r.Context(), who, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("customerId", func(e *jx.Encoder) { e.Str(o.CustomerID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(o.Status.String()) })
		e.Field("total", func(e *jx.Encoder) { e.Str(o.Total.StringFixed(2)) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("unitPrice", func(e *jx.Encoder) { e.Str(it.UnitPrice.StringFixed(2)) })
						e.Field("amount", func(e *jx.Encoder) { e.Str(it.Amount().StringFixed(2)) })
					})
				}
			})
		})
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
		e.Field("updatedAt", func(e *jx.Encoder) { e.Str(o.UpdatedAt.UTC().Format(time.RFC3339)) })
		if o.CompletedAt != nil {
			e.Field("completedAt", func(e *jx.Encoder) { e.Str(o.CompletedAt.UTC().Format(time.RFC3339)) })
		}
	})
}
