package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/orderdesk/internal/domain/auth"
)

// CreateLink handles POST /api/links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	var customerID string
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		if key == "customerId" {
			customerID, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	l, err := h.svc.Links.Create(r.Context(), who, customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(l.ID) })
			e.Field("customerId", func(e *jx.Encoder) { e.Str(l.CustomerID) })
			e.Field("token", func(e *jx.Encoder) { e.Str(l.Token) })
			e.Field("createdAt", func(e *jx.Encoder) { e.Str(l.CreatedAt.UTC().Format(time.RFC3339)) })
		})
	})
}
