package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/customer"
)

type contactFields struct {
	Name      string
	Email     string
	Phone     string
	BirthDate *time.Time
}

func decodeContact(r *http.Request) (contactFields, error) {
	var c contactFields
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			c.Name, err = d.Str()
		case "email":
			c.Email, err = optStr(d)
		case "phone":
			c.Phone, err = d.Str()
		case "birthDate":
			c.BirthDate, err = optDate(d, "birthDate")
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

// CreateCustomer handles POST /api/customers.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	c, err := decodeContact(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.svc.Customers.Create(r.Context(), who, customer.CreateRequest(c))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCustomer(e, created) })
}

// UpdateCustomer handles PUT /api/customers/{id}.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	c, err := decodeContact(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.svc.Customers.Update(r.Context(), who, r.PathValue("id"), customer.UpdateRequest(c))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCustomer(e, updated) })
}

// CustomerCapacity handles GET /api/customers/capacity.
func (h *Handler) CustomerCapacity(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	c, err := h.svc.Customers.Capacity(r.Context(), who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("count", func(e *jx.Encoder) { e.Int(c.Count) })
			e.Field("max", func(e *jx.Encoder) { e.Int(c.Max) })
		})
	})
}

func encodeCustomer(e *jx.Encoder, c *customer.Customer) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
		e.Field("managerId", func(e *jx.Encoder) { e.Str(c.ManagerID) })
		if c.AgentID != "" {
			e.Field("agentId", func(e *jx.Encoder) { e.Str(c.AgentID) })
		}
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
		if c.Email != "" {
			e.Field("email", func(e *jx.Encoder) { e.Str(c.Email) })
		}
		e.Field("phone", func(e *jx.Encoder) { e.Str(c.Phone) })
		if c.BirthDate != nil {
			e.Field("birthDate", func(e *jx.Encoder) { e.Str(c.BirthDate.Format(time.DateOnly)) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(c.CreatedAt.UTC().Format(time.RFC3339)) })
	})
}
