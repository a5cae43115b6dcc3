package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/orderdesk/internal/domain/account"
	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/failure"
)

// RegisterBusiness handles POST /api/businesses.
func (h *Handler) RegisterBusiness(w http.ResponseWriter, r *http.Request) {
	var (
		b account.CreateBusinessRequest
		m account.CreateManagerRequest
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "business":
			return decodeObject(d, func(d *jx.Decoder, key string) (err error) {
				switch key {
				case "name":
					b.Name, err = d.Str()
				case "email":
					b.Email, err = d.Str()
				case "phone":
					b.Phone, err = d.Str()
				case "taxId":
					b.TaxID, err = d.Str()
				case "foundedOn":
					var t *time.Time
					if t, err = optDate(d, "foundedOn"); err == nil && t != nil {
						b.FoundedOn = *t
					}
				default:
					err = d.Skip()
				}
				return err
			})
		case "manager":
			return decodeObject(d, func(d *jx.Decoder, key string) (err error) {
				switch key {
				case "firstName":
					m.FirstName, err = d.Str()
				case "lastName":
					m.LastName, err = d.Str()
				case "email":
					m.Email, err = d.Str()
				case "phone":
					m.Phone, err = d.Str()
				case "password":
					m.Password, err = d.Str()
				default:
					err = d.Skip()
				}
				return err
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if b.FoundedOn.IsZero() {
		writeError(w, r, failure.New(failure.ReasonFieldEmpty, "founding date"))
		return
	}

	reg, err := h.svc.Accounts.Register(r.Context(), b, m)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("business", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(reg.Business.ID) })
					e.Field("name", func(e *jx.Encoder) { e.Str(reg.Business.Name) })
				})
			})
			e.Field("manager", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(reg.Manager.ID) })
					e.Field("email", func(e *jx.Encoder) { e.Str(reg.Manager.Email) })
				})
			})
		})
	})
}

// CreateAgent handles POST /api/agents.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	var req account.CreateAgentRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			req.Name, err = d.Str()
		case "email":
			req.Email, err = d.Str()
		case "phone":
			req.Phone, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.svc.Accounts.AddAgent(r.Context(), who, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(a.ID) })
			e.Field("managerId", func(e *jx.Encoder) { e.Str(a.ManagerID) })
			e.Field("name", func(e *jx.Encoder) { e.Str(a.Name) })
			e.Field("email", func(e *jx.Encoder) { e.Str(a.Email) })
			e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
		})
	})
}
