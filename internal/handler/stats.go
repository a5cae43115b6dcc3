package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/stats"
)

// Stats handles GET /api/stats. Agents see their own records only.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request, who auth.Identity) {
	scope := stats.Scope{ManagerID: who.ManagerID, AgentID: who.AgentID}
	s, err := h.svc.Stats.Build(r.Context(), scope, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("year", func(e *jx.Encoder) { e.Int(s.Year) })
			e.Field("month", func(e *jx.Encoder) { e.Int(int(s.Month)) })
			e.Field("links", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("byManager", func(e *jx.Encoder) { e.Int(s.Links.ByManager) })
					e.Field("byAgents", func(e *jx.Encoder) { e.Int(s.Links.ByAgents) })
					e.Field("perAgent", func(e *jx.Encoder) {
						e.Arr(func(e *jx.Encoder) {
							for _, a := range s.Links.PerAgent {
								e.Obj(func(e *jx.Encoder) {
									e.Field("agentId", func(e *jx.Encoder) { e.Str(a.AgentID) })
									e.Field("agentName", func(e *jx.Encoder) { e.Str(a.AgentName) })
									e.Field("count", func(e *jx.Encoder) { e.Int(a.Count) })
								})
							}
						})
					})
				})
			})
			e.Field("ordersByStatus", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					for _, st := range order.Statuses {
						e.Field(st.String(), func(e *jx.Encoder) { e.Int(s.OrdersByStatus[st]) })
					}
				})
			})
			e.Field("monthlyIncome", func(e *jx.Encoder) { e.Str(s.MonthlyIncome.StringFixed(2)) })
			e.Field("yearlyData", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, m := range s.YearlyData {
						e.Obj(func(e *jx.Encoder) {
							e.Field("month", func(e *jx.Encoder) { e.Int(int(m.Month)) })
							e.Field("revenue", func(e *jx.Encoder) { e.Str(m.Revenue.StringFixed(2)) })
							e.Field("completedOrders", func(e *jx.Encoder) { e.Int(m.CompletedOrders) })
						})
					}
				})
			})
		})
	})
}
