package httpmiddleware

import (
	"fmt"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/domain/failure"
)

// Recovery returns a middleware that recovers from panics, logs them with a
// stack trace, and responds with the UNEXPECTED failure envelope.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				lg := zctx.From(r.Context())
				lg.Error("Panic recovered",
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)

				f := failure.Unexpected(fmt.Errorf("panic: %v", rec))
				e := jx.GetEncoder()
				defer jx.PutEncoder(e)
				e.Obj(func(e *jx.Encoder) {
					e.Field("code", func(e *jx.Encoder) { e.Int(f.Status()) })
					e.Field("kind", func(e *jx.Encoder) { e.Str(string(f.Kind())) })
					e.Field("reason", func(e *jx.Encoder) { e.Str(string(f.Reason())) })
					e.Field("message", func(e *jx.Encoder) { e.Str(f.UserMessage()) })
					e.Field("severity", func(e *jx.Encoder) { e.Str(string(f.Severity())) })
					if id := RequestIDFromContext(r.Context()); id != "" {
						e.Field("requestId", func(e *jx.Encoder) { e.Str(id) })
					}
				})

				w.Header().Set("Connection", "close")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(f.Status())
				_, _ = w.Write(e.Bytes())
			}()
			next.ServeHTTP(w, r)
		})
	}
}
