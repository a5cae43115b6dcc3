package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/domain/failure"
	"github.com/xenking/orderdesk/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// decodeBody reads the request body and hands each top-level field to fn.
// Unknown fields are skipped by fn.
func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return failure.New(failure.ReasonMalformedRequest, err.Error())
	}
	if err := decodeObject(jx.DecodeBytes(body), fn); err != nil {
		if _, ok := failure.From(err); ok {
			return err
		}
		return failure.New(failure.ReasonMalformedRequest, err.Error())
	}
	return nil
}

func decodeObject(d *jx.Decoder, fn func(d *jx.Decoder, key string) error) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	})
}

// optStr reads a string that may be null.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// optDate reads a YYYY-MM-DD date that may be null or empty.
func optDate(d *jx.Decoder, field string) (*time.Time, error) {
	s, err := optStr(d)
	if err != nil || s == "" {
		return nil, err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, failure.New(failure.ReasonMalformedRequest, field+" must be a YYYY-MM-DD date")
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already written; a failed write means the client left.
	_, _ = w.Write(e.Bytes())
}

// writeError renders err as the failure envelope and logs it at the failure's
// severity. Errors that are not failures become UNEXPECTED; their detail only
// reaches the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	f, ok := failure.From(err)
	if !ok {
		f = failure.Unexpected(err)
	}

	lg := zctx.From(r.Context())
	fields := []zap.Field{
		zap.String("reason", string(f.Reason())),
		zap.String("kind", string(f.Kind())),
		zap.Int("status", f.Status()),
	}
	if f.Severity() == failure.SeverityError {
		lg.Error(f.TechnicalMessage(), append(fields, zap.Error(err))...)
	} else {
		lg.Warn(f.TechnicalMessage(), fields...)
	}

	requestID := httpmiddleware.RequestIDFromContext(r.Context())
	writeJSON(w, f.Status(), func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(f.Status()) })
			e.Field("kind", func(e *jx.Encoder) { e.Str(string(f.Kind())) })
			e.Field("reason", func(e *jx.Encoder) { e.Str(string(f.Reason())) })
			e.Field("message", func(e *jx.Encoder) { e.Str(f.UserMessage()) })
			e.Field("severity", func(e *jx.Encoder) { e.Str(string(f.Severity())) })
			if requestID != "" {
				e.Field("requestId", func(e *jx.Encoder) { e.Str(requestID) })
			}
		})
	})
}

// writeUnauthorized is used before an identity exists; it is not part of the
// failure taxonomy.
func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusUnauthorized) })
			e.Field("message", func(e *jx.Encoder) { e.Str("unauthorized") })
		})
	})
}

var errNoIdentity = errors.New("request reached a protected handler without identity")
