// Package failure defines the structured failure returned by validators,
// guards and the order state machine, and rendered unchanged at the boundary.
package failure

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation             Kind = "VALIDATION_ERROR"
	KindCapacityExceeded       Kind = "CAPACITY_EXCEEDED"
	KindIllegalStateTransition Kind = "ILLEGAL_STATE_TRANSITION"
	KindNotFound               Kind = "NOT_FOUND"
	KindUnexpected             Kind = "UNEXPECTED"
)

// Severity is the log level a failure is reported at.
type Severity string

const (
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Reason identifies a specific failure cause.
type Reason string

const (
	ReasonFieldEmpty             Reason = "FIELD_EMPTY"
	ReasonInvalidEmail           Reason = "INVALID_EMAIL"
	ReasonInvalidPhone           Reason = "INVALID_PHONE_NUMBER"
	ReasonInvalidNumericString   Reason = "INVALID_NUMERIC_STRING"
	ReasonDateInFuture           Reason = "DATE_IN_FUTURE"
	ReasonWeakPassword           Reason = "WEAK_PASSWORD"
	ReasonEmailTaken             Reason = "EMAIL_ALREADY_REGISTERED"
	ReasonMalformedRequest       Reason = "MALFORMED_REQUEST"
	ReasonInvalidQuantity        Reason = "INVALID_QUANTITY"
	ReasonCustomersCapReached    Reason = "CUSTOMERS_CAP_REACHED"
	ReasonOrderNotOpen           Reason = "ORDER_NOT_OPEN"
	ReasonOrderNotPlaced         Reason = "ORDER_NOT_PLACED"
	ReasonOrderHasNoItems        Reason = "ORDER_HAS_NO_ITEMS"
	ReasonOrderEmailNotAvailable Reason = "ORDER_EMAIL_NOT_AVAILABLE"
	ReasonIllegalTransition      Reason = "ILLEGAL_TRANSITION"
	ReasonOrderNotFound          Reason = "ORDER_NOT_FOUND"
	ReasonCustomerNotFound       Reason = "CUSTOMER_NOT_FOUND"
	ReasonProductNotFound        Reason = "PRODUCT_NOT_FOUND"
	ReasonForbidden              Reason = "FORBIDDEN_FOR_AGENT"
	ReasonUnexpected             Reason = "UNEXPECTED"
)

type template struct {
	kind      Kind
	user      string
	technical string
	// status overrides the kind's HTTP status when set.
	status int
}

// reasons maps every reason to its kind and message templates. Templates
// are formatted with the arguments passed to New.
var reasons = map[Reason]template{
	ReasonFieldEmpty: {
		kind:      KindValidation,
		user:      "Please fill in the %s.",
		technical: "field %q is empty",
	},
	ReasonInvalidEmail: {
		kind:      KindValidation,
		user:      "Please provide a valid email address.",
		technical: "field \"email\" has invalid shape: %q",
	},
	ReasonInvalidPhone: {
		kind:      KindValidation,
		user:      "Please provide a valid phone number.",
		technical: "field \"phone\" has invalid shape: %q",
	},
	ReasonInvalidNumericString: {
		kind:      KindValidation,
		user:      "The %s must consist of exactly %d digits.",
		technical: "field %q must be %d ASCII digits",
	},
	ReasonDateInFuture: {
		kind:      KindValidation,
		user:      "The %s cannot be in the future.",
		technical: "field %q is after today: %s",
	},
	ReasonWeakPassword: {
		kind:      KindValidation,
		user:      "The password must be at least 8 characters and mix upper and lower case letters, digits and symbols.",
		technical: "field \"password\" does not meet strength rules",
	},
	ReasonEmailTaken: {
		kind:      KindValidation,
		user:      "This email address is already registered.",
		technical: "email %q is already registered",
	},
	ReasonMalformedRequest: {
		kind:      KindValidation,
		user:      "The request could not be read.",
		technical: "malformed request body: %s",
	},
	ReasonInvalidQuantity: {
		kind:      KindValidation,
		user:      "Quantity must be greater than zero.",
		technical: "field \"quantity\" must be positive, got %d for product %s",
	},
	ReasonCustomersCapReached: {
		kind:      KindCapacityExceeded,
		user:      "You have reached the maximum number of customers.",
		technical: "customers cap %d reached for manager %s agent %s (count %d)",
	},
	ReasonOrderNotOpen: {
		kind:      KindIllegalStateTransition,
		user:      "This order can no longer be changed.",
		technical: "order %s is in %s status, CREATED required",
	},
	ReasonOrderNotPlaced: {
		kind:      KindIllegalStateTransition,
		user:      "This order is not placed.",
		technical: "order %s is in %s status, PLACED required",
	},
	ReasonOrderHasNoItems: {
		kind:      KindValidation,
		user:      "Add at least one item before placing the order.",
		technical: "order %s has no items",
	},
	ReasonOrderEmailNotAvailable: {
		kind:      KindValidation,
		user:      "The order has no email address to notify.",
		technical: "no notification recipient for order %s in %s status",
	},
	ReasonIllegalTransition: {
		kind:      KindIllegalStateTransition,
		user:      "This order cannot be moved to the requested status.",
		technical: "order %s: transition %s -> %s is not allowed",
	},
	ReasonOrderNotFound: {
		kind:      KindNotFound,
		user:      "Order not found.",
		technical: "order %s not found",
	},
	ReasonCustomerNotFound: {
		kind:      KindNotFound,
		user:      "Customer not found.",
		technical: "customer %s not found",
	},
	ReasonProductNotFound: {
		kind:      KindNotFound,
		user:      "Product not found.",
		technical: "product %s not found",
	},
	ReasonForbidden: {
		kind:      KindValidation,
		user:      "Only managers can perform this action.",
		technical: "agent %s attempted manager-only action %s",
		status:    http.StatusForbidden,
	},
	ReasonUnexpected: {
		kind:      KindUnexpected,
		user:      "Something went wrong. Please try again later.",
		technical: "%s",
	},
}

// Failure is the descriptor of a failed operation. Fields are fixed at
// construction.
type Failure struct {
	reason    Reason
	kind      Kind
	status    int
	user      string
	technical string
	severity  Severity
}

// New builds a failure for reason. The arguments fill the user template
// first; the technical template consumes them as well.
func New(reason Reason, args ...any) *Failure {
	t, ok := reasons[reason]
	if !ok {
		t = reasons[ReasonUnexpected]
		args = []any{fmt.Sprintf("unknown reason %q", reason)}
		reason = ReasonUnexpected
	}
	status := t.status
	if status == 0 {
		status = statusOf(t.kind)
	}
	return &Failure{
		reason:    reason,
		kind:      t.kind,
		status:    status,
		user:      format(t.user, args),
		technical: format(t.technical, args),
		severity:  severityOf(t.kind),
	}
}

// Unexpected maps an unclassified error to an UNEXPECTED failure. The
// user message stays generic; the cause only reaches the technical message.
func Unexpected(err error) *Failure {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return New(ReasonUnexpected, msg)
}

// From extracts a Failure from err.
func From(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Is reports whether err is a failure with the given reason.
func Is(err error, reason Reason) bool {
	f, ok := From(err)
	return ok && f.reason == reason
}

func (f *Failure) Error() string {
	return string(f.kind) + ": " + f.technical
}

func (f *Failure) Reason() Reason { return f.reason }

func (f *Failure) Kind() Kind { return f.kind }

// Status is the HTTP status code the failure maps to.
func (f *Failure) Status() int { return f.status }

// UserMessage is safe to show to the caller.
func (f *Failure) UserMessage() string { return f.user }

// TechnicalMessage carries diagnostic detail for logs.
func (f *Failure) TechnicalMessage() string { return f.technical }

func (f *Failure) Severity() Severity { return f.severity }

func statusOf(k Kind) int {
	switch k {
	case KindValidation, KindCapacityExceeded, KindIllegalStateTransition:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func severityOf(k Kind) Severity {
	if k == KindUnexpected {
		return SeverityError
	}
	return SeverityWarn
}

// format fills a template, tolerating templates that use fewer verbs than
// there are arguments.
func format(tmpl string, args []any) string {
	n := countVerbs(tmpl)
	if n > len(args) {
		n = len(args)
	}
	return fmt.Sprintf(tmpl, args[:n]...)
}

func countVerbs(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}
