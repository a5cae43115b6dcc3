package customer

import (
	"time"

	"github.com/xenking/orderdesk/internal/validate"
)

// ValidateCreate checks a registration request field by field and returns
// the first failure.
func ValidateCreate(req CreateRequest, now time.Time) error {
	return contactRules("CreateCustomerRequest", req.Name, req.Email, req.Phone, req.BirthDate, now).Validate()
}

// ValidateUpdate applies the same rules as ValidateCreate to an update.
func ValidateUpdate(req UpdateRequest, now time.Time) error {
	return contactRules("UpdateCustomerRequest", req.Name, req.Email, req.Phone, req.BirthDate, now).Validate()
}

func contactRules(name, fullName, email, phone string, birthDate *time.Time, now time.Time) *validate.RuleSet {
	return validate.NewRuleSet(name).
		Add(func() error { return validate.NonEmpty(fullName, "name") }).
		AddIf(email != "", func() error { return validate.Email(email) }).
		Add(func() error { return validate.PhoneNumber(phone) }).
		AddIf(birthDate != nil, func() error { return validate.DateNotFuture(*birthDate, now, "birth date") })
}
