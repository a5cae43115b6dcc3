package account

import (
	"time"

	"github.com/xenking/orderdesk/internal/validate"
)

// TaxIDLength is the number of digits in a business tax id.
const TaxIDLength = 9

// ValidateBusiness checks a business registration in declaration order.
func ValidateBusiness(req CreateBusinessRequest, now time.Time) error {
	return validate.NewRuleSet("CreateBusinessRequest").
		Add(func() error { return validate.NonEmpty(req.Name, "business name") }).
		Add(func() error { return validate.Email(req.Email) }).
		Add(func() error { return validate.PhoneNumber(req.Phone) }).
		Add(func() error { return validate.NumericString(req.TaxID, TaxIDLength, "tax id") }).
		Add(func() error { return validate.DateNotFuture(req.FoundedOn, now, "founding date") }).
		Validate()
}

// ValidateManager checks a manager registration in declaration order.
func ValidateManager(req CreateManagerRequest) error {
	return validate.NewRuleSet("CreateManagerRequest").
		Add(func() error { return validate.NonEmpty(req.FirstName, "first name") }).
		Add(func() error { return validate.NonEmpty(req.LastName, "last name") }).
		Add(func() error { return validate.Email(req.Email) }).
		Add(func() error { return validate.PhoneNumber(req.Phone) }).
		Add(func() error { return validate.StrongPassword(req.Password) }).
		Validate()
}

// ValidateAgent checks an agent request in declaration order.
func ValidateAgent(req CreateAgentRequest) error {
	return validate.NewRuleSet("CreateAgentRequest").
		Add(func() error { return validate.NonEmpty(req.Name, "name") }).
		Add(func() error { return validate.Email(req.Email) }).
		Add(func() error { return validate.PhoneNumber(req.Phone) }).
		Validate()
}
