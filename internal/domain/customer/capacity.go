package customer

import "github.com/xenking/orderdesk/internal/domain/failure"

// MaxCustomerCap is the number of customers a single owner may register.
const MaxCustomerCap = 100

// ValidateCustomersCap fails once currentCount has reached MaxCustomerCap.
func ValidateCustomersCap(currentCount int, managerID, agentID string) error {
	if currentCount >= MaxCustomerCap {
		if agentID == "" {
			agentID = "-"
		}
		return failure.New(failure.ReasonCustomersCapReached, MaxCustomerCap, managerID, agentID, currentCount)
	}
	return nil
}
