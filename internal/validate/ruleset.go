package validate

// Check is a single field-level rule.
type Check func() error

// RuleSet is a named, ordered list of checks bound to one request. Validate
// stops at the first failing check.
type RuleSet struct {
	name   string
	checks []Check
}

// NewRuleSet starts an empty rule set.
func NewRuleSet(name string) *RuleSet {
	return &RuleSet{name: name}
}

// Name returns the request shape the rules belong to.
func (r *RuleSet) Name() string { return r.name }

// Add appends a check.
func (r *RuleSet) Add(c Check) *RuleSet {
	r.checks = append(r.checks, c)
	return r
}

// AddIf appends c only when cond holds, for optional fields.
func (r *RuleSet) AddIf(cond bool, c Check) *RuleSet {
	if cond {
		r.checks = append(r.checks, c)
	}
	return r
}

// Validate runs the checks in order and returns the first error.
func (r *RuleSet) Validate() error {
	for _, c := range r.checks {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}
