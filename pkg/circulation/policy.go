package circulation

import "time"

// Policies is the host-supplied bundle of pure business rules. Every hook is
// required; NewEngine rejects a bundle with missing hooks.
type Policies struct {
	Checkout  CheckoutPolicy
	Extension ExtensionPolicy
	Request   RequestPolicy
}

type CheckoutPolicy struct {
	// DurationDefault computes the loan period when the caller gave none.
	DurationDefault func(loan *Loan) (start, end time.Time)
	// DurationValidate accepts or rejects a loan period.
	DurationValidate func(loan *Loan, start, end time.Time) bool
	// ItemCanCirculate reports whether the item type is loanable at all.
	ItemCanCirculate func(itemPID string) bool
}

type ExtensionPolicy struct {
	// FromEndDate extends from the current end date when true, otherwise
	// from the transaction date.
	FromEndDate bool
	// DurationDefault returns the new end date for an extension starting at from.
	DurationDefault func(loan *Loan, from time.Time) time.Time
	// MaxCount bounds Loan.ExtensionCount.
	MaxCount func(loan *Loan) int
}

type RequestPolicy struct {
	// CanBeRequested reports whether the loan's item (or document, for
	// document-level requests) may be requested by its patron.
	CanBeRequested func(loan *Loan) bool
}

// Validate reports every missing hook as a single *ConfigurationError.
func (p Policies) Validate() error {
	var missing []string
	if p.Checkout.DurationDefault == nil {
		missing = append(missing, "checkout.duration_default")
	}
	if p.Checkout.DurationValidate == nil {
		missing = append(missing, "checkout.duration_validate")
	}
	if p.Checkout.ItemCanCirculate == nil {
		missing = append(missing, "checkout.item_can_circulate")
	}
	if p.Extension.DurationDefault == nil {
		missing = append(missing, "extension.duration_default")
	}
	if p.Extension.MaxCount == nil {
		missing = append(missing, "extension.max_count")
	}
	if p.Request.CanBeRequested == nil {
		missing = append(missing, "request.can_be_requested")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// PolicyConfig holds the tunables of the stock policy set.
type PolicyConfig struct {
	LoanDuration      time.Duration `env:"CIRCULATION_LOAN_DURATION" envDefault:"336h"`
	MaxLoanDuration   time.Duration `env:"CIRCULATION_MAX_LOAN_DURATION" envDefault:"2160h"`
	ExtensionDuration time.Duration `env:"CIRCULATION_EXTENSION_DURATION" envDefault:"168h"`
	MaxExtensions     int           `env:"CIRCULATION_MAX_EXTENSIONS" envDefault:"2"`
	ExtendFromEndDate bool          `env:"CIRCULATION_EXTEND_FROM_END_DATE" envDefault:"true"`
}

// NewDefaultPolicies builds a complete policy bundle from cfg. Every item
// circulates and can be requested; hosts with richer rules replace
// individual hooks on the returned value.
//
// A zero MaxLoanDuration disables the upper bound on loan periods.
func NewDefaultPolicies(cfg PolicyConfig) Policies {
	return Policies{
		Checkout: CheckoutPolicy{
			DurationDefault: func(loan *Loan) (time.Time, time.Time) {
				start := loan.TransactionDate
				return start, start.Add(cfg.LoanDuration)
			},
			DurationValidate: func(_ *Loan, start, end time.Time) bool {
				if end.Before(start) {
					return false
				}
				return cfg.MaxLoanDuration <= 0 || end.Sub(start) <= cfg.MaxLoanDuration
			},
			ItemCanCirculate: func(string) bool { return true },
		},
		Extension: ExtensionPolicy{
			FromEndDate: cfg.ExtendFromEndDate,
			DurationDefault: func(_ *Loan, from time.Time) time.Time {
				return from.Add(cfg.ExtensionDuration)
			},
			MaxCount: func(*Loan) int { return cfg.MaxExtensions },
		},
		Request: RequestPolicy{
			CanBeRequested: func(*Loan) bool { return true },
		},
	}
}
