package models

// Feature types metered per billing cycle.
const (
	FeatureInvoices = "invoices"
	FeatureSales    = "sales"
	FeatureExpenses = "expenses"
)

// Plan identifiers. Prices are stored in kobo.
const (
	PlanFree    = "free"
	PlanWeekly  = "weekly"
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// Plan describes a subscription tier: its price, duration and the number of
// metered actions allowed per billing cycle.
type Plan struct {
	Name         string         `json:"name"`
	PriceKobo    int64          `json:"price_kobo"`
	DurationDays int            `json:"duration_days"`
	Limits       map[string]int `json:"limits"`
}

// Plans is the tier catalogue. Unknown plan names fall back to free.
var Plans = map[string]Plan{
	PlanFree: {
		Name:         PlanFree,
		PriceKobo:    0,
		DurationDays: 0,
		Limits: map[string]int{
			FeatureInvoices: 5,
			FeatureSales:    50,
			FeatureExpenses: 20,
		},
	},
	PlanWeekly: {
		Name:         PlanWeekly,
		PriceKobo:    140000,
		DurationDays: 7,
		Limits: map[string]int{
			FeatureInvoices: 100,
			FeatureSales:    250,
			FeatureExpenses: 100,
		},
	},
	PlanMonthly: {
		Name:         PlanMonthly,
		PriceKobo:    450000,
		DurationDays: 30,
		Limits: map[string]int{
			FeatureInvoices: 450,
			FeatureSales:    1500,
			FeatureExpenses: 500,
		},
	},
	PlanYearly: {
		Name:         PlanYearly,
		PriceKobo:    5000000,
		DurationDays: 365,
		Limits: map[string]int{
			FeatureInvoices: 6000,
			FeatureSales:    18000,
			FeatureExpenses: 2000,
		},
	},
}

// PlanByName returns the named plan, defaulting to the free tier.
func PlanByName(name string) Plan {
	if p, ok := Plans[name]; ok {
		return p
	}
	return Plans[PlanFree]
}

// FeatureLimit returns the per-cycle limit of a feature on the given plan.
func FeatureLimit(plan, feature string) int {
	return PlanByName(plan).Limits[feature]
}
