package models

// PlanInfo описание тарифного плана для каталога.
type PlanInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int    `json:"price"`
	OriginalPrice int    `json:"original_price"`
	Period        string `json:"period"`
	Savings       string `json:"savings,omitempty"`
	Description   string `json:"description"`
}

// Benefit описание преимущества Pro-подписки для каталога.
type Benefit struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FeatureKey  string `json:"feature_key"`
}

// DefaultPlans возвращает статический каталог планов.
func DefaultPlans() []PlanInfo {
	return []PlanInfo{
		{
			ID:            PlanMonthly,
			Name:          "Monthly Plan",
			Price:         999,
			OriginalPrice: 1299,
			Period:        "month",
			Description:   "Full access to all Pro features on a monthly billing cycle",
		},
		{
			ID:            PlanAnnual,
			Name:          "Annual Plan",
			Price:         9990,
			OriginalPrice: 15588,
			Period:        "year",
			Savings:       "Save ₹5,598 (36%)",
			Description:   "Full access to all Pro features at our best value rate",
		},
	}
}

// DefaultBenefits возвращает статический список преимуществ Pro.
func DefaultBenefits() []Benefit {
	return []Benefit{
		{
			Title:       "Unlimited Scans",
			Description: "Scan unlimited plant images for disease detection with no daily restrictions",
			FeatureKey:  "unlimitedScans",
		},
		{
			Title:       "Advanced Analytics",
			Description: "Access detailed analysis reports with treatment recommendations",
			FeatureKey:  "advancedAnalytics",
		},
		{
			Title:       "Data Export",
			Description: "Export your data in multiple formats (CSV, PDF, JSON)",
			FeatureKey:  "dataExport",
		},
		{
			Title:       "Historical Data",
			Description: "Access historical scans and track progress over time",
			FeatureKey:  "historicalData",
		},
		{
			Title:       "Premium Support",
			Description: "Get prioritized support from our plant health experts",
			FeatureKey:  "premiumSupport",
		},
		{
			Title:       "API Access",
			Description: "Integrate our AI directly into your own applications",
			FeatureKey:  "apiAccess",
		},
	}
}
