package models

import "github.com/gosimple/slug"

// CreditPackage is a one-off credit purchase option.
type CreditPackage struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Credits    int64  `json:"credits"`
	Bonus      int64  `json:"bonus,omitempty"`
	PriceCents int64  `json:"priceCents"`
	PriceID    string `json:"priceId"`
}

// SubscriptionPlan is a recurring plan. Credits of -1 means unlimited.
type SubscriptionPlan struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	Tier           string `json:"tier"`
	MonthlyCredits int64  `json:"monthlyCredits"`
	PriceCents     int64  `json:"priceCents"`
	PriceID        string `json:"priceId"`
}

// Unlimited reports whether the plan grants unlimited credits.
func (p SubscriptionPlan) Unlimited() bool {
	return p.MonthlyCredits < 0
}

// CreditPackages returns the one-off packages on sale.
func CreditPackages() []CreditPackage {
	return []CreditPackage{
		{Key: slug.Make("Starter"), Name: "Starter", Credits: 100, PriceCents: 999, PriceID: "price_starter"},
		{Key: slug.Make("Creator"), Name: "Creator", Credits: 250, Bonus: 50, PriceCents: 1999, PriceID: "price_creator"},
		{Key: slug.Make("Professional"), Name: "Professional", Credits: 600, Bonus: 100, PriceCents: 3999, PriceID: "price_professional"},
	}
}

// SubscriptionPlans returns the recurring plans on sale.
func SubscriptionPlans() []SubscriptionPlan {
	return []SubscriptionPlan{
		{Key: slug.Make("Pro Monthly"), Name: "Pro", Tier: PlanPro, MonthlyCredits: 500, PriceCents: 1999, PriceID: "price_pro_monthly"},
		{Key: slug.Make("Premium Monthly"), Name: "Premium", Tier: PlanPremium, MonthlyCredits: -1, PriceCents: 4999, PriceID: "price_premium_monthly"},
	}
}
