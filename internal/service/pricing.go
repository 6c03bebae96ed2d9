package service

import "github.com/boddenberg/storefront-bfa-go/internal/domain"

// ActivePrice resolves the unit price a profile pays for a product.
// ok is false when none of the candidate prices is set.
// It must be evaluated at display time and again at submission; results are never cached.
func ActivePrice(p *domain.Product, profile *domain.UserProfile) (price float64, ok bool) {
	if p == nil {
		return 0, false
	}
	if profile == nil || profile.PrimaryRole == "" {
		return firstPrice(p.MSRP, p.PriceCompany, p.PriceRetailer)
	}
	switch profile.PrimaryRole {
	case domain.RoleCompany:
		return firstPrice(p.PriceCompany, p.MSRP)
	case domain.RoleRetailer:
		return firstPrice(p.PriceRetailer, p.MSRP)
	default:
		return firstPrice(p.MSRP, p.PriceCompany, p.PriceRetailer)
	}
}

func firstPrice(candidates ...*float64) (float64, bool) {
	for _, c := range candidates {
		if c != nil {
			return *c, true
		}
	}
	return 0, false
}
