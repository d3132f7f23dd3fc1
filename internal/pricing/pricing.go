package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerdesk/portal-backend/pkg/config"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/money"
)

// Defaults used when an override is unset, unparsable or negative.
var (
	DefaultStandardPrice           = decimal.RequireFromString("29.99")
	DefaultPremiumMonthlyPrice     = decimal.RequireFromString("4.99")
	DefaultPremiumYearlyPrice      = decimal.RequireFromString("49.99")
	DefaultPremiumStandardDiscount = decimal.RequireFromString("10.00")
	DefaultProcessingFeePercent    = decimal.RequireFromString("2.90")
	DefaultProcessingFeeFixed      = decimal.RequireFromString("0.30")
)

var hundred = decimal.NewFromInt(100)

// Item is a purchasable product line.
type Item string

const (
	ItemStandard       Item = "standard"
	ItemPremiumMonthly Item = "premium_monthly"
	ItemPremiumYearly  Item = "premium_yearly"
)

// Prices is the process-wide price table. It is built once at startup and
// passed by value so no caller can mutate another's view.
type Prices struct {
	Standard                decimal.Decimal
	PremiumMonthly          decimal.Decimal
	PremiumYearly           decimal.Decimal
	PremiumStandardDiscount decimal.Decimal
	FeePercent              decimal.Decimal
	FeeFixed                decimal.Decimal
}

// Fallback records an override that was present but rejected.
type Fallback struct {
	Name  string
	Raw   string
	Value decimal.Decimal
}

// Defaults returns the documented price table.
func Defaults() Prices {
	return Prices{
		Standard:                DefaultStandardPrice,
		PremiumMonthly:          DefaultPremiumMonthlyPrice,
		PremiumYearly:           DefaultPremiumYearlyPrice,
		PremiumStandardDiscount: DefaultPremiumStandardDiscount,
		FeePercent:              DefaultProcessingFeePercent,
		FeeFixed:                DefaultProcessingFeeFixed,
	}
}

// Resolve applies the configured overrides on top of Defaults. Rejected
// overrides are returned so the caller can log them.
func Resolve(cfg config.PricingConfig) (Prices, []Fallback) {
	var fallbacks []Fallback
	pick := func(name, raw string, def decimal.Decimal) decimal.Decimal {
		value, ok := parseOverride(raw)
		if ok {
			return value
		}
		if strings.TrimSpace(raw) != "" {
			fallbacks = append(fallbacks, Fallback{Name: name, Raw: raw, Value: def})
		}
		return def
	}

	prices := Prices{
		Standard:                pick("STANDARD_PRICE", cfg.StandardPrice, DefaultStandardPrice),
		PremiumMonthly:          pick("PREMIUM_MONTHLY_PRICE", cfg.PremiumMonthlyPrice, DefaultPremiumMonthlyPrice),
		PremiumYearly:           pick("PREMIUM_YEARLY_PRICE", cfg.PremiumYearlyPrice, DefaultPremiumYearlyPrice),
		PremiumStandardDiscount: pick("PREMIUM_STANDARD_DISCOUNT", cfg.PremiumStandardDiscount, DefaultPremiumStandardDiscount),
		FeePercent:              pick("PROCESSING_FEE_PERCENT", cfg.ProcessingFeePercent, DefaultProcessingFeePercent),
		FeeFixed:                pick("PROCESSING_FEE_FIXED", cfg.ProcessingFeeFixed, DefaultProcessingFeeFixed),
	}
	return prices, fallbacks
}

func parseOverride(raw string) (decimal.Decimal, bool) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, false
	}
	value, err := money.Parse(raw)
	if err != nil || value.IsNegative() {
		return decimal.Zero, false
	}
	return value, true
}

// ProcessingFee returns round2(subtotal*percent/100 + fixed), or zero for a
// non-positive subtotal.
func (p Prices) ProcessingFee(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return money.Round2(subtotal.Mul(p.FeePercent).Div(hundred).Add(p.FeeFixed))
}

// Quote is the price breakdown for a single item.
type Quote struct {
	Item     Item            `json:"item"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Fee      decimal.Decimal `json:"processing_fee"`
	Total    decimal.Decimal `json:"total"`
}

// Quote prices item. Standard license holders get the configured discount on
// a premium yearly purchase, never below zero.
func (p Prices) Quote(item Item, hasStandard bool) (Quote, error) {
	var price decimal.Decimal
	switch item {
	case ItemStandard:
		price = p.Standard
	case ItemPremiumMonthly:
		price = p.PremiumMonthly
	case ItemPremiumYearly:
		price = p.PremiumYearly
	default:
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown item %q", item))
	}

	discount := decimal.Zero
	if item == ItemPremiumYearly && hasStandard {
		discount = decimal.Min(p.PremiumStandardDiscount, price)
	}
	subtotal := money.Round2(price.Sub(discount))
	fee := p.ProcessingFee(subtotal)
	return Quote{
		Item:     item,
		Price:    price,
		Discount: discount,
		Subtotal: subtotal,
		Fee:      fee,
		Total:    subtotal.Add(fee),
	}, nil
}
