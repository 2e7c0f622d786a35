// Package quotes implements the campaign merchandise quoting calculator:
// per-item quantity pricing rules, cart-level volume and customer-type
// discounts, and tax.
package quotes

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"campaignmerch_backend/platform/apperr"
)

// Product is the slice of catalog state the calculator needs.
type Product struct {
	ID             uuid.UUID
	Name           string
	BasePriceCents int64
	Active         bool
}

// ProductSource resolves quote items against the catalog.
type ProductSource interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
}

// CustomerType selects the customer-specific discount tier.
type CustomerType string

const (
	CustomerIndividual   CustomerType = "individual"
	CustomerParty        CustomerType = "party"
	CustomerOrganization CustomerType = "organization"
)

// Item is one requested cart position.
type Item struct {
	ProductID              uuid.UUID `json:"productId" validate:"required"`
	Quantity               int       `json:"quantity" validate:"required,min=1,max=100000"`
	CustomizationCostCents int64     `json:"customizationCostCents" validate:"min=0"`
}

// Request is a quote calculation request.
type Request struct {
	Items        []Item       `json:"items" validate:"required,min=1,max=100,dive"`
	CustomerType CustomerType `json:"customerType,omitempty" validate:"omitempty,oneof=individual party organization"`
}

// AppliedRule records a per-item price adjustment.
type AppliedRule struct {
	RuleID        string `json:"ruleId"`
	Name          string `json:"name"`
	ModifierCents int64  `json:"modifierCents"`
	Reason        string `json:"reason"`
}

// CalculatedItem is one priced cart position.
type CalculatedItem struct {
	ProductID              uuid.UUID     `json:"productId"`
	ProductName            string        `json:"productName"`
	Quantity               int           `json:"quantity"`
	BasePriceCents         int64         `json:"basePriceCents"`
	CustomizationCostCents int64         `json:"customizationCostCents"`
	AppliedRules           []AppliedRule `json:"appliedRules,omitempty"`
	UnitPriceCents         int64         `json:"unitPriceCents"`
	TotalPriceCents        int64         `json:"totalPriceCents"`
}

// Discount is a cart-level price reduction.
type Discount struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Percent     float64 `json:"percent"`
	AmountCents int64   `json:"amountCents"`
	Reason      string  `json:"reason"`
}

// Quote is the full calculation result.
type Quote struct {
	Items               []CalculatedItem `json:"items"`
	SubtotalCents       int64            `json:"subtotalCents"`
	Discounts           []Discount       `json:"discounts,omitempty"`
	DiscountAmountCents int64            `json:"discountAmountCents"`
	TaxRate             float64          `json:"taxRate"`
	TaxAmountCents      int64            `json:"taxAmountCents"`
	TotalAmountCents    int64            `json:"totalAmountCents"`
	Warnings            []string         `json:"warnings,omitempty"`
}

// volumeTier is a cart-quantity discount bracket.
type volumeTier struct {
	minQuantity int
	maxQuantity int // 0 means unbounded
	percent     float64
}

var volumeTiers = []volumeTier{
	{minQuantity: 50, maxQuantity: 99, percent: 5},
	{minQuantity: 100, maxQuantity: 249, percent: 10},
	{minQuantity: 250, maxQuantity: 499, percent: 15},
	{minQuantity: 500, percent: 20},
}

var customerDiscounts = map[CustomerType]float64{
	CustomerParty:        12,
	CustomerOrganization: 8,
}

const defaultTaxRate = 0.18

// Calculator prices merchandise carts.
type Calculator struct {
	products ProductSource
	taxRate  float64
}

func NewCalculator(products ProductSource) *Calculator {
	return &Calculator{products: products, taxRate: defaultTaxRate}
}

// Calculate prices the requested cart. Inactive or unknown products fail the
// whole quote: a quote over a partial cart would be misleading.
func (c *Calculator) Calculate(ctx context.Context, req Request) (Quote, error) {
	if len(req.Items) == 0 {
		return Quote{}, apperr.Validation("quote requires at least one item")
	}

	quote := Quote{TaxRate: c.taxRate}

	for _, item := range req.Items {
		product, err := c.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return Quote{}, err
		}
		if !product.Active {
			return Quote{}, apperr.Validation(fmt.Sprintf("product %q is not available for quoting", product.Name))
		}

		calculated := priceItem(product, item)
		quote.Items = append(quote.Items, calculated)
		quote.SubtotalCents += calculated.TotalPriceCents
	}

	quote.Discounts = cartDiscounts(quote.Items, quote.SubtotalCents, req.CustomerType)
	for _, d := range quote.Discounts {
		quote.DiscountAmountCents += d.AmountCents
	}

	taxable := quote.SubtotalCents - quote.DiscountAmountCents
	quote.TaxAmountCents = roundCents(float64(taxable) * c.taxRate)
	quote.TotalAmountCents = taxable + quote.TaxAmountCents
	quote.Warnings = warnings(quote)

	return quote, nil
}

// priceItem applies quantity rules to one cart position.
func priceItem(product Product, item Item) CalculatedItem {
	base := product.BasePriceCents
	rules := quantityRules(item.Quantity, base)

	var ruleModifier int64
	for _, r := range rules {
		ruleModifier += r.ModifierCents
	}

	unit := base + item.CustomizationCostCents + ruleModifier
	return CalculatedItem{
		ProductID:              product.ID,
		ProductName:            product.Name,
		Quantity:               item.Quantity,
		BasePriceCents:         base,
		CustomizationCostCents: item.CustomizationCostCents,
		AppliedRules:           rules,
		UnitPriceCents:         unit,
		TotalPriceCents:        unit * int64(item.Quantity),
	}
}

// quantityRules prices volume breaks and the small-order surcharge per item.
func quantityRules(quantity int, basePriceCents int64) []AppliedRule {
	var rules []AppliedRule

	switch {
	case quantity >= 1000:
		rules = append(rules, AppliedRule{
			RuleID:        "bulk-1000",
			Name:          "volume break 1000+",
			ModifierCents: -roundCents(float64(basePriceCents) * 0.25),
			Reason:        fmt.Sprintf("25%% off unit price for %d units", quantity),
		})
	case quantity >= 500:
		rules = append(rules, AppliedRule{
			RuleID:        "bulk-500",
			Name:          "volume break 500+",
			ModifierCents: -roundCents(float64(basePriceCents) * 0.20),
			Reason:        fmt.Sprintf("20%% off unit price for %d units", quantity),
		})
	case quantity >= 100:
		rules = append(rules, AppliedRule{
			RuleID:        "bulk-100",
			Name:          "volume break 100+",
			ModifierCents: -roundCents(float64(basePriceCents) * 0.15),
			Reason:        fmt.Sprintf("15%% off unit price for %d units", quantity),
		})
	}

	if quantity < 10 {
		rules = append(rules, AppliedRule{
			RuleID:        "small-quantity",
			Name:          "small order surcharge",
			ModifierCents: roundCents(float64(basePriceCents) * 0.20),
			Reason:        "20% surcharge for orders under 10 units",
		})
	}

	return rules
}

// cartDiscounts applies cart-wide volume and customer-type discounts.
func cartDiscounts(items []CalculatedItem, subtotalCents int64, customerType CustomerType) []Discount {
	var discounts []Discount

	totalQuantity := 0
	for _, item := range items {
		totalQuantity += item.Quantity
	}

	if tier := applicableVolumeTier(totalQuantity); tier != nil {
		discounts = append(discounts, Discount{
			ID:          fmt.Sprintf("volume-%d", tier.minQuantity),
			Name:        fmt.Sprintf("volume discount %d+", tier.minQuantity),
			Percent:     tier.percent,
			AmountCents: roundCents(float64(subtotalCents) * tier.percent / 100),
			Reason:      fmt.Sprintf("%.0f%% off for %d articles", tier.percent, totalQuantity),
		})
	}

	if percent, ok := customerDiscounts[customerType]; ok {
		discounts = append(discounts, Discount{
			ID:          fmt.Sprintf("customer-%s", customerType),
			Name:        fmt.Sprintf("%s discount", customerType),
			Percent:     percent,
			AmountCents: roundCents(float64(subtotalCents) * percent / 100),
			Reason:      fmt.Sprintf("%.0f%% %s rate", percent, customerType),
		})
	}

	return discounts
}

// applicableVolumeTier returns the highest-percentage tier matching the total
// quantity, or nil.
func applicableVolumeTier(quantity int) *volumeTier {
	var best *volumeTier
	for i := range volumeTiers {
		tier := &volumeTiers[i]
		if quantity < tier.minQuantity {
			continue
		}
		if tier.maxQuantity > 0 && quantity > tier.maxQuantity {
			continue
		}
		if best == nil || tier.percent > best.percent {
			best = tier
		}
	}
	return best
}

func warnings(quote Quote) []string {
	var out []string
	if quote.DiscountAmountCents > quote.SubtotalCents/2 {
		out = append(out, "discounts exceed half the subtotal; verify pricing before sending")
	}
	for _, item := range quote.Items {
		if item.UnitPriceCents <= 0 {
			out = append(out, fmt.Sprintf("item %q priced at or below zero", item.ProductName))
		}
	}
	return out
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
