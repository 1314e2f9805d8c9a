package wizard

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AEDToUSDRate is the approximate conversion used for display only.
const AEDToUSDRate = 0.27

type Currency string

const (
	CurrencyAED Currency = "AED"
	CurrencyUSD Currency = "USD"
)

// CurrencyFor picks the display currency from the residency answer.
func CurrencyFor(isUAEResident bool) Currency {
	if isUAEResident {
		return CurrencyAED
	}
	return CurrencyUSD
}

// Symbol is the prefix used in labels.
func (c Currency) Symbol() string {
	if c == CurrencyAED {
		return "AED"
	}
	return "$"
}

// ConvertAEDToUSD converts and rounds to the nearest thousand.
func ConvertAEDToUSD(aed float64) float64 {
	return math.Round(aed*AEDToUSDRate/1000) * 1000
}

// FormatAmount renders an AED base amount in the display currency.
func FormatAmount(aed float64, c Currency) string {
	if c == CurrencyAED {
		return "AED " + strconv.FormatFloat(aed, 'f', -1, 64)
	}
	return "$" + groupThousands(int64(ConvertAEDToUSD(aed)))
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Option is one selectable answer with its display text.
type Option struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type rangeTable struct {
	ids          []string
	aed          []string
	usd          []string
	descriptions []string
}

func (t rangeTable) options(c Currency) []Option {
	titles := t.usd
	if c == CurrencyAED {
		titles = t.aed
	}
	out := make([]Option, len(t.ids))
	for i, id := range t.ids {
		out[i] = Option{ID: id, Title: titles[i], Description: t.descriptions[i]}
	}
	return out
}

var (
	budgetTable = rangeTable{
		ids:          BudgetRangeIDs,
		aed:          []string{"Under AED 1M", "AED 1M - 2M", "AED 2M - 5M", "Above AED 5M"},
		usd:          []string{"Under $270K", "$270K - $540K", "$540K - $1.35M", "Above $1.35M"},
		descriptions: []string{"Starter homes and apartments", "Mid-range properties", "Premium properties", "Luxury properties"},
	}
	incomeTable = rangeTable{
		ids:          IncomeRangeIDs,
		aed:          []string{"Under AED 15K", "AED 15K - 30K", "AED 30K - 50K", "Above AED 50K"},
		usd:          []string{"Under $4K", "$4K - $8K", "$8K - $13.5K", "Above $13.5K"},
		descriptions: []string{"Entry-level income range", "Mid-level income range", "High income range", "Premium income range"},
	}
	propertyValueTable = rangeTable{
		ids:          PropertyValueIDs,
		aed:          []string{"Under AED 2M", "AED 2M - 5M", "AED 5M - 10M", "Above AED 10M"},
		usd:          []string{"Under $540K", "$540K - $1.35M", "$1.35M - $2.7M", "Above $2.7M"},
		descriptions: []string{"Modest property value", "Mid-range property value", "High-end property value", "Premium property value"},
	}
	balanceTable = rangeTable{
		ids:          RemainingBalanceIDs,
		aed:          []string{"Under AED 500K", "AED 500K - 1M", "AED 1M - 2M", "Above AED 2M"},
		usd:          []string{"Under $135K", "$135K - $270K", "$270K - $540K", "Above $540K"},
		descriptions: []string{"Small remaining balance", "Mid-range balance", "Large balance", "Premium mortgage balance"},
	}
	investmentBudgetTable = rangeTable{
		ids:          BudgetRangeIDs,
		aed:          []string{"Under AED 1M", "AED 1M - 2M", "AED 2M - 5M", "Above AED 5M"},
		usd:          []string{"Under $270K", "$270K - $540K", "$540K - $1.35M", "Above $1.35M"},
		descriptions: []string{"Entry properties", "Mid-range", "Premium", "Luxury investments"},
	}
)

func BudgetRanges(c Currency) []Option           { return budgetTable.options(c) }
func IncomeRanges(c Currency) []Option           { return incomeTable.options(c) }
func PropertyValueRanges(c Currency) []Option    { return propertyValueTable.options(c) }
func RefinanceBalanceRanges(c Currency) []Option { return balanceTable.options(c) }
func InvestmentBudgetRanges(c Currency) []Option { return investmentBudgetTable.options(c) }

var currencyTables = map[string]rangeTable{
	KeyBudgetRange:            budgetTable,
	KeyMonthlyIncome:          incomeTable,
	KeyMonthlyIncomeRefinance: incomeTable,
	KeyPropertyValue:          propertyValueTable,
	KeyRemainingBalance:       balanceTable,
	KeyInvestmentBudget:       investmentBudgetTable,
	KeyInvestmentBudgetRange:  investmentBudgetTable,
}

// OptionsFor returns the choices for an answer key. Money ranges carry
// currency-specific titles. Other enumerations use their ids as titles.
func OptionsFor(key string, c Currency) ([]Option, error) {
	if t, ok := currencyTables[key]; ok {
		return t.options(c), nil
	}
	f, ok := FieldByKey(key)
	if !ok || f.Kind != KindEnum {
		return nil, fmt.Errorf("%w: %s has no options", ErrUnexpectedKey, key)
	}
	out := make([]Option, len(f.Enum))
	for i, id := range f.Enum {
		out[i] = Option{ID: id, Title: id}
	}
	return out, nil
}

// IsCurrencyKey reports whether the key's labels depend on the currency.
func IsCurrencyKey(key string) bool {
	_, ok := currencyTables[key]
	return ok
}
