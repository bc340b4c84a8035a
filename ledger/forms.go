/*
forms.go - User-facing input and its validation

PURPOSE:
  Form types mirror what an interactive client collects (text fields,
  so numeric inputs arrive as strings). Validation happens here, before
  any store call: structural rules via validator struct tags, numeric
  range rules on the parsed decimals. A failed validation never reaches
  the record store.
*/
package ledger

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// =============================================================================
// FORMS
// =============================================================================

// TransactionForm is the input for a purchase or sale.
type TransactionForm struct {
	ProductName string `validate:"required"`
	UnitPrice   string `validate:"omitempty,numeric"` // purchase price or selling price
	Quantity    string `validate:"required,numeric"`
	Unit        string `validate:"required"`
	Notes       string
}

// AdjustmentForm is the input for a manual stock adjustment.
type AdjustmentForm struct {
	ProductName   string `validate:"required"`
	PurchasePrice string `validate:"omitempty,numeric"`
	SellingPrice  string `validate:"omitempty,numeric"`
	Quantity      string `validate:"required,numeric"`
	Unit          string `validate:"required"`
	Notes         string
}

// =============================================================================
// CONSTRUCTORS - Validate a form and build an unstamped record
// =============================================================================

// NewRecord validates a transaction form and builds a Record with the
// total computed. ID, date and status are stamped by the repository on
// save.
func NewRecord(form TransactionForm) (Record, error) {
	if err := checkStruct(form); err != nil {
		return Record{}, err
	}

	price := parseDecimal(form.UnitPrice)
	qty := parseDecimal(form.Quantity)
	if err := checkAmounts(qty, map[string]decimal.Decimal{"UnitPrice": price}); err != nil {
		return Record{}, err
	}

	return Record{
		ProductName: form.ProductName,
		UnitPrice:   price,
		Quantity:    qty,
		Unit:        form.Unit,
		TotalAmount: price.Mul(qty),
		Notes:       form.Notes,
	}, nil
}

// NewAdjustment validates an adjustment form and builds an
// AdjustmentRecord.
func NewAdjustment(form AdjustmentForm) (AdjustmentRecord, error) {
	if err := checkStruct(form); err != nil {
		return AdjustmentRecord{}, err
	}

	purchase := parseDecimal(form.PurchasePrice)
	selling := parseDecimal(form.SellingPrice)
	qty := parseDecimal(form.Quantity)
	if err := checkAmounts(qty, map[string]decimal.Decimal{
		"PurchasePrice": purchase,
		"SellingPrice":  selling,
	}); err != nil {
		return AdjustmentRecord{}, err
	}

	return AdjustmentRecord{
		ProductName:   form.ProductName,
		PurchasePrice: purchase,
		SellingPrice:  selling,
		Quantity:      qty,
		Unit:          form.Unit,
		Notes:         form.Notes,
	}, nil
}

// =============================================================================
// VALIDATION PLUMBING
// =============================================================================

// checkStruct runs tag validation and flattens the result into a
// field -> rule map.
func checkStruct(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		fields[ve.Field()] = ve.Tag()
	}
	return &ValidationError{Fields: fields}
}

// checkAmounts enforces the numeric range rules: quantity strictly
// positive, prices non-negative.
func checkAmounts(qty decimal.Decimal, prices map[string]decimal.Decimal) error {
	fields := make(map[string]string)
	if !qty.IsPositive() {
		fields["Quantity"] = "must be greater than zero"
	}
	for name, p := range prices {
		if p.IsNegative() {
			fields[name] = "must not be negative"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
