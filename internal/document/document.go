// Package document submits financial documents (sales orders) with their
// line items to the accounting system.
//
// Lines are numbered 1..M in submission order after lines without a
// quantity or price have been dropped. Amounts are fixed-point decimals:
// quantities carry three decimal places, prices and amounts two.
package document

import (
	"errors"
	"fmt"

	"github.com/roach88/clubsync/internal/entity"
	"github.com/roach88/clubsync/internal/ir"
)

// Entity sets and the finalize action.
const (
	HeaderSet    = "SalesOrders"
	PositionSet  = "SalesOrderPositions"
	ParentField  = "SalesOrderId"
	FinalizeStep = "NextStep"
)

var (
	// ErrMissingKey means the document key is unknown where it is needed:
	// before a batched submission, or after a header create that echoed no
	// key.
	ErrMissingKey = errors.New("document: missing document key")

	// ErrNoLines means nothing is left to submit after filtering.
	ErrNoLines = errors.New("document: no lines to submit")
)

// Line is one computed line item.
type Line struct {
	Article    string
	Name       string
	Quantity   ir.Decimal
	UnitPrice  ir.Decimal
	CostCenter string
}

// Document is a sales order to submit.
type Document struct {
	// Key is a caller-supplied remote key. Required in ModeBatch.
	Key entity.Key

	Number   string
	Customer entity.Key
	Date     ir.Date

	// Header holds additional header fields, sent after the standard ones.
	Header *ir.Object

	Lines []Line
}

// Position is a line as submitted.
type Position struct {
	Number    int
	Line      Line
	Quantity  ir.Decimal
	UnitPrice ir.Decimal
	Amount    ir.Decimal
}

// Number filters out lines with a zero quantity or price, then numbers the
// rest from 1 in order and computes their amounts and the total.
func Number(lines []Line) ([]Position, ir.Decimal, error) {
	total := ir.DecimalFromInt(0)
	var positions []Position
	for i, line := range lines {
		if line.Quantity.IsZero() || line.UnitPrice.IsZero() {
			continue
		}
		qty, err := line.Quantity.Quantize(ir.QuantityScale)
		if err != nil {
			return nil, ir.Decimal{}, fmt.Errorf("document: line %d quantity: %w", i+1, err)
		}
		price, err := line.UnitPrice.Quantize(ir.AmountScale)
		if err != nil {
			return nil, ir.Decimal{}, fmt.Errorf("document: line %d price: %w", i+1, err)
		}
		product, err := qty.Mul(price)
		if err != nil {
			return nil, ir.Decimal{}, fmt.Errorf("document: line %d amount: %w", i+1, err)
		}
		amount, err := product.Quantize(ir.AmountScale)
		if err != nil {
			return nil, ir.Decimal{}, fmt.Errorf("document: line %d amount: %w", i+1, err)
		}
		if total, err = total.Add(amount); err != nil {
			return nil, ir.Decimal{}, fmt.Errorf("document: total: %w", err)
		}
		positions = append(positions, Position{
			Number:    len(positions) + 1,
			Line:      line,
			Quantity:  qty,
			UnitPrice: price,
			Amount:    amount,
		})
	}
	total, err := total.Quantize(ir.AmountScale)
	if err != nil {
		return nil, ir.Decimal{}, fmt.Errorf("document: total: %w", err)
	}
	return positions, total, nil
}

// headerFields builds the header body in a fixed field order.
func headerFields(doc *Document) *ir.Object {
	fields := ir.NewObject()
	if !doc.Key.IsZero() {
		fields.Set(entity.IDField, doc.Key.Value())
	}
	if doc.Number != "" {
		fields.Set("Number", ir.String(doc.Number))
	}
	if !doc.Customer.IsZero() {
		fields.Set("CustomerId", doc.Customer.Value())
	}
	if !doc.Date.IsZero() {
		fields.Set("Date", doc.Date)
	}
	for _, p := range doc.Header.Pairs() {
		if !fields.Has(p.Key) {
			fields.Set(p.Key, p.Value)
		}
	}
	return fields
}

// positionFields builds one line body in a fixed field order.
func positionFields(key entity.Key, p Position) *ir.Object {
	fields := ir.NewObject(
		ir.O(ParentField, key.Value()),
		ir.O("Position", ir.Int(int64(p.Number))),
		ir.O("ArticleNumber", ir.String(p.Line.Article)),
		ir.O("Name", ir.String(p.Line.Name)),
		ir.O("Quantity", p.Quantity),
		ir.O("UnitPrice", p.UnitPrice),
		ir.O("Amount", p.Amount),
	)
	if p.Line.CostCenter != "" {
		fields.Set("CostCenter", ir.String(p.Line.CostCenter))
	}
	return fields
}

// FinalizePath addresses the "next step" action of a document.
func FinalizePath(key entity.Key) string {
	return HeaderSet + "(" + entity.IDField + "=" + key.Literal() + ")/" + FinalizeStep
}
