package models

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// NewValidator returns a configured validator with the struct-level order
// rules registered.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})
	return v
}

// createOrderStructValidation enforces the rules tag syntax cannot express:
// a table number is required for dine-in orders and must be absent otherwise,
// and the discount must not be negative.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	switch OrderType(req.Type) {
	case DineIn:
		if req.TableNumber == "" {
			sl.ReportError(req.TableNumber, "tableNumber", "TableNumber", "required_for_dine_in", "")
		}
	case Takeout, Delivery:
		if req.TableNumber != "" {
			sl.ReportError(req.TableNumber, "tableNumber", "TableNumber", "forbidden_for_order_type", "")
		}
	}

	if req.Discount.IsNegative() {
		sl.ReportError(req.Discount, "discount", "Discount", "min_zero", "")
	}
}
