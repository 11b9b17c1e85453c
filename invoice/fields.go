package invoice

// Fields flattens the snapshot into nested maps for token lookup.
//
// Raw values keep their types (float64, time.Time, string) so filters such as
// money or date can format them; the snake_case aliases at the top level are
// pre-formatted strings for templates that use bare tokens like {{total}}.
func (s *Snapshot) Fields() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	f := s.Formatter()
	labor := make([]any, 0, len(s.LaborItems))
	for _, item := range s.LaborItems {
		labor = append(labor, map[string]any{
			"description": item.Description,
			"hours":       float64(item.Hours),
			"rate":        float64(item.Rate),
			"total":       item.Total(),
		})
	}
	materials := make([]any, 0, len(s.Materials))
	for _, m := range s.Materials {
		materials = append(materials, map[string]any{
			"name":          m.Name,
			"price":         float64(m.Price),
			"markedUpPrice": m.SellPrice(),
		})
	}
	totals := map[string]any{
		"subtotal":  float64(s.Totals.Subtotal),
		"tax":       float64(s.Totals.Tax),
		"lateFee":   float64(s.Totals.LateFee),
		"total":     float64(s.Totals.Total),
		"amountDue": float64(s.Totals.AmountDue),
		"labor":     s.LaborTotal(),
		"materials": s.MaterialsTotal(),
	}

	out := map[string]any{
		"invoiceNumber": s.InvoiceNumber,
		"issueDate":     s.IssueDate.Time,
		"dueDate":       s.DueDate.Time,
		"notes":         s.Notes,
		"currency":      f.currency,
		"totals":        totals,
		"business":      party(s.Business),
		"customer":      party(s.Customer),
		"labor":         labor,
		"materials":     materials,

		"invoice_number":   s.InvoiceNumber,
		"issue_date":       f.Date(s.IssueDate.Time, DefaultDateLayout),
		"due_date":         f.Date(s.DueDate.Time, DefaultDateLayout),
		"subtotal":         f.Money(float64(s.Totals.Subtotal)),
		"tax":              f.Money(float64(s.Totals.Tax)),
		"late_fee":         f.Money(float64(s.Totals.LateFee)),
		"total":            f.Money(float64(s.Totals.Total)),
		"amount_due":       f.Money(float64(s.Totals.AmountDue)),
		"labor_total":      f.Money(s.LaborTotal()),
		"materials_total":  f.Money(s.MaterialsTotal()),
		"labor_count":      len(s.LaborItems),
		"materials_count":  len(s.Materials),
		"business_name":    s.Business.Name,
		"business_email":   s.Business.Email,
		"business_phone":   s.Business.Phone,
		"business_address": s.Business.Address,
		"customer_name":    s.Customer.Name,
		"customer_email":   s.Customer.Email,
		"customer_phone":   s.Customer.Phone,
		"customer_address": s.Customer.Address,
	}
	return out
}

func party(p Party) map[string]any {
	return map[string]any{
		"name":    p.Name,
		"email":   p.Email,
		"phone":   p.Phone,
		"address": p.Address,
	}
}
