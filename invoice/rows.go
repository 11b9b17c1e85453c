package invoice

// Row 是表格中的一行单元格文本，渲染时从快照实时推导，不写回模板。
type Row []string

// LaborRows derives description / hours / line total rows.
func (s *Snapshot) LaborRows() []Row {
	if s == nil {
		return nil
	}
	f := s.Formatter()
	rows := make([]Row, 0, len(s.LaborItems))
	for _, item := range s.LaborItems {
		rows = append(rows, Row{item.Description, f.Number(float64(item.Hours)), f.Money(item.Total())})
	}
	return rows
}

// MaterialRows derives name / marked-up price rows.
func (s *Snapshot) MaterialRows() []Row {
	if s == nil {
		return nil
	}
	f := s.Formatter()
	rows := make([]Row, 0, len(s.Materials))
	for _, m := range s.Materials {
		rows = append(rows, Row{m.Name, f.Money(m.SellPrice())})
	}
	return rows
}

// LaborTotal sums hours × rate over all labor lines.
func (s *Snapshot) LaborTotal() float64 {
	if s == nil {
		return 0
	}
	total := 0.0
	for _, item := range s.LaborItems {
		total += item.Total()
	}
	return total
}

// MaterialsTotal sums the printed material prices.
func (s *Snapshot) MaterialsTotal() float64 {
	if s == nil {
		return 0
	}
	total := 0.0
	for _, m := range s.Materials {
		total += m.SellPrice()
	}
	return total
}
