// Package invoice describes the read-only data snapshot a template is rendered
// against: labor and material lines, totals, dates and the two identities.
package invoice

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Snapshot 是渲染时使用的只读发票数据，由外部协作方提供。
type Snapshot struct {
	InvoiceNumber string     `json:"invoiceNumber"`
	Currency      string     `json:"currency"` // 货币符号，默认 "$"
	Locale        string     `json:"locale"`   // BCP 47，默认 en-US
	IssueDate     Date       `json:"issueDate"`
	DueDate       Date       `json:"dueDate"`
	Notes         string     `json:"notes"`
	LaborItems    []Labor    `json:"laborItems"`
	Materials     []Material `json:"materials"`
	Totals        Totals     `json:"totals"`
	Business      Party      `json:"business"`
	Customer      Party      `json:"customer"`
	Logo          Logo       `json:"logo"`
}

// Labor 是一条工时明细。
type Labor struct {
	Description string `json:"description"`
	Hours       Number `json:"hours"`
	Rate        Number `json:"rate"`
}

// Total returns hours × rate.
func (l Labor) Total() float64 { return float64(l.Hours) * float64(l.Rate) }

// Material 是一条材料明细；MarkedUpPrice 为 0 时回退到 Price。
type Material struct {
	Name          string `json:"name"`
	Price         Number `json:"price"`
	MarkedUpPrice Number `json:"markedUpPrice"`
}

// SellPrice returns the price printed on the invoice.
func (m Material) SellPrice() float64 {
	if m.MarkedUpPrice != 0 {
		return float64(m.MarkedUpPrice)
	}
	return float64(m.Price)
}

// Totals 由协作方预先计算好。
type Totals struct {
	Subtotal  Number `json:"subtotal"`
	Tax       Number `json:"tax"`
	LateFee   Number `json:"lateFee"`
	Total     Number `json:"total"`
	AmountDue Number `json:"amountDue"`
}

// Party is a business or customer identity block.
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Logo 可以直接携带图片字节，也可以是一个本地路径。
type Logo struct {
	Path  string `json:"path"`
	Bytes []byte `json:"bytes,omitempty"` // JSON 中为 base64
}

// Empty reports whether no logo source was supplied.
func (l Logo) Empty() bool { return l.Path == "" && len(l.Bytes) == 0 }

// Load 从 JSON 读取单个快照。
func Load(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("解析发票数据失败: %w", err)
	}
	return &s, nil
}

// LoadBatch 接受单个对象或对象数组，数组中的 null 会被忽略。
func LoadBatch(data []byte) ([]*Snapshot, error) {
	var many []*Snapshot
	if err := json.Unmarshal(data, &many); err == nil {
		// 数组中的 null 项直接丢弃
		out := many[:0]
		for _, s := range many {
			if s != nil {
				out = append(out, s)
			}
		}
		return out, nil
	}
	var one Snapshot
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("解析发票数据失败: %w", err)
	}
	return []*Snapshot{&one}, nil
}

// Date accepts RFC 3339 timestamps or plain YYYY-MM-DD; anything else is the zero time.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	d.Time = time.Time{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format(time.DateOnly))
}
