// Package pdf renders invoices as PDF documents with maroto.
package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Item is one printed line of the invoice table.
type Item struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	Amount      float64
}

// Data carries everything the invoice document needs.
type Data struct {
	Number     string
	IssueDate  string
	DueDate    string
	SellerName string
	ClientName string
	ClientEmail string
	ClientAddress string
	Items      []Item
	Subtotal   float64
	Tax        float64
	Total      float64
	Notes      string
}

// Render produces the PDF bytes for an invoice.
func Render(data Data) ([]byte, error) {
	cfg := config.NewBuilder().Build()
	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "INVOICE "+data.Number, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, data.SellerName, props.Text{Size: 10, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(6, "Issue date: "+data.IssueDate, props.Text{Size: 9}),
		text.NewCol(6, "Due date: "+data.DueDate, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(10, text.NewCol(12, "Billed to", props.Text{Size: 10, Style: fontstyle.Bold, Top: 4}))
	m.AddRow(5, text.NewCol(12, data.ClientName, props.Text{Size: 9}))
	if data.ClientAddress != "" {
		m.AddRow(5, text.NewCol(12, data.ClientAddress, props.Text{Size: 9}))
	}
	if data.ClientEmail != "" {
		m.AddRow(5, text.NewCol(12, data.ClientEmail, props.Text{Size: 9}))
	}

	m.AddRow(8,
		text.NewCol(6, "Description", props.Text{Size: 9, Style: fontstyle.Bold, Top: 3}),
		text.NewCol(2, "Qty", props.Text{Size: 9, Style: fontstyle.Bold, Top: 3, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Size: 9, Style: fontstyle.Bold, Top: 3, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Size: 9, Style: fontstyle.Bold, Top: 3, Align: align.Right}),
	)
	for _, it := range data.Items {
		m.AddRow(6,
			text.NewCol(6, it.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%.2f", it.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.2f", it.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.2f", it.Amount), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(6,
		text.NewCol(10, "Subtotal", props.Text{Size: 9, Top: 3, Align: align.Right}),
		text.NewCol(2, fmt.Sprintf("%.2f", data.Subtotal), props.Text{Size: 9, Top: 3, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(10, "Tax", props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, fmt.Sprintf("%.2f", data.Tax), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		text.NewCol(10, "Total", props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, fmt.Sprintf("%.2f", data.Total), props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
	)

	if data.Notes != "" {
		m.AddRow(10, text.NewCol(12, data.Notes, props.Text{Size: 8, Top: 5}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice pdf: %w", err)
	}
	return doc.GetBytes(), nil
}
