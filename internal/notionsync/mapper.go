package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/rosacash/internal/billing"
)

// Property names of the bills database.
const (
	PropBillID       = "Bill ID"
	PropCard         = "Card"
	PropPeriod       = "Period"
	PropDueDate      = "Due Date"
	PropTotal        = "Total"
	PropPaid         = "Paid"
	PropTransactions = "Transactions"
)

// BillToNotionProperties converts an upcoming bill to the properties of its Notion page.
// The title is the bill key <cardID>-<yyyy-mm>.
func BillToNotionProperties(bill billing.Bill) notionapi.Properties {
	cardName := bill.CardName
	if cardName == "" {
		cardName = bill.CardID
	}

	return notionapi.Properties{
		PropBillID: notionapi.TitleProperty{
			Title: richText(bill.ID()),
		},
		PropCard: notionapi.SelectProperty{
			Select: notionapi.Option{Name: cardName},
		},
		PropPeriod: notionapi.RichTextProperty{
			RichText: richText(bill.Period.String()),
		},
		PropDueDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: notionDate(bill.DueDate)},
		},
		PropTotal: notionapi.NumberProperty{
			Number: bill.Total.Round(2).InexactFloat64(),
		},
		PropPaid: notionapi.CheckboxProperty{
			Checkbox: bill.Paid,
		},
		PropTransactions: notionapi.NumberProperty{
			Number: float64(bill.Count),
		},
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func notionDate(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return &nd
}

// extractBillID returns the Bill ID title of a page, or "" when the page has none.
func extractBillID(page notionapi.Page) string {
	prop, ok := page.Properties[PropBillID]
	if !ok {
		return ""
	}
	title, ok := prop.(*notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 {
		return ""
	}
	return title.Title[0].PlainText
}
