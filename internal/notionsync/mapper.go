package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/cheqd-ledger/internal/ledger"
)

// Database property names.
const (
	PropName      = "Name"
	PropKey       = "Record Key"
	PropDate      = "Date"
	PropSent      = "Sent Amount"
	PropReceived  = "Received Amount"
	PropFee       = "Fee Amount"
	PropCurrency  = "Currency"
	PropLabels    = "Labels"
	PropSender    = "Sender"
	PropRecipient = "Recipient"
	PropTxHash    = "TxHash"
)

// RecordToNotionProperties converts a ledger record to page properties.
// Absent amounts are left out so the column stays empty.
func RecordToNotionProperties(rec *ledger.Record) notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: richText(pageTitle(rec)),
		},
		PropKey: notionapi.RichTextProperty{
			RichText: richText(rec.Key()),
		},
		PropLabels: notionapi.MultiSelectProperty{
			MultiSelect: options(rec.Labels.Sorted()),
		},
	}

	if ts, err := time.Parse(ledger.DateLayout, rec.Date); err == nil {
		d := notionapi.Date(ts)
		props[PropDate] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	var currency string
	for _, col := range []struct {
		name   string
		amount *ledger.Amount
	}{
		{PropSent, rec.Sent},
		{PropReceived, rec.Received},
		{PropFee, rec.Fee},
	} {
		if col.amount == nil {
			continue
		}
		props[col.name] = notionapi.NumberProperty{Number: col.amount.Value.InexactFloat64()}
		if currency == "" {
			currency = col.amount.Currency
		}
	}
	if currency != "" {
		props[PropCurrency] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: currency},
		}
	}

	if s := rec.Senders.String(); s != "" {
		props[PropSender] = notionapi.RichTextProperty{RichText: richText(s)}
	}
	if s := rec.Recipients.String(); s != "" {
		props[PropRecipient] = notionapi.RichTextProperty{RichText: richText(s)}
	}
	if rec.TxHash != "" {
		props[PropTxHash] = notionapi.RichTextProperty{RichText: richText(rec.TxHash)}
	}
	return props
}

func pageTitle(rec *ledger.Record) string {
	if rec.Description != "" {
		return rec.Description
	}
	return rec.Key()
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func options(names []string) []notionapi.Option {
	out := make([]notionapi.Option, len(names))
	for i, n := range names {
		out[i] = notionapi.Option{Name: n}
	}
	return out
}

// extractRecordKey reads the Record Key property of a page.
func extractRecordKey(page notionapi.Page) string {
	prop, ok := page.Properties[PropKey]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	if rt.RichText[0].PlainText != "" {
		return rt.RichText[0].PlainText
	}
	if rt.RichText[0].Text != nil {
		return rt.RichText[0].Text.Content
	}
	return ""
}
