package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
)

// Header is the fixed column order of the export.
var Header = []string{
	"Date",
	"Sent Amount",
	"Sent Currency",
	"Received Amount",
	"Received Currency",
	"Fee Amount",
	"Fee Currency",
	"Recipient",
	"Sender",
	"Label",
	"TxHash",
	"Description",
}

// Row renders the record in Header order.
func (r *Record) Row() []string {
	sent, sentCur := formatAmount(r.Sent)
	recv, recvCur := formatAmount(r.Received)
	fee, feeCur := formatAmount(r.Fee)
	return []string{
		r.Date,
		sent, sentCur,
		recv, recvCur,
		fee, feeCur,
		r.Recipients.String(),
		r.Senders.String(),
		r.Labels.String(),
		r.TxHash,
		r.Description,
	}
}

// SortRecords orders records by date, keeping the relative order of records
// that share a timestamp.
func SortRecords(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
}

// WriteCSV writes the header followed by one row per record.
func WriteCSV(w io.Writer, records []*Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("WriteCSV: header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("WriteCSV: record %s: %w", r.TxHash, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: flush: %w", err)
	}
	return nil
}

// WriteFile writes the export to path, replacing any existing file.
func WriteFile(path string, records []*Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteFile: create %s: %w", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("WriteFile: close %s: %w", path, err)
	}
	return nil
}
