package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// WriteFinanceCSV streams all finance records as CSV, newest first, in
// the order the store lists them.
func (s *Service) WriteFinanceCSV(ctx context.Context, w io.Writer) error {
	records, err := s.finances.All(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "type", "category", "amount", "description", "date", "status", "vendorName", "invoiceNumber"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Type,
			r.Category,
			strconv.FormatFloat(r.Amount, 'f', -1, 64),
			r.Description,
			r.Date.UTC().Format(time.RFC3339),
			r.Status,
			r.VendorName,
			r.InvoiceNumber,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
