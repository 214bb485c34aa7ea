// Package export renders history records into portable files. CSV is
// the spreadsheet-friendly shape; parquet keeps the columnar shape used
// by the archive bucket.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/querydesk/querydesk/internal/history"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

var contentTypes = map[string]string{
	FormatCSV:     "text/csv",
	FormatParquet: "application/vnd.apache.parquet",
}

// ContentType reports the MIME type for a supported format, empty for
// anything else.
func ContentType(format string) string {
	return contentTypes[format]
}

var csvHeader = []string{"id", "timestamp", "request_text", "query_text", "outcome_json", "error_text", "favorite"}

type parquetRecord struct {
	ID          int64  `parquet:"id"`
	Timestamp   string `parquet:"timestamp"`
	RequestText string `parquet:"request_text"`
	QueryText   string `parquet:"query_text"`
	OutcomeJSON string `parquet:"outcome_json"`
	ErrorText   string `parquet:"error_text"`
	Favorite    bool   `parquet:"favorite"`
}

// Encode renders records in the requested format. Empty input yields a
// valid file with a header (CSV) or schema (parquet) and no data rows.
func Encode(format string, records []history.Record) ([]byte, error) {
	switch format {
	case FormatCSV:
		return encodeCSV(records)
	case FormatParquet:
		return encodeParquet(records)
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

func encodeCSV(records []history.Record) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		row := []string{
			strconv.FormatInt(record.ID, 10),
			record.Timestamp,
			record.RequestText,
			record.QueryText,
			record.OutcomeJSON,
			record.ErrorText,
			strconv.FormatBool(record.Favorite),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeParquet(records []history.Record) ([]byte, error) {
	rows := make([]parquetRecord, 0, len(records))
	for _, record := range records {
		rows = append(rows, parquetRecord{
			ID:          record.ID,
			Timestamp:   record.Timestamp,
			RequestText: record.RequestText,
			QueryText:   record.QueryText,
			OutcomeJSON: record.OutcomeJSON,
			ErrorText:   record.ErrorText,
			Favorite:    record.Favorite,
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetRecord](buf)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
