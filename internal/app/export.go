package service

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/okian/facepunch/internal/domain/model"
)

// CSVHeader is the column order of exported attendance files.
var CSVHeader = []string{"id", "user_id", "name", "action", "date", "time", "timestamp", "confidence"}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []model.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.UserID,
			r.Name,
			r.Action.String(),
			r.Date(),
			r.Clock(),
			r.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
