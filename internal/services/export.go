package services

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
	"time"
)

// AnswerRow is one stored answer in long format.
type AnswerRow struct {
	InvitationID string
	Email        string
	PairID       string
	Polarity     string
	Weight       string
	SubmittedAt  time.Time
}

// PointRow is one respondent's scored point. Incomplete respondents have no point.
type PointRow struct {
	InvitationID string
	Email        string
	Status       string
	Point        *Point
}

// ExportAnswersCSV renders answers ordered by invitation, then pair.
func ExportAnswersCSV(rows []AnswerRow) ([]byte, error) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].InvitationID != rows[j].InvitationID {
			return rows[i].InvitationID < rows[j].InvitationID
		}
		return rows[i].PairID < rows[j].PairID
	})
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"invitation_id", "email", "pair_id", "polarity", "weight", "submitted_at"})
	for _, r := range rows {
		rec := []string{
			r.InvitationID,
			r.Email,
			r.PairID,
			r.Polarity,
			r.Weight,
			r.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportPointsCSV renders one row per respondent; x and y stay empty until
// the respondent has a point.
func ExportPointsCSV(rows []PointRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"invitation_id", "email", "status", "x", "y"})
	for _, r := range rows {
		x, y := "", ""
		if r.Point != nil {
			x = formatCoord(r.Point.X)
			y = formatCoord(r.Point.Y)
		}
		if err := w.Write([]string{r.InvitationID, r.Email, r.Status, x, y}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
