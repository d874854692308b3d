package services

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func readCSV(b []byte) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(string(b)))
	return r.ReadAll()
}

func TestExportAnswersCSV(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := []AnswerRow{
		{InvitationID: "i2", Email: "b@x.io", PairID: "pair-1", Polarity: "NEGATIVE", Weight: "LOW", SubmittedAt: at},
		{InvitationID: "i1", Email: "a@x.io", PairID: "pair-2", Polarity: "POSITIVE", Weight: "HIGH", SubmittedAt: at},
		{InvitationID: "i1", Email: "a@x.io", PairID: "pair-1", Polarity: "POSITIVE", Weight: "LOW", SubmittedAt: at},
	}
	b, err := ExportAnswersCSV(rows)
	if err != nil {
		t.Fatalf("export answers: %v", err)
	}
	recs, err := readCSV(b)
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(recs) != 1+len(rows) {
		t.Fatalf("want %d rows, got %d", 1+len(rows), len(recs))
	}
	if got := strings.Join(recs[0], ","); got != "invitation_id,email,pair_id,polarity,weight,submitted_at" {
		t.Fatalf("bad header: %s", got)
	}
	if recs[1][0] != "i1" || recs[1][2] != "pair-1" || recs[3][0] != "i2" {
		t.Fatalf("rows not ordered: %v", recs)
	}
	if recs[1][5] != "2025-03-01T09:00:00Z" {
		t.Fatalf("timestamp: %s", recs[1][5])
	}
}

func TestExportPointsCSV(t *testing.T) {
	rows := []PointRow{
		{InvitationID: "i1", Email: "a@x.io", Status: "COMPLETED", Point: &Point{X: -1.25, Y: 0.5}},
		{InvitationID: "i2", Email: "b@x.io", Status: "PENDING"},
	}
	b, err := ExportPointsCSV(rows)
	if err != nil {
		t.Fatalf("export points: %v", err)
	}
	recs, err := readCSV(b)
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if strings.Join(recs[0], ",") != "invitation_id,email,status,x,y" {
		t.Fatalf("header mismatch: %v", recs[0])
	}
	if recs[1][3] != "-1.25" || recs[1][4] != "0.5" {
		t.Fatalf("point mismatch: %v", recs[1])
	}
	if recs[2][3] != "" || recs[2][4] != "" {
		t.Fatalf("pending row should have no point: %v", recs[2])
	}
}
