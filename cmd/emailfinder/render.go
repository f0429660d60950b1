package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/optimode/emailfinder"
)

var tierColors = map[emailfinder.ConfidenceTier]*color.Color{
	emailfinder.TierHigh:    color.New(color.FgGreen, color.Bold),
	emailfinder.TierMedium:  color.New(color.FgYellow),
	emailfinder.TierLow:     color.New(color.FgRed),
	emailfinder.TierInvalid: color.New(color.Faint),
}

func tierString(t emailfinder.ConfidenceTier) string {
	if c, ok := tierColors[t]; ok {
		return c.Sprint(t.String())
	}
	return t.String()
}

func renderProfile(w io.Writer, p emailfinder.Profile) {
	fmt.Fprintf(w, "%s, %s (%s)\n", p.FullName, p.Company, p.CompanyDomain)
}

func renderTable(w io.Writer, results []emailfinder.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no candidates survived verification")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Email", "Confidence", "Source", "Format", "Reason"})
	for i, r := range results {
		t.AppendRow(table.Row{i + 1, r.Address, tierString(r.Tier), r.Source, r.Format, r.Reason})
	}
	t.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encode json")
}

type batchRecord struct {
	Request emailfinder.Request  `json:"request"`
	Profile emailfinder.Profile  `json:"profile"`
	Emails  []emailfinder.Result `json:"emails"`
	Error   string               `json:"error,omitempty"`
}

func batchRecords(reqs []emailfinder.Request, resps []emailfinder.Response) []batchRecord {
	out := make([]batchRecord, len(resps))
	for i, resp := range resps {
		out[i] = batchRecord{Request: reqs[i], Profile: resp.Profile, Emails: resp.Results}
		if out[i].Emails == nil {
			out[i].Emails = []emailfinder.Result{}
		}
		if resp.Err != nil {
			out[i].Error = resp.Err.Error()
		}
	}
	return out
}

var csvHeader = []string{"first_name", "last_name", "company", "company_domain", "email", "confidence", "source", "format", "reason", "error"}

// writeCSV emits one row per result. A request without results still gets
// a row so failures are visible.
func writeCSV(w io.Writer, records []batchRecord) error {
	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeader)
	for _, rec := range records {
		base := []string{rec.Request.FirstName, rec.Request.LastName, rec.Request.Company, rec.Profile.CompanyDomain}
		if len(rec.Emails) == 0 {
			_ = cw.Write(append(base, "", "", "", "", "", rec.Error))
			continue
		}
		for _, r := range rec.Emails {
			row := append(append([]string(nil), base...), r.Address, r.Tier.String(), r.Source, string(r.Format), r.Reason, rec.Error)
			_ = cw.Write(row)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "write csv")
}

// readRequests parses first,last,company[,domain;domain] rows. A header row
// and lines starting with # are skipped.
func readRequests(r io.Reader) ([]emailfinder.Request, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var out []emailfinder.Request
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		if line == 1 && isHeader(row) {
			continue
		}
		if len(row) < 3 {
			return nil, errors.Errorf("csv line %d: want first,last,company[,domains], got %d fields", line, len(row))
		}
		req := emailfinder.Request{
			FirstName: strings.TrimSpace(row[0]),
			LastName:  strings.TrimSpace(row[1]),
			Company:   strings.TrimSpace(row[2]),
		}
		if len(row) > 3 {
			for _, d := range strings.Split(row[3], ";") {
				if d = strings.TrimSpace(d); d != "" {
					req.ExtraDomains = append(req.ExtraDomains, d)
				}
			}
		}
		out = append(out, req)
	}
	return out, nil
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(row[0])) {
	case "first", "first_name", "firstname", "first name":
		return true
	}
	return false
}
