package scraper

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"avinfo/internal/config"
	"avinfo/internal/httpclient"
	"avinfo/internal/logger"
	"avinfo/pkg/models"
)

// SheetSource reads curated rows from a Google spreadsheet, or from a local
// CSV export of one when CSVPath is set.
type SheetSource struct {
	cfg    config.SheetConfig
	policy httpclient.Policy
	opts   []option.ClientOption
	log    *logger.Logger
}

type SheetOption func(*SheetSource)

// WithSheetsClientOptions adds options for the Sheets API client, replacing
// the service-account credentials from config.
func WithSheetsClientOptions(opts ...option.ClientOption) SheetOption {
	return func(s *SheetSource) { s.opts = append(s.opts, opts...) }
}

func NewSheetSource(cfg config.SheetConfig, policy httpclient.Policy, log *logger.Logger, opts ...SheetOption) *SheetSource {
	if log == nil {
		log = logger.Nop()
	}
	s := &SheetSource{cfg: cfg, policy: policy, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SheetSource) Name() string { return "sheet" }

func (s *SheetSource) Fetch(ctx context.Context) ([]models.SheetRow, error) {
	if s.cfg.CSVPath != "" {
		return readCSVRows(s.cfg.CSVPath)
	}

	clientOpts, ok := s.clientOptions()
	if s.cfg.SpreadsheetID == "" || !ok {
		s.log.Warn("sheet not configured, skipping fetch")
		return []models.SheetRow{}, nil
	}

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}

	readRange := s.sheetName() + "!A1:Z"
	vr, err := httpclient.Retry(ctx, s.policy, func(actx context.Context) (*sheets.ValueRange, error) {
		return svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, readRange).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("SERIAL_NUMBER").
			Context(actx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("sheets get %s: %w", readRange, err)
	}
	return rowsFromValues(vr.Values), nil
}

func (s *SheetSource) sheetName() string {
	if s.cfg.SheetName != "" {
		return s.cfg.SheetName
	}
	return "embeds"
}

// clientOptions reports false when there is nothing to authenticate with.
func (s *SheetSource) clientOptions() ([]option.ClientOption, bool) {
	if len(s.opts) > 0 {
		return s.opts, true
	}
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	switch {
	case strings.TrimSpace(s.cfg.ServiceAccountJSON) != "":
		return append(opts, option.WithCredentialsJSON([]byte(s.cfg.ServiceAccountJSON))), true
	case s.cfg.ServiceAccountFile != "":
		return append(opts, option.WithCredentialsFile(s.cfg.ServiceAccountFile)), true
	}
	return nil, false
}

// rowsFromValues keys every row by the first row. Fewer than two rows means
// there is no data.
func rowsFromValues(values [][]interface{}) []models.SheetRow {
	out := []models.SheetRow{}
	if len(values) < 2 {
		return out
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(cellString(h))
	}
	for _, raw := range values[1:] {
		cells := make([]string, len(raw))
		for i, c := range raw {
			cells[i] = cellString(c)
		}
		if row := buildRow(header, cells); row != nil {
			out = append(out, row)
		}
	}
	return out
}

func cellString(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprint(c)
	}
}

func buildRow(header, cells []string) models.SheetRow {
	row := make(models.SheetRow, len(header))
	empty := true
	for i, name := range header {
		if name == "" {
			continue
		}
		v := valueAt(cells, i)
		if strings.TrimSpace(v) != "" {
			empty = false
		}
		row[name] = v
	}
	if empty {
		return nil
	}
	return row
}

func valueAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func readCSVRows(path string) ([]models.SheetRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.SheetRow{}, nil
		}
		return nil, fmt.Errorf("read sheet csv header: %w", err)
	}

	out := []models.SheetRow{}
	for {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sheet csv: %w", err)
		}
		if row := buildRow(header, cells); row != nil {
			out = append(out, row)
		}
	}
	return out, nil
}

func readHeader(r *csv.Reader) ([]string, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make([]string, len(row))
	for i, name := range row {
		header[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}
	return header, nil
}
