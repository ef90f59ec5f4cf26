package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
	"github.com/RockaiDev/bariqe-dashboard/internal/records"
	"github.com/RockaiDev/bariqe-dashboard/internal/repository"
)

// Format is a spreadsheet output format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts xlsx (the default) and csv.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", apperr.InvalidInput(fmt.Sprintf("unsupported export format %q", raw), nil)
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Service writes entity collections to spreadsheets laid out like the import
// worksheets, so an export can be edited and imported again.
type Service struct {
	records  *records.Service
	pageSize int
	now      func() time.Time
}

type Option func(*Service)

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(recordService *records.Service, opts ...Option) *Service {
	service := &Service{
		records:  recordService,
		pageSize: 1000,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Request describes an export of one tenant collection.
type Request struct {
	OrganizationID uuid.UUID
	Entity         domain.EntityDefinition
	Format         Format
	// Query carries the list filters and sort; paging parameters are ignored.
	Query query.Request
}

// Summary reports what an export wrote.
type Summary struct {
	Rows  int   `json:"rows"`
	Bytes int64 `json:"bytes"`
}

// FileName builds the download name of an export.
func (s *Service) FileName(def domain.EntityDefinition, format Format) string {
	return fmt.Sprintf("%s-%s.%s", sanitizeFileComponent(def.Worksheet), s.now().UTC().Format("20060102-150405"), format)
}

// TemplateFileName builds the download name of an empty import template.
func TemplateFileName(def domain.EntityDefinition, format Format) string {
	return fmt.Sprintf("%s-template.%s", sanitizeFileComponent(def.Worksheet), format)
}

// Plan validates the export query before anything is written.
func (s *Service) Plan(req Request) (query.Plan, error) {
	q := req.Query
	q.FieldTypes = req.Entity.FieldType
	return s.records.Paginator().Plan(q)
}

// Export writes every record matching the request to w, page by page.
func (s *Service) Export(ctx context.Context, req Request, w io.Writer) (Summary, error) {
	plan, err := s.Plan(req)
	if err != nil {
		return Summary{}, err
	}

	sheet, err := newSheetWriter(req.Format, req.Entity, w)
	if err != nil {
		return Summary{}, err
	}
	closed := false
	defer func() {
		if !closed {
			sheet.Abort()
		}
	}()

	repo := s.records.Repository()
	scope := repository.Scope{TenantID: req.OrganizationID, Collection: req.Entity.Collection}
	row := make([]any, len(req.Entity.Fields))
	exported := 0

	for offset := 0; ; offset += s.pageSize {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		batch, err := repo.Find(ctx, scope, plan.Filter, plan.Sorts, s.pageSize, offset)
		if err != nil {
			return Summary{}, fmt.Errorf("list %s: %w", req.Entity.Name, err)
		}
		for _, record := range batch {
			for i, field := range req.Entity.Fields {
				row[i] = cellValue(record.Fields[field.Name])
			}
			if err := sheet.WriteRow(row); err != nil {
				return Summary{}, fmt.Errorf("write %s row: %w", req.Entity.Name, err)
			}
			exported++
		}
		if len(batch) < s.pageSize {
			break
		}
	}

	closed = true
	written, err := sheet.Close()
	if err != nil {
		return Summary{}, err
	}

	logging.FromContext(ctx).Info("export finished",
		zap.String("entity", req.Entity.Name),
		zap.String("format", string(req.Format)),
		zap.Int("rows", exported),
		zap.Int64("bytes", written),
	)
	return Summary{Rows: exported, Bytes: written}, nil
}

// Template writes an empty sheet holding only the header row.
func (s *Service) Template(def domain.EntityDefinition, format Format, w io.Writer) error {
	sheet, err := newSheetWriter(format, def, w)
	if err != nil {
		return err
	}
	_, err = sheet.Close()
	return err
}

// sheetWriter streams rows into one output format.
type sheetWriter interface {
	WriteRow(values []any) error
	Close() (int64, error)
	// Abort releases resources without writing the output.
	Abort()
}

func newSheetWriter(format Format, def domain.EntityDefinition, w io.Writer) (sheetWriter, error) {
	headers := make([]any, len(def.Fields))
	for i, h := range def.Headers() {
		headers[i] = h
	}

	switch format {
	case FormatCSV:
		buffered := bufio.NewWriterSize(w, 1<<16)
		counter := &countingWriter{writer: buffered}
		cw := &csvSheet{buffered: buffered, counter: counter, csv: csv.NewWriter(counter)}
		if err := cw.WriteRow(headers); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		return cw, nil

	case FormatXLSX, "":
		f := excelize.NewFile()
		if err := f.SetSheetName("Sheet1", def.Worksheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("name worksheet: %w", err)
		}
		stream, err := f.NewStreamWriter(def.Worksheet)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open worksheet stream: %w", err)
		}
		xw := &xlsxSheet{file: f, stream: stream, out: w}
		if err := xw.WriteRow(headers); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		return xw, nil
	}
	return nil, apperr.InvalidInput(fmt.Sprintf("unsupported export format %q", format), nil)
}

type csvSheet struct {
	buffered *bufio.Writer
	counter  *countingWriter
	csv      *csv.Writer
	record   []string
}

func (c *csvSheet) WriteRow(values []any) error {
	if cap(c.record) < len(values) {
		c.record = make([]string, len(values))
	}
	c.record = c.record[:len(values)]
	for i, value := range values {
		c.record[i] = formatValue(value)
	}
	return c.csv.Write(c.record)
}

func (c *csvSheet) Close() (int64, error) {
	c.csv.Flush()
	if err := c.csv.Error(); err != nil {
		return 0, fmt.Errorf("flush rows: %w", err)
	}
	if err := c.buffered.Flush(); err != nil {
		return 0, fmt.Errorf("flush buffered rows: %w", err)
	}
	return c.counter.count, nil
}

func (c *csvSheet) Abort() {}

type xlsxSheet struct {
	file   *excelize.File
	stream *excelize.StreamWriter
	out    io.Writer
	next   int
}

func (x *xlsxSheet) WriteRow(values []any) error {
	x.next++
	cell, err := excelize.CoordinatesToCellName(1, x.next)
	if err != nil {
		return err
	}
	return x.stream.SetRow(cell, values)
}

func (x *xlsxSheet) Close() (int64, error) {
	defer func() { _ = x.file.Close() }()
	if err := x.stream.Flush(); err != nil {
		return 0, fmt.Errorf("flush worksheet: %w", err)
	}
	n, err := x.file.WriteTo(x.out)
	if err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return n, nil
}

func (x *xlsxSheet) Abort() {
	_ = x.file.Close()
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}

type countingWriter struct {
	writer *bufio.Writer
	count  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.count += int64(n)
	return n, err
}

// cellValue keeps numbers and booleans typed for xlsx and flattens lists into the
// comma separated form the importer splits again.
func cellValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string, bool, float64:
		return v
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		return formatValue(v)
	default:
		return formatValue(v)
	}
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case time.Time:
		return v.UTC().Format(domain.TimeLayout)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []byte:
		return string(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}
