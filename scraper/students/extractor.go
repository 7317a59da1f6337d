package students

import (
	"fmt"
	"strings"
	"unicode"

	"student-harvester/models"
	"student-harvester/utils"
)

// Layout is the row shape selected by the number of cells a row exposes
type Layout int

const (
	// LayoutUnsupported rows have fewer than 5 cells and are skipped
	LayoutUnsupported Layout = iota
	// LayoutCompact rows have 5-8 cells: name, email, hometown, math, english[, literature]
	LayoutCompact
	// LayoutFull rows have 9 or more cells, one per field in canonical order
	LayoutFull
)

const (
	minCompactCells = 5
	fullCells       = 9
)

func (l Layout) String() string {
	switch l {
	case LayoutFull:
		return "full"
	case LayoutCompact:
		return "compact"
	default:
		return "unsupported"
	}
}

// DetectLayout picks the extraction layout for a row with n cells
func DetectLayout(n int) Layout {
	switch {
	case n >= fullCells:
		return LayoutFull
	case n >= minCompactCells:
		return LayoutCompact
	default:
		return LayoutUnsupported
	}
}

// Row is one rendered table row
type Row interface {
	Cells() ([]string, error)
}

// TextRow is a row whose cell text is already known
type TextRow []string

// Cells returns the cell text
func (r TextRow) Cells() ([]string, error) {
	return r, nil
}

// ExtractResult is the outcome of extracting one page
type ExtractResult struct {
	Records []models.RawRecord
	Cells   [][]string // cell text of every readable row, for page fingerprinting
	Dropped int
	Skipped int
}

// Extractor turns rendered rows into raw records
type Extractor struct {
	logger *utils.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract maps every row to a RawRecord. A row that cannot be read is
// dropped and the remaining rows are still extracted.
func (e *Extractor) Extract(rows []Row) ExtractResult {
	var res ExtractResult
	for i, row := range rows {
		cells, rec, layout, err := e.extractRow(row)
		if err != nil {
			res.Dropped++
			e.logger.Warn("Dropping row %d: %v", i+1, err)
			continue
		}
		res.Cells = append(res.Cells, cells)
		if layout == LayoutUnsupported {
			res.Skipped++
			e.logger.Debug("Skipping row %d: only %d cells", i+1, len(cells))
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func (e *Extractor) extractRow(row Row) (cells []string, rec models.RawRecord, layout Layout, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("row extraction panicked: %v", r)
		}
	}()

	raw, err := row.Cells()
	if err != nil {
		return nil, rec, LayoutUnsupported, err
	}
	cells = make([]string, len(raw))
	for i, c := range raw {
		cells[i] = strings.TrimSpace(c)
	}

	layout = DetectLayout(len(cells))
	switch layout {
	case LayoutFull:
		rec = fullRecord(cells)
	case LayoutCompact:
		rec = compactRecord(cells)
	}
	return cells, rec, layout, nil
}

// fullRecord maps the first nine cells positionally
func fullRecord(cells []string) models.RawRecord {
	values := make(map[models.Field]string, len(models.Fields))
	for i, f := range models.Fields {
		values[f] = cells[i]
	}
	return models.NewRawRecord(values)
}

// compactRecord maps the degraded layout; student_id and dob stay missing
func compactRecord(cells []string) models.RawRecord {
	first, last := splitName(cells[0])
	values := map[models.Field]string{
		models.FieldFirstName:    first,
		models.FieldLastName:     last,
		models.FieldEmail:        cells[1],
		models.FieldHometown:     cells[2],
		models.FieldMathScore:    cells[3],
		models.FieldEnglishScore: cells[4],
	}
	if len(cells) > 5 {
		values[models.FieldLiteratureScore] = cells[5]
	}
	return models.NewRawRecord(values)
}

// splitName splits on the first whitespace run: "Nguyen Van  A" -> "Nguyen", "Van  A"
func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	idx := strings.IndexFunc(full, unicode.IsSpace)
	if idx < 0 {
		return full, ""
	}
	return full[:idx], strings.TrimSpace(full[idx:])
}
