package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/academy/core"
)

var (
	CourseCSVHeader = []string{
		"title", "description", "difficulty", "is_active", "is_mandatory", "order", "estimated_duration_minutes",
	}
	ModuleCSVHeader = []string{
		"course_id", "title", "description", "content_type", "order", "video_url", "text_content",
		"duration_minutes", "is_required",
	}
	courseRequiredCols = []string{"title"}
	moduleRequiredCols = []string{"course_id", "title"}
)

// RowError holds the errors of one CSV data row; Row counts the header as row 1.
type RowError struct {
	Row    int               `json:"row"`
	Errors map[string]string `json:"errors"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors"`
}

type csvRow map[string]string

func (r csvRow) bool(col string, def bool) (*bool, error) {
	v := strings.TrimSpace(r[col])
	if v == "" {
		return &def, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return nil, fmt.Errorf("%q is not a boolean", v)
	}
	return &b, nil
}

func (r csvRow) int(col string) (int, error) {
	v := strings.TrimSpace(r[col])
	if v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", v)
	}
	return i, nil
}

// readCSV reads all rows of `r`, keyed by their header column.
// Unknown columns are rejected with the closest known column as suggestion.
func readCSV(r io.Reader, known, required []string) ([]csvRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is empty"})
	} else if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
	}

	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = core.CleanString(strings.TrimPrefix(col, "\ufeff"), true /* lower */)
		header[i] = col
		if !contains(known, col) {
			msg := fmt.Sprintf("unknown column %q", col)
			if match := closestMatch(col, known); match != "" {
				msg += fmt.Sprintf(" (did you mean %q?)", match)
			}
			return nil, core.NewValidationError(nil, core.FieldError{Field: "header", Error: msg})
		}
		if seen[col] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "header", Error: fmt.Sprintf("duplicate column %q", col)})
		}
		seen[col] = true
	}
	for _, col := range required {
		if !seen[col] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "header", Error: fmt.Sprintf("missing column %q", col)})
		}
	}

	var rows []csvRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
		}
		row := make(csvRow, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (svc *Service) rowErrors(err error) map[string]string {
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(e))
		for _, vErr := range e {
			fldErrs[vErr.Field()] = vErr.Translate(svc.translator)
		}
		return fldErrs
	case *core.ValidationError:
		fldErrs := make(map[string]string, len(e.Fields))
		for _, fErr := range e.Fields {
			fldErrs[fErr.Field] = fErr.Error
		}
		if len(fldErrs) == 0 {
			fldErrs["row"] = e.Error()
		}
		return fldErrs
	default:
		return map[string]string{"row": err.Error()}
	}
}

// ImportCourses creates the courses listed in the CSV `r`.
// Nothing is created when any row is invalid.
func (svc *Service) ImportCourses(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := readCSV(r, CourseCSVHeader, courseRequiredCols)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Errors: make([]RowError, 0)}
	courses := make([]NewCourse, 0, len(rows))
	for i, row := range rows {
		nc, fldErrs := svc.parseCourseRow(row)
		if fldErrs == nil {
			if err := nc.Validate(svc.validate); err != nil {
				fldErrs = svc.rowErrors(err)
			}
		}
		if fldErrs != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 2, Errors: fldErrs})
			continue
		}
		courses = append(courses, nc)
	}
	if len(res.Errors) > 0 {
		return res, nil
	}

	for _, nc := range courses {
		if _, err := svc.CreateCourse(ctx, nc); err != nil {
			return res, errors.Wrap(err, "creating course")
		}
		res.Created++
	}
	return res, nil
}

func (svc *Service) parseCourseRow(row csvRow) (NewCourse, map[string]string) {
	fldErrs := make(map[string]string)
	nc := NewCourse{
		Title:       row["title"],
		Description: row["description"],
		Difficulty:  row["difficulty"],
	}
	var err error
	if nc.IsActive, err = row.bool("is_active", true); err != nil {
		fldErrs["is_active"] = err.Error()
	}
	if nc.IsMandatory, err = row.bool("is_mandatory", true); err != nil {
		fldErrs["is_mandatory"] = err.Error()
	}
	if nc.Order, err = row.int("order"); err != nil {
		fldErrs["order"] = err.Error()
	}
	if nc.EstimatedDurationMinutes, err = row.int("estimated_duration_minutes"); err != nil {
		fldErrs["estimated_duration_minutes"] = err.Error()
	}
	if len(fldErrs) > 0 {
		return nc, fldErrs
	}
	return nc, nil
}

// ImportModules creates the modules listed in the CSV `r`.
// Nothing is created when any row is invalid or references an unknown course.
func (svc *Service) ImportModules(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := readCSV(r, ModuleCSVHeader, moduleRequiredCols)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Errors: make([]RowError, 0)}
	modules := make([]NewModule, 0, len(rows))
	courses := make(map[int]bool)
	orders := make(map[[2]int]int) // {course, order}: CSV row, 0 for saved modules
	for i, row := range rows {
		rowNum := i + 2 // header is row 1
		nm, fldErrs := svc.parseModuleRow(row)
		if fldErrs == nil {
			if err := nm.Validate(svc.validate); err != nil {
				fldErrs = svc.rowErrors(err)
			}
		}
		if fldErrs == nil {
			found, ok := courses[nm.CourseID]
			if !ok {
				if found, err = svc.loadModuleOrders(ctx, nm.CourseID, orders); err != nil {
					return ImportResult{}, err
				}
				courses[nm.CourseID] = found
			}
			key := [2]int{nm.CourseID, nm.Order}
			prev, taken := orders[key]
			switch {
			case !found:
				fldErrs = map[string]string{"course_id": ErrCourseNotFound.Error()}
			case taken && prev == 0:
				fldErrs = map[string]string{"order": ErrDuplicateOrder.Error()}
			case taken:
				fldErrs = map[string]string{"order": fmt.Sprintf("order already used on row %d", prev)}
			default:
				orders[key] = rowNum
			}
		}
		if fldErrs != nil {
			res.Errors = append(res.Errors, RowError{Row: rowNum, Errors: fldErrs})
			continue
		}
		modules = append(modules, nm)
	}
	if len(res.Errors) > 0 {
		return res, nil
	}

	// every row is valid here: modules[i] is CSV row i+2
	for i, nm := range modules {
		if _, err := svc.CreateModule(ctx, nm); err != nil {
			if core.IsValidation(err) { // module saved concurrently
				res.Errors = append(res.Errors, RowError{Row: i + 2, Errors: svc.rowErrors(err)})
				return res, nil
			}
			return res, errors.Wrap(err, "creating module")
		}
		res.Created++
	}
	return res, nil
}

// loadModuleOrders records the orders already used in the course into `orders`.
// It reports whether the course exists.
func (svc *Service) loadModuleOrders(ctx context.Context, courseID int, orders map[[2]int]int) (bool, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting course")
	}
	saved, err := svc.repo.QueryModules(ctx, courseID)
	if err != nil {
		return false, errors.Wrap(err, "querying modules")
	}
	for _, m := range saved {
		orders[[2]int{courseID, m.Order}] = 0
	}
	return true, nil
}

func (svc *Service) parseModuleRow(row csvRow) (NewModule, map[string]string) {
	fldErrs := make(map[string]string)
	nm := NewModule{
		Title:       row["title"],
		Description: row["description"],
		ContentType: row["content_type"],
		VideoURL:    row["video_url"],
		TextContent: row["text_content"],
	}
	var err error
	if nm.CourseID, err = row.int("course_id"); err != nil {
		fldErrs["course_id"] = err.Error()
	}
	if nm.Order, err = row.int("order"); err != nil {
		fldErrs["order"] = err.Error()
	}
	if nm.DurationMinutes, err = row.int("duration_minutes"); err != nil {
		fldErrs["duration_minutes"] = err.Error()
	}
	if nm.IsRequired, err = row.bool("is_required", true); err != nil {
		fldErrs["is_required"] = err.Error()
	}
	if len(fldErrs) > 0 {
		return nm, fldErrs
	}
	return nm, nil
}

// ExportCourses writes all courses as CSV, in the import format plus a leading id column.
func (svc *Service) ExportCourses(ctx context.Context, w io.Writer) error {
	courses, err := svc.repo.QueryCourses(ctx, CourseFilter{})
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, CourseCSVHeader...)); err != nil {
		return err
	}
	for _, c := range courses {
		rec := []string{
			strconv.Itoa(c.ID),
			c.Title,
			c.Description,
			c.Difficulty,
			strconv.FormatBool(c.IsActive),
			strconv.FormatBool(c.IsMandatory),
			strconv.Itoa(c.Order),
			strconv.Itoa(c.EstimatedDurationMinutes),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportModules writes all modules as CSV, in the import format plus a leading id column.
func (svc *Service) ExportModules(ctx context.Context, w io.Writer) error {
	modules, err := svc.repo.QueryModules(ctx, 0)
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, ModuleCSVHeader...)); err != nil {
		return err
	}
	for _, m := range modules {
		rec := []string{
			strconv.Itoa(m.ID),
			strconv.Itoa(m.CourseID),
			m.Title,
			m.Description,
			m.ContentType,
			strconv.Itoa(m.Order),
			m.VideoURL,
			m.TextContent,
			strconv.Itoa(m.DurationMinutes),
			strconv.FormatBool(m.IsRequired),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// closestMatch returns the item of `possibilities` most similar to `word`, if similar enough.
func closestMatch(word string, possibilities []string) string {
	var best string
	bestRatio := 0.6
	for _, p := range possibilities {
		m := difflib.NewMatcher(strings.Split(word, ""), strings.Split(p, ""))
		if m.QuickRatio() < bestRatio {
			continue
		}
		if r := m.Ratio(); r >= bestRatio {
			best, bestRatio = p, r
		}
	}
	return best
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
