package forms

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"geekshelf/internal/domain"
)

const (
	// DateLayout is the wire format of the release date field.
	DateLayout = "2006-01-02"

	// Multipart parse ceiling. The image itself is limited separately.
	maxFormMemory = 1 << 20
)

// ProductForm carries the raw values of one creation or edit submission plus
// any validation failures keyed by field name.
type ProductForm struct {
	Name        string
	Stock       string
	ReleaseDate string
	CategoryID  string

	ImageFilename string
	ImageBytes    []byte

	Errors map[string][]string
}

// ParseProductForm reads a multipart submission into a ProductForm. A missing
// image part is not a parse error; the validation rules report it.
func ParseProductForm(r *http.Request) (*ProductForm, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	form := &ProductForm{
		Name:        r.FormValue("name"),
		Stock:       r.FormValue("stock"),
		ReleaseDate: r.FormValue("release_date"),
		CategoryID:  r.FormValue("category"),
		Errors:      map[string][]string{},
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		form.ImageFilename = header.Filename
		form.ImageBytes = data
	} else if err != http.ErrMissingFile {
		return nil, fmt.Errorf("failed to read image part: %w", err)
	}

	return form, nil
}

// Validate runs the full creation rule set: every rule of every field, with
// failures aggregated into Errors. Returns true when the submission is clean.
func (f *ProductForm) Validate(categories map[int64]string) bool {
	f.Errors = map[string][]string{}

	fields := []Field{
		{Name: "name", Rules: []Rule{Required()}},
		{Name: "stock", Rules: []Rule{Required(), Integer(), MinInt(0)}},
		{Name: "release_date", Rules: []Rule{Required(), ValidDate(DateLayout)}},
		{Name: "category", Rules: []Rule{Required(), MemberOf(categories)}},
	}

	values := map[string]string{
		"name":         f.Name,
		"stock":        f.Stock,
		"release_date": f.ReleaseDate,
		"category":     f.CategoryID,
	}

	for _, field := range fields {
		if msgs := runRules(field.Rules, values[field.Name]); len(msgs) > 0 {
			f.Errors[field.Name] = msgs
		}
	}

	imageRules := []FileRule{FileRequired(), FileMaxSize(domain.MaxImageBytes)}
	if msgs := runFileRules(imageRules, f.ImageFilename, len(f.ImageBytes)); len(msgs) > 0 {
		f.Errors["image"] = msgs
	}

	return len(f.Errors) == 0
}

// CheckPresence is the edit-path check: name, stock, date, and category must
// all be present and truthy (a zero stock or category counts as absent). It
// does not re-run the full creation rule set.
func (f *ProductForm) CheckPresence() bool {
	if f.Name == "" || f.ReleaseDate == "" {
		return false
	}
	if _, err := time.Parse(DateLayout, f.ReleaseDate); err != nil {
		return false
	}

	stock, err := strconv.Atoi(f.Stock)
	if err != nil || stock == 0 {
		return false
	}

	category, err := strconv.ParseInt(f.CategoryID, 10, 64)
	if err != nil || category == 0 {
		return false
	}

	return true
}

// HasNewImage reports whether the submission carried a replacement image.
func (f *ProductForm) HasNewImage() bool {
	return f.ImageFilename != ""
}

// ParsedStock returns the stock value; call only after validation.
func (f *ProductForm) ParsedStock() int {
	n, _ := strconv.Atoi(f.Stock)
	return n
}

// ParsedReleaseDate returns the release date; call only after validation.
func (f *ProductForm) ParsedReleaseDate() time.Time {
	t, _ := time.Parse(DateLayout, f.ReleaseDate)
	return t
}

// ParsedCategoryID returns the category id; call only after validation.
func (f *ProductForm) ParsedCategoryID() int64 {
	id, _ := strconv.ParseInt(f.CategoryID, 10, 64)
	return id
}

// ParseDate parses a value in the catalog's wire date format.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}
