package captions

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"slidemill/internal/metadata"
	"slidemill/internal/textutil"
)

const productPrefix = "product_"

// ErrInvalid wraps every table rejection.
var ErrInvalid = errors.New("invalid captions")

var reservedProducts = map[string]struct{}{"none": {}, "null": {}}

// Slot is one product/caption pair of a post. Index is the 1-based pair number.
type Slot struct {
	Index       int
	ContentType string
	Product     string
	Text        string
}

// Empty reports whether the slot has no caption and is skipped at generation time.
func (s Slot) Empty() bool { return s.Text == "" }

// Row is one post. Number is the line number in the table.
type Row struct {
	Number int
	Slots  []Slot
}

// Table is a parsed captions file.
type Table struct {
	Headers        []string
	ContentTypes   []string
	Products       map[string][]string
	MinOccurrences map[string]map[string]int
	Rows           []Row
	Warnings       []string
}

// Load reads and parses path. separator is the single-rune field delimiter.
func Load(path string, separator rune) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: path is not a file: %s", ErrInvalid, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	table, err := Parse(bytes.NewReader(data), separator)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Parse decodes a captions table.
func Parse(r io.Reader, separator rune) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalid)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: file is not UTF-8 encoded", ErrInvalid)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = separator
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	pairs, err := parseHeaders(headers)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Headers:        headers,
		Products:       map[string][]string{},
		MinOccurrences: map[string]map[string]int{},
	}
	types := map[string]struct{}{}
	for _, ct := range pairs {
		if _, ok := types[ct]; !ok {
			types[ct] = struct{}{}
			t.ContentTypes = append(t.ContentTypes, ct)
			t.MinOccurrences[ct] = map[string]int{}
		}
	}
	sort.Strings(t.ContentTypes)

	firstSpelling := map[string]map[string]string{}
	for i, record := range records[1:] {
		line := i + 2
		if len(record) != len(headers) {
			return nil, fmt.Errorf("%w: row %d has incorrect number of columns", ErrInvalid, line)
		}
		row := Row{Number: line}
		perRow := map[string]map[string]int{}
		for idx, ct := range pairs {
			product := strings.TrimSpace(record[idx*2])
			text := strings.TrimSpace(record[idx*2+1])
			if isNumeric(text) {
				return nil, fmt.Errorf("%w: cell at row %d, column %d is a number, not a caption", ErrInvalid, line, idx*2+2)
			}
			if err := t.checkProduct(product, line, idx*2+1, types); err != nil {
				return nil, err
			}
			row.Slots = append(row.Slots, Slot{Index: idx + 1, ContentType: ct, Product: product, Text: text})
			if product == "" {
				t.Warnings = append(t.Warnings, fmt.Sprintf("Empty product cell at row %d, column %d", line, idx*2+1))
				continue
			}
			if strings.EqualFold(product, metadata.Wildcard) {
				if product != metadata.Wildcard {
					t.Warnings = append(t.Warnings, fmt.Sprintf("Product 'all' must be lowercase at row %d", line))
				}
				continue
			}
			if firstSpelling[ct] == nil {
				firstSpelling[ct] = map[string]string{}
			}
			key := textutil.FoldKey(product)
			if seen, ok := firstSpelling[ct][key]; ok && seen != product {
				t.Warnings = append(t.Warnings, fmt.Sprintf("Duplicate product name '%s' at row %d (previously seen as '%s')", product, line, seen))
			} else if !ok {
				firstSpelling[ct][key] = product
			}
			if perRow[ct] == nil {
				perRow[ct] = map[string]int{}
			}
			perRow[ct][product]++
		}
		for ct, counts := range perRow {
			for product, n := range counts {
				if n > t.MinOccurrences[ct][product] {
					t.MinOccurrences[ct][product] = n
				}
			}
		}
		t.Rows = append(t.Rows, row)
	}

	for _, ct := range t.ContentTypes {
		names := make([]string, 0, len(t.MinOccurrences[ct]))
		for name := range t.MinOccurrences[ct] {
			names = append(names, name)
		}
		sort.Strings(names)
		t.Products[ct] = names
	}
	return t, nil
}

// parseHeaders returns the content type of each column pair.
func parseHeaders(headers []string) ([]string, error) {
	for _, h := range headers {
		if h == "" {
			return nil, fmt.Errorf("%w: headers cannot be empty or whitespace", ErrInvalid)
		}
	}
	if len(headers)%2 != 0 {
		return nil, fmt.Errorf("%w: headers must come in product_<type>, <type> pairs", ErrInvalid)
	}
	pairs := make([]string, 0, len(headers)/2)
	for i := 0; i < len(headers); i += 2 {
		productHeader, contentHeader := headers[i], headers[i+1]
		ct, ok := strings.CutPrefix(productHeader, productPrefix)
		if !ok || ct == "" || strings.Contains(ct, "_") {
			return nil, fmt.Errorf("%w: invalid product header format: %s. Must be 'product_type'", ErrInvalid, productHeader)
		}
		if contentHeader != ct {
			return nil, fmt.Errorf("%w: content header '%s' has no matching product header", ErrInvalid, contentHeader)
		}
		pairs = append(pairs, ct)
	}
	return pairs, nil
}

func (t *Table) checkProduct(product string, line, column int, types map[string]struct{}) error {
	if product == "" {
		return nil
	}
	lower := strings.ToLower(product)
	if _, ok := reservedProducts[lower]; ok {
		return fmt.Errorf("%w: product name '%s' at row %d, column %d is a reserved word", ErrInvalid, lower, line, column)
	}
	for ct := range types {
		if strings.EqualFold(ct, product) {
			return fmt.Errorf("%w: product name '%s' at row %d, column %d cannot match content type", ErrInvalid, lower, line, column)
		}
	}
	return nil
}

// Catalog returns the content types, products, and minimum occurrences the
// metadata document must agree with.
func (t *Table) Catalog() metadata.Catalog {
	cat := metadata.Catalog{
		ContentTypes:   append([]string(nil), t.ContentTypes...),
		Products:       map[string][]string{},
		MinOccurrences: map[string]map[string]int{},
	}
	for ct, names := range t.Products {
		cat.Products[ct] = append([]string(nil), names...)
		mins := map[string]int{}
		for name, n := range t.MinOccurrences[ct] {
			mins[name] = n
		}
		cat.MinOccurrences[ct] = mins
	}
	return cat
}

// Posts returns the number of caption rows.
func (t *Table) Posts() int { return len(t.Rows) }

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
