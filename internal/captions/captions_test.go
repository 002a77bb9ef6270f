package captions_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"slidemill/internal/captions"
	"slidemill/internal/testsupport"
)

func parse(t *testing.T, text string) (*captions.Table, error) {
	t.Helper()
	return captions.Parse(strings.NewReader(text), ',')
}

func TestParseBuildsCatalog(t *testing.T) {
	text := strings.Join([]string{
		"product_hook,hook,product_cta,cta,product_hook,hook",
		"magnesium,Sleep better,all,Shop now,magnesium,Twice a day",
		"zinc,\"Immune, support\",zinc,Try it,,",
		"all,Everything,zinc,Again,magnesium,Once",
	}, "\n")
	table, err := parse(t, text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff([]string{"cta", "hook"}, table.ContentTypes); diff != "" {
		t.Fatalf("content types mismatch (-want +got):\n%s", diff)
	}
	wantProducts := map[string][]string{"cta": {"zinc"}, "hook": {"magnesium", "zinc"}}
	if diff := cmp.Diff(wantProducts, table.Products); diff != "" {
		t.Fatalf("products mismatch (-want +got):\n%s", diff)
	}
	wantMin := map[string]map[string]int{"cta": {"zinc": 1}, "hook": {"magnesium": 2, "zinc": 1}}
	if diff := cmp.Diff(wantMin, table.MinOccurrences); diff != "" {
		t.Fatalf("min occurrences mismatch (-want +got):\n%s", diff)
	}
	if table.Posts() != 3 {
		t.Fatalf("posts = %d, want 3", table.Posts())
	}

	row := table.Rows[1]
	if row.Number != 3 || len(row.Slots) != 3 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.Slots[0].Text != "Immune, support" || row.Slots[0].Index != 1 {
		t.Fatalf("unexpected slot: %+v", row.Slots[0])
	}
	if !row.Slots[2].Empty() {
		t.Fatalf("third slot should be empty: %+v", row.Slots[2])
	}
	if diff := cmp.Diff([]string{"Empty product cell at row 3, column 5"}, table.Warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}

	cat := table.Catalog()
	cat.Products["hook"][0] = "changed"
	if table.Products["hook"][0] != "magnesium" {
		t.Fatal("Catalog must copy product lists")
	}
}

func TestParseWarnings(t *testing.T) {
	text := strings.Join([]string{
		"product_hook,hook",
		"Magnesium,One",
		"magnesium,Two",
		"ALL,Three",
	}, "\n")
	table, err := parse(t, text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{
		"Duplicate product name 'magnesium' at row 3 (previously seen as 'Magnesium')",
		"Product 'all' must be lowercase at row 4",
	}
	if diff := cmp.Diff(want, table.Warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Magnesium", "magnesium"}, table.Products["hook"]); diff != "" {
		t.Fatalf("products mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsInvalidTables(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"empty", "  \n", "file is empty"},
		{"odd headers", "product_hook,hook,extra\na,b,c", "pairs"},
		{"bad product header", "prod_hook,hook\na,b", "invalid product header format: prod_hook"},
		{"underscore type", "product_my_hook,my_hook\na,b", "invalid product header format"},
		{"mismatched pair", "product_hook,cta\na,b", "content header 'cta' has no matching product header"},
		{"blank header", "product_hook, \na,b", "headers cannot be empty"},
		{"short row", "product_hook,hook\nmagnesium", "row 2 has incorrect number of columns"},
		{"numeric caption", "product_hook,hook\nmagnesium,123", "row 2, column 2 is a number"},
		{"reserved product", "product_hook,hook\nNone,text", "product name 'none' at row 2, column 1 is a reserved word"},
		{"product named like type", "product_hook,hook\nHook,text", "cannot match content type"},
		{"not utf8", "product_hook,hook\n\xff,text", "not UTF-8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(t, tc.text)
			if !errors.Is(err, captions.ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %q, want substring %q", err.Error(), tc.want)
			}
		})
	}
}

func TestLoadUsesDelimiter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captions.csv")
	testsupport.WriteCaptions(t, path, []string{"product_hook;hook"}, []string{"magnesium;Hello, world"})
	table, err := captions.Load(path, ';')
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := table.Rows[0].Slots[0].Text; got != "Hello, world" {
		t.Fatalf("text = %q", got)
	}

	if _, err := captions.Load(dir, ','); !errors.Is(err, captions.ErrInvalid) {
		t.Fatalf("directory err = %v", err)
	}
	if _, err := captions.Load(filepath.Join(dir, "missing.csv"), ','); !errors.Is(err, captions.ErrInvalid) {
		t.Fatalf("missing file err = %v", err)
	}
}
