package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"slidemill/internal/settings"
)

// Wildcard is the reserved product name matching every product of a content type.
const Wildcard = "all"

// KeyOrder is the required order of the top-level keys in metadata.json.
var KeyOrder = []string{"content_types", "products", "structure", "images", "untagged", "settings"}

// Settings sources persisted on each image record.
const (
	SourceDefault = "default"
	SourceCustom  = "custom"
	SourceContent = "content"
	SourceProduct = "product"
)

// Metadata is the whole metadata document. Field order matches KeyOrder and
// therefore the serialized key order.
type Metadata struct {
	ContentTypes []string                  `json:"content_types"`
	Products     map[string][]Product      `json:"products"`
	Structure    map[string]Structure      `json:"structure"`
	Images       map[string]*Image         `json:"images"`
	Untagged     []string                  `json:"untagged"`
	Settings     map[string]*SettingsTable `json:"settings"`

	// keyOrder and imageOrder record the key order seen when decoding. They
	// are nil for documents built in memory, whose order is canonical.
	keyOrder   []string
	imageOrder []string
}

// Product is a tag distinguishing images within one content type.
type Product struct {
	Name              string `json:"name"`
	PreventDuplicates bool   `json:"prevent_duplicates"`
	MinOccurrences    int    `json:"min_occurrences"`
	CurrentCount      int    `json:"current_count"`

	missing []string
}

// Structure describes one content-type folder.
type Structure struct {
	Path   string   `json:"path"`
	Images []string `json:"images"`
}

// Dimensions are pixel sizes probed from the image file.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Image is the per-file record.
type Image struct {
	ContentType    string         `json:"content_type"`
	Dimensions     Dimensions     `json:"dimensions"`
	Product        *string        `json:"product"`
	SettingsSource string         `json:"settings_source"`
	Settings       *settings.Blob `json:"settings"`

	missing []string
}

// ProductName returns the assigned product or "" when none is assigned.
func (img *Image) ProductName() string {
	if img == nil || img.Product == nil {
		return ""
	}
	return *img.Product
}

// Catalog is the content-type and product inventory derived from the captions source.
type Catalog struct {
	ContentTypes   []string
	Products       map[string][]string
	MinOccurrences map[string]map[string]int
}

// New returns an empty document with every section initialised.
func New() *Metadata {
	return &Metadata{
		ContentTypes: []string{},
		Products:     map[string][]Product{},
		Structure:    map[string]Structure{},
		Images:       map[string]*Image{},
		Untagged:     []string{},
		Settings:     map[string]*SettingsTable{},
	}
}

// Decode parses a metadata document. A document whose top-level keys deviate
// from KeyOrder is rejected with ErrKeyOrder before anything else is decoded.
func Decode(data []byte) (*Metadata, error) {
	keys, err := objectKeys(data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if !equalStrings(keys, KeyOrder) {
		return nil, fmt.Errorf("%w: expected %v, found %v", ErrKeyOrder, KeyOrder, keys)
	}
	md := New()
	if err := json.Unmarshal(data, md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}

// UnmarshalJSON decodes the document and records the key order found on disk.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type plain Metadata
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw struct {
		Images json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	keys, err := objectKeys(data)
	if err != nil {
		return err
	}
	imageOrder, err := objectKeys(raw.Images)
	if err != nil {
		return fmt.Errorf("images: %w", err)
	}
	*m = Metadata(p)
	m.keyOrder = keys
	m.imageOrder = imageOrder
	m.ensureSections()
	return nil
}

// UnmarshalJSON records which required product fields were present.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Product(v)
	p.missing = missingFields(data, "name", "prevent_duplicates")
	return nil
}

// UnmarshalJSON records which required image fields were present.
func (img *Image) UnmarshalJSON(data []byte) error {
	type plain Image
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*img = Image(v)
	img.missing = missingFields(data, "content_type", "dimensions", "product", "settings_source", "settings")
	return nil
}

// Clone returns a deep copy of the document.
func (m *Metadata) Clone() (*Metadata, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("clone metadata: %w", err)
	}
	out := New()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("clone metadata: %w", err)
	}
	out.keyOrder = nil
	out.imageOrder = nil
	return out, nil
}

// HasContentType reports whether ct is a declared content type.
func (m *Metadata) HasContentType(ct string) bool {
	for _, candidate := range m.ContentTypes {
		if candidate == ct {
			return true
		}
	}
	return false
}

// ProductNames returns the declared product names for ct in stored order.
func (m *Metadata) ProductNames(ct string) []string {
	products := m.Products[ct]
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	return names
}

// Product returns the declared product named name within ct.
func (m *Metadata) Product(ct, name string) (Product, bool) {
	idx := m.productIndex(ct, name)
	if idx < 0 {
		return Product{}, false
	}
	return m.Products[ct][idx], true
}

// IsValidProduct reports whether name may be assigned to an image of ct:
// any declared product or the wildcard.
func (m *Metadata) IsValidProduct(ct, name string) bool {
	return name == Wildcard || m.productIndex(ct, name) >= 0
}

// ImageNames returns every image name in ascending order.
func (m *Metadata) ImageNames() []string {
	return sortedKeys(m.Images)
}

func (m *Metadata) productIndex(ct, name string) int {
	for i, p := range m.Products[ct] {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// adjustCount moves a product's current count by delta; the wildcard moves every product of ct.
func (m *Metadata) adjustCount(ct, name string, delta int) {
	products := m.Products[ct]
	for i := range products {
		if name != Wildcard && products[i].Name != name {
			continue
		}
		products[i].CurrentCount += delta
		if products[i].CurrentCount < 0 {
			products[i].CurrentCount = 0
		}
	}
}

func (m *Metadata) ensureSections() {
	if m.ContentTypes == nil {
		m.ContentTypes = []string{}
	}
	if m.Products == nil {
		m.Products = map[string][]Product{}
	}
	if m.Structure == nil {
		m.Structure = map[string]Structure{}
	}
	if m.Images == nil {
		m.Images = map[string]*Image{}
	}
	if m.Untagged == nil {
		m.Untagged = []string{}
	}
	if m.Settings == nil {
		m.Settings = map[string]*SettingsTable{}
	}
}

// objectKeys returns the keys of a JSON object in document order. A null or
// empty input yields no keys.
func objectKeys(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("expected an object key")
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func missingFields(data []byte, required ...string) []string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return required
	}
	var missing []string
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isSortedUnique(values []string) bool {
	for i := 1; i < len(values); i++ {
		if values[i-1] >= values[i] {
			return false
		}
	}
	return true
}

// insertSorted adds value to a sorted slice when absent.
func insertSorted(values []string, value string) []string {
	idx := sort.SearchStrings(values, value)
	if idx < len(values) && values[idx] == value {
		return values
	}
	values = append(values, "")
	copy(values[idx+1:], values[idx:])
	values[idx] = value
	return values
}

// removeValue drops every occurrence of value.
func removeValue(values []string, value string) []string {
	out := values[:0]
	for _, v := range values {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
