package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"slidemill/internal/settings"
)

const contentKey = "content"

// GroupID identifies a product group within one settings table.
type GroupID int

// Group is a set of products of one content type sharing a settings blob.
type Group struct {
	ID       GroupID
	Key      string
	Members  []string
	Settings *settings.Blob

	wellFormed bool
}

// WellFormed reports whether the on-disk key used the bracket format.
func (g *Group) WellFormed() bool { return g.wellFormed }

// SettingsTable holds the content-level blob and the product groups of one
// content type. Groups are kept in an explicit table with a product index;
// bracket keys only exist in the serialized form.
type SettingsTable struct {
	Content *settings.Blob

	contentDeclared bool
	groups          map[GroupID]*Group
	order           []GroupID
	index           map[string]GroupID
	nextID          GroupID
}

// NewSettingsTable returns a table with a null content blob and one null group
// covering products.
func NewSettingsTable(products []string) *SettingsTable {
	t := &SettingsTable{contentDeclared: true}
	t.init()
	if len(products) > 0 {
		t.addGroup(products, nil)
	}
	return t
}

// ContentDeclared reports whether the "content" key was present.
func (t *SettingsTable) ContentDeclared() bool { return t.contentDeclared }

// Groups returns the groups in table order.
func (t *SettingsTable) Groups() []*Group {
	if t == nil {
		return nil
	}
	out := make([]*Group, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.groups[id])
	}
	return out
}

// GroupFor returns the group that owns product.
func (t *SettingsTable) GroupFor(product string) (*Group, bool) {
	if t == nil {
		return nil, false
	}
	id, ok := t.index[product]
	if !ok {
		return nil, false
	}
	return t.groups[id], true
}

// SettingsFor returns the settings of the group owning product. found is false
// when no group lists the product.
func (t *SettingsTable) SettingsFor(product string) (blob *settings.Blob, found bool) {
	g, ok := t.GroupFor(product)
	if !ok {
		return nil, false
	}
	return g.Settings, true
}

// Overlaps returns products listed by more than one group, sorted.
func (t *SettingsTable) Overlaps() []string {
	seen := map[string]int{}
	for _, g := range t.Groups() {
		for _, member := range g.Members {
			seen[member]++
		}
	}
	var out []string
	for member, n := range seen {
		if n > 1 {
			out = append(out, member)
		}
	}
	sort.Strings(out)
	return out
}

// SetProductSettings gives product the settings blob while keeping the groups
// a partition: the product joins a group whose settings already equal blob,
// or leaves its shared group for a singleton, or takes over a singleton group
// it owns alone. Emptied groups are removed.
func (t *SettingsTable) SetProductSettings(product string, blob *settings.Blob) {
	t.init()
	current, owned := t.GroupFor(product)
	if owned && settings.Equal(current.Settings, blob) {
		return
	}
	var match *Group
	for _, g := range t.Groups() {
		if owned && g.ID == current.ID {
			continue
		}
		if g.wellFormed && settings.Equal(g.Settings, blob) {
			match = g
			break
		}
	}

	if owned {
		if match == nil && len(current.Members) == 1 {
			current.Settings = blob.Clone()
			t.rekey(current)
			return
		}
		t.removeMember(current, product)
	}
	if match != nil {
		match.Members = insertSorted(match.Members, product)
		t.rekey(match)
		t.index[product] = match.ID
		return
	}
	t.addGroup([]string{product}, blob.Clone())
}

func (t *SettingsTable) init() {
	if t.groups == nil {
		t.groups = map[GroupID]*Group{}
	}
	if t.index == nil {
		t.index = map[string]GroupID{}
	}
}

func (t *SettingsTable) addGroup(members []string, blob *settings.Blob) *Group {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	g := &Group{ID: t.nextID, Members: sorted, Settings: blob, wellFormed: true}
	t.nextID++
	t.rekey(g)
	t.groups[g.ID] = g
	t.order = append(t.order, g.ID)
	for _, member := range sorted {
		if _, taken := t.index[member]; !taken {
			t.index[member] = g.ID
		}
	}
	return g
}

func (t *SettingsTable) removeMember(g *Group, product string) {
	g.Members = removeValue(g.Members, product)
	delete(t.index, product)
	if len(g.Members) > 0 {
		t.rekey(g)
		return
	}
	delete(t.groups, g.ID)
	for i, id := range t.order {
		if id == g.ID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *SettingsTable) rekey(g *Group) {
	if g.wellFormed {
		g.Key = FormatGroupKey(g.Members)
	}
}

// FormatGroupKey renders members in the bracket key format, e.g. "[a, b]".
func FormatGroupKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return "[" + strings.Join(sorted, ", ") + "]"
}

// ParseGroupKey splits a bracket key into its members.
func ParseGroupKey(key string) ([]string, bool) {
	if len(key) < 2 || !strings.HasPrefix(key, "[") || !strings.HasSuffix(key, "]") {
		return nil, false
	}
	inner := strings.TrimSpace(key[1 : len(key)-1])
	if inner == "" {
		return []string{}, true
	}
	parts := strings.Split(inner, ",")
	members := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			return nil, false
		}
		members = append(members, name)
	}
	return members, true
}

// MarshalJSON writes "content" first and then the groups in table order.
func (t *SettingsTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, blob *settings.Blob) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(blob)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	if t.contentDeclared || t.Content != nil {
		if err := write(contentKey, t.Content); err != nil {
			return nil, err
		}
	}
	for _, g := range t.Groups() {
		if err := write(g.Key, g.Settings); err != nil {
			return nil, fmt.Errorf("settings group %s: %w", g.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps group keys as found so malformed or overlapping groups
// can be reported by validation.
func (t *SettingsTable) UnmarshalJSON(data []byte) error {
	*t = SettingsTable{}
	t.init()
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("settings table must be an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var blob *settings.Blob
		if err := dec.Decode(&blob); err != nil {
			return fmt.Errorf("settings %q: %w", key, err)
		}
		if key == contentKey {
			t.Content = blob
			t.contentDeclared = true
			continue
		}
		members, ok := ParseGroupKey(key)
		g := &Group{ID: t.nextID, Key: key, Members: members, Settings: blob, wellFormed: ok}
		t.nextID++
		t.groups[g.ID] = g
		t.order = append(t.order, g.ID)
		for _, member := range members {
			if _, taken := t.index[member]; !taken {
				t.index[member] = g.ID
			}
		}
	}
	return nil
}
