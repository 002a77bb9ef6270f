package metadata

import (
	"encoding/json"
	"math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"slidemill/internal/settings"
)

func blobWithFont(size int) *settings.Blob {
	b := settings.Builtin()
	for k, ts := range b.TextSettings {
		ts.FontSize = size
		b.TextSettings[k] = ts
	}
	return b
}

func assertPartition(t *testing.T, table *SettingsTable, products []string) {
	t.Helper()
	owner := map[string]GroupID{}
	groups := table.Groups()
	for _, g := range groups {
		if len(g.Members) == 0 {
			t.Fatalf("group %d is empty", g.ID)
		}
		if !sort.StringsAreSorted(g.Members) {
			t.Fatalf("group %s members not sorted: %v", g.Key, g.Members)
		}
		if g.Key != FormatGroupKey(g.Members) {
			t.Fatalf("group key %q does not match members %v", g.Key, g.Members)
		}
		for _, m := range g.Members {
			if prev, dup := owner[m]; dup {
				t.Fatalf("product %s in groups %d and %d", m, prev, g.ID)
			}
			owner[m] = g.ID
			if got, ok := table.GroupFor(m); !ok || got.ID != g.ID {
				t.Fatalf("index for %s points at wrong group", m)
			}
		}
	}
	for _, p := range products {
		if _, ok := owner[p]; !ok {
			t.Fatalf("product %s has no group", p)
		}
	}
	if len(owner) != len(products) {
		t.Fatalf("groups cover %d products, want %d", len(owner), len(products))
	}
	for i := range groups {
		for j := i + 1; j < len(groups); j++ {
			if settings.Equal(groups[i].Settings, groups[j].Settings) {
				t.Fatalf("groups %s and %s hold equal settings", groups[i].Key, groups[j].Key)
			}
		}
	}
}

func TestNewSettingsTable(t *testing.T) {
	table := NewSettingsTable([]string{"zinc", "magnesium"})
	if !table.ContentDeclared() || table.Content != nil {
		t.Fatal("expected declared null content")
	}
	groups := table.Groups()
	if len(groups) != 1 || groups[0].Key != "[magnesium, zinc]" || groups[0].Settings != nil {
		t.Fatalf("unexpected initial groups: %+v", groups[0])
	}
	if got := NewSettingsTable(nil).Groups(); len(got) != 0 {
		t.Fatalf("expected no groups without products, got %d", len(got))
	}
}

func TestSetProductSettingsSplitMergeAndTakeover(t *testing.T) {
	products := []string{"a", "b", "c"}
	table := NewSettingsTable(products)
	big := blobWithFont(90)
	small := blobWithFont(40)

	// split a out of [a, b, c]
	table.SetProductSettings("a", big)
	assertPartition(t, table, products)
	if g, _ := table.GroupFor("a"); g.Key != "[a]" || !settings.Equal(g.Settings, big) {
		t.Fatalf("expected singleton [a] with big settings, got %s", g.Key)
	}
	if g, _ := table.GroupFor("b"); g.Key != "[b, c]" || g.Settings != nil {
		t.Fatalf("expected [b, c] to keep null settings, got %s", g.Key)
	}

	// b joins the group already holding big
	table.SetProductSettings("b", big)
	assertPartition(t, table, products)
	if g, _ := table.GroupFor("b"); g.Key != "[a, b]" {
		t.Fatalf("expected b to merge into [a, b], got %s", g.Key)
	}

	// c owns [c] alone and takes the new settings over in place
	table.SetProductSettings("c", small)
	assertPartition(t, table, products)
	if len(table.Groups()) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(table.Groups()))
	}
	if g, _ := table.GroupFor("c"); g.Key != "[c]" || !settings.Equal(g.Settings, small) {
		t.Fatalf("expected [c] with small settings, got %s", g.Key)
	}

	// c moves back to the big group and its emptied group disappears
	table.SetProductSettings("c", big)
	assertPartition(t, table, products)
	groups := table.Groups()
	if len(groups) != 1 || groups[0].Key != "[a, b, c]" {
		t.Fatalf("expected single group [a, b, c], got %d groups", len(groups))
	}
}

func TestSetProductSettingsUnchangedIsNoop(t *testing.T) {
	table := NewSettingsTable([]string{"a", "b"})
	before, _ := json.Marshal(table)
	table.SetProductSettings("a", nil)
	after, _ := json.Marshal(table)
	if string(before) != string(after) {
		t.Fatalf("expected no change, got %s", after)
	}
}

func TestSetProductSettingsKeepsPartition(t *testing.T) {
	products := []string{"a", "b", "c", "d", "e"}
	blobs := []*settings.Blob{nil, blobWithFont(30), blobWithFont(50), blobWithFont(70)}
	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7))
		table := NewSettingsTable(products)
		for step := 0; step < 60; step++ {
			p := products[rng.IntN(len(products))]
			b := blobs[rng.IntN(len(blobs))]
			table.SetProductSettings(p, b)
			assertPartition(t, table, products)
			if got, _ := table.SettingsFor(p); !settings.Equal(got, b) {
				t.Fatalf("seed %d step %d: %s does not hold the settings just set", seed, step, p)
			}
		}
	}
}

func TestSettingsTableJSON(t *testing.T) {
	raw := `{"content":null,"[b, a]":null,"bogus":null,"[c]":null,"[a, c]":null}`
	var table SettingsTable
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !table.ContentDeclared() {
		t.Fatal("expected content declared")
	}
	var keys []string
	var formed []bool
	for _, g := range table.Groups() {
		keys = append(keys, g.Key)
		formed = append(formed, g.WellFormed())
	}
	if diff := cmp.Diff([]string{"[b, a]", "bogus", "[c]", "[a, c]"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false, true, true}, formed); diff != "" {
		t.Fatalf("well-formed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "c"}, table.Overlaps()); diff != "" {
		t.Fatalf("overlaps mismatch (-want +got):\n%s", diff)
	}

	out, err := json.Marshal(&table)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.HasPrefix(string(out), `{"content":null,`) {
		t.Fatalf("expected content first, got %s", out)
	}
	if string(out) != raw {
		t.Fatalf("round trip changed keys:\n got %s\nwant %s", out, raw)
	}
}

func TestParseGroupKey(t *testing.T) {
	tests := []struct {
		key  string
		want []string
		ok   bool
	}{
		{"[a, b]", []string{"a", "b"}, true},
		{"[single]", []string{"single"}, true},
		{"[]", []string{}, true},
		{"a, b", nil, false},
		{"[a,,b]", nil, false},
		{"[", nil, false},
	}
	for _, tt := range tests {
		got, ok := ParseGroupKey(tt.key)
		if ok != tt.ok {
			t.Fatalf("ParseGroupKey(%q) ok = %v, want %v", tt.key, ok, tt.ok)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("ParseGroupKey(%q) mismatch (-want +got):\n%s", tt.key, diff)
		}
	}
}
