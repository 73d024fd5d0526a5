package probe

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/c360/sigflow/property"
	"github.com/c360/sigflow/tag"
)

// tagView is the comparable form of a tag.Tag
type tagView struct {
	Index int64
	Map   map[string]any
}

func tagOptions(ignoreKeys []string) cmp.Options {
	ignored := make(map[string]bool, len(ignoreKeys))
	for _, k := range ignoreKeys {
		ignored[k] = true
	}
	return cmp.Options{
		cmp.Transformer("tag", func(t tag.Tag) tagView {
			return tagView{Index: t.Index, Map: t.Map.ToGoMap()}
		}),
		cmp.Transformer("properties", func(m property.Map) map[string]any {
			return m.ToGoMap()
		}),
		cmpopts.IgnoreMapEntries(func(k string, _ any) bool { return ignored[k] }),
		cmpopts.EquateEmpty(),
	}
}

// EqualTagLists reports whether a and b hold the same tags in the same
// order. Keys listed in ignoreKeys are left out of the map comparison.
func EqualTagLists(a, b []tag.Tag, ignoreKeys ...string) bool {
	return cmp.Equal(a, b, tagOptions(ignoreKeys)...)
}

// TagListDiff returns a human readable diff of two tag lists, empty when
// EqualTagLists would report true.
func TagListDiff(a, b []tag.Tag, ignoreKeys ...string) string {
	return cmp.Diff(a, b, tagOptions(ignoreKeys)...)
}

// MapDiffReport lists every key whose presence or value differs between a
// and b. Keys of a come first in their order, then keys only in b.
func MapDiffReport(a, b property.Map, nameA, nameB string, ignoreKeys ...string) []string {
	ignored := make(map[string]bool, len(ignoreKeys))
	for _, k := range ignoreKeys {
		ignored[k] = true
	}

	var report []string
	a.Range(func(k string, va any) bool {
		if ignored[k] {
			return true
		}
		vb, ok := b.Get(k)
		switch {
		case !ok:
			report = append(report, fmt.Sprintf("key %q: present in %s, missing in %s", k, nameA, nameB))
		case !reflect.DeepEqual(va, vb):
			report = append(report, fmt.Sprintf("key %q: %s=%v %s=%v", k, nameA, va, nameB, vb))
		}
		return true
	})
	b.Range(func(k string, _ any) bool {
		if !ignored[k] && !a.Has(k) {
			report = append(report, fmt.Sprintf("key %q: present in %s, missing in %s", k, nameB, nameA))
		}
		return true
	})
	return report
}

// FormatTag renders t as "prefix @index= N: map: { k: v, ... }"
func FormatTag(t tag.Tag, prefix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s @index= %d: map: {", prefix, t.Index)
	if t.Map.IsEmpty() {
		sb.WriteString(" <empty map> }")
		return sb.String()
	}
	for i, k := range t.Map.Keys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		v, _ := t.Map.Get(k)
		fmt.Fprintf(&sb, " %s: %v", k, v)
	}
	sb.WriteString(" }")
	return sb.String()
}
