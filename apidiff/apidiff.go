// Package apidiff compares the binding surfaces of two manifest
// generations.
package apidiff

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/ardanlabs/vrvbind/manifest"
)

// ErrSilentRemoval is reported for a symbol or header that a later
// generation drops without a removal note.
var ErrSilentRemoval = errors.New("removed without a removal note")

// Category groups the elements of a surface.
type Category string

const (
	SymbolCategory   Category = "symbol"
	HeaderCategory   Category = "header"
	DefineCategory   Category = "define"
	ConstantCategory Category = "constant"
	SettingCategory  Category = "setting"
)

// Element is one comparable item of a manifest. Value is the kind of a
// symbol, the literal of a constant or the value of a setting.
type Element struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Value    string   `json:"value,omitempty"`
}

func (e Element) Less(o Element) bool {
	if e.Category != o.Category {
		return e.Category < o.Category
	}
	return e.Name < o.Name
}

func (e Element) String() string {
	if e.Value == "" {
		return fmt.Sprintf("%s %s", e.Category, e.Name)
	}
	return fmt.Sprintf("%s %s (%s)", e.Category, e.Name, e.Value)
}

// Elements flattens m into its sorted elements.
func Elements(m *manifest.Manifest) []Element {
	var out []Element
	for _, s := range m.Symbols {
		out = append(out, Element{Category: SymbolCategory, Name: s.Name, Value: string(s.Kind)})
	}
	for _, h := range m.Headers {
		out = append(out, Element{Category: HeaderCategory, Name: h})
	}
	for _, d := range m.Defines {
		out = append(out, Element{Category: DefineCategory, Name: d})
	}
	for _, c := range m.Mirror() {
		out = append(out, Element{Category: ConstantCategory, Name: c.Name, Value: c.Value.String()})
	}
	out = append(out,
		Element{Category: SettingCategory, Name: "safety", Value: string(m.Safety)},
		Element{Category: SettingCategory, Name: "exclude_utilities", Value: fmt.Sprint(m.ExcludeUtilities)},
		Element{Category: SettingCategory, Name: "exclude_impls", Value: fmt.Sprint(m.ExcludeImpls)},
	)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Compute computes the difference between the before and after
// generations. Removals are classified using the notes of after.
func Compute(before, after *manifest.Manifest) Report {
	ret := Report{From: before.Version.String(), To: after.Version.String()}
	parallelIter(Elements(before), Elements(after), func(b, a *Element) {
		switch {
		case b == nil:
			ret.add(ReportItem{Name: a.Name, After: a, Conclusion: Compatible})
		case a == nil:
			item := ReportItem{Name: b.Name, Before: b, Conclusion: Compatible}
			if b.Category == SymbolCategory || b.Category == HeaderCategory {
				item.Conclusion = SilentRemoval
				if r, ok := after.Removal(b.Name); ok {
					item.Conclusion = NotedRemoval
					item.Note = r.Note
				}
			}
			ret.add(item)
		case b.Value != a.Value:
			item := ReportItem{Name: a.Name, Before: b, After: a, Conclusion: Compatible}
			if a.Category == SymbolCategory {
				item.Conclusion = Breaking
			}
			ret.add(item)
		}
	})
	return ret
}

// parallelIter walks the sorted slices before and after together, calling
// fn with matching elements. An element without a match is passed with a
// nil counterpart, the lesser element first.
func parallelIter(before, after []Element, fn func(before, after *Element)) {
	b, a := 0, 0
	for b < len(before) || a < len(after) {
		var curBefore, curAfter *Element
		switch {
		case b >= len(before):
			curAfter = &after[a]
			a++
		case a >= len(after):
			curBefore = &before[b]
			b++
		default:
			r := cmpFn(before[b], after[a])
			if r <= 0 {
				curBefore = &before[b]
				b++
			}
			if r >= 0 {
				curAfter = &after[a]
				a++
			}
		}
		fn(curBefore, curAfter)
	}
}

func cmpFn(a, b Element) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// Regressions returns an error naming every silent removal in r.
func (r Report) Regressions() error {
	var errs error
	for _, item := range r.Items {
		if item.Conclusion == SilentRemoval {
			errs = multierr.Append(errs, fmt.Errorf("%s -> %s: %s %s: %w", r.From, r.To, item.Before.Category, item.Name, ErrSilentRemoval))
		}
	}
	return errs
}

// Summary renders r one item per line.
func (r Report) Summary() string {
	var b strings.Builder
	for _, item := range r.Items {
		switch {
		case item.IsAdd():
			fmt.Fprintf(&b, "+ %s\n", item.After)
		case item.IsRemove():
			fmt.Fprintf(&b, "- %s [%s]", item.Before, item.Conclusion)
			if item.Note != "" {
				fmt.Fprintf(&b, ": %s", item.Note)
			}
			b.WriteByte('\n')
		default:
			fmt.Fprintf(&b, "~ %s -> %s [%s]\n", item.Before, item.After.Value, item.Conclusion)
		}
	}
	return b.String()
}
