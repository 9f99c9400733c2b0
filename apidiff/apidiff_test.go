package apidiff

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/vrvbind/manifest"
)

func generations(t *testing.T) []*manifest.Manifest {
	t.Helper()
	r, err := manifest.Default()
	require.NoError(t, err)
	var out []*manifest.Manifest
	for _, v := range r.Versions() {
		m, err := r.Resolve(v)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

// No generation drops a symbol or header of the one before it.
func TestGenerationsMonotone(t *testing.T) {
	gens := generations(t)
	require.Len(t, gens, 3)

	for i := 1; i < len(gens); i++ {
		report := Compute(gens[i-1], gens[i])
		require.NoError(t, report.Regressions(), "%s -> %s", report.From, report.To)
		for _, item := range report.Items {
			require.False(t, item.IsRemove(), "%s -> %s removes %s", report.From, report.To, item.Name)
			if item.IsChange() {
				require.NotEqual(t, SymbolCategory, item.After.Category)
			}
		}
	}

	first, last := gens[0], gens[len(gens)-1]
	for _, s := range first.Symbols {
		_, ok := last.Symbol(s.Name)
		require.True(t, ok, s.Name)
	}
	require.Greater(t, len(last.Symbols), len(first.Symbols))
}

func TestComputeAdditions(t *testing.T) {
	gens := generations(t)
	report := Compute(gens[0], gens[2])

	var added []string
	for _, item := range report.Items {
		if item.IsAdd() && item.After.Category == SymbolCategory {
			added = append(added, item.Name)
		}
	}
	require.Contains(t, added, "vrv::SetLogInterceptor")
	require.Contains(t, added, "vrv::Options")
	require.Contains(t, added, "vrv::OptionsCategory")
	require.Contains(t, added, "vrv::OptionGrp")
	require.Contains(t, added, "vrv::Option")
	require.Contains(t, added, "vrv::OptionStringView")
	require.Len(t, added, 15)
}

func TestComputeItems(t *testing.T) {
	before := &manifest.Manifest{
		Version: manifest.MustParseVersion("1.0.0"),
		Headers: []string{"a.h", "gone.h"},
		Safety:  manifest.SafetyUnsafe,
		Symbols: []manifest.Symbol{
			{Name: "A", Kind: manifest.KindClass},
			{Name: "B", Kind: manifest.KindClass},
			{Name: "C", Kind: manifest.KindFunction},
			{Name: "D", Kind: manifest.KindFunction},
		},
		Constants: []manifest.Constant{{Name: "K", Source: "K", Kind: manifest.ConstInt, Value: manifest.Int(1)}},
	}
	after := &manifest.Manifest{
		Version: manifest.MustParseVersion("2.0.0"),
		Headers: []string{"a.h"},
		Safety:  manifest.SafetyStrict,
		Symbols: []manifest.Symbol{
			{Name: "A", Kind: manifest.KindClass},
			{Name: "B", Kind: manifest.KindPOD},
			{Name: "E", Kind: manifest.KindFunction},
		},
		Constants: []manifest.Constant{{Name: "K", Source: "K", Kind: manifest.ConstInt, Value: manifest.Int(2)}},
		Removed:   []manifest.Removal{{Name: "C", Note: "replaced by E"}},
	}

	report := Compute(before, after)
	want := Report{
		From: "1.0.0",
		To:   "2.0.0",
		Items: []ReportItem{
			{
				Name:       "K",
				Before:     &Element{Category: ConstantCategory, Name: "K", Value: "1"},
				After:      &Element{Category: ConstantCategory, Name: "K", Value: "2"},
				Conclusion: Compatible,
			},
			{
				Name:       "gone.h",
				Before:     &Element{Category: HeaderCategory, Name: "gone.h"},
				Conclusion: SilentRemoval,
			},
			{
				Name:       "safety",
				Before:     &Element{Category: SettingCategory, Name: "safety", Value: "unsafe"},
				After:      &Element{Category: SettingCategory, Name: "safety", Value: "strict"},
				Conclusion: Compatible,
			},
			{
				Name:       "B",
				Before:     &Element{Category: SymbolCategory, Name: "B", Value: "class"},
				After:      &Element{Category: SymbolCategory, Name: "B", Value: "pod"},
				Conclusion: Breaking,
			},
			{
				Name:       "C",
				Before:     &Element{Category: SymbolCategory, Name: "C", Value: "function"},
				Conclusion: NotedRemoval,
				Note:       "replaced by E",
			},
			{
				Name:       "D",
				Before:     &Element{Category: SymbolCategory, Name: "D", Value: "function"},
				Conclusion: SilentRemoval,
			},
			{
				Name:       "E",
				After:      &Element{Category: SymbolCategory, Name: "E", Value: "function"},
				Conclusion: Compatible,
			},
		},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("Compute (-want +got):\n%s", diff)
	}

	err := report.Regressions()
	require.ErrorIs(t, err, ErrSilentRemoval)
	require.Contains(t, err.Error(), "1.0.0 -> 2.0.0: header gone.h")
	require.Contains(t, err.Error(), "symbol D")
	require.NotContains(t, err.Error(), "symbol C")

	summary := report.Summary()
	require.Contains(t, summary, "- symbol C (function) [NotedRemoval]: replaced by E\n")
	require.Contains(t, summary, "+ symbol E (function)\n")
	require.Contains(t, summary, "~ symbol B (class) -> pod [Breaking]\n")
}

// Dropping a symbol from the latest generation without a note is flagged.
func TestSilentRemovalFromRegistry(t *testing.T) {
	gens := generations(t)
	latest := gens[len(gens)-1]

	dropped := *latest
	dropped.Version = manifest.MustParseVersion("4.3.0")
	dropped.Symbols = nil
	for _, s := range latest.Symbols {
		if s.Name != "vrv::OptionGrp" {
			dropped.Symbols = append(dropped.Symbols, s)
		}
	}

	err := Compute(latest, &dropped).Regressions()
	require.ErrorIs(t, err, ErrSilentRemoval)
	require.Contains(t, err.Error(), "vrv::OptionGrp")

	dropped.Removed = []manifest.Removal{{Name: "vrv::OptionGrp", Note: "groups are internal"}}
	require.NoError(t, Compute(latest, &dropped).Regressions())
}

func TestReportJSON(t *testing.T) {
	gens := generations(t)
	report := Compute(gens[0], gens[1])

	var sb strings.Builder
	require.NoError(t, report.WriteJSON(&sb))
	require.Contains(t, sb.String(), `"from": "3.15.0"`)

	var got Report
	require.NoError(t, json.Unmarshal([]byte(sb.String()), &got))
	if diff := cmp.Diff(report, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}
