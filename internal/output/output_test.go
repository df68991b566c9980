package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abramin/strata/internal/ast"
	"github.com/abramin/strata/internal/config"
	"github.com/abramin/strata/internal/dependency"
	"github.com/abramin/strata/internal/result"
)

func class(name string) ast.ClassLikeToken { return ast.NewClassLikeToken(name) }

func dep(from, to, file string, line int) *dependency.Dependency {
	return dependency.New(class(from), class(to), ast.NewFileOccurrence(file, line), ast.DependencyVariable)
}

// sampleResult holds one rule of every category, one of them inherited,
// plus a warning and an error.
func sampleResult() *result.Result {
	res := result.New()
	res.Add(result.Rule{
		Category:        result.Violation,
		Dependency:      dep("controller", "repo", "/src/c.go", 6),
		DependerLayers:  []string{"Controller"},
		DependentLayers: []string{"Repository"},
	})

	cb := ast.NewInherit(class("C"), class("B"), ast.NewFileOccurrence("/src/c.go", 10), ast.InheritUses)
	ba := ast.NewInherit(class("B"), class("A"), ast.NewFileOccurrence("/src/b.go", 4), ast.InheritExtends).WithPath([]*ast.Inherit{cb})
	res.Add(result.Rule{
		Category:        result.Violation,
		Dependency:      dependency.NewInherit(class("C"), dep("A", "X", "/src/a.go", 5), ba),
		DependerLayers:  []string{"Domain"},
		DependentLayers: []string{"Vendor"},
	})

	res.Add(result.Rule{
		Category:        result.SkippedViolation,
		Dependency:      dep("service", "controller", "/src/s.go", 4),
		DependerLayers:  []string{"Service"},
		DependentLayers: []string{"Controller"},
	})
	res.Add(result.Rule{
		Category:       result.Uncovered,
		Dependency:     dep("controller", "client", "/src/c.go", 8),
		DependerLayers: []string{"Controller"},
	})
	res.Add(result.Rule{
		Category:        result.Allowed,
		Dependency:      dep("controller", "service", "/src/c.go", 5),
		DependerLayers:  []string{"Controller"},
		DependentLayers: []string{"Service"},
	})
	res.AddWarning("w")
	res.AddError("e")
	return res
}

var everything = Options{ReportSkipped: true, ReportUncovered: true}

func TestGet(t *testing.T) {
	for _, name := range []string{"console", "json", "github-actions", "baseline"} {
		f, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.Name())
	}

	_, err := Get("xml")
	require.ErrorIs(t, err, ErrUnknownFormatter)
	assert.Contains(t, err.Error(), "baseline, console, github-actions, json")
}

func TestFailed(t *testing.T) {
	assert.True(t, Failed(sampleResult(), Options{}))

	onlyUncovered := result.New()
	onlyUncovered.Add(result.Rule{Category: result.Uncovered, Dependency: dep("a", "b", "/a.go", 1)})
	assert.False(t, Failed(onlyUncovered, Options{}))
	assert.True(t, Failed(onlyUncovered, Options{FailOnUncovered: true}))

	withError := result.New()
	withError.AddError("broken")
	assert.True(t, Failed(withError, Options{}))

	assert.False(t, Failed(result.New(), Options{FailOnUncovered: true}))
}

func TestMessage(t *testing.T) {
	items := sampleResult().Items(result.Violation, result.SkippedViolation, result.Uncovered)
	require.Len(t, items, 4)

	assert.Equal(t, "controller must not depend on repo (Controller on Repository)", Message(items[0]))
	assert.Equal(t, "service should not depend on controller (Service on Controller)", Message(items[2]))
	assert.Equal(t, "controller has uncovered dependency on client (Controller)", Message(items[3]))
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Console{}.Format(&buf, sampleResult(), everything))
	out := buf.String()

	assert.Contains(t, out, "controller must not depend on repo (Controller on Repository)\n  /src/c.go:6\n")
	assert.Contains(t, out, "C must not depend on X (Domain on Vendor)\n  /src/a.go:5\n    -> B::10\n    -> A::4\n    -> X::5\n")
	assert.Contains(t, out, "[SKIPPED] service should not depend on controller")
	assert.Contains(t, out, "[UNCOVERED] controller has uncovered dependency on client")
	assert.Contains(t, out, "[WARNING] w\n")
	assert.Contains(t, out, "[ERROR] e\n")
	assert.Contains(t, out, "Report\nViolations          2\n")
	assert.Contains(t, out, "Skipped violations  1\n")
	assert.Contains(t, out, "Allowed             1\n")
	assert.NotContains(t, out, "controller must not depend on service")
}

func TestConsole_HidesSkippedAndUncoveredByDefault(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Console{}.Format(&buf, sampleResult(), Options{}))

	assert.NotContains(t, buf.String(), "[SKIPPED]")
	assert.NotContains(t, buf.String(), "[UNCOVERED]")
	assert.Contains(t, buf.String(), "Uncovered           1\n")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON{}.Format(&buf, sampleResult(), everything))

	var got struct {
		Report map[string]int `json:"Report"`
		Files  map[string]struct {
			Violations int `json:"violations"`
			Messages   []struct {
				Message string        `json:"message"`
				Line    int           `json:"line"`
				Type    string        `json:"type"`
				Path    []result.Step `json:"path"`
			} `json:"messages"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, map[string]int{
		"Violations":         2,
		"Skipped violations": 1,
		"Uncovered":          1,
		"Allowed":            1,
		"Warnings":           1,
		"Errors":             1,
	}, got.Report)

	require.Contains(t, got.Files, "/src/c.go")
	cfile := got.Files["/src/c.go"]
	assert.Equal(t, 2, cfile.Violations)
	assert.Equal(t, "error", cfile.Messages[0].Type)
	assert.Equal(t, 6, cfile.Messages[0].Line)
	assert.Equal(t, "warning", cfile.Messages[1].Type)
	assert.Equal(t, 8, cfile.Messages[1].Line)

	afile := got.Files["/src/a.go"]
	require.Len(t, afile.Messages, 1)
	assert.Equal(t, []result.Step{{Token: "B", Line: 10}, {Token: "A", Line: 4}, {Token: "X", Line: 5}}, afile.Messages[0].Path)

	assert.Equal(t, "warning", got.Files["/src/s.go"].Messages[0].Type)
}

func TestJSON_OnlyViolationsByDefault(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON{}.Format(&buf, sampleResult(), Options{}))

	var got struct {
		Files map[string]json.RawMessage `json:"files"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got.Files, 2)
	assert.NotContains(t, got.Files, "/src/s.go")
}

func TestJSON_WritesOutputPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	var buf bytes.Buffer
	require.NoError(t, JSON{}.Format(&buf, sampleResult(), Options{OutputPath: path}))

	assert.Equal(t, "JSON report dumped to "+path+"\n", buf.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestGitHubActions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GitHubActions{}.Format(&buf, sampleResult(), everything))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"::error file=/src/c.go,line=6::controller must not depend on repo (Controller on Repository)",
		"::error file=/src/a.go,line=5::C must not depend on X (Domain on Vendor)%0AB::10 ->%0AA::4 ->%0AX::5",
		"::warning file=/src/s.go,line=4::[SKIPPED] service should not depend on controller (Service on Controller)",
		"::warning file=/src/c.go,line=8::controller has uncovered dependency on client (Controller)",
		"::warning ::w",
		"::error ::e",
	}, lines)
}

func TestGitHubActions_FailOnUncoveredIsAnError(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{ReportUncovered: true, FailOnUncovered: true}
	require.NoError(t, GitHubActions{}.Format(&buf, sampleResult(), opts))

	assert.Contains(t, buf.String(), "::error file=/src/c.go,line=8::controller has uncovered dependency on client (Controller)\n")
}

func TestBaseline_IsLoadableConfig(t *testing.T) {
	res := sampleResult()
	res.Add(result.Rule{Category: result.Violation, Dependency: dep("controller", "repo", "/src/c.go", 9)})
	res.Add(result.Rule{Category: result.Violation, Dependency: dep("controller", "cache", "/src/c.go", 11)})

	var buf bytes.Buffer
	require.NoError(t, Baseline{}.Format(&buf, res, Options{}))
	assert.True(t, strings.HasPrefix(buf.String(), "skip_violations:\n"))

	cfg, err := config.Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"controller": {"cache", "repo"},
		"C":          {"X"},
		"service":    {"controller"},
	}, cfg.SkipViolations)
}
