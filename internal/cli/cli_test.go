package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tripsense/internal/app"
)

const testSnapshot = `{
  "destinations": [
    {"id": 1, "name": "Louvre Museum", "description": "Art museum with famous paintings", "city": "Paris", "country": "France", "subcategories": ["Museums"], "likes_count": 10, "latitude": 48.8606, "longitude": 2.3376},
    {"id": 2, "name": "Eiffel Tower", "description": "Iron tower with city views", "city": "Paris", "country": "France", "subcategories": ["Sights & Landmarks"], "likes_count": 20, "latitude": 48.8584, "longitude": 2.2945},
    {"id": 3, "name": "Bondi Beach", "description": "Sandy surf beach", "city": "Sydney", "country": "Australia", "subcategories": ["Beaches"], "likes_count": 5}
  ],
  "users": [
    {"id": 7, "selected_tags": ["Beaches"], "likes": [{"destination_id": 1}], "reviews": []}
  ]
}`

// setup isolates config lookup and writes a snapshot, returning its path.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("TRIPSENSE_CONFIG", "")
	t.Chdir(dir)

	path := filepath.Join(dir, "destinations.json")
	require.NoError(t, os.WriteFile(path, []byte(testSnapshot), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "disabled"))
	err := root.Execute()
	return out.String(), err
}

func TestRootHasEveryCommand(t *testing.T) {
	root := NewRootCmd()
	want := []string{"search", "analyze", "recommend", "popular", "nearby", "tag", "serve", "benchmark", "export", "history", "config", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"config", "data", "activity", "log-level", "log-format", "json"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestSearchCommand(t *testing.T) {
	data := setup(t)

	out, err := run(t, "search", "paris", "--data", data)
	require.NoError(t, err)
	assert.Contains(t, out, `Results for "paris"`)
	assert.Contains(t, out, "Paris, France")
}

func TestSearchCommandJSON(t *testing.T) {
	data := setup(t)

	out, err := run(t, "search", "surf", "beach", "--data", data, "--json", "--limit", "3")
	require.NoError(t, err)

	var results []struct {
		Destination struct {
			ID int64 `json:"id"`
		} `json:"destination"`
		Score float64 `json:"similarity_score"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, int64(3), results[0].Destination.ID)
}

func TestSearchCommandWithoutData(t *testing.T) {
	setup(t)

	_, err := run(t, "search", "paris")
	assert.ErrorIs(t, err, app.ErrNoData)
}

func TestAnalyzeCommand(t *testing.T) {
	setup(t)

	out, err := run(t, "analyze", "The room was not clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Negative:  clean")

	_, err = run(t, "analyze", "--rating", "9", "Nice")
	assert.ErrorContains(t, err, "rating must be between 1 and 5")

	_, err = run(t, "analyze", "   ")
	assert.Error(t, err)
}

func TestAnalyzeCommandFromFile(t *testing.T) {
	dir := filepath.Dir(setup(t))
	path := filepath.Join(dir, "review.txt")
	require.NoError(t, os.WriteFile(path, []byte("Lovely garden"), 0644))

	out, err := run(t, "analyze", "--file", path, "--rating", "2", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"sentiment": "NEGATIVE"`)
}

func TestRecommendCommand(t *testing.T) {
	data := setup(t)

	out, err := run(t, "recommend", "--data", data, "--user", "7", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Recommended:")
	assert.NotContains(t, out, "Louvre Museum")

	_, err = run(t, "recommend", "--data", data, "--user", "99")
	assert.ErrorContains(t, err, "unknown user")

	_, err = run(t, "recommend", "--data", data, "--limit", "0")
	assert.Error(t, err)
}

func TestPopularCommand(t *testing.T) {
	data := setup(t)

	out, err := run(t, "popular", "--data", data, "--limit", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Eiffel Tower")
}

func TestNearbyCommand(t *testing.T) {
	data := setup(t)

	out, err := run(t, "nearby", "--data", data, "--lat", "48.8566", "--lon", "2.3522", "--radius", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Louvre Museum")
	assert.NotContains(t, out, "Bondi")

	_, err = run(t, "nearby", "--data", data, "--lat", "48.8566")
	assert.Error(t, err)
}

func TestTagCommand(t *testing.T) {
	data := setup(t)

	out, err := run(t, "tag", "--data", data)
	require.NoError(t, err)
	assert.Equal(t, "Beaches\nMuseums\nSights & Landmarks\n", out)

	out, err = run(t, "tag", "sights and landmarks", "--data", data)
	require.NoError(t, err)
	assert.Contains(t, out, "Eiffel Tower")

	out, err = run(t, "tag", "sights and landmarks", "--data", data, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"tag": "Sights & Landmarks"`)

	_, err = run(t, "tag", "volcanoes", "--data", data)
	assert.ErrorContains(t, err, "no tag matches")
}

func TestExportCommand(t *testing.T) {
	dir := filepath.Dir(setup(t))
	csvPath := filepath.Join(dir, "attractions.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"id,name,description,addressObj/city,addressObj/country,subcategories/0,subtype/0\n"+
			"10,Sagrada Familia,Basilica,Barcelona,Spain,Sights & Landmarks,Churches\n"), 0644))
	outPath := filepath.Join(dir, "snapshot.json")

	_, err := run(t, "export", csvPath, "--output", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Sagrada Familia"`)
	assert.Contains(t, string(data), `"city": "Barcelona"`)

	_, err = os.Stat(outPath + ".lock")
	assert.True(t, os.IsNotExist(err))

	out, err := run(t, "search", "basilica", "--data", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Sagrada Familia")
}

func TestConfigCommands(t *testing.T) {
	dir := filepath.Dir(setup(t))
	path := filepath.Join(dir, "tripsense.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	_, err = run(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "config", "init", path, "--force")
	require.NoError(t, err)

	out, err = run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "cache_size: 500")
	assert.Contains(t, out, "open_timeout: 30s")
}

func TestHistoryDisabled(t *testing.T) {
	setup(t)

	out, err := run(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Search history is disabled")
}

func TestHistoryRecordsSearches(t *testing.T) {
	data := setup(t)
	t.Setenv("TRIPSENSE_STORAGE__ENABLED", "true")
	t.Setenv("TRIPSENSE_STORAGE__PATH", filepath.Join(filepath.Dir(data), "history.db"))

	_, err := run(t, "search", "paris", "--data", data)
	require.NoError(t, err)

	out, err := run(t, "history", "list", "--json")
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "semantic", records[0]["strategy"])

	out, err = run(t, "history", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned")
}

func TestBenchmarkCommand(t *testing.T) {
	data := setup(t)
	queries := filepath.Join(filepath.Dir(data), "queries.txt")
	require.NoError(t, os.WriteFile(queries, []byte("paris\n\nsurf beach\n"), 0644))

	out, err := run(t, "benchmark", "--data", data, "--queries", queries, "--iterations", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Similarity backend: lexical")
	assert.Contains(t, out, "surf beach")
}

func TestReadQueries(t *testing.T) {
	queries, err := readQueries("")
	require.NoError(t, err)
	assert.Nil(t, queries)

	_, err = readQueries(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:  dev")
}

func TestServeCommandHelp(t *testing.T) {
	out, err := run(t, "serve", "--help")
	require.NoError(t, err)
	for _, want := range []string{"stdio", "search_destinations", "recommend_destinations"} {
		assert.Contains(t, out, want)
	}
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "abcd…", truncateText("abcdefgh", 5))
}

func TestPruneHistoryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	pruneHistory(ctx, func() error { called = true; return nil }, zerolog.Nop())
	assert.False(t, called)
}
