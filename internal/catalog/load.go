package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrUnknownFormat is returned for files that are neither .json nor .csv.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// Snapshot is the JSON document form of a catalog.
type Snapshot struct {
	Destinations []Destination  `json:"destinations"`
	Users        []UserActivity `json:"users,omitempty"`
}

// Load reads destinations from destPath and, if activityPath is set, user
// activity from activityPath. A JSON destination snapshot may embed users.
func Load(destPath, activityPath string) (*Catalog, error) {
	snap, err := LoadSnapshot(destPath)
	if err != nil {
		return nil, err
	}

	if activityPath != "" {
		users, err := LoadUsers(activityPath)
		if err != nil {
			return nil, err
		}
		snap.Users = users
	}

	return New(snap.Destinations, snap.Users), nil
}

// LoadSnapshot reads a .json snapshot (object or bare destination array) or a .csv export.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeSnapshot(data)
	case ".csv":
		dests, err := ReadCSV(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return &Snapshot{Destinations: dests}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var dests []Destination
		if err := json.Unmarshal(trimmed, &dests); err != nil {
			return nil, fmt.Errorf("failed to decode destinations: %w", err)
		}
		return &Snapshot{Destinations: dests}, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// LoadUsers reads user activity from a JSON array or an object with a "users" key.
func LoadUsers(path string) ([]UserActivity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	var users []UserActivity
	if bytes.HasPrefix(trimmed, []byte("[")) {
		err = json.Unmarshal(trimmed, &users)
	} else {
		var wrapper struct {
			Users []UserActivity `json:"users"`
		}
		err = json.Unmarshal(trimmed, &wrapper)
		users = wrapper.Users
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode activity %s: %w", path, err)
	}
	return users, nil
}

// WriteSnapshot encodes snap as indented JSON.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ReadCSV parses the TripAdvisor export layout: id, name, description,
// category, addressObj/city, addressObj/country, latitude, longitude and any
// number of subcategories/N and subtype/N columns. Rows without an id or a
// name are skipped.
func ReadCSV(r io.Reader) ([]Destination, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, errors.New("csv header has no id column")
	}

	subcatCols := indexedColumns(header, "subcategories/")
	subtypeCols := indexedColumns(header, "subtype/")

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var dests []Destination
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id, err := strconv.ParseInt(field(row, "id"), 10, 64)
		if err != nil || field(row, "name") == "" {
			continue
		}

		d := Destination{
			ID:            id,
			Name:          field(row, "name"),
			Description:   field(row, "description"),
			Category:      field(row, "category"),
			City:          field(row, "addressObj/city"),
			Country:       field(row, "addressObj/country"),
			Latitude:      parseCoord(field(row, "latitude")),
			Longitude:     parseCoord(field(row, "longitude")),
			Subcategories: collect(row, subcatCols),
			Subtypes:      collect(row, subtypeCols),
		}
		if n, err := strconv.Atoi(field(row, "likes_count")); err == nil {
			d.LikeCount = n
		}
		dests = append(dests, d)
	}
	return dests, nil
}

// indexedColumns returns the column positions of prefix0, prefix1, ... in numeric order.
func indexedColumns(header []string, prefix string) []int {
	type indexed struct{ n, col int }
	var found []indexed
	for i, h := range header {
		h = strings.TrimSpace(h)
		if !strings.HasPrefix(h, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(h, prefix))
		if err != nil {
			continue
		}
		found = append(found, indexed{n: n, col: i})
	}
	sort.Slice(found, func(a, b int) bool { return found[a].n < found[b].n })

	cols := make([]int, len(found))
	for i, f := range found {
		cols[i] = f.col
	}
	return cols
}

func collect(row []string, cols []int) []string {
	var out []string
	for _, c := range cols {
		if c < len(row) {
			if v := strings.TrimSpace(row[c]); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parseCoord(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
