package inference

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antonholmquist/jason"
)

// LoadLabels reads class names in model output order. A .json file is a
// model configuration whose label2id object maps names to output indices;
// any other file lists one name per line.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return labelsFromConfig(f, path)
	}

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			labels = append(labels, l)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels in %s", path)
	}
	return labels, nil
}

func labelsFromConfig(f *os.File, path string) ([]string, error) {
	cfg, err := jason.NewObjectFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	obj, err := cfg.GetObject("label2id")
	if err != nil {
		return nil, fmt.Errorf("%s: label2id: %w", path, err)
	}

	type entry struct {
		name string
		id   int64
	}
	var entries []entry
	for name, v := range obj.Map() {
		id, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s: label2id[%s]: %w", path, name, err)
		}
		entries = append(entries, entry{name, id})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: label2id is empty", path)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	labels := make([]string, len(entries))
	for i, e := range entries {
		if e.id != int64(i) {
			return nil, fmt.Errorf("%s: label2id ids are not contiguous from 0", path)
		}
		labels[i] = e.name
	}
	return labels, nil
}
