package hierarchy

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadTypeList reads a newline-delimited list of geocoder types from path,
// one type name per line, ignoring blank lines and "#"-prefixed comments.
// It backs the importer CLI's --priority FILE and --skip FILE options (spec
// §6, §9: "pass them as an explicit configuration struct, never ... process-
// wide state"). An empty path returns an empty, non-error list.
func LoadTypeList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: open type list %s: %w", path, err)
	}
	defer f.Close()

	var types []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		types = append(types, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("hierarchy: read type list %s: %w", path, err)
	}
	return types, nil
}
