package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/prayertimes/internal/model"
)

// defaultDistricts are the 64 districts of Bangladesh in the order the
// site lists them.
var defaultDistricts = []string{
	"coxsbazar", "kishoreganj", "kurigram", "cumilla", "kushtia", "khagrachhari", "khulna", "gaibandha",
	"gazipur", "gopalganj", "chattogram", "chandpur", "chapainawabganj", "chuadanga", "joypurhat",
	"jamalpur", "jhalokati", "jhenaidah", "tangail", "thakurgaon", "dhaka", "dinajpur", "naogaon",
	"narail", "narsingdi", "natore", "narayanganj", "nilphamari", "netrokona", "noakhali", "panchagarh",
	"patuakhali", "pabna", "pirojpur", "faridpur", "feni", "bogura", "barguna", "barishal", "bagerhat",
	"bandarban", "brahmanbaria", "bhola", "magura", "madaripur", "manikganj", "munshiganj", "meherpur",
	"maulvibazar", "mymensingh", "jashore", "rangpur", "rangamati", "rajbari", "rajshahi", "lakshmipur",
	"lalmonirhat", "shariatpur", "sherpur", "satkhira", "sirajganj", "sylhet", "sunamganj", "habiganj",
}

// DefaultDistricts returns a fresh copy of the built-in catalog.
func DefaultDistricts() []model.DistrictID {
	return model.DistrictIDs(defaultDistricts...)
}

// catalogFile is the object form of a JSON, JSON5 or YAML catalog.
type catalogFile struct {
	Districts []string `json:"districts" yaml:"districts"`
}

// LoadCatalog reads a district list file. The format is chosen by extension:
//   - .json, .json5: an array of strings or {"districts": [...]}
//   - .yaml, .yml: a sequence of strings or a "districts" key
//   - anything else: one district per line, '#' starts a comment
//
// The returned catalog is validated and never empty.
func LoadCatalog(path string) ([]model.DistrictID, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided catalog path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read district list: %w", err)
	}

	var names []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		names, err = parseJSONCatalog(data)
	case ".yaml", ".yml":
		names, err = parseYAMLCatalog(data)
	default:
		names, err = parseTextCatalog(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse district list %s: %w", path, err)
	}

	ids := model.DistrictIDs(names...)
	if len(ids) == 0 {
		return nil, ErrEmptyCatalog
	}
	if err := ValidateCatalog(ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func parseJSONCatalog(data []byte) ([]string, error) {
	var list []string
	if err := json5.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var obj catalogFile
	if err := json5.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj.Districts, nil
}

func parseYAMLCatalog(data []byte) ([]string, error) {
	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var obj catalogFile
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj.Districts, nil
}

func parseTextCatalog(data []byte) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}

// ValidateCatalog checks that every entry can be appended to a URL path.
func ValidateCatalog(ids []model.DistrictID) error {
	for i, id := range ids {
		if err := id.Validate(); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrInvalidDistrict, i+1, err)
		}
	}
	return nil
}
