package main

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/spf13/cobra"

	"github.com/nao1215/prayertimes/internal/config"
	"github.com/nao1215/prayertimes/internal/model"
	"github.com/nao1215/prayertimes/internal/report"
)

// errDistrictNotFound is returned by show for a district the document does
// not contain.
var errDistrictNotFound = errors.New("district not found")

// maxSuggestions limits the "did you mean" list.
const maxSuggestions = 3

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <district>",
		Short: "Show the prayer-time table of one district",
		Long: `Show reads a document written by scrape and prints the table of one
district. Names are matched case-insensitively; an unknown name lists the
closest districts in the document.

Examples:
  # Show Dhaka from namaz_schedule.json
  prayertimes show dhaka

  # Read another document and print raw JSON
  prayertimes show sylhet -f out/namaz.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().StringP("file", "f", config.DefaultOutput,
		"Document written by scrape")
	cmd.Flags().Bool("json", false,
		"Print the district's rows as JSON")

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	district, ok := lookupDistrict(doc, args[0])
	if !ok {
		err := fmt.Errorf("%w: %q in %s", errDistrictNotFound, args[0], path)
		if s := suggestDistricts(doc.Districts(), args[0]); len(s) > 0 {
			err = fmt.Errorf("%w (did you mean: %s?)", err, strings.Join(s, ", "))
		}
		return err
	}

	record, _ := doc.Get(district)
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		return enc.Encode(record)
	}

	report.NewTableWriter(out).WriteRecord(district, record)
	fmt.Fprintf(out, "Rows: %d\n", len(record))
	return nil
}

// readDocument loads a document written by scrape.
func readDocument(path string) (*model.Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided document path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc := model.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
	}
	return doc, nil
}

// lookupDistrict finds name in doc, exactly or ignoring case.
func lookupDistrict(doc *model.Document, name string) (model.DistrictID, bool) {
	name = strings.TrimSpace(name)
	if id := model.DistrictID(name); doc.Has(id) {
		return id, true
	}
	for _, id := range doc.Districts() {
		if strings.EqualFold(string(id), name) {
			return id, true
		}
	}
	return "", false
}

// suggestDistricts returns up to maxSuggestions districts within a small
// edit distance of name, closest first.
func suggestDistricts(districts []model.DistrictID, name string) []string {
	type candidate struct {
		name     string
		distance int
	}

	query := strings.ToLower(strings.TrimSpace(name))
	limit := max(2, len([]rune(query))/3)

	candidates := make([]candidate, 0)
	for _, id := range districts {
		d := matchr.Levenshtein(query, strings.ToLower(string(id)))
		if d <= limit {
			candidates = append(candidates, candidate{name: string(id), distance: d})
		}
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	out := make([]string, 0, maxSuggestions)
	for _, c := range candidates {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, c.name)
	}
	return out
}
