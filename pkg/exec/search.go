package exec

import (
	"strings"

	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/query"
)

// runSearch returns every dictionary value of the search dimension whose
// text contains the search term, case-insensitively, up to Limit matches
// (0 means unlimited). Used by autocomplete-style callers that want the
// domain of a string dimension without scanning any tuple data.
func runSearch(p *query.Plan, dicts []*dict.Dictionary) (*Result, error) {
	d := dicts[p.SearchDim]
	term := strings.ToLower(p.SearchTerm)

	var rows [][]string
	for code := uint64(1); code < d.Size(); code++ {
		v := d.Decode(code)
		if term == "" || strings.Contains(strings.ToLower(v), term) {
			rows = append(rows, []string{v})
			if p.Limit > 0 && len(rows) >= p.Limit {
				break
			}
		}
	}

	return &Result{Columns: []string{p.Table.Dimensions[p.SearchDim].Name}, Rows: rows}, nil
}
