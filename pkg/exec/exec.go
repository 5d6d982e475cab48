package exec

import (
	"github.com/viyadb/viyadb/pkg/dict"
	"github.com/viyadb/viyadb/pkg/query"
	"github.com/viyadb/viyadb/pkg/store"
	"github.com/viyadb/viyadb/pkg/verr"
)

// Run executes a resolved query plan against a table's store and string
// dictionaries, dispatching on the plan's kind.
func Run(p *query.Plan, st *store.Store, dicts []*dict.Dictionary) (*Result, error) {
	switch p.Kind {
	case query.Aggregate:
		return runAggregate(p, st, dicts)
	case query.Select:
		return runSelect(p, st, dicts)
	case query.Search:
		return runSearch(p, dicts)
	default:
		return nil, verr.Internalf("exec: plan kind %d has no runner; show queries are served by the engine layer", p.Kind)
	}
}
