package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-inventory/components/inventory"
)

type changeLogSource interface {
	ChangeLog(ctx context.Context, filter inventory.ChangeLogFilter) ([]inventory.ChangeLogEntry, error)
}

type changeJournal interface {
	Entries(filter inventory.ChangeLogFilter) []inventory.ChangeLogEntry
}

// ChangeLogQuery reads the server change log and merges the local journal.
type ChangeLogQuery struct {
	remote  changeLogSource
	journal changeJournal
}

// NewChangeLogQuery builds the query. Either source may be nil, not both.
func NewChangeLogQuery(remote changeLogSource, journal changeJournal) *ChangeLogQuery {
	return &ChangeLogQuery{remote: remote, journal: journal}
}

var _ gocommand.Querier[inventory.ChangeLogFilter, []inventory.ChangeLogEntry] = (*ChangeLogQuery)(nil)

// Query returns matching entries, newest first.
func (q *ChangeLogQuery) Query(ctx context.Context, filter inventory.ChangeLogFilter) ([]inventory.ChangeLogEntry, error) {
	if q.remote == nil && q.journal == nil {
		return nil, errors.New("change log query requires a source")
	}
	var remote, local []inventory.ChangeLogEntry
	if q.remote != nil {
		entries, err := q.remote.ChangeLog(ctx, filter)
		if err != nil {
			return nil, err
		}
		remote = entries
	}
	if q.journal != nil {
		local = q.journal.Entries(filter)
	}
	return inventory.FilterChangeLog(inventory.MergeChangeLogs(remote, local), filter), nil
}
