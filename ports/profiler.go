package ports

import (
	"tabio/domain/table"
	"tabio/internal/profiling"
)

// ProfilerPort summarises the columns of a loaded table
type ProfilerPort interface {
	ProfileTable(t *table.Table) []profiling.ColumnProfile
}
