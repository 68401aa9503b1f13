package ports

import (
	"context"

	"tabio/domain/table"
)

// LoaderPort reads a whole table from a file
type LoaderPort interface {
	Load(ctx context.Context, path string) (*table.Table, error)
}

// SaverPort writes a whole table to a file, replacing or splitting as the format requires
type SaverPort interface {
	Save(ctx context.Context, t *table.Table, path string) error
}

// CodecPort is a format that can both load and save
type CodecPort interface {
	LoaderPort
	SaverPort
	// Name identifies the format in logs and errors
	Name() string
}
