package testkit

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tabio/adapters/datareadiness/coercer"
	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/config"
	"tabio/internal/header"
	"tabio/internal/scratch"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	tb      testing.TB
	dir     string
	config  *config.Config
	logger  *internal.Logger
	coercer *coercer.TypeCoercer
}

// NewTestKit creates a test kit rooted in a per-test temporary directory
func NewTestKit(tb testing.TB) *TestKit {
	tb.Helper()
	dir := tb.TempDir()
	cfg := config.Default()
	cfg.Paths.TempDir = dir
	return &TestKit{
		tb:      tb,
		dir:     dir,
		config:  cfg,
		logger:  internal.NewNopLogger(),
		coercer: coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()),
	}
}

// Dir is the test's scratch directory
func (k *TestKit) Dir() string { return k.dir }

// Path joins name onto the test directory
func (k *TestKit) Path(name string) string {
	return filepath.Join(k.dir, name)
}

// Config returns the kit's configuration; tests may adjust it before use
func (k *TestKit) Config() *config.Config { return k.config }

// Logger returns a logger that discards output
func (k *TestKit) Logger() *internal.Logger { return k.logger }

// Coercer returns a coercer with default tokens
func (k *TestKit) Coercer() *coercer.TypeCoercer { return k.coercer }

// Locator returns a header locator sharing the kit's coercer
func (k *TestKit) Locator() *header.Locator {
	return header.NewLocator(k.coercer, k.logger)
}

// Storage returns scratch storage inside the test directory
func (k *TestKit) Storage() *scratch.Storage {
	return scratch.NewStorage(k.dir)
}

// SampleTable covers every scalar kind, with missing values in the
// float and string columns.
func SampleTable() *table.Table {
	return table.MustNew(
		table.NewColumn("id", table.KindInt, []any{int64(1), int64(2), int64(3)}),
		table.NewColumn("score", table.KindFloat, []any{1.5, nil, 3.0}),
		table.NewColumn("name", table.KindString, []any{"ada", "grace", nil}),
		table.NewColumn("active", table.KindBool, []any{true, false, true}),
	)
}

// TimedTable is SampleTable with a timestamp column
func TimedTable() *table.Table {
	base := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	cols := append([]*table.Column{}, SampleTable().Columns()...)
	cols = append(cols, table.NewColumn("seen_at", table.KindTime, []any{
		base, base.Add(time.Hour), base.Add(36 * time.Hour),
	}))
	return table.MustNew(cols...)
}

// SequenceTable returns n rows of a single int column counting from zero
func SequenceTable(name string, n int) *table.Table {
	values := make([]any, n)
	for i := range values {
		values[i] = int64(i)
	}
	return table.MustNew(table.NewColumn(name, table.KindInt, values))
}

// Orders generates n shopping orders with the default seed
func Orders(n int) *table.Table {
	cfg := DefaultShoppingConfig()
	cfg.OrderCount = n
	return NewShoppingDataGenerator(cfg).GenerateOrders()
}

// MemoryCodec keeps saved tables in memory keyed by path
type MemoryCodec struct {
	name   string
	mu     sync.Mutex
	tables map[string]*table.Table
	saves  int
}

// NewMemoryCodec creates an empty in-memory codec
func NewMemoryCodec(name string) *MemoryCodec {
	return &MemoryCodec{name: name, tables: make(map[string]*table.Table)}
}

// Name identifies the codec
func (m *MemoryCodec) Name() string { return m.name }

// Load returns the table last saved at path
func (m *MemoryCodec) Load(ctx context.Context, path string) (*table.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[path]
	if !ok {
		return nil, fmt.Errorf("no table stored at %s", path)
	}
	return t, nil
}

// Save stores t under path
func (m *MemoryCodec) Save(ctx context.Context, t *table.Table, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables[path] = t
	m.saves++
	return nil
}

// Saves counts Save calls
func (m *MemoryCodec) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
