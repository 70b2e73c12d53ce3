package diff

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

var testSchema = types.Schema{
	{Name: "id", Type: "int(11)"},
	{Name: "val", Type: "varchar(255)"},
}

var testOpts = Options{PrimaryKey: "id", Schema: testSchema}

func row(id int64, val string) types.Row {
	return types.Row{"id": id, "val": val}
}

func keys(ids ...int64) types.KeySet {
	s := make(types.KeySet)
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func existingOf(rows ...types.Row) map[types.Key]types.Row {
	return Index(rows, "id")
}

func TestComputeScenarioA(t *testing.T) {
	existing := existingOf(row(1, "a"), row(2, "b"))
	master := []types.Row{row(1, "a"), row(3, "c")}

	res, err := Compute(Rows(master), keys(1, 3), existing, testOpts)
	require.NoError(t, err)

	assert.Equal(t, []types.Row{row(3, "c")}, res.Changeset.Added)
	assert.Empty(t, res.Changeset.Modified)
	assert.Equal(t, []types.Key{int64(2)}, res.Changeset.Deleted)
	assert.Equal(t, Summary{Added: 1, Deleted: 1, Unchanged: 1, Total: 2}, res.Summary)
	assert.Len(t, existing, 2, "existing must not be modified")
}

func TestComputeScenarioB(t *testing.T) {
	res, err := Compute(Rows([]types.Row{row(1, "x")}), keys(1), existingOf(), testOpts)
	require.NoError(t, err)

	assert.Equal(t, []types.Row{row(1, "x")}, res.Changeset.Added)
	assert.Empty(t, res.Changeset.Modified)
	assert.Empty(t, res.Changeset.Deleted)
	assert.Equal(t, map[types.Key]types.Row{int64(1): row(1, "x")}, res.Reconciled)
}

func TestComputeScenarioC(t *testing.T) {
	res, err := Compute(Rows([]types.Row{row(1, "z")}), keys(1), existingOf(row(1, "a")), testOpts)
	require.NoError(t, err)

	assert.Empty(t, res.Changeset.Added)
	assert.Equal(t, map[types.Key]types.Delta{int64(1): {"val": "z"}}, res.Changeset.Modified)
	assert.Empty(t, res.Changeset.Deleted)
	assert.Equal(t, row(1, "z"), res.Reconciled[int64(1)])
}

func TestComputeFirstRunAddsEverything(t *testing.T) {
	master := []types.Row{row(1, "a"), row(2, "b"), row(3, "c")}
	res, err := Compute(Rows(master), keys(1, 2, 3), nil, testOpts)
	require.NoError(t, err)

	assert.Equal(t, master, res.Changeset.Added)
	assert.Empty(t, res.Changeset.Modified)
	assert.Empty(t, res.Changeset.Deleted)
	assert.False(t, res.Summary.TableEmptied)
}

func TestComputeTableEmptied(t *testing.T) {
	res, err := Compute(Rows(nil), keys(), existingOf(row(2, "b"), row(1, "a")), testOpts)
	require.NoError(t, err)

	assert.Equal(t, []types.Key{int64(1), int64(2)}, res.Changeset.Deleted)
	assert.Empty(t, res.Reconciled)
	assert.True(t, res.Summary.TableEmptied)
}

func TestComputePartialDeleteIsNotEmptied(t *testing.T) {
	res, err := Compute(Rows(nil), keys(1), existingOf(row(1, "a"), row(2, "b")), testOpts)
	require.NoError(t, err)

	assert.Equal(t, []types.Key{int64(2)}, res.Changeset.Deleted)
	assert.False(t, res.Summary.TableEmptied)
}

func TestComputeSkipsNullKeys(t *testing.T) {
	master := []types.Row{{"id": nil, "val": "orphan"}, row(1, "a")}
	res, err := Compute(Rows(master), keys(1), nil, testOpts)
	require.NoError(t, err)

	assert.Equal(t, []types.Row{row(1, "a")}, res.Changeset.Added)
	assert.Equal(t, 1, res.Summary.Skipped)
	assert.Len(t, res.Reconciled, 1)
}

func TestComputeIncrementalMasterKeepsUntouchedRows(t *testing.T) {
	// Only row 2 changed since the watermark; rows 1 and 3 are still present.
	existing := existingOf(row(1, "a"), row(2, "b"), row(3, "c"), row(4, "d"))
	master := []types.Row{row(2, "B")}

	res, err := Compute(Rows(master), keys(1, 2, 3), existing, testOpts)
	require.NoError(t, err)

	assert.Equal(t, map[types.Key]types.Delta{int64(2): {"val": "B"}}, res.Changeset.Modified)
	assert.Equal(t, []types.Key{int64(4)}, res.Changeset.Deleted)
	assert.Equal(t, row(1, "a"), res.Reconciled[int64(1)])
	assert.Equal(t, row(2, "B"), res.Reconciled[int64(2)])
	assert.Len(t, res.Reconciled, 3)
}

func TestComputeRowArrivingAfterKeyRead(t *testing.T) {
	existing := existingOf(row(1, "a"))
	res, err := Compute(Rows([]types.Row{row(1, "b")}), keys(), existing, testOpts)
	require.NoError(t, err)

	assert.Empty(t, res.Changeset.Deleted)
	assert.Equal(t, map[types.Key]types.Delta{int64(1): {"val": "b"}}, res.Changeset.Modified)
}

func TestComputeIntegrityViolation(t *testing.T) {
	existing := existingOf(row(1, "a"))
	master := []types.Row{{"id": int64(1), "val": "a", "extra": "x"}}

	_, err := Compute(Rows(master), keys(1), existing, testOpts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrIntegrity))
	assert.Contains(t, err.Error(), "extra")
}

func TestComputeDuplicateMasterKey(t *testing.T) {
	master := []types.Row{row(1, "a"), row(1, "b")}
	_, err := Compute(Rows(master), keys(1), nil, testOpts)
	assert.ErrorIs(t, err, types.ErrIntegrity)
}

func TestComputePropagatesIteratorError(t *testing.T) {
	boom := errors.New("connection reset")
	master := func(yield func(types.Row, error) bool) {
		if !yield(row(1, "a"), nil) {
			return
		}
		yield(nil, boom)
	}
	_, err := Compute(master, keys(1), nil, testOpts)
	assert.ErrorIs(t, err, boom)
}

func TestComputeProperties(t *testing.T) {
	existing := existingOf(row(1, "a"), row(2, "b"), row(3, "c"), row(5, "e"))
	master := []types.Row{row(1, "a"), row(2, "B"), row(4, "d"), row(6, "f")}
	masterKeys := keys(1, 2, 4, 6)

	res, err := Compute(Rows(master), masterKeys, existing, testOpts)
	require.NoError(t, err)

	t.Run("each key classified once", func(t *testing.T) {
		seen := make(map[types.Key]int)
		for _, r := range res.Changeset.Added {
			seen[r["id"]]++
		}
		for k := range res.Changeset.Modified {
			seen[k]++
		}
		for _, k := range res.Changeset.Deleted {
			seen[k]++
		}
		for k, n := range seen {
			assert.Equal(t, 1, n, "key %v", k)
		}
	})

	t.Run("reconciled keys are union minus deleted", func(t *testing.T) {
		want := make(types.KeySet)
		for k := range existing {
			want.Add(k)
		}
		for k := range masterKeys {
			want.Add(k)
		}
		for _, k := range res.Changeset.Deleted {
			delete(want, k)
		}
		got := make(types.KeySet)
		for k := range res.Reconciled {
			got.Add(k)
		}
		assert.Equal(t, want, got)
	})

	t.Run("reconciled rows equal master rows", func(t *testing.T) {
		for _, r := range master {
			assert.Equal(t, r, res.Reconciled[r["id"]])
		}
	})

	t.Run("second run is empty", func(t *testing.T) {
		again, err := Compute(Rows(master), masterKeys, res.Reconciled, testOpts)
		require.NoError(t, err)
		assert.True(t, again.Changeset.Empty())
		assert.False(t, again.Summary.Changed())
	})
}

func TestFieldDiffTemporalNormalization(t *testing.T) {
	schema := types.Schema{{Name: "id", Type: "int"}, {Name: "modified", Type: "datetime"}}
	at := time.Date(2023, 6, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		prev    any
		next    any
		changed bool
	}{
		{"time vs mysql text", "2023-06-01 10:30:00", at, false},
		{"time vs rfc3339", "2023-06-01T10:30:00Z", at, false},
		{"time vs driver text", "2023-06-01 10:30:00+00:00", at, false},
		{"different second", "2023-06-01 10:30:01", at, true},
		{"null vs time", nil, at, true},
		{"both null", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, err := FieldDiff(
				types.Row{"id": int64(1), "modified": tt.prev},
				types.Row{"id": int64(1), "modified": tt.next},
				schema,
			)
			require.NoError(t, err)
			if tt.changed {
				assert.Equal(t, types.Delta{"modified": tt.next}, delta)
			} else {
				assert.Empty(t, delta)
			}
		})
	}
}

func TestFieldDiffNumbers(t *testing.T) {
	schema := types.Schema{
		{Name: "id", Type: "int"},
		{Name: "price", Type: "double"},
		{Name: "amount", Type: "decimal(10,2)"},
		{Name: "code", Type: "varchar(8)"},
	}
	prev := types.Row{"id": int64(1), "price": float64(3), "amount": 12.5, "code": "3"}

	tests := []struct {
		name    string
		col     string
		next    any
		changed bool
	}{
		{"int vs float", "price", int64(3), false},
		{"text vs double", "price", "3", false},
		{"decimal text vs real", "amount", "12.50", false},
		{"decimal text differs", "amount", "12.51", true},
		{"text column keeps text", "code", int64(3), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := types.Row{"id": int64(1), "price": float64(3), "amount": 12.5, "code": "3"}
			next[tt.col] = tt.next
			delta, err := FieldDiff(prev, next, schema)
			require.NoError(t, err)
			if tt.changed {
				assert.Equal(t, types.Delta{tt.col: tt.next}, delta)
			} else {
				assert.Empty(t, delta)
			}
		})
	}
}

func TestComputeDecimalKeyMatchesStoredNumber(t *testing.T) {
	opts := Options{
		PrimaryKey: "code",
		Schema:     types.Schema{{Name: "code", Type: "decimal(6,2)"}, {Name: "val", Type: "text"}},
	}
	// The snapshot reads decimal keys back as numbers.
	existing := Index([]types.Row{
		{"code": 12.5, "val": "a"},
		{"code": int64(3), "val": "b"},
	}, "code")
	master := []types.Row{
		{"code": "12.50", "val": "a"},
		{"code": "3.00", "val": "b"},
	}

	masterKeys := make(types.KeySet)
	masterKeys.Add(12.5)
	masterKeys.Add(int64(3))

	res, err := Compute(Rows(master), masterKeys, existing, opts)
	require.NoError(t, err)
	assert.True(t, res.Changeset.Empty(), "got %+v", res.Changeset)
	assert.Len(t, res.Reconciled, 2)
}

func TestFieldDiffMissingColumn(t *testing.T) {
	_, err := FieldDiff(types.Row{"id": int64(1), "val": "a"}, types.Row{"id": int64(1)}, testSchema)
	require.ErrorIs(t, err, types.ErrIntegrity)
	assert.Contains(t, err.Error(), "removed [val]")
}

func TestIndexDropsNullKeys(t *testing.T) {
	idx := Index([]types.Row{row(1, "a"), {"id": nil, "val": "x"}, {"val": "y"}}, "id")
	assert.Equal(t, map[types.Key]types.Row{int64(1): row(1, "a")}, idx)
}
