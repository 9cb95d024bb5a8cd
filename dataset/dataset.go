// Package dataset provides the labeled tabular dataset type and the SQL
// loader that materializes it from the housing_prices relation.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/itu-sdse/housing-estimator/pkg/errors"
)

// Dataset is a column-named table of numeric values with one row per record.
// Rows are indexed by the record identifier loaded from the primary key
// column; the identifier is carried alongside the data and is never part of
// the feature matrix.
type Dataset struct {
	columns []string
	ids     []int64
	data    *mat.Dense
}

// New creates a Dataset from column names and a backing matrix. The ids slice
// may be nil when no record identifiers exist (synthetic data in tests).
func New(columns []string, ids []int64, data *mat.Dense) (*Dataset, error) {
	if data == nil {
		return nil, errors.NewModelError("dataset.New", "empty data", errors.ErrEmptyData)
	}
	r, c := data.Dims()
	if c != len(columns) {
		return nil, errors.NewSchemaError("dataset.New", "",
			errors.Newf("expected %d columns, got %d", len(columns), c).Error())
	}
	if ids != nil && len(ids) != r {
		return nil, errors.NewDimensionError("dataset.New", r, len(ids), 0)
	}

	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{columns: cols, ids: ids, data: data}, nil
}

// NumRows returns the number of records.
func (d *Dataset) NumRows() int {
	r, _ := d.data.Dims()
	return r
}

// NumColumns returns the number of data columns.
func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// Columns returns a copy of the column names in positional order.
func (d *Dataset) Columns() []string {
	cols := make([]string, len(d.columns))
	copy(cols, d.columns)
	return cols
}

// IDs returns the record identifiers, or nil when none were loaded.
func (d *Dataset) IDs() []int64 {
	return d.ids
}

// Matrix returns the backing data matrix.
func (d *Dataset) Matrix() *mat.Dense {
	return d.data
}

// HasColumn reports whether a column with the given name exists.
func (d *Dataset) HasColumn(name string) bool {
	return d.columnIndex(name) >= 0
}

func (d *Dataset) columnIndex(name string) int {
	for i, col := range d.columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Column returns the named column as a vector.
func (d *Dataset) Column(name string) (*mat.VecDense, error) {
	idx := d.columnIndex(name)
	if idx < 0 {
		return nil, errors.NewSchemaError("dataset.Column", name, "column not found")
	}

	r := d.NumRows()
	vec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		vec.SetVec(i, d.data.At(i, idx))
	}
	return vec, nil
}

// Drop returns a new Dataset without the named column. Row order and record
// identifiers are preserved.
func (d *Dataset) Drop(name string) (*Dataset, error) {
	idx := d.columnIndex(name)
	if idx < 0 {
		return nil, errors.NewSchemaError("dataset.Drop", name, "column not found")
	}

	r := d.NumRows()
	c := len(d.columns)
	out := mat.NewDense(r, c-1, nil)
	cols := make([]string, 0, c-1)

	dst := 0
	for j := 0; j < c; j++ {
		if j == idx {
			continue
		}
		cols = append(cols, d.columns[j])
		for i := 0; i < r; i++ {
			out.Set(i, dst, d.data.At(i, j))
		}
		dst++
	}

	return &Dataset{columns: cols, ids: d.ids, data: out}, nil
}

// SetColumnNames renames all columns positionally. The rename is rejected
// with a SchemaError when the count does not match, which is the only
// detectable failure mode of a positional rename.
func (d *Dataset) SetColumnNames(names []string) error {
	if len(names) != len(d.columns) {
		return errors.NewSchemaError("dataset.SetColumnNames", "",
			errors.Newf("expected %d columns, got %d", len(d.columns), len(names)).Error())
	}
	cols := make([]string, len(names))
	copy(cols, names)
	d.columns = cols
	return nil
}
