package statmodel

import "fmt"

// Dataset holds a rectangular data set in column-major form, with a name
// for every column.  A Dataset is read-only once constructed; models hold
// references to its columns and must not modify them.
type Dataset struct {
	names []string
	data  [][]Dtype
}

// NewDataset constructs a Dataset from column-major data.  The number of
// names must match the number of columns, all columns must have the same
// length, and the names must be distinct.
func NewDataset(data [][]Dtype, names []string) Dataset {

	if len(data) != len(names) {
		msg := fmt.Sprintf("statmodel: %d columns but %d names", len(data), len(names))
		panic(msg)
	}
	if len(data) == 0 {
		panic("statmodel: dataset has no columns")
	}

	n := len(data[0])
	seen := make(map[string]bool)
	for j, na := range names {
		if len(data[j]) != n {
			msg := fmt.Sprintf("statmodel: column '%s' has length %d, expected %d", na, len(data[j]), n)
			panic(msg)
		}
		if seen[na] {
			msg := fmt.Sprintf("statmodel: duplicate column name '%s'", na)
			panic(msg)
		}
		seen[na] = true
	}

	return Dataset{names: names, data: data}
}

// Names returns the column names.
func (ds Dataset) Names() []string {
	return ds.names
}

// Data returns the data columns.
func (ds Dataset) Data() [][]Dtype {
	return ds.data
}

// NumObs returns the number of rows in the data set.
func (ds Dataset) NumObs() int {
	return len(ds.data[0])
}

// Pos returns the position of the named column, or -1 if there is no such
// column.
func (ds Dataset) Pos(name string) int {
	for j, na := range ds.names {
		if na == name {
			return j
		}
	}
	return -1
}

// Col returns the named column, or nil if there is no such column.
func (ds Dataset) Col(name string) []Dtype {
	j := ds.Pos(name)
	if j == -1 {
		return nil
	}
	return ds.data[j]
}
