package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var ErrMissingColumn = errors.New("missing column")

// DishRecord is one dataset row.
type DishRecord struct {
	Name     string
	Calories float64
	Carbs    float64
	Protein  float64
	Fat      float64
}

func (r DishRecord) Value(target Target) float64 {
	switch target {
	case TargetCalories:
		return r.Calories
	case TargetCarbs:
		return r.Carbs
	case TargetProtein:
		return r.Protein
	case TargetFat:
		return r.Fat
	default:
		return 0
	}
}

// Columns holds the header names the dataset reader looks up.
type Columns struct {
	Name     string
	Calories string
	Carbs    string
	Protein  string
	Fat      string
}

func DefaultColumns() Columns {
	return Columns{
		Name:     "Dish Name",
		Calories: "Calories (kcal)",
		Carbs:    "Carbs (g)",
		Protein:  "Protein (g)",
		Fat:      "Fat (g)",
	}
}

func (c Columns) forTarget(target Target) string {
	switch target {
	case TargetCalories:
		return c.Calories
	case TargetCarbs:
		return c.Carbs
	case TargetProtein:
		return c.Protein
	case TargetFat:
		return c.Fat
	default:
		return ""
	}
}

// RowError reports a dataset row that could not be used for training.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Dataset keeps rows in file order; duplicate names are kept as-is.
type Dataset struct {
	Records []DishRecord
}

func (d *Dataset) Len() int {
	return len(d.Records)
}

func (d *Dataset) Names() []string {
	names := make([]string, len(d.Records))
	for i, r := range d.Records {
		names[i] = r.Name
	}
	return names
}

func (d *Dataset) Values(target Target) []float64 {
	values := make([]float64, len(d.Records))
	for i, r := range d.Records {
		values[i] = r.Value(target)
	}
	return values
}

func LoadDataset(path string, columns Columns) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ds, err := ReadDataset(file, columns)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ds, nil
}

// ReadDataset parses CSV with a header row. Every row needs a dish name and
// four numeric nutrition values.
func ReadDataset(r io.Reader, columns Columns) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, err
	}
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		positions[name] = i
	}

	nameIdx, ok := positions[columns.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, columns.Name)
	}
	valueIdx := make(map[Target]int, 4)
	for _, target := range Targets() {
		col := columns.forTarget(target)
		idx, ok := positions[col]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
		valueIdx[target] = idx
	}

	ds := &Dataset{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		row := DishRecord{Name: strings.TrimSpace(record[nameIdx])}
		if row.Name == "" {
			return nil, &RowError{Line: line, Column: columns.Name, Err: errors.New("empty dish name")}
		}
		for _, target := range Targets() {
			raw := strings.TrimSpace(record[valueIdx[target]])
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &RowError{Line: line, Column: columns.forTarget(target), Err: err}
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, &RowError{Line: line, Column: columns.forTarget(target), Err: errors.New("value is not a finite number")}
			}
			switch target {
			case TargetCalories:
				row.Calories = value
			case TargetCarbs:
				row.Carbs = value
			case TargetProtein:
				row.Protein = value
			case TargetFat:
				row.Fat = value
			}
		}
		ds.Records = append(ds.Records, row)
	}

	if ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}
