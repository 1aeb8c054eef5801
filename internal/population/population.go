// Package population parses the country population reference table supplied
// through the data_file environment variable.
package population

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// EnvDataFile names the environment variable holding the table's path.
const EnvDataFile = "data_file"

// ParseCSV reads a table with CountryCode and Population columns into a
// lookup map. When a country appears more than once the largest population
// wins.
func ParseCSV(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	codeIdx, popIdx := -1, -1
	for i, name := range header {
		switch name {
		case "CountryCode":
			codeIdx = i
		case "Population":
			popIdx = i
		}
	}
	if codeIdx < 0 || popIdx < 0 {
		return nil, fmt.Errorf("table must have CountryCode and Population columns")
	}

	out := make(map[string]float64)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if codeIdx >= len(row) || popIdx >= len(row) {
			continue
		}
		pop, err := strconv.ParseFloat(row[popIdx], 64)
		if err != nil {
			continue
		}
		code := row[codeIdx]
		if pop > out[code] {
			out[code] = pop
		}
	}
	return out, nil
}

// LoadFile reads the table at path, or at the data_file environment variable
// when path is empty.
func LoadFile(path string) (map[string]float64, error) {
	if path == "" {
		path = os.Getenv(EnvDataFile)
	}
	if path == "" {
		return nil, fmt.Errorf("no population file given and %s is not set", EnvDataFile)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open population file: %w", err)
	}
	defer f.Close()

	return ParseCSV(f)
}
