package ingredients

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Supported import formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

const importBatchSize = 500

// ErrUnknownFormat is returned for a format other than json or csv
var ErrUnknownFormat = errors.New("unknown import format, expected json or csv")

// Record is one ingredient in an import file
type Record struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Importer loads ingredient reference data in bulk
type Importer struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewImporter creates a new ingredient importer
func NewImporter(db *gorm.DB, logger *zap.Logger) *Importer {
	return &Importer{db: db, logger: logger}
}

// Decode reads records in the given format.
// CSV rows are "name,unit" without a header.
func Decode(r io.Reader, format string) ([]Record, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		var records []Record
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return records, nil
	case FormatCSV:
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		records := make([]Record, 0, len(rows))
		for _, row := range rows {
			rec := Record{}
			if len(row) > 0 {
				rec.Name = row[0]
			}
			if len(row) > 1 {
				rec.MeasurementUnit = row[1]
			}
			records = append(records, rec)
		}
		return records, nil
	default:
		return nil, ErrUnknownFormat
	}
}

// Import decodes r and inserts every new (name, unit) pair in one transaction.
// Pairs that already exist, or repeat within the file, are skipped.
func (imp *Importer) Import(ctx context.Context, r io.Reader, format string) (ImportResult, error) {
	records, err := Decode(r, format)
	if err != nil {
		return ImportResult{}, err
	}
	return imp.ImportRecords(ctx, records)
}

// ImportRecords inserts already decoded records
func (imp *Importer) ImportRecords(ctx context.Context, records []Record) (ImportResult, error) {
	result := ImportResult{Errors: []string{}}

	var existing []models.Ingredient
	if err := imp.db.WithContext(ctx).Select("name", "measurement_unit").Find(&existing).Error; err != nil {
		return result, fmt.Errorf("load ingredients: %w", err)
	}
	seen := make(map[Record]bool, len(existing)+len(records))
	for _, ing := range existing {
		seen[Record{Name: ing.Name, MeasurementUnit: ing.MeasurementUnit}] = true
	}

	toCreate := make([]models.Ingredient, 0, len(records))
	for i, rec := range records {
		rec.Name = strings.TrimSpace(rec.Name)
		rec.MeasurementUnit = strings.TrimSpace(rec.MeasurementUnit)
		if rec.Name == "" || rec.MeasurementUnit == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: name and measurement_unit are required", i))
			result.Skipped++
			continue
		}
		if seen[rec] {
			result.Skipped++
			continue
		}
		seen[rec] = true
		toCreate = append(toCreate, models.Ingredient{Name: rec.Name, MeasurementUnit: rec.MeasurementUnit})
	}

	if len(toCreate) > 0 {
		err := imp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(&toCreate, importBatchSize).Error
		})
		if err != nil {
			return result, fmt.Errorf("insert ingredients: %w", err)
		}
	}
	result.Imported = len(toCreate)

	imp.logger.Info("Ingredients imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
