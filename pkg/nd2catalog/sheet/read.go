package sheet

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/xuri/excelize/v2"
)

// Read loads a catalog workbook written by Write, or edited by hand
// afterwards. The first row is the header; columns that do not map to a
// FileRecord field are kept in FileRecord.Extra. Cells that cannot be
// parsed are logged and left absent.
func Read(path string, logger *slog.Logger) (*models.Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	records, header, err := ExtractRecords(f, sheets[0], logger)
	if err != nil {
		return nil, err
	}

	return &models.Catalog{
		Schema:  InferSchema(header),
		Columns: header,
		Records: records,
	}, nil
}

// ExtractRecords converts the rows of a sheet to records.
// It returns the records of every non-empty data row and the header.
func ExtractRecords(f *excelize.File, sheetName string, logger *slog.Logger) ([]models.FileRecord, []string, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	header := rows[0]
	// The first occurrence of a duplicated column name wins.
	first := make(map[string]int, len(header))
	for colIdx, name := range header {
		if name == "" {
			continue
		}
		if _, seen := first[name]; !seen {
			first[name] = colIdx
		}
	}

	var result []models.FileRecord
	for rowIdx, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rowNum := rowIdx + 2 // 1-based, after the header

		var rec models.FileRecord
		for name, colIdx := range first {
			value := ""
			if colIdx < len(row) {
				value = row[colIdx]
			}

			col, known := columns[name]
			if !known {
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[name] = value
				continue
			}
			if strings.TrimSpace(value) == "" {
				continue
			}
			if err := col.set(&rec, value); err != nil {
				cellName, _ := excelize.CoordinatesToCellName(colIdx+1, rowNum)
				logger.Warn("ignoring unparsable catalog cell",
					slog.String("cell", cellName),
					slog.String("column", name),
					slog.String("value", value),
					slog.String("error", err.Error()))
			}
		}
		result = append(result, rec)
	}

	return result, header, nil
}

// InferSchema guesses the layout of a catalog from its header.
func InferSchema(header []string) models.Schema {
	has := make(map[string]bool, len(header))
	for _, name := range header {
		has[name] = true
	}
	switch {
	case has["mask_file_nbr"]:
		return models.SchemaWaves
	case has["pos"] && has["Q_uL_per_h"]:
		return models.SchemaDLD
	default:
		return models.SchemaPlain
	}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
