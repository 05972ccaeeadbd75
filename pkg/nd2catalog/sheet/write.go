package sheet

import (
	"fmt"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the catalog.
const SheetName = "Sheet1"

// Write saves the catalog to an xlsx workbook at path: a header row with
// c.Columns followed by one row per record. Absent fields are left blank.
func Write(path string, c *models.Catalog) error {
	if len(c.Columns) == 0 {
		return fmt.Errorf("catalog has no columns")
	}

	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(c.Columns))
	for i, name := range c.Columns {
		header[i] = name
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	for i := range c.Records {
		row := RowValues(&c.Records[i], c.Columns)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

// RowValues returns the cell values of rec in the given column order.
// Absent fields are nil.
func RowValues(rec *models.FileRecord, cols []string) []interface{} {
	row := make([]interface{}, len(cols))
	for i, name := range cols {
		if col, ok := columns[name]; ok {
			if v, present := col.get(rec); present {
				row[i] = v
			}
			continue
		}
		if v, ok := rec.Extra[name]; ok && v != "" {
			row[i] = v
		}
	}
	return row
}
