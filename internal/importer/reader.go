package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"storefront-service/internal/models"
)

// ProductsSheet is preferred when a workbook has several sheets
const ProductsSheet = "Products"

var errNoHeader = errors.New("file must have a header row")

// ReadWorkbook parses an xlsx stream into data rows keyed by the trimmed header text.
// Empty cells and blank rows are left out rather than reported.
func ReadWorkbook(r io.Reader, fileName string) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{FileName: fileName, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{FileName: fileName, Err: errors.New("no sheets found in Excel file")}
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, ProductsSheet) {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &ParseError{FileName: fileName, Err: fmt.Errorf("failed to read sheet %q: %w", sheetName, err)}
	}
	if len(excelRows) == 0 {
		return nil, &ParseError{FileName: fileName, Err: errNoHeader}
	}

	headers := make([]string, len(excelRows[0]))
	hasHeader := false
	for i, h := range excelRows[0] {
		h = strings.TrimSuffix(strings.TrimSpace(h), " *")
		headers[i] = h
		if h != "" {
			hasHeader = true
		}
	}
	if !hasHeader {
		return nil, &ParseError{FileName: fileName, Err: errNoHeader}
	}

	rows := make([]Row, 0, len(excelRows)-1)
	for idx, excelRow := range excelRows[1:] {
		cells := make(map[string]string)
		for i, value := range excelRow {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			if v := strings.TrimSpace(value); v != "" {
				cells[headers[i]] = v
			}
		}
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, Row{Number: idx + 2, Cells: cells})
	}

	return rows, nil
}

// WriteTemplate renders the import template as an xlsx workbook with a Products
// sheet holding the headers and an Instructions sheet describing each column.
func WriteTemplate(w io.Writer, template models.ImportTemplate) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ProductsSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return err
	}
	requiredStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return err
	}

	// Headers are written without a required marker so an exported file and the
	// template share the same column names.
	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(ProductsSheet, cell, col.Name)
		style := headerStyle
		if col.Required {
			style = requiredStyle
		}
		f.SetCellStyle(ProductsSheet, cell, cell, style)

		example, _ := excelize.CoordinatesToCellName(i+1, 2)
		if col.Example != "" {
			f.SetCellValue(ProductsSheet, example, col.Example)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(ProductsSheet, colName, colName, 22)
	}

	const instructions = "Instructions"
	if _, err := f.NewSheet(instructions); err != nil {
		return err
	}
	f.SetCellValue(instructions, "A1", "AliExpress Product Import")
	f.SetCellValue(instructions, "A3", "Export products from the AliExpress affiliate portal and upload the file unchanged.")
	f.SetCellValue(instructions, "A4", "Orange columns are required. Rows whose ProductId already exists are skipped.")
	f.SetCellValue(instructions, "A5", "Imported products start as DRAFT and must be published from the products page.")

	f.SetCellValue(instructions, "A7", "Column")
	f.SetCellValue(instructions, "B7", "Description")
	f.SetCellValue(instructions, "C7", "Required")
	f.SetCellValue(instructions, "D7", "Type")
	f.SetCellValue(instructions, "E7", "Example")

	for i, col := range template.Columns {
		row := i + 8
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue(instructions, fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue(instructions, fmt.Sprintf("B%d", row), col.Description)
		f.SetCellValue(instructions, fmt.Sprintf("C%d", row), required)
		f.SetCellValue(instructions, fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue(instructions, fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth(instructions, "A", "A", 38)
	f.SetColWidth(instructions, "B", "B", 40)
	f.SetColWidth(instructions, "C", "D", 12)
	f.SetColWidth(instructions, "E", "E", 50)

	sheetIdx, _ := f.GetSheetIndex(ProductsSheet)
	f.SetActiveSheet(sheetIdx)

	_, err = f.WriteTo(w)
	return err
}
