package excel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/dailylove/internal/content"
	"github.com/example/dailylove/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath         string // Path to the Excel or CSV file
	TitleColumn      string // Column with the item title
	BodyColumn       string // Column with the item text
	CategoryColumn   string // Column with the category (love language)
	DifficultyColumn string // Column with the difficulty
	MinutesColumn    string // Column with the estimated minutes
	SheetName        string // Name of the sheet to import, empty for the first sheet
	StartRow         int    // The row to start importing from (1-based index)
	Locale           string // Locale the text columns are written in
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		TitleColumn:      "A",
		BodyColumn:       "B",
		CategoryColumn:   "C",
		DifficultyColumn: "D",
		MinutesColumn:    "E",
		StartRow:         2, // By default, start from the second row (skip header)
		Locale:           content.DefaultLocale,
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
	// Items are numbered 1..N in row order
	Items []models.ContentItem
}

// Bank validates the imported items as a content bank
func (r *ImportResult) Bank(name string) (*content.Bank, error) {
	return content.NewBank(name, r.Items)
}

// ImportItems imports content items from an Excel or CSV file
func ImportItems(config ImportConfig) (*ImportResult, error) {
	if config.Locale == "" {
		config.Locale = content.DefaultLocale
	}
	if config.StartRow < 1 {
		config.StartRow = 1
	}
	if config.BodyColumn == "" {
		return nil, errors.New("body column is required")
	}

	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return importFromCSV(config)
	}
	return importFromExcel(config)
}

// importFromExcel imports items from an Excel file
func importFromExcel(config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		processRow(row, config, result, i+1)
	}
	return result, nil
}

// importFromCSV imports items from a CSV file
func importFromCSV(config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{Errors: make([]string, 0)}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}

		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		processRow(row, config, result, rowNum)
	}
	return result, nil
}

// processRow turns one row into a content item, recording skips and errors on result
func processRow(row []string, config ImportConfig, result *ImportResult, rowNum int) {
	if isBlank(row) {
		result.Skipped++
		return
	}
	result.TotalProcessed++

	item, err := rowToItem(row, config)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		return
	}
	item.ID = len(result.Items) + 1
	result.Items = append(result.Items, item)
	result.Imported++
}

func rowToItem(row []string, config ImportConfig) (models.ContentItem, error) {
	body := cell(row, config.BodyColumn)
	if body == "" {
		return models.ContentItem{}, fmt.Errorf("body cannot be empty")
	}

	item := models.ContentItem{
		Category:   strings.ToLower(cell(row, config.CategoryColumn)),
		Difficulty: strings.ToLower(cell(row, config.DifficultyColumn)),
		Body:       models.LocalizedText{config.Locale: body},
	}
	if title := cell(row, config.TitleColumn); title != "" {
		item.Title = models.LocalizedText{config.Locale: title}
	}
	if minutes := cell(row, config.MinutesColumn); minutes != "" {
		n, err := strconv.Atoi(minutes)
		if err != nil || n < 0 {
			return models.ContentItem{}, fmt.Errorf("minutes %q is not a non-negative number", minutes)
		}
		item.Minutes = n
	}
	return item, nil
}

// cell returns the trimmed value of column in row, or "" when the column is unset or missing
func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
