package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kiybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"
)

func (b *Bot) handleExport(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	end := start.AddDate(0, 0, 7)

	path, err := b.exportToExcel(ctx, start, end)
	if err != nil {
		b.logger.Error().Err(err).Msg("Export failed")
		b.sendMessage(update.Message.Chat.ID, "❌ Не удалось сформировать экспорт.")
		return
	}

	doc := tgbotapi.NewDocument(update.Message.Chat.ID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("Брони %s – %s", start.Format("02.01"), end.Format("02.01.2006"))
	if _, err := b.tgService.Send(doc); err != nil {
		b.logger.Error().Err(err).Msg("Failed to send export document")
		b.sendMessage(update.Message.Chat.ID, "❌ Не удалось отправить файл.")
	}
}

// exportToExcel создает Excel файл с сеткой броней: столы по строкам,
// даты по колонкам.
func (b *Bot) exportToExcel(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(b.config.Exports.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	reservations, err := b.bookingService.GetReservationsByRange(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting reservations: %v", err)
	}

	tables, err := b.bookingService.GetActiveTables(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting tables: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Брони"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Период: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateCols := writeDateHeaders(f, sheetName, startDate, endDate)
	writeTableHeaders(f, sheetName, tables)
	writeReservationGrid(f, sheetName, reservations, tables, dateCols)

	_ = f.SetColWidth(sheetName, "A", "A", 20)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 22)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("reservations_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(b.config.Exports.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	b.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	currentDate := startDate
	dateCols := make(map[string]int)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, formatDateButton(currentDate))
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		dateCols[currentDate.Format("2006-01-02")] = col

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateCols
}

func writeTableHeaders(f *excelize.File, sheetName string, tables []models.Table) {
	for i, table := range tables {
		cell, _ := excelize.CoordinatesToCellName(1, 3+i)
		_ = f.SetCellValue(sheetName, cell, table.Name)
	}
}

func writeReservationGrid(f *excelize.File, sheetName string, reservations []models.Reservation, tables []models.Table, dateCols map[string]int) {
	rowByTable := make(map[int64]int, len(tables))
	for i, table := range tables {
		rowByTable[table.ID] = 3 + i
	}

	cells := make(map[string][]string)
	for _, r := range reservations {
		row, ok := rowByTable[r.TableID]
		if !ok {
			continue
		}
		col, ok := dateCols[r.StartTime.Format("2006-01-02")]
		if !ok {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(col, row)
		cells[cell] = append(cells[cell],
			fmt.Sprintf("%s %s", formatTimeRange(r.StartTime, r.EndTime), r.Username))
	}

	for cell, entries := range cells {
		_ = f.SetCellValue(sheetName, cell, strings.Join(entries, "\n"))
	}
}
