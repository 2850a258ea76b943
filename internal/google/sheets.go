package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"kiybot/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsService зеркалирует актуальные брони в Google-таблицу.
// Лист полностью перезаписывается при каждой синхронизации.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// TestConnection проверяет доступ к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "Reservations!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// ReplaceReservations полностью перезаписывает лист Reservations.
func (s *SheetsService) ReplaceReservations(ctx context.Context, reservations []models.Reservation, tables []models.Table) error {
	tableNames := make(map[int64]string, len(tables))
	for _, t := range tables {
		tableNames[t.ID] = t.Name
	}

	values := [][]interface{}{
		{"ID", "Стол", "Дата", "Начало", "Конец", "Пользователь", "Телефон", "Статус"},
	}

	for _, r := range reservations {
		name := tableNames[r.TableID]
		if name == "" {
			name = fmt.Sprintf("Стол %d", r.TableID)
		}
		values = append(values, []interface{}{
			r.ID,
			name,
			r.StartTime.Format("02.01.2006"),
			r.StartTime.Format("15:04"),
			r.EndTime.Format("15:04"),
			r.Username,
			r.Phone,
			r.Status,
		})
	}

	// Сначала чистим лист, иначе хвост старых строк останется
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, "Reservations!A:H", &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear sheet: %v", err)
	}

	rangeData := fmt.Sprintf("Reservations!A1:H%d", len(values))
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()

	return err
}
