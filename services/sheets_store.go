package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"soyeon/config"
	"soyeon/models"
)

const (
	sheetsAPIURL    = "https://sheets.googleapis.com/v4/spreadsheets"
	driveFilesURL   = "https://www.googleapis.com/drive/v3/files"
	spreadsheetMIME = "application/vnd.google-apps.spreadsheet"
)

var sheetsScopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive.readonly",
}

// SheetsOptions configures a SheetsStore.
type SheetsOptions struct {
	HTTPClient *http.Client
	SheetsURL  string
	DriveURL   string

	// SpreadsheetID wins over Title. Title is looked up through Drive once.
	SpreadsheetID string
	Title         string
	SheetName     string

	Speakers models.Speakers
	Location *time.Location
}

// SheetsStore keeps turns as [timestamp, speaker, content] rows of a Google sheet.
type SheetsStore struct {
	client    *resty.Client
	sheetsURL string
	driveURL  string
	title     string
	sheetName string
	speakers  models.Speakers
	loc       *time.Location

	mu            sync.Mutex
	spreadsheetID string
}

type valueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

type driveFileList struct {
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
}

func NewSheetsStore(opts SheetsOptions) *SheetsStore {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	sheetsURL := opts.SheetsURL
	if sheetsURL == "" {
		sheetsURL = sheetsAPIURL
	}
	driveURL := opts.DriveURL
	if driveURL == "" {
		driveURL = driveFilesURL
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &SheetsStore{
		client:        resty.NewWithClient(httpClient),
		sheetsURL:     strings.TrimRight(sheetsURL, "/"),
		driveURL:      driveURL,
		title:         opts.Title,
		sheetName:     opts.SheetName,
		speakers:      opts.Speakers,
		loc:           loc,
		spreadsheetID: opts.SpreadsheetID,
	}
}

// NewSheetsStoreFromCredentials authenticates with a service account key file
// and opens the memory spreadsheet.
func NewSheetsStoreFromCredentials(ctx context.Context, cfg config.StoreConfig, speakers models.Speakers) (*SheetsStore, error) {
	data, err := os.ReadFile(cfg.Sheets.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheetsScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Sheets.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid sheets timezone %q: %w", cfg.Sheets.Timezone, err)
	}

	store := NewSheetsStore(SheetsOptions{
		HTTPClient:    oauth2.NewClient(ctx, creds.TokenSource),
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		Title:         cfg.MemoryName,
		SheetName:     cfg.Sheets.SheetName,
		Speakers:      speakers,
		Location:      loc,
	})

	if _, err := store.resolve(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SheetsStore) Append(ctx context.Context, turn models.Turn) error {
	id, err := s.resolve(ctx)
	if err != nil {
		return storeError("append", err)
	}

	body := valueRange{
		Values: [][]string{{
			FormatSheetTimestamp(turn.Timestamp, s.loc),
			s.speakers.Label(turn.Role),
			turn.Content,
		}},
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": id, "range": s.valuesRange()}).
		SetQueryParams(map[string]string{
			"valueInputOption": "RAW",
			"insertDataOption": "INSERT_ROWS",
		}).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(s.sheetsURL + "/{id}/values/{range}:append")
	if err != nil {
		return storeError("append", err)
	}
	if resp.IsError() {
		return storeError("append", fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}
	return nil
}

func (s *SheetsStore) Recent(ctx context.Context, limit int) ([]models.Turn, error) {
	id, err := s.resolve(ctx)
	if err != nil {
		return nil, storeError("recent", err)
	}

	var result valueRange
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": id, "range": s.valuesRange()}).
		SetQueryParam("majorDimension", "ROWS").
		SetResult(&result).
		Get(s.sheetsURL + "/{id}/values/{range}")
	if err != nil {
		return nil, storeError("recent", err)
	}
	if resp.IsError() {
		return nil, storeError("recent", fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}

	return s.rowsToTurns(result.Values, limit), nil
}

func (s *SheetsStore) Close() error { return nil }

// rowsToTurns drops a header row (first cell is not a timestamp) and rows
// with fewer than three cells, then keeps the trailing limit turns.
func (s *SheetsStore) rowsToTurns(rows [][]string, limit int) []models.Turn {
	start := 0
	if len(rows) > 0 {
		if len(rows[0]) == 0 {
			start = 1
		} else if _, err := ParseSheetTimestamp(rows[0][0], s.loc); err != nil {
			start = 1
		}
	}

	turns := make([]models.Turn, 0, len(rows))
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 3 {
			continue
		}
		ts, _ := ParseSheetTimestamp(row[0], s.loc)
		turns = append(turns, models.Turn{
			ID:        fmt.Sprintf("row-%d", i+1),
			Timestamp: ts,
			Role:      s.speakers.RoleOf(row[1]),
			Content:   row[2],
		})
	}
	return lastN(turns, limit)
}

func (s *SheetsStore) valuesRange() string {
	if s.sheetName == "" {
		return "A:C"
	}
	return "'" + strings.ReplaceAll(s.sheetName, "'", "''") + "'!A:C"
}

// resolve returns the spreadsheet ID, searching Drive by title the first time.
func (s *SheetsStore) resolve(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spreadsheetID != "" {
		return s.spreadsheetID, nil
	}
	if s.title == "" {
		return "", errors.New("no spreadsheet id or title configured")
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(s.title, "'", "\\'"), spreadsheetMIME)

	var list driveFileList
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"fields": "files(id,name)",
		}).
		SetResult(&list).
		Get(s.driveURL)
	if err != nil {
		return "", fmt.Errorf("failed to search spreadsheet %q: %w", s.title, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("failed to search spreadsheet %q: status %d", s.title, resp.StatusCode())
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q not found", s.title)
	}

	s.spreadsheetID = list.Files[0].ID
	return s.spreadsheetID, nil
}
