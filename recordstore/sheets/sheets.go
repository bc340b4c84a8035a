/*
Package sheets implements recordstore.Store on the Google Sheets and
Drive REST APIs.

PURPOSE:
  The remote backend of the bookkeeping app: one spreadsheet per user
  (found by name, created with the fixed table schema on first use),
  each stream a sheet inside it. All calls are plain REST with a bearer
  token from auth.Source.

RATE LIMITING:
  The Sheets API enforces per-user quotas; every request goes through a
  shared rate limiter so bursts of repository operations (an update is
  read + N cell writes + append) don't trip the quota.

CONTAINER CACHE:
  Resolving a container costs a Drive search. Resolved ids are cached
  per user for a few minutes; the id of a spreadsheet does not change.

ERRORS:
  Non-2xx responses surface as errors carrying the HTTP status and a
  body snippet. A 401 additionally invalidates the credential cache so
  the next request fetches a fresh token.
*/
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/warp/stockledger/auth"
	"github.com/warp/stockledger/recordstore"
)

const (
	sheetsBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	driveBaseURL  = "https://www.googleapis.com/drive/v3"

	containerCacheTTL = 5 * time.Minute
)

type Store struct {
	client  *http.Client
	source  auth.Source
	limiter *rate.Limiter
	ids     *gocache.Cache // userKey -> spreadsheet id

	sheetsURL string
	driveURL  string
}

// Option tweaks the store; used by tests to point at a fake server.
type Option func(*Store)

func WithBaseURLs(sheetsURL, driveURL string) Option {
	return func(s *Store) {
		s.sheetsURL = sheetsURL
		s.driveURL = driveURL
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) { s.client = client }
}

// New builds a Sheets-backed store. requestsPerSecond should stay
// under the per-user API quota; 1/s is comfortable for interactive use.
func New(source auth.Source, requestsPerSecond float64, opts ...Option) *Store {
	s := &Store{
		client:    &http.Client{Timeout: 30 * time.Second},
		source:    source,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		ids:       gocache.New(containerCacheTTL, 2*containerCacheTTL),
		sheetsURL: sheetsBaseURL,
		driveURL:  driveBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// STORE CONTRACT
// =============================================================================

func (s *Store) ResolveContainer(ctx context.Context, userKey string) (string, error) {
	if id, ok := s.ids.Get(userKey); ok {
		return id.(string), nil
	}

	name := recordstore.ContainerName(userKey)
	id, err := s.findSpreadsheet(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		id, err = s.createSpreadsheet(ctx, name)
		if err != nil {
			return "", err
		}
		if err := s.writeHeaders(ctx, id); err != nil {
			return "", err
		}
	}

	s.ids.SetDefault(userKey, id)
	return id, nil
}

func (s *Store) AppendRow(ctx context.Context, containerID, table string, row []string) (recordstore.WriteAck, error) {
	endpoint := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		s.sheetsURL, containerID, url.PathEscape(table+"!A:I"))

	var resp struct {
		Updates struct {
			UpdatedRange string `json:"updatedRange"`
			UpdatedRows  int    `json:"updatedRows"`
		} `json:"updates"`
	}
	body := map[string]any{"values": [][]string{row}}
	if err := s.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return recordstore.WriteAck{}, err
	}
	return recordstore.WriteAck{
		ContainerID: containerID,
		Table:       table,
		Row:         rowFromRange(resp.Updates.UpdatedRange),
	}, nil
}

func (s *Store) ReadTable(ctx context.Context, containerID, table string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/%s/values/%s", s.sheetsURL, containerID, url.PathEscape(table))

	var resp struct {
		Values [][]string `json:"values"`
	}
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Values == nil {
		return [][]string{}, nil
	}
	return resp.Values, nil
}

func (s *Store) WriteCell(ctx context.Context, containerID, table string, rowNumber int, column, value string) error {
	cellRange := fmt.Sprintf("%s!%s%d", table, column, rowNumber)
	endpoint := fmt.Sprintf("%s/%s/values/%s?valueInputOption=RAW",
		s.sheetsURL, containerID, url.PathEscape(cellRange))

	body := map[string]any{"values": [][]string{{value}}}
	return s.do(ctx, http.MethodPut, endpoint, body, nil)
}

func (s *Store) ClearRows(ctx context.Context, containerID, table string, fromRow int) error {
	clearRange := fmt.Sprintf("%s!A%d:I", table, fromRow)
	endpoint := fmt.Sprintf("%s/%s/values/%s:clear", s.sheetsURL, containerID, url.PathEscape(clearRange))
	return s.do(ctx, http.MethodPost, endpoint, map[string]any{}, nil)
}

// =============================================================================
// SPREADSHEET LIFECYCLE
// =============================================================================

func (s *Store) findSpreadsheet(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.spreadsheet'", name)
	endpoint := fmt.Sprintf("%s/files?q=%s", s.driveURL, url.QueryEscape(query))

	var resp struct {
		Files []struct {
			ID string `json:"id"`
		} `json:"files"`
	}
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Files) == 0 {
		return "", nil
	}
	return resp.Files[0].ID, nil
}

func (s *Store) createSpreadsheet(ctx context.Context, title string) (string, error) {
	type sheetProps struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	}
	var sheetDefs []sheetProps
	for _, cfg := range recordstore.TableConfigs {
		var sp sheetProps
		sp.Properties.Title = cfg.Name
		sheetDefs = append(sheetDefs, sp)
	}

	body := map[string]any{
		"properties": map[string]string{"title": title},
		"sheets":     sheetDefs,
	}
	var resp struct {
		SpreadsheetID string `json:"spreadsheetId"`
	}
	if err := s.do(ctx, http.MethodPost, s.sheetsURL, body, &resp); err != nil {
		return "", err
	}
	return resp.SpreadsheetID, nil
}

func (s *Store) writeHeaders(ctx context.Context, containerID string) error {
	for _, cfg := range recordstore.TableConfigs {
		endpoint := fmt.Sprintf("%s/%s/values/%s?valueInputOption=RAW",
			s.sheetsURL, containerID, url.PathEscape(cfg.Name+"!A1"))
		body := map[string]any{"values": [][]string{cfg.Headers}}
		if err := s.do(ctx, http.MethodPut, endpoint, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

func (s *Store) do(ctx context.Context, method, endpoint string, body, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := s.source.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := s.source.(interface{ Invalidate() }); ok {
				inv.Invalidate()
			}
		}
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sheets api %s %s: status %d: %s",
			method, endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// rowFromRange extracts the physical row from an updated range like
// "'sales'!A5:I5". Returns 0 when the range is not parseable.
func rowFromRange(updatedRange string) int {
	_, ref, ok := strings.Cut(updatedRange, "!")
	if !ok {
		return 0
	}
	start, _, _ := strings.Cut(ref, ":")
	digits := strings.TrimLeftFunc(start, func(r rune) bool {
		return r < '0' || r > '9'
	})
	row, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return row
}
