// Package docs renders an assembled report as a Google Docs document:
// one four-column table (TITULAR, CUERPO, FUENTE, ENLACES) under a
// heading, shared at a stable URL.
package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	docs "google.golang.org/api/docs/v1"
	"google.golang.org/api/option"

	"github.com/jmoralo/newsbrief/internal/report"
	"github.com/jmoralo/newsbrief/internal/retry"
)

var headerCells = []string{"TITULAR", "CUERPO", "FUENTE", "ENLACES"}

// batchLimit keeps each BatchUpdate under the API's request ceiling.
const batchLimit = 400

const maxLinksPerItem = 3

// Client writes reports into new Google Docs documents.
type Client struct {
	svc      *docs.Service
	retryCfg retry.Config
}

// NewClient builds a Docs client from the same OAuth material the Gmail
// client uses.
func NewClient(ctx context.Context, credentialsPath, tokenPath string, scopes []string) (*Client, error) {
	secret, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(secret, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	token, err := loadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	svc, err := docs.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create docs service: %w", err)
	}

	return &Client{
		svc: svc,
		retryCfg: retry.Config{
			MaxAttempts: 5,
			Delay:       2 * time.Second,
			Linear:      true,
			Jitter:      true,
		},
	}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

// Deliver creates a document titled "<titlePrefix> <date>" and fills it
// with the report table. It returns the new document's ID and URL.
func (c *Client) Deliver(ctx context.Context, titlePrefix string, rep *report.Report) (string, string, error) {
	title := fmt.Sprintf("%s %s", titlePrefix, rep.GeneratedAt.Format("2006-01-02"))

	var doc *docs.Document
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		var err error
		doc, err = c.svc.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", "", fmt.Errorf("create document: %w", err)
	}
	docID := doc.DocumentId

	items := rep.Items
	if err := c.insertSkeleton(ctx, docID, rep, len(items)); err != nil {
		return docID, docURL(docID), err
	}
	if err := c.fillTable(ctx, docID, items); err != nil {
		return docID, docURL(docID), err
	}
	if err := c.boldHeaderRow(ctx, docID); err != nil {
		// Cosmetic only, the report content is already in place.
		slog.Warn("could not style header row", "doc_id", docID, "error", err)
	}

	slog.Info("report delivered", "doc_id", docID, "items", len(items))
	return docID, docURL(docID), nil
}

// insertSkeleton writes the heading, the optional executive summary and
// an empty (len(items)+1) x 4 table.
func (c *Client) insertSkeleton(ctx context.Context, docID string, rep *report.Report, itemCount int) error {
	heading := rep.GeneratedAt.Format("Noticias IA - 02/01/2006") + "\n"
	summary := ""
	if rep.ExecutiveSummary != "" {
		summary = rep.ExecutiveSummary + "\n"
	}

	reqs := []*docs.Request{
		{InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: 1},
			Text:     heading + summary,
		}},
		{UpdateParagraphStyle: &docs.UpdateParagraphStyleRequest{
			Range:          &docs.Range{StartIndex: 1, EndIndex: int64(1 + len([]rune(heading)))},
			ParagraphStyle: &docs.ParagraphStyle{NamedStyleType: "HEADING_1"},
			Fields:         "namedStyleType",
		}},
		{InsertTable: &docs.InsertTableRequest{
			Rows:                 int64(itemCount + 1),
			Columns:              int64(len(headerCells)),
			EndOfSegmentLocation: &docs.EndOfSegmentLocation{},
		}},
	}

	return c.batchUpdate(ctx, docID, reqs)
}

// fillTable re-reads the document to learn the real cell indices, then
// inserts every cell's text in reverse document order so earlier indices
// stay valid across the whole batch.
func (c *Client) fillTable(ctx context.Context, docID string, items []report.Item) error {
	cellIndexes, err := c.tableCellIndexes(ctx, docID)
	if err != nil {
		return err
	}
	rows := len(items) + 1
	if len(cellIndexes) < rows*len(headerCells) {
		return fmt.Errorf("table has %d cells, expected %d", len(cellIndexes), rows*len(headerCells))
	}

	// Row 0 is the header, data rows follow in report order.
	texts := make([]string, 0, rows*len(headerCells))
	texts = append(texts, headerCells...)
	for _, item := range items {
		texts = append(texts, cellTexts(item)...)
	}

	var reqs []*docs.Request
	for i := len(texts) - 1; i >= 0; i-- {
		if texts[i] == "" {
			continue
		}
		reqs = append(reqs, &docs.Request{
			InsertText: &docs.InsertTextRequest{
				Location: &docs.Location{Index: cellIndexes[i]},
				Text:     texts[i],
			},
		})
	}
	return c.batchUpdate(ctx, docID, reqs)
}

// cellTexts renders one report item into its four table cells.
func cellTexts(item report.Item) []string {
	var links []string
	for _, link := range item.Links {
		if len(links) >= maxLinksPerItem {
			break
		}
		if strings.Contains(link, "youtu") {
			link = "Video: " + link
		}
		links = append(links, link)
	}
	if item.EmailLink != "" {
		links = append(links, "Email: "+item.EmailLink)
	}

	source := item.Source
	if item.Fallback {
		source += " (resumen automatico)"
	}

	return []string{
		item.Headline,
		item.Body,
		source,
		strings.Join(links, "\n"),
	}
}

// tableCellIndexes walks the document body and returns, in reading
// order, the insertion index of every cell in the first table.
func (c *Client) tableCellIndexes(ctx context.Context, docID string) ([]int64, error) {
	var doc *docs.Document
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		var err error
		doc, err = c.svc.Documents.Get(docID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read document back: %w", err)
	}

	for _, elem := range doc.Body.Content {
		if elem.Table == nil {
			continue
		}
		var indexes []int64
		for _, row := range elem.Table.TableRows {
			for _, cell := range row.TableCells {
				if len(cell.Content) == 0 {
					return nil, fmt.Errorf("table cell without content at index %d", cell.StartIndex)
				}
				indexes = append(indexes, cell.Content[0].StartIndex)
			}
		}
		return indexes, nil
	}
	return nil, fmt.Errorf("no table found in document %s", docID)
}

// boldHeaderRow styles the first table row after its text is in place.
func (c *Client) boldHeaderRow(ctx context.Context, docID string) error {
	var doc *docs.Document
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		var err error
		doc, err = c.svc.Documents.Get(docID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return err
	}

	var reqs []*docs.Request
	for _, elem := range doc.Body.Content {
		if elem.Table == nil || len(elem.Table.TableRows) == 0 {
			continue
		}
		for _, cell := range elem.Table.TableRows[0].TableCells {
			for _, content := range cell.Content {
				if content.Paragraph == nil || content.EndIndex <= content.StartIndex+1 {
					continue
				}
				reqs = append(reqs, &docs.Request{
					UpdateTextStyle: &docs.UpdateTextStyleRequest{
						Range:     &docs.Range{StartIndex: content.StartIndex, EndIndex: content.EndIndex - 1},
						TextStyle: &docs.TextStyle{Bold: true},
						Fields:    "bold",
					},
				})
			}
		}
		break
	}
	if len(reqs) == 0 {
		return nil
	}
	return c.batchUpdate(ctx, docID, reqs)
}

// batchUpdate sends requests in chunks under the per-call limit.
func (c *Client) batchUpdate(ctx context.Context, docID string, reqs []*docs.Request) error {
	for start := 0; start < len(reqs); start += batchLimit {
		end := start + batchLimit
		if end > len(reqs) {
			end = len(reqs)
		}
		chunk := reqs[start:end]
		err := retry.WithRetry(ctx, c.retryCfg, func() error {
			_, err := c.svc.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
				Requests: chunk,
			}).Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("batch update: %w", err)
		}
	}
	return nil
}

func docURL(docID string) string {
	return "https://docs.google.com/document/d/" + docID + "/edit"
}
