package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/browser"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/settings"
)

const (
	bookmarksPath = "/api/bookmarks"
	tokenHeader   = "X-Token"
	batchHeader   = "X-Batch-Id"

	maxTitleLength = 500
)

type (
	Transmitter struct {
		source    browser.Source
		selection *settings.Selection
		store     *settings.Store
		client    *resty.Client
		logger    *zap.SugaredLogger
		now       func() time.Time
		running   int32
	}

	// Result of a sync. MissingFolders are selected folders that no longer
	// exist in the browser; Report is nil when the response body is not a
	// merge report.
	Result struct {
		LastSync       time.Time
		BatchID        string
		Records        int
		MissingFolders []settings.Folder
		Report         *models.MergeReport
	}
)

func NewTransmitter(source browser.Source, selection *settings.Selection, store *settings.Store, timeout time.Duration, logger *zap.SugaredLogger) *Transmitter {
	return &Transmitter{
		source:    source,
		selection: selection,
		store:     store,
		client:    resty.New().SetTimeout(timeout),
		logger:    logger.Named("syncer"),
		now:       time.Now,
	}
}

// RunSync sends the bookmarks directly inside every selected folder to the
// server as one batch and records the completion time. Nothing is recorded
// when the batch is not accepted.
func (t *Transmitter) RunSync(ctx context.Context) (*Result, error) {
	if !atomic.CompareAndSwapInt32(&t.running, 0, 1) {
		return nil, ErrSyncInProgress
	}
	defer atomic.StoreInt32(&t.running, 0)

	records, missing, err := t.collect(ctx)
	if err != nil {
		return nil, err
	}

	serverURL := t.store.ServerURL()
	if serverURL == "" {
		return nil, ErrNotConfigured
	}

	batchID := uuid.New().String()
	report, err := t.send(ctx, serverURL, batchID, records)
	if err != nil {
		return nil, err
	}

	completed := t.now().UTC()
	if err := t.store.SetLastSync(completed); err != nil {
		return nil, errors.Wrap(err, "record last sync")
	}

	t.logger.Infow("sync finished", "batch_id", batchID, "records", len(records))
	return &Result{
		LastSync:       completed,
		BatchID:        batchID,
		Records:        len(records),
		MissingFolders: missing,
		Report:         report,
	}, nil
}

// Collect builds the batch RunSync would send without sending it.
func (t *Transmitter) Collect(ctx context.Context) ([]models.BookmarkRecord, error) {
	records, _, err := t.collect(ctx)
	return records, err
}

func (t *Transmitter) collect(ctx context.Context) ([]models.BookmarkRecord, []settings.Folder, error) {
	records := make([]models.BookmarkRecord, 0)
	missing := make([]settings.Folder, 0)

	for _, folder := range t.selection.List() {
		children, err := t.source.Children(ctx, folder.ID)
		if errors.Is(err, browser.ErrFolderNotFound) {
			t.logger.Warnw("selected folder no longer exists", "id", folder.ID, "title", folder.Title)
			missing = append(missing, folder)
			continue
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read folder %s", folder.Title)
		}

		for _, child := range children {
			if !child.IsBookmark() {
				continue
			}
			records = append(records, toRecord(folder, child))
		}
	}
	return records, missing, nil
}

func toRecord(folder settings.Folder, n *browser.Node) models.BookmarkRecord {
	index := n.Index
	rec := models.BookmarkRecord{
		ID:       n.ID,
		ParentID: n.ParentID,
		Index:    &index,
		URL:      n.URL,
		Title:    n.Title,
		Tags:     n.Tags,
	}
	if strings.TrimSpace(rec.Title) == "" {
		rec.Title = truncate(n.URL, maxTitleLength)
	}
	if n.DateAdded != 0 {
		dateAdded := n.DateAdded
		rec.DateAdded = &dateAdded
	}
	if folder.Title != "" {
		title := folder.Title
		rec.SourceFolder = &title
	}
	return rec
}

func (t *Transmitter) send(ctx context.Context, serverURL, batchID string, records []models.BookmarkRecord) (*models.MergeReport, error) {
	body, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(err, "encode batch")
	}

	req := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(batchHeader, batchID).
		SetBody(body)
	if token := t.store.APIToken(); token != "" {
		req.SetHeader(tokenHeader, token)
	}

	endpoint := strings.TrimRight(serverURL, "/") + bookmarksPath
	t.logger.Debugw("sending batch", "endpoint", endpoint, "batch_id", batchID, "records", len(records))

	resp, err := req.Post(endpoint)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &TransportError{
			StatusCode: resp.StatusCode(),
			Err:        errors.New(strings.TrimSpace(http.StatusText(resp.StatusCode()) + " " + resp.String())),
		}
	}

	report := models.MergeReport{}
	if err := json.Unmarshal(resp.Body(), &report); err != nil || report.Results == nil {
		t.logger.Debugw("response is not a merge report", "error", err)
		return nil, nil
	}
	return &report, nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
