package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dicom-indexer/dedup"
	"dicom-indexer/iptk"
)

// ChangeLog serves pages of the dataset change log.
type ChangeLog interface {
	DatasetChanges(ctx context.Context, cursor, perPage int) (*iptk.ChangePage, error)
}

// DatasetHandler processes one admitted dataset.
type DatasetHandler interface {
	HandleDataset(ctx context.Context, datasetID string) (Outcome, error)
}

// Poller walks the change log and hands every new dataset to a handler, one
// dataset at a time.
type Poller struct {
	Changes   ChangeLog
	Tracker   dedup.Tracker
	Handler   DatasetHandler
	PageSize  int
	IdleDelay time.Duration

	// Cursor is the change-log position of the next page.
	Cursor int

	sleep func(ctx context.Context, d time.Duration) error
}

// PollOnce processes a single page and advances the cursor. caughtUp is true
// when the page reached the end of the log or failed to move past the cursor.
func (p *Poller) PollOnce(ctx context.Context) (caughtUp bool, err error) {
	page, err := p.Changes.DatasetChanges(ctx, p.Cursor, p.PageSize)
	if err != nil {
		return false, fmt.Errorf("fetch changes at %d: %w", p.Cursor, err)
	}

	for _, entry := range page.Entries {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		p.process(ctx, entry.DatasetID)
	}

	slog.DebugContext(ctx, "Processed change page", "cursor", p.Cursor, "end", page.Range.End, "max", page.Range.Max, "entries", len(page.Entries))
	if page.Range.End <= p.Cursor {
		// The cursor never moves backwards; a page that does not advance it is
		// treated as the end of the log.
		if !page.CaughtUp() {
			slog.WarnContext(ctx, "Change page did not advance cursor", "cursor", p.Cursor, "end", page.Range.End, "max", page.Range.Max)
		}
		return true, nil
	}
	p.Cursor = page.Range.End
	return page.CaughtUp(), nil
}

// process admits and handles one dataset. Failures stay confined to it.
func (p *Poller) process(ctx context.Context, datasetID string) {
	admitted, err := p.Tracker.Admit(ctx, datasetID)
	if err != nil {
		slog.ErrorContext(ctx, "Dedup check failed, skipping dataset this cycle", "dataset_id", datasetID, "error", err)
		return
	}
	if !admitted {
		slog.InfoContext(ctx, "Dataset skipped", "dataset_id", datasetID, "outcome", OutcomeSkippedSeen)
		return
	}

	outcome, err := p.handle(ctx, datasetID)
	if err != nil {
		slog.ErrorContext(ctx, "Dataset failed", "dataset_id", datasetID, "outcome", outcome, "error", err)
		return
	}
	slog.InfoContext(ctx, "Dataset processed", "dataset_id", datasetID, "outcome", outcome)
}

// handle shields the loop from panics raised while decoding hostile files.
func (p *Poller) handle(ctx context.Context, datasetID string) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = OutcomeFailed, fmt.Errorf("panic while handling dataset: %v", r)
		}
	}()
	return p.Handler.HandleDataset(ctx, datasetID)
}

// Run polls until ctx is cancelled. It sleeps IdleDelay whenever the log is
// caught up or a page could not be fetched.
func (p *Poller) Run(ctx context.Context) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	slog.InfoContext(ctx, "Polling dataset changes", "cursor", p.Cursor, "page_size", p.PageSize, "idle_delay", p.IdleDelay)
	for {
		caughtUp, err := p.PollOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			slog.ErrorContext(ctx, "Change log poll failed", "cursor", p.Cursor, "error", err)
			caughtUp = true
		}
		if caughtUp {
			if err := sleep(ctx, p.IdleDelay); err != nil {
				return nil
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
