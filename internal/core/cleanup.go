package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/utils"
)

// MaxPageSize is the largest page the Gmail list API returns
const MaxPageSize = 500

// CleanupMode selects how fetched messages become candidates
type CleanupMode string

const (
	// ModeAuto picks ModeQuery when to_delete_senders is populated, else ModeClassify
	ModeAuto CleanupMode = "auto"
	// ModeQuery trusts the provider search: everything fetched is a candidate
	ModeQuery CleanupMode = "query"
	// ModeClassify runs every fetched message through the classifier
	ModeClassify CleanupMode = "classify"
)

// DeleteStrategy selects how confirmed candidates are removed
type DeleteStrategy string

const (
	// StrategyTrash trashes candidates one by one
	StrategyTrash DeleteStrategy = "trash"
	// StrategyBatch tries a batch delete per chunk and degrades to trashing
	StrategyBatch DeleteStrategy = "batch"
)

// CleanupOptions tunes a CleanupService
type CleanupOptions struct {
	Mode             CleanupMode
	DeleteStrategy   DeleteStrategy
	PageSize         int
	PageDelay        time.Duration
	UnsubscribeDelay time.Duration
	PreviewSize      int
	BatchSize        int
	ProgressEvery    int
	DryRun           bool
}

// DefaultCleanupOptions mirrors the configuration defaults
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		Mode:             ModeAuto,
		DeleteStrategy:   StrategyTrash,
		PageSize:         MaxPageSize,
		PageDelay:        100 * time.Millisecond,
		UnsubscribeDelay: time.Second,
		PreviewSize:      10,
		BatchSize:        1000,
		ProgressEvery:    10,
	}
}

// CleanupService runs the search, classify, confirm and delete workflow
type CleanupService struct {
	provider      MailProvider
	classifier    Classifier
	confirmer     Confirmer
	unsubscriber  Unsubscriber
	protected     ProtectedSenders
	journal       RunJournal
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	opts          CleanupOptions
	sleep         func(ctx context.Context, d time.Duration) error
	now           func() time.Time
}

// NewCleanupService creates a cleanup service. unsubscriber, protected and
// journal may be nil.
func NewCleanupService(
	provider MailProvider,
	classifier Classifier,
	confirmer Confirmer,
	unsubscriber Unsubscriber,
	protected ProtectedSenders,
	journal RunJournal,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	opts CleanupOptions,
) *CleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.PreviewSize <= 0 {
		opts.PreviewSize = 10
	}
	if opts.BatchSize <= 0 || opts.BatchSize > 1000 {
		opts.BatchSize = 1000
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10
	}
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.DeleteStrategy == "" {
		opts.DeleteStrategy = StrategyTrash
	}
	return &CleanupService{
		provider:      provider,
		classifier:    classifier,
		confirmer:     confirmer,
		unsubscriber:  unsubscriber,
		protected:     protected,
		journal:       journal,
		textProcessor: textProcessor,
		logger:        logger,
		opts:          opts,
		sleep:         sleepContext,
		now:           time.Now,
	}
}

// Run executes one cleanup run. Aborted runs are reported through the
// returned report; an error is returned only for fatal provider failures.
func (s *CleanupService) Run(ctx context.Context, prefs *Preferences) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		State:     PhaseIdle,
		StartedAt: s.now(),
	}
	mode := s.ResolveMode(prefs)
	report.Mode = string(mode)

	s.logger.Info("Starting cleanup run",
		zap.String("run_id", report.RunID),
		zap.String("mode", report.Mode))

	query, next := s.buildQuery(prefs)
	report.Query = query
	if next == PhaseAborted {
		return s.finish(ctx, report, "nothing to do: no cleanup criteria enabled"), nil
	}
	report.State = PhaseQueryBuilt

	report.State = PhaseFetching
	refs, fetchErr, err := s.fetch(ctx, query, prefs.MaxEmailsPerRun)
	if err != nil {
		s.finish(ctx, report, fmt.Sprintf("fetch failed: %v", err))
		return report, err
	}
	report.Fetched = len(refs)
	if fetchErr != nil {
		report.FetchError = fetchErr.Error()
	}

	report.State = PhaseClassifying
	result, err := s.classify(ctx, refs, prefs, mode)
	if err != nil {
		s.finish(ctx, report, fmt.Sprintf("classification failed: %v", err))
		return report, err
	}
	report.Candidates = result.candidates
	report.Kept = result.kept
	report.Skipped = result.skipped
	if len(result.candidates) == 0 {
		return s.finish(ctx, report, "no emails matched the cleanup criteria"), nil
	}

	report.State = PhaseAwaitingConfirmation
	if s.opts.DryRun {
		return s.finish(ctx, report, "dry run"), nil
	}
	if !s.confirm(ctx, result.candidates) {
		return s.finish(ctx, report, "deletion declined"), nil
	}

	report.State = PhaseDeleting
	// Deletion runs to completion once confirmed.
	dctx := context.WithoutCancel(ctx)
	if prefs.UnsubscribeEmails && s.unsubscriber != nil {
		report.Unsubscribes = s.unsubscribeSenders(dctx, result.candidates)
		for _, u := range report.Unsubscribes {
			if u.Outcome.Succeeded() {
				report.Unsubscribed++
			}
		}
	}
	report.Deleted, report.Failures = s.deleteCandidates(dctx, result.candidates)
	report.Failed = len(report.Failures)

	report.State = PhaseDone
	return s.finish(ctx, report, ""), nil
}

// ResolveMode turns ModeAuto into a concrete mode for prefs
func (s *CleanupService) ResolveMode(prefs *Preferences) CleanupMode {
	if s.opts.Mode != ModeAuto {
		return s.opts.Mode
	}
	if len(prefs.ToDeleteSenders) > 0 {
		return ModeQuery
	}
	return ModeClassify
}

func (s *CleanupService) buildQuery(prefs *Preferences) (string, Phase) {
	query, err := BuildQuery(prefs)
	if err != nil {
		s.logger.Info("No cleanup criteria enabled")
		return "", PhaseAborted
	}
	s.logger.Debug("Built search query", zap.String("query", query))
	return query, PhaseQueryBuilt
}

// fetch pages through the search results. fetchErr is set when transient
// failures exhausted the retry budget; err is set for fatal failures.
func (s *CleanupService) fetch(ctx context.Context, query string, limit *int) (refs []MessageRef, fetchErr error, err error) {
	if limit != nil && *limit <= 0 {
		return nil, nil, nil
	}
	pageToken := ""
	for {
		pageSize := s.opts.PageSize
		if limit != nil {
			remaining := *limit - len(refs)
			if remaining < pageSize {
				pageSize = remaining
			}
		}

		page, err := s.provider.ListMessages(ctx, query, pageToken, pageSize)
		if err != nil {
			if IsTransient(err) {
				s.logger.Error("Fetching stopped after retries, keeping partial results",
					zap.Int("fetched", len(refs)),
					zap.Error(err))
				return refs, err, nil
			}
			return refs, nil, err
		}

		refs = append(refs, page.Messages...)
		s.logger.Debug("Fetched page", zap.Int("count", len(page.Messages)), zap.Int("total", len(refs)))

		if limit != nil && len(refs) >= *limit {
			refs = refs[:*limit]
			s.logger.Info("Reached maximum emails per run", zap.Int("limit", *limit))
			return refs, nil, nil
		}
		if page.NextPageToken == "" {
			return refs, nil, nil
		}
		pageToken = page.NextPageToken

		if err := s.sleep(ctx, s.opts.PageDelay); err != nil {
			return refs, nil, err
		}
	}
}

type classifyResult struct {
	candidates []DeletionCandidate
	kept       int
	skipped    int
}

func (s *CleanupService) classify(ctx context.Context, refs []MessageRef, prefs *Preferences, mode CleanupMode) (classifyResult, error) {
	var res classifyResult
	for _, ref := range refs {
		raw, err := s.provider.GetMessage(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) || IsTransient(err) {
				s.logger.Warn("Skipping message", zap.String("id", ref.ID), zap.Error(err))
				res.kept++
				res.skipped++
				continue
			}
			return res, err
		}

		summary, err := ExtractSummary(raw, s.textProcessor)
		if err != nil {
			s.logger.Warn("Skipping message after extraction failure", zap.String("id", ref.ID), zap.Error(err))
			res.kept++
			res.skipped++
			continue
		}

		if s.protected != nil && s.protected.IsWhitelisted(summary.CleanSender) {
			res.kept++
			continue
		}

		var reason string
		switch mode {
		case ModeQuery:
			reason = CandidateReason(summary, prefs)
		default:
			d := s.classifier.Classify(ctx, summary, prefs)
			if !d.Accept(prefs.ConfidenceThreshold) {
				res.kept++
				continue
			}
			reason = d.Reason
		}
		if reason == "" {
			reason = DefaultCandidateReason
		}

		res.candidates = append(res.candidates, DeletionCandidate{
			ID:      summary.ID,
			Sender:  summary.CleanSender,
			Subject: summary.Subject,
			Reason:  reason,
		})
		s.logger.Debug("Marked for deletion",
			zap.String("id", summary.ID),
			zap.String("sender", summary.CleanSender),
			zap.String("reason", reason))
	}
	return res, nil
}

func (s *CleanupService) confirm(ctx context.Context, candidates []DeletionCandidate) bool {
	n := s.opts.PreviewSize
	if n > len(candidates) {
		n = len(candidates)
	}
	preview := Preview{Total: len(candidates), Candidates: candidates[:n]}

	ok, err := s.confirmer.Confirm(ctx, preview)
	if err != nil {
		s.logger.Warn("Confirmation failed, treating as decline", zap.Error(err))
		return false
	}
	return ok
}

// unsubscribeSenders visits each distinct sender once, in first-appearance order
func (s *CleanupService) unsubscribeSenders(ctx context.Context, candidates []DeletionCandidate) []UnsubscribeResult {
	seen := make(map[string]bool)
	var results []UnsubscribeResult
	for _, c := range candidates {
		key := strings.ToLower(c.Sender)
		if seen[key] {
			continue
		}
		seen[key] = true

		if len(results) > 0 {
			_ = s.sleep(ctx, s.opts.UnsubscribeDelay)
		}
		res := s.unsubscriber.Unsubscribe(ctx, c.Sender, c.ID)
		s.logger.Info("Unsubscribe attempt",
			zap.String("sender", c.Sender),
			zap.String("outcome", string(res.Outcome)),
			zap.String("detail", res.Detail))
		results = append(results, res)
	}
	return results
}

func (s *CleanupService) deleteCandidates(ctx context.Context, candidates []DeletionCandidate) (int, []DeletionFailure) {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	if s.opts.DeleteStrategy == StrategyBatch {
		deleted := 0
		var failures []DeletionFailure
		for start := 0; start < len(ids); start += s.opts.BatchSize {
			end := start + s.opts.BatchSize
			if end > len(ids) {
				end = len(ids)
			}
			n, f := s.deleteChunk(ctx, ids[start:end])
			deleted += n
			failures = append(failures, f...)
		}
		return deleted, failures
	}

	return s.trashEach(ctx, ids, 0)
}

// deleteChunk degrades from batch delete to trash-all to per-message trash
func (s *CleanupService) deleteChunk(ctx context.Context, ids []string) (int, []DeletionFailure) {
	err := s.provider.BatchDelete(ctx, ids)
	if err == nil {
		s.logger.Info("Batch deleted messages", zap.Int("count", len(ids)))
		return len(ids), nil
	}
	s.logger.Warn("Batch delete failed, trashing instead", zap.Int("count", len(ids)), zap.Error(err))

	for i, id := range ids {
		if err := s.provider.TrashMessage(ctx, id); err != nil {
			s.logger.Warn("Trash-all failed, trashing remaining messages individually",
				zap.String("id", id),
				zap.Int("remaining", len(ids)-i),
				zap.Error(err))
			n, failures := s.trashEach(ctx, ids[i:], i)
			return i + n, failures
		}
	}
	return len(ids), nil
}

// trashEach trashes every id, recording failures and carrying on
func (s *CleanupService) trashEach(ctx context.Context, ids []string, offset int) (int, []DeletionFailure) {
	deleted := 0
	var failures []DeletionFailure
	for i, id := range ids {
		if err := s.provider.TrashMessage(ctx, id); err != nil {
			s.logger.Error("Failed to trash message", zap.String("id", id), zap.Error(err))
			failures = append(failures, DeletionFailure{ID: id, Reason: err.Error()})
			continue
		}
		deleted++
		if done := offset + i + 1; done%s.opts.ProgressEvery == 0 {
			s.logger.Info("Deletion progress", zap.Int("processed", done))
		}
	}
	return deleted, failures
}

func (s *CleanupService) finish(ctx context.Context, report *RunReport, abortReason string) *RunReport {
	if abortReason != "" {
		report.State = PhaseAborted
		report.AbortReason = abortReason
	}
	report.FinishedAt = s.now()

	s.logger.Info("Cleanup run finished",
		zap.String("run_id", report.RunID),
		zap.String("state", string(report.State)),
		zap.String("reason", report.AbortReason),
		zap.Int("candidates", len(report.Candidates)),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed),
		zap.Int("unsubscribed", report.Unsubscribed))

	if s.journal != nil {
		if err := s.journal.Record(context.WithoutCancel(ctx), report); err != nil {
			s.logger.Error("Failed to record run", zap.Error(err))
		}
	}
	return report
}
