// Package dispatcher polls the send outbox and delivers launched campaigns.
package dispatcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/openmkt/campaignkit/app/services"
	"github.com/openmkt/campaignkit/config"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/repository"
	"github.com/openmkt/campaignkit/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Outbox jobs processed, partitioned by outcome (done, failed)
	dispatchJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaignkit_dispatch_jobs_total",
			Help: "Total number of send outbox jobs processed",
		},
		[]string{"outcome"},
	)

	// Recipients handed to a mail provider
	dispatchRecipientsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaignkit_dispatch_recipients_sent_total",
			Help: "Total number of recipients delivered to a mail provider",
		},
	)

	// Recipients dropped for missing contact email or rendered body
	dispatchRecipientsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaignkit_dispatch_recipients_skipped_total",
			Help: "Total number of recipients skipped as unsendable",
		},
	)
)

// MailResolver maps a campaign's configured provider to a delivery service.
type MailResolver func(provider string, cfg *config.MailConfig) services.MailService

// SendDispatcher claims due outbox jobs and pushes their recipients to the
// campaign's mail provider. Jobs are claimed atomically so multiple dispatcher
// instances can run against the same database.
type SendDispatcher struct {
	outboxRepo    repository.SendOutboxRepository
	campaignRepo  repository.CampaignRepository
	recipientRepo repository.CampaignRecipientRepository
	resolver      MailResolver
	mailCfg       *config.MailConfig
	cfg           config.DispatcherConfig
	db            *gorm.DB
	logger        *log.Logger
}

// NewSendDispatcher creates a dispatcher. A nil resolver falls back to the
// standard provider registry.
func NewSendDispatcher(
	outboxRepo repository.SendOutboxRepository,
	campaignRepo repository.CampaignRepository,
	recipientRepo repository.CampaignRecipientRepository,
	db *gorm.DB,
	mailCfg *config.MailConfig,
	cfg config.DispatcherConfig,
	resolver MailResolver,
) *SendDispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = models.OutboxMaxAttempts
	}
	if resolver == nil {
		resolver = services.ResolveMailService
	}

	d := &SendDispatcher{
		outboxRepo:    outboxRepo,
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		resolver:      resolver,
		mailCfg:       mailCfg,
		cfg:           cfg,
		db:            db,
	}
	d.initLogger()
	return d
}

// initLogger configures a logger writing to stdout and, when a log path is
// configured, a size-rotated file.
func (d *SendDispatcher) initLogger() {
	var w io.Writer = os.Stdout
	if d.cfg.LogPath != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   d.cfg.LogPath,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}
	d.logger = log.New(w, "dispatcher ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the poll loop in a background goroutine and returns a stop function.
func (d *SendDispatcher) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(d.cfg.PollInterval)
		defer ticker.Stop()

		d.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.RunOnce(ctx)
			}
		}
	}()

	return cancel
}

// RunOnce claims one batch of due jobs and processes them sequentially.
func (d *SendDispatcher) RunOnce(ctx context.Context) {
	jobs, err := d.outboxRepo.ClaimDue(ctx, utils.UTCNow(), d.cfg.MaxAttempts, d.cfg.BatchSize)
	if err != nil {
		d.logger.Printf("dispatcher: claim due jobs failed: %v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	d.logger.Printf("dispatcher: claimed %d jobs", len(jobs))

	for _, job := range jobs {
		if err := d.processJob(ctx, job); err != nil {
			dispatchJobsTotal.WithLabelValues("failed").Inc()
			d.logger.Printf("dispatcher: job id=%d campaign_id=%d failed: %v", job.ID, job.CampaignID, err)
		} else {
			dispatchJobsTotal.WithLabelValues("done").Inc()
		}
	}
}

func (d *SendDispatcher) processJob(ctx context.Context, job *models.SendOutboxJob) error {
	campaign, err := d.campaignRepo.ByIDWithRelations(ctx, job.CampaignID)
	if err != nil {
		return d.fail(ctx, job, fmt.Errorf("load campaign: %w", err))
	}
	if campaign == nil {
		return d.fail(ctx, job, fmt.Errorf("campaign id=%d not found", job.CampaignID))
	}

	// A launch enqueues the job while the campaign is ACTIVE. If an admin
	// paused or completed it before this attempt, do not deliver.
	if campaign.Status != models.CampaignStatusActive {
		return d.fail(ctx, job, fmt.Errorf("campaign is %s, not deliverable", campaign.Status))
	}

	ids := make([]uint, 0, len(job.RecipientIDs))
	for _, id := range job.RecipientIDs {
		ids = append(ids, uint(id))
	}

	recipients, err := d.recipientRepo.ListByIDsWithDetails(ctx, ids)
	if err != nil {
		return d.fail(ctx, job, fmt.Errorf("load recipients: %w", err))
	}

	records, sentIDs, skipped := d.buildRecords(campaign, recipients)
	if skipped > 0 {
		dispatchRecipientsSkipped.Add(float64(skipped))
		d.logger.Printf("dispatcher: job id=%d skipping %d recipients without contact email or rendered body", job.ID, skipped)
	}

	if len(records) == 0 {
		// Nothing deliverable. Close the job; the campaign stays ACTIVE so a
		// later import plus relaunch can still go out.
		err := repository.WithTransaction(ctx, d.db, func(txCtx context.Context) error {
			if err := d.outboxRepo.MarkDone(txCtx, job.ID, utils.UTCNow()); err != nil {
				return err
			}
			return d.persistSkipped(txCtx, campaign, skipped)
		})
		if err != nil {
			return fmt.Errorf("close empty job: %w", err)
		}
		d.logger.Printf("dispatcher: job id=%d had no deliverable recipients", job.ID)
		return nil
	}

	provider := utils.MailProviderBaseline
	if campaign.StepState.MailService != nil && campaign.StepState.MailService.Provider != "" {
		provider = campaign.StepState.MailService.Provider
	}
	mail := d.resolver(provider, d.mailCfg)

	result, sendErr := mail.SendCampaign(ctx, records)
	if sendErr != nil {
		// Pause the campaign so the owner sees delivery stopped. The job
		// stays retryable until the attempt budget runs out.
		if err := d.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusPaused); err != nil {
			d.logger.Printf("dispatcher: pause campaign id=%d failed: %v", campaign.ID, err)
		}
		return d.fail(ctx, job, fmt.Errorf("provider %s send: %w", mail.Name(), sendErr))
	}

	err = repository.WithTransaction(ctx, d.db, func(txCtx context.Context) error {
		if err := d.outboxRepo.MarkDone(txCtx, job.ID, utils.UTCNow()); err != nil {
			return err
		}
		if err := d.recipientRepo.UpdateStatusBatch(txCtx, sentIDs, models.RecipientStatusSent); err != nil {
			return err
		}
		return d.persistSkipped(txCtx, campaign, skipped)
	})
	if err != nil {
		return fmt.Errorf("record send outcome: %w", err)
	}

	dispatchRecipientsSent.Add(float64(len(sentIDs)))
	d.logger.Printf("dispatcher: job id=%d delivered %d recipients via %s (accepted=%d)",
		job.ID, len(sentIDs), mail.Name(), result.Accepted)
	return nil
}

// buildRecords converts recipients into provider records, splitting off the
// ones that cannot be delivered. The sender name is the owning company
// profile's name, falling back to the configured default.
func (d *SendDispatcher) buildRecords(campaign *models.Campaign, recipients []*models.CampaignRecipient) ([]services.SendRecord, []uint, int64) {
	records := make([]services.SendRecord, 0, len(recipients))
	sentIDs := make([]uint, 0, len(recipients))
	var skipped int64

	fromName := d.mailCfg.FromName
	if campaign.CompanyProfile != nil && campaign.CompanyProfile.Name != "" {
		fromName = campaign.CompanyProfile.Name
	}

	for _, recipient := range recipients {
		if recipient == nil {
			continue
		}
		if !recipient.Sendable() {
			skipped++
			continue
		}

		rendered := recipient.RenderedEmail
		record := services.SendRecord{
			Email:       recipient.Contact.Email,
			DisplayName: recipient.Contact.DisplayName(),
			Subject:     rendered.Subject,
			HTML:        rendered.HTML,
			FromEmail:   d.mailCfg.FromEmail,
			FromName:    fromName,
		}
		if rendered.Preheader != nil {
			record.Preheader = *rendered.Preheader
		}
		if rendered.FromEmail != nil && *rendered.FromEmail != "" {
			record.FromEmail = *rendered.FromEmail
		}

		records = append(records, record)
		sentIDs = append(sentIDs, recipient.ID)
	}

	return records, sentIDs, skipped
}

// persistSkipped records the skipped count in the campaign's summary step.
func (d *SendDispatcher) persistSkipped(ctx context.Context, campaign *models.Campaign, skipped int64) error {
	if skipped == 0 {
		return nil
	}
	if campaign.StepState.Summary == nil {
		campaign.StepState.Summary = &models.SummaryStep{}
	}
	campaign.StepState.Summary.Skipped = &skipped
	campaign.UpdatedAt = utils.UTCNowPtr()
	return d.campaignRepo.Update(ctx, *campaign)
}

func (d *SendDispatcher) fail(ctx context.Context, job *models.SendOutboxJob, cause error) error {
	if err := d.outboxRepo.MarkFailed(ctx, job.ID, cause.Error(), d.cfg.MaxAttempts); err != nil {
		d.logger.Printf("dispatcher: mark job id=%d failed errored: %v", job.ID, err)
	}
	return cause
}
