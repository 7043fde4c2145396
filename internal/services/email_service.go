package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/justsurfingit/jobapp-ai/internal/models"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"gorm.io/gorm"
)

const (
	mailboxUser         = "me"
	defaultPollInterval = 15 * time.Minute
)

const fullSyncQuery = "subject:(application OR interview OR update OR offer OR rejected OR status) newer_than:7d"

type EmailService struct {
	DB             *gorm.DB
	LLMService     *LLMService
	MatcherService *MatcherService
	Applications   *ApplicationService
	GmailClient    *gmail.Service
	PollInterval   time.Duration
}

func NewEmailService(db *gorm.DB, llm *LLMService, gmailClient *gmail.Service, matcher *MatcherService, apps *ApplicationService, interval time.Duration) *EmailService {
	return &EmailService{
		DB:             db,
		LLMService:     llm,
		GmailClient:    gmailClient,
		MatcherService: matcher,
		Applications:   apps,
		PollInterval:   interval,
	}
}

// StartWatcher polls Gmail until ctx is cancelled.
func (s *EmailService) StartWatcher(ctx context.Context) {
	if s.GmailClient == nil {
		log.Println("⚠️ Gmail Watcher disabled (no client). Check credentials.")
		return
	}

	interval := s.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		s.SyncEmails(ctx)
		for {
			select {
			case <-ctx.Done():
				log.Println("📧 Email Watcher stopped.")
				return
			case <-ticker.C:
				s.SyncEmails(ctx)
			}
		}
	}()
}

// SyncEmails runs one sync cycle.
func (s *EmailService) SyncEmails(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
	defer cancel()

	log.Println("📧 Email Watcher: Starting Sync Cycle...")

	var state models.MailboxState
	if err := s.DB.WithContext(ctx).First(&state).Error; err != nil {
		state = models.MailboxState{Email: "default", LastHistoryID: 0}
		if err := s.DB.WithContext(ctx).Create(&state).Error; err != nil {
			log.Printf("❌ Could not create mailbox state: %v", err)
			return
		}
	}

	var (
		messages     []*gmail.Message
		newHistoryID uint64
		err          error
	)

	if state.LastHistoryID == 0 {
		log.Println("🆕 First run detected. Running Full Bootstrap Sync...")
		messages, newHistoryID, err = s.performFullSync(ctx)
	} else {
		messages, newHistoryID, err = s.performIncrementalSync(ctx, state.LastHistoryID)
		if err != nil && isHistoryExpiredError(err) {
			log.Println("⚠️ History ID expired (too old). Falling back to Full Sync.")
			messages, newHistoryID, err = s.performFullSync(ctx)
		}
	}
	if err != nil {
		log.Printf("❌ Sync failed: %v", err)
		return
	}

	if len(messages) == 0 {
		log.Println("✅ No new relevant emails found.")
		if newHistoryID > state.LastHistoryID {
			s.updateHistoryID(ctx, state.ID, newHistoryID)
		}
		return
	}

	log.Printf("📥 Processing %d candidate emails...", len(messages))

	for _, msg := range messages {
		var count int64
		s.DB.WithContext(ctx).Model(&models.ProcessedEmail{}).Where("id = ?", msg.Id).Count(&count)
		if count > 0 {
			continue
		}

		s.processSingleEmail(ctx, msg)

		s.DB.WithContext(ctx).Create(&models.ProcessedEmail{ID: msg.Id})
	}

	if newHistoryID > state.LastHistoryID {
		s.updateHistoryID(ctx, state.ID, newHistoryID)
		log.Printf("🔖 History updated to %d", newHistoryID)
	}
}

// performFullSync scans the last 7 days and resets the history anchor.
func (s *EmailService) performFullSync(ctx context.Context) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListMessagesResponse

	err := retry(3, time.Second, func() error {
		var e error
		resp, e = s.GmailClient.Users.Messages.List(mailboxUser).Q(fullSyncQuery).MaxResults(50).Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	profile, err := s.GmailClient.Users.GetProfile(mailboxUser).Context(ctx).Do()
	if err != nil {
		return nil, 0, err
	}

	return s.expandMessages(ctx, resp.Messages), profile.HistoryId, nil
}

// performIncrementalSync asks Gmail only for messages added since startID.
func (s *EmailService) performIncrementalSync(ctx context.Context, startID uint64) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListHistoryResponse

	err := retry(3, time.Second, func() error {
		var e error
		call := s.GmailClient.Users.History.List(mailboxUser).StartHistoryId(startID)
		call.HistoryTypes("messageAdded")
		resp, e = call.Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	var headers []*gmail.Message
	for _, h := range resp.History {
		for _, added := range h.MessagesAdded {
			if added.Message != nil {
				headers = append(headers, added.Message)
			}
		}
	}

	return s.expandMessages(ctx, headers), resp.HistoryId, nil
}

func (s *EmailService) expandMessages(ctx context.Context, headers []*gmail.Message) []*gmail.Message {
	var full []*gmail.Message
	for _, h := range headers {
		_ = retry(2, 500*time.Millisecond, func() error {
			msg, err := s.GmailClient.Users.Messages.Get(mailboxUser, h.Id).Context(ctx).Do()
			if err == nil {
				full = append(full, msg)
			}
			return err
		})
	}
	return full
}

// processSingleEmail: match company -> pick application -> LLM status -> DB.
func (s *EmailService) processSingleEmail(ctx context.Context, msg *gmail.Message) {
	headers := parseHeaders(msg)
	subject := headers["Subject"]
	sender := headers["From"]

	shortSub := subject
	if len(shortSub) > 20 {
		shortSub = shortSub[:20] + "..."
	}
	logPrefix := fmt.Sprintf("[Email: %s]", shortSub)

	log.Printf("%s 📥 START processing from: %s", logPrefix, sender)

	body := getEmailBody(msg)

	company, err := s.MatcherService.FindCompanyFromEmail(ctx, subject, sender)
	if err != nil {
		log.Printf("%s ❌ SKIPPED: company lookup failed: %v", logPrefix, err)
		return
	}
	if company == "" {
		log.Printf("%s ❌ SKIPPED: Company match failed. Sender/Subject not tracked.", logPrefix)
		return
	}
	log.Printf("%s ✅ MATCHED Company: %s", logPrefix, company)

	apps, err := s.Applications.ActiveByCompany(ctx, company)
	if err != nil || len(apps) == 0 {
		log.Printf("%s ❌ SKIPPED: No active applications found for %s.", logPrefix, company)
		return
	}

	var target *models.Application
	if len(apps) == 1 {
		target = &apps[0]
		log.Printf("%s 🎯 Auto-linked to single active application: %s", logPrefix, target.Position)
	} else {
		positions := make([]string, 0, len(apps))
		for _, a := range apps {
			positions = append(positions, a.Position)
		}

		log.Printf("%s ⚠️ Ambiguous: Found %d applications (%v). Asking LLM to pick...", logPrefix, len(apps), positions)
		idx := s.LLMService.IdentifyApplication(ctx, positions, subject, body)
		if idx == -1 {
			log.Printf("%s ❌ SKIPPED: LLM could not determine which application this email is about.", logPrefix)
			return
		}
		target = &apps[idx]
		log.Printf("%s 🎯 LLM selected application: %s", logPrefix, target.Position)
	}

	log.Printf("%s 🤖 Analyzing content with LLM...", logPrefix)
	analysis, err := s.LLMService.AnalyzeEmailStatus(ctx, company, subject, body)
	if err != nil {
		log.Printf("%s ❌ SKIPPED: LLM Analysis Error: %v", logPrefix, err)
		return
	}
	log.Printf("%s 🧠 LLM Decision: Status=%s | Summary=%s", logPrefix, analysis.Status, analysis.Summary)

	if !shouldUpdateStatus(target.Status, analysis.Status) {
		log.Printf("%s ⏹️  No DB Update needed (current %s, suggested %s).", logPrefix, target.Status, analysis.Status)
		return
	}

	log.Printf("%s ⚡ UPDATING DB: %s -> %s", logPrefix, target.Status, analysis.Status)
	details := fmt.Sprintf("Status changed to %s. Summary: %s", analysis.Status, analysis.Summary)
	if err := s.Applications.ChangeStatus(ctx, target, analysis.Status, models.EventEmailUpdate, details); err != nil {
		log.Printf("%s ❌ DB update failed: %v", logPrefix, err)
		return
	}
	log.Printf("%s ✅ Success! Event logged.", logPrefix)
}

// shouldUpdateStatus accepts only real tracker statuses that differ from the current one.
func shouldUpdateStatus(current, suggested string) bool {
	switch suggested {
	case models.StatusApplied, models.StatusInterviewing, models.StatusOffer, models.StatusRejected:
	default:
		return false
	}
	return suggested != current && !models.IsTerminal(current)
}

// retry executes f with exponential backoff.
func retry(attempts int, sleep time.Duration, f func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = f(); err == nil {
			return nil
		}
		// History expired: fail fast so the caller can switch to a full sync.
		if isHistoryExpiredError(err) {
			return err
		}

		log.Printf("⚠️ API Error: %v. Retrying in %v...", err, sleep)
		time.Sleep(sleep)
		sleep *= 2
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

func isHistoryExpiredError(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == 404
	}
	return false
}

func (s *EmailService) updateHistoryID(ctx context.Context, id uint, historyID uint64) {
	s.DB.WithContext(ctx).Model(&models.MailboxState{}).Where("id = ?", id).Update("last_history_id", historyID)
}

func parseHeaders(msg *gmail.Message) map[string]string {
	res := make(map[string]string)
	if msg.Payload == nil {
		return res
	}
	for _, h := range msg.Payload.Headers {
		res[h.Name] = h.Value
	}
	return res
}

// getEmailBody prefers the top-level body, then text/plain, then text/html parts.
func getEmailBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBody(msg.Payload.Body.Data)
	}
	for _, mime := range []string{"text/plain", "text/html"} {
		for _, part := range msg.Payload.Parts {
			if part.MimeType == mime && part.Body != nil && part.Body.Data != "" {
				return decodeBody(part.Body.Data)
			}
		}
	}
	return ""
}

// Gmail uses URL-safe base64, usually without padding.
func decodeBody(data string) string {
	d, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		d, _ = base64.URLEncoding.DecodeString(data)
	}
	return string(d)
}
