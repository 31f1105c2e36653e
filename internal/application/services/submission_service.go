package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/medtravel/directory/internal/domain/entities"
	"github.com/medtravel/directory/internal/domain/providers"
	"github.com/medtravel/directory/internal/domain/repositories"
	"github.com/medtravel/directory/internal/infrastructure/observability"
	apperrors "github.com/medtravel/directory/pkg/errors"
)

const (
	maxNameLength    = 200
	maxContactLength = 254
	maxMessageLength = 5000
	maxExtraFields   = 20
)

// submissionCollections maps each form to the CMS collection it is written to
var submissionCollections = map[entities.SubmissionKind]string{
	entities.SubmissionInquiry:            "ContactUs",
	entities.SubmissionRegistration:       "Registrations",
	entities.SubmissionPartnerApplication: "PartnerApplications",
}

var submissionTitles = map[entities.SubmissionKind]string{
	entities.SubmissionInquiry:            "New inquiry",
	entities.SubmissionRegistration:       "New patient registration",
	entities.SubmissionPartnerApplication: "New partner application",
}

var notificationTemplate = template.Must(template.New("submission").Parse(`<h2>{{.Title}}</h2>
<table cellpadding="4">
{{range .Rows}}<tr><td><strong>{{.Label}}</strong></td><td>{{.Value}}</td></tr>
{{end}}</table>
<p style="color:#888">Reference {{.ID}} received {{.Received}}</p>
`))

type notificationRow struct {
	Label string
	Value string
}

type notificationView struct {
	Title    string
	ID       string
	Received string
	Rows     []notificationRow
}

// SubmissionService accepts website forms. The CMS write decides success;
// the ledger and the email notification are best effort.
type SubmissionService struct {
	writer   providers.ContentWriter
	ledger   repositories.SubmissionRepository
	sender   providers.EmailSender
	from     string
	notifyTo []string
	now      func() time.Time
}

// NewSubmissionService creates a new submission service. ledger and sender
// may be nil.
func NewSubmissionService(
	writer providers.ContentWriter,
	ledger repositories.SubmissionRepository,
	sender providers.EmailSender,
	from string,
	notifyTo []string,
) *SubmissionService {
	return &SubmissionService{
		writer:   writer,
		ledger:   ledger,
		sender:   sender,
		from:     from,
		notifyTo: notifyTo,
		now:      time.Now,
	}
}

// Submit validates and stores a submission. The result is always non-nil;
// the error carries the failure type for the HTTP status.
func (s *SubmissionService) Submit(ctx context.Context, sub *entities.Submission) (*entities.SubmissionResult, error) {
	logger := observability.LoggerFromContext(ctx)
	kind := string(sub.Kind)

	normalizeSubmission(sub)
	if err := validateSubmission(sub); err != nil {
		observability.RecordSubmission(kind, "invalid")
		return &entities.SubmissionResult{OK: false, Error: err.Message}, err
	}

	sub.ID = uuid.NewString()
	sub.CreatedAt = s.now().UTC()

	itemID, err := s.writer.InsertItem(ctx, submissionCollections[sub.Kind], cmsFields(sub))
	if err != nil {
		observability.RecordSubmission(kind, "cms_error")
		logger.Error().Err(err).
			Str("kind", kind).
			Str("submission_id", sub.ID).
			Msg("Failed to store submission in CMS")
		return &entities.SubmissionResult{OK: false, Error: "failed to submit form, please try again"},
			apperrors.NewExternalError("failed to store submission", err)
	}
	sub.CMSItemID = itemID

	if s.ledger != nil {
		if err := s.ledger.Create(ctx, sub); err != nil {
			logger.Warn().Err(err).Str("submission_id", sub.ID).Msg("Failed to record submission in ledger")
		}
	}

	s.notify(ctx, sub)

	observability.RecordSubmission(kind, "ok")
	logger.Info().
		Str("kind", kind).
		Str("submission_id", sub.ID).
		Str("cms_item_id", itemID).
		Msg("Submission stored")

	return &entities.SubmissionResult{OK: true, ID: sub.ID}, nil
}

func (s *SubmissionService) notify(ctx context.Context, sub *entities.Submission) {
	if s.sender == nil || len(s.notifyTo) == 0 {
		return
	}
	logger := observability.LoggerFromContext(ctx)

	html, err := renderNotification(sub)
	if err == nil {
		_, err = s.sender.Send(ctx, providers.EmailMessage{
			From:    s.from,
			To:      s.notifyTo,
			Subject: fmt.Sprintf("%s from %s", submissionTitles[sub.Kind], sub.Name),
			HTML:    html,
			ReplyTo: sub.Email,
		})
	}

	status, detail := entities.SubmissionStatusNotified, ""
	if err != nil {
		status, detail = entities.SubmissionStatusNotifyFail, err.Error()
		observability.RecordSubmission(string(sub.Kind), "notify_error")
		logger.Warn().Err(err).Str("submission_id", sub.ID).Msg("Submission notification failed")
	}

	if s.ledger != nil {
		if err := s.ledger.UpdateStatus(ctx, sub.ID, status, detail); err != nil {
			logger.Warn().Err(err).Str("submission_id", sub.ID).Msg("Failed to update submission status")
		}
	}
}

func normalizeSubmission(sub *entities.Submission) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Phone = strings.TrimSpace(sub.Phone)
	sub.Country = strings.TrimSpace(sub.Country)
	sub.Message = strings.TrimSpace(sub.Message)
	sub.Organization = strings.TrimSpace(sub.Organization)
}

func validateSubmission(sub *entities.Submission) *apperrors.AppError {
	if _, ok := submissionCollections[sub.Kind]; !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown form %q", sub.Kind))
	}
	if sub.Name == "" {
		return apperrors.NewValidationError("name is required")
	}
	if utf8.RuneCountInString(sub.Name) > maxNameLength {
		return apperrors.NewValidationError(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if sub.Email == "" && sub.Phone == "" {
		return apperrors.NewValidationError("email or phone is required")
	}
	if len(sub.Email) > maxContactLength || len(sub.Phone) > maxContactLength {
		return apperrors.NewValidationError("contact details are too long")
	}
	if sub.Email != "" {
		if addr, err := mail.ParseAddress(sub.Email); err != nil || addr.Address != sub.Email {
			return apperrors.NewValidationError("email is invalid")
		}
	}
	if utf8.RuneCountInString(sub.Message) > maxMessageLength {
		return apperrors.NewValidationError(fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}
	if sub.Kind == entities.SubmissionPartnerApplication && sub.Organization == "" {
		return apperrors.NewValidationError("organization is required")
	}
	if len(sub.Extra) > maxExtraFields {
		return apperrors.NewValidationError("too many additional fields")
	}
	return nil
}

// cmsFields is the item written to the CMS collection
func cmsFields(sub *entities.Submission) map[string]any {
	fields := map[string]any{
		"submissionId": sub.ID,
		"name":         sub.Name,
		"submittedAt":  sub.CreatedAt.Format(time.RFC3339),
	}
	optional := map[string]string{
		"email":        sub.Email,
		"phone":        sub.Phone,
		"country":      sub.Country,
		"message":      sub.Message,
		"organization": sub.Organization,
		"hospital":     sub.HospitalID,
		"treatment":    sub.TreatmentID,
		"page":         sub.Page,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	for k, v := range sub.Extra {
		if _, taken := fields[k]; !taken {
			fields[k] = v
		}
	}
	return fields
}

func renderNotification(sub *entities.Submission) (string, error) {
	view := notificationView{
		Title:    submissionTitles[sub.Kind],
		ID:       sub.ID,
		Received: sub.CreatedAt.Format("2 Jan 2006 15:04 MST"),
	}
	add := func(label, value string) {
		if value != "" {
			view.Rows = append(view.Rows, notificationRow{Label: label, Value: value})
		}
	}
	add("Name", sub.Name)
	add("Email", sub.Email)
	add("Phone", sub.Phone)
	add("Country", sub.Country)
	add("Organization", sub.Organization)
	add("Hospital", sub.HospitalID)
	add("Treatment", sub.TreatmentID)
	add("Page", sub.Page)
	add("Message", sub.Message)

	keys := make([]string, 0, len(sub.Extra))
	for k := range sub.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, sub.Extra[k])
	}

	var buf bytes.Buffer
	if err := notificationTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rendering notification: %w", err)
	}
	return buf.String(), nil
}
