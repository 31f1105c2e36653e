package entities

import "time"

// SubmissionKind identifies which website form a submission came from
type SubmissionKind string

const (
	SubmissionInquiry            SubmissionKind = "inquiry"
	SubmissionRegistration       SubmissionKind = "registration"
	SubmissionPartnerApplication SubmissionKind = "partner_application"
)

// Submission is a visitor-submitted form. It is written straight to the CMS
// and never feeds the read-side directory.
type Submission struct {
	ID           string            `json:"id"`
	Kind         SubmissionKind    `json:"kind"`
	Name         string            `json:"name"`
	Email        string            `json:"email,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Country      string            `json:"country,omitempty"`
	Message      string            `json:"message,omitempty"`
	Organization string            `json:"organization,omitempty"`
	HospitalID   string            `json:"hospitalId,omitempty"`
	TreatmentID  string            `json:"treatmentId,omitempty"`
	Page         string            `json:"page,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
	CMSItemID    string            `json:"cmsItemId,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// SubmissionStatus tracks what happened to a submission after it was accepted
type SubmissionStatus string

const (
	SubmissionStatusStored     SubmissionStatus = "stored"
	SubmissionStatusNotified   SubmissionStatus = "notified"
	SubmissionStatusNotifyFail SubmissionStatus = "notify_failed"
)

// SubmissionResult is returned to the website after a form POST
type SubmissionResult struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}
