package domain

import (
	"encoding/json"
	"time"
)

// RequestType enumerates data-subject request kinds.
type RequestType string

const (
	RequestAccess        RequestType = "access"
	RequestRectification RequestType = "rectification"
	RequestErasure       RequestType = "erasure"
	RequestPortability   RequestType = "portability"
	RequestRestriction   RequestType = "restriction"
)

// RequestStatus follows pending -> in_progress -> completed|rejected.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestRejected   RequestStatus = "rejected"
)

// Terminal reports whether s is a final outcome.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestRejected
}

// DataSubjectRequest is one row per (subject email, type).
type DataSubjectRequest struct {
	ID           string          `json:"id"`
	Type         RequestType     `json:"type"`
	SubjectEmail string          `json:"subject_email"`
	RequestedBy  string          `json:"requested_by,omitempty"`
	Status       RequestStatus   `json:"status"`
	Reason       string          `json:"reason,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Rectification lists the only fields a data subject may have corrected.
type Rectification struct {
	FirstName  *string
	LastName   *string
	Department *string
	Phone      *string
}

// Profile converts the correction set into a profile update.
func (r Rectification) Profile() ProfileUpdate {
	return ProfileUpdate{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Department: r.Department,
		Phone:      r.Phone,
	}
}

// Tables subject to retention policies.
const (
	TableAccounts      = "accounts"
	TableAuditLogs     = "audit_logs"
	TableGDPRRequests  = "gdpr_requests"
	TableDocuments     = "documents"
	ComplianceOK       = "compliant"
	ComplianceRequired = "action_required"
)

// RetentionTables returns the tables that carry a retention policy, in
// referential purge order (children first).
func RetentionTables() []string {
	return []string{TableAuditLogs, TableGDPRRequests, TableDocuments, TableAccounts}
}

// RetentionPolicy says how long rows of one table are kept.
type RetentionPolicy struct {
	TableName      string    `json:"table_name"`
	RetentionDays  int       `json:"retention_days"`
	LegalBasis     string    `json:"legal_basis"`
	LastReviewedAt time.Time `json:"last_reviewed_at"`
}

// Cutoff is the instant before which rows are past retention.
func (p RetentionPolicy) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.RetentionDays)
}

// TableCompliance is one line of a compliance report.
type TableCompliance struct {
	TableName     string    `json:"table_name"`
	RetentionDays int       `json:"retention_days"`
	Cutoff        time.Time `json:"cutoff"`
	ExpiredRows   int64     `json:"expired_rows"`
}

// ComplianceReport is the result of a retention sweep.
type ComplianceReport struct {
	Status    string            `json:"status"`
	CheckedAt time.Time         `json:"checked_at"`
	Tables    []TableCompliance `json:"tables"`
}

// PurgeResult counts rows removed by a retention purge, per table.
type PurgeResult struct {
	PurgedAt time.Time        `json:"purged_at"`
	Deleted  map[string]int64 `json:"deleted"`
}

// ErasureCounts reports rows removed by an erasure cascade.
type ErasureCounts struct {
	AuditLogs    int64 `json:"audit_logs"`
	GDPRRequests int64 `json:"gdpr_requests"`
	Documents    int64 `json:"documents"`
	Accounts     int64 `json:"accounts"`
}

// ErasureResult is returned by an erasure request.
type ErasureResult struct {
	Success bool          `json:"success"`
	Reason  string        `json:"reason,omitempty"`
	Deleted ErasureCounts `json:"deleted"`
}

// Controller identifies the data controller in exports.
type Controller struct {
	Name       string `json:"name"`
	DPOContact string `json:"dpo_contact"`
}

// AccessExport is the bundle assembled for a subject access request.
type AccessExport struct {
	GeneratedAt       time.Time            `json:"generated_at"`
	Controller        Controller           `json:"controller"`
	LegalBasis        string               `json:"legal_basis"`
	Account           Account              `json:"account"`
	Permissions       PermissionSet        `json:"permissions"`
	Documents         []DocumentMetadata   `json:"documents"`
	RecentActivity    []AuditEvent         `json:"recent_activity"`
	RequestHistory    []DataSubjectRequest `json:"request_history"`
	RetentionPolicies []RetentionPolicy    `json:"retention_policies"`
}

// PortableExport is the machine-readable projection of an AccessExport.
type PortableExport struct {
	FormatVersion string             `json:"format_version"`
	ExportedAt    time.Time          `json:"exported_at"`
	Controller    Controller         `json:"controller"`
	LegalBasis    string             `json:"legal_basis"`
	DataSubject   PortableSubject    `json:"data_subject"`
	Records       PortableRecordSets `json:"records"`
}

// PortableSubject is the personal data held on the account itself.
type PortableSubject struct {
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Department string     `json:"department,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Role       Role       `json:"role"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login_at,omitempty"`
}

// PortableRecordSets groups the subject's related records.
type PortableRecordSets struct {
	Documents []DocumentMetadata   `json:"documents"`
	Activity  []AuditEvent         `json:"activity"`
	Requests  []DataSubjectRequest `json:"requests"`
}

// DocumentMetadata is the only document data this service ever reads.
type DocumentMetadata struct {
	ID         string    `json:"id"`
	UploadedBy string    `json:"uploaded_by"`
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	MimeType   string    `json:"mime_type"`
	CreatedAt  time.Time `json:"created_at"`
}
