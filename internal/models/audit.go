package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionLogout          = "LOGOUT"
	AuditActionRegister        = "REGISTER"
	AuditActionUserUpdate      = "USER_UPDATE"
	AuditActionUserDeactivate  = "USER_DEACTIVATE"
	AuditActionPasswordChange  = "PASSWORD_CHANGE"
	AuditActionActivityApprove = "ACTIVITY_APPROVE"
	AuditActionActivityReject  = "ACTIVITY_REJECT"
	AuditActionReportGenerate  = "REPORT_GENERATE"
	AuditActionReportShare     = "REPORT_SHARE"
	AuditActionReportDownload  = "REPORT_DOWNLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
