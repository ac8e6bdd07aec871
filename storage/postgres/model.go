package postgres

import (
	"time"
)

// CaseModel maps the cases table. Nested records live in their own tables
// keyed by case_id so one transactional save covers the whole aggregate.
type CaseModel struct {
	CaseID         string    `gorm:"column:case_id;primaryKey;type:uuid"`
	PartyID        string    `gorm:"column:party_id;type:varchar(64);index"`
	TenantID       string    `gorm:"column:tenant_id;type:varchar(64);index"`
	State          string    `gorm:"column:state;type:varchar(20);index"`
	StateEnteredAt time.Time `gorm:"column:state_entered_at"`

	ManualHold       bool       `gorm:"column:manual_hold"`
	TouchCount       int        `gorm:"column:touch_count"`
	LastTouchAt      *time.Time `gorm:"column:last_touch_at"`
	LastTouchChannel string     `gorm:"column:last_touch_channel;type:varchar(20)"`
	LastSenderLevel  int        `gorm:"column:last_sender_level;type:smallint"`
	LastTone         string     `gorm:"column:last_tone;type:varchar(30)"`

	BrokenPromisesCount int    `gorm:"column:broken_promises_count"`
	ActiveDispute       bool   `gorm:"column:active_dispute"`
	HardshipIndicated   bool   `gorm:"column:hardship_indicated"`
	HasValidEmail       bool   `gorm:"column:has_valid_email"`
	LastResponseIntent  string `gorm:"column:last_response_intent;type:varchar(20)"`

	Notes []string `gorm:"column:notes;serializer:json;type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CaseModel) TableName() string { return "cases" }

type ObligationModel struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"`
	CaseID            string    `gorm:"column:case_id;type:uuid;index"`
	InvoiceNumber     string    `gorm:"column:invoice_number;type:varchar(64)"`
	OriginalAmount    float64   `gorm:"column:original_amount;type:decimal(15,2)"`
	OutstandingAmount float64   `gorm:"column:outstanding_amount;type:decimal(15,2)"`
	DueDate           time.Time `gorm:"column:due_date;index"`
	Status            string    `gorm:"column:status;type:varchar(10)"`
}

func (ObligationModel) TableName() string { return "obligations" }

type PromiseModel struct {
	ID                  string    `gorm:"column:id;primaryKey;type:uuid"`
	CaseID              string    `gorm:"column:case_id;type:uuid;index"`
	PromiseDate         time.Time `gorm:"column:promise_date;index"`
	PromiseAmount       float64   `gorm:"column:promise_amount;type:decimal(15,2)"`
	BaselineOutstanding float64   `gorm:"column:baseline_outstanding;type:decimal(15,2)"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	Outcome             string    `gorm:"column:outcome;type:varchar(10);index"`
}

func (PromiseModel) TableName() string { return "promises" }

type DisputeModel struct {
	ID          string     `gorm:"column:id;primaryKey;type:uuid"`
	CaseID      string     `gorm:"column:case_id;type:uuid;index"`
	DisputeType string     `gorm:"column:dispute_type;type:varchar(30)"`
	ReasonText  string     `gorm:"column:reason_text;type:text"`
	Status      string     `gorm:"column:status;type:varchar(15);index"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at"`
}

func (DisputeModel) TableName() string { return "disputes" }

type PlanModel struct {
	ID        string    `gorm:"column:id;primaryKey;type:uuid"`
	CaseID    string    `gorm:"column:case_id;type:uuid;uniqueIndex"`
	Status    string    `gorm:"column:status;type:varchar(10)"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (PlanModel) TableName() string { return "plans" }

type InstalmentModel struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"`
	PlanID    string     `gorm:"column:plan_id;type:uuid;index"`
	Seq       int        `gorm:"column:seq"`
	DueDate   time.Time  `gorm:"column:due_date"`
	Amount    float64    `gorm:"column:amount;type:decimal(15,2)"`
	PaidSoFar float64    `gorm:"column:paid_so_far;type:decimal(15,2)"`
	Status    string     `gorm:"column:status;type:varchar(10)"`
	PaidAt    *time.Time `gorm:"column:paid_at"`
}

func (InstalmentModel) TableName() string { return "plan_instalments" }

type FlagModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	CaseID      string    `gorm:"column:case_id;type:uuid;index"`
	FlagType    string    `gorm:"column:flag_type;type:varchar(30)"`
	ReasonCode  string    `gorm:"column:reason_code;type:varchar(64)"`
	TriggeredAt time.Time `gorm:"column:triggered_at"`
}

func (FlagModel) TableName() string { return "case_flags" }

type TouchModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	CaseID      string    `gorm:"column:case_id;type:uuid;index"`
	Channel     string    `gorm:"column:channel;type:varchar(20)"`
	SentAt      time.Time `gorm:"column:sent_at;index"`
	SenderLevel int       `gorm:"column:sender_level;type:smallint"`
	Tone        string    `gorm:"column:tone;type:varchar(30)"`
	Responded   bool      `gorm:"column:responded"`
}

func (TouchModel) TableName() string { return "touches" }

// PaymentModel is the landing table the payments collaborator writes into;
// the cycle driver reads the slice received since the previous window.
type PaymentModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	CaseID     string    `gorm:"column:case_id;type:uuid;index"`
	Amount     float64   `gorm:"column:amount;type:decimal(15,2)"`
	ReceivedAt time.Time `gorm:"column:received_at;index"`
}

func (PaymentModel) TableName() string { return "payments" }

type TenantConfigModel struct {
	TenantID             string         `gorm:"column:tenant_id;primaryKey;type:varchar(64)"`
	MinimumThreshold     float64        `gorm:"column:minimum_threshold;type:decimal(15,2)"`
	GraceDays            int            `gorm:"column:grace_days"`
	StatuteCountry       string         `gorm:"column:statute_country;type:varchar(10)"`
	MaxTouchesTotal      int            `gorm:"column:max_touches_total"`
	MaxTouchesPerChannel int            `gorm:"column:max_touches_per_channel"`
	TouchPeriodDays      int            `gorm:"column:touch_period_days"`
	LegalThreshold       float64        `gorm:"column:legal_threshold;type:decimal(15,2)"`
	WriteOffThreshold    float64        `gorm:"column:write_off_threshold;type:decimal(15,2)"`
	ConfidenceThreshold  float64        `gorm:"column:confidence_threshold"`
	StatuteYears         map[string]int `gorm:"column:statute_years;serializer:json;type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TenantConfigModel) TableName() string { return "tenant_configs" }
