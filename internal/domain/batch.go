package domain

// Recipient is one addressee within a batch. Identity is the address
// exactly as given; it is never normalized or lowercased. Optional
// fields substitute to empty strings at render time when absent.
type Recipient struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Company   string `json:"company,omitempty"`
}

// Endpoint is the caller-supplied SMTP credential bundle for one batch.
// It is never persisted and lives only for the duration of the request.
// Secure=true means implicit TLS on connect; Secure=false means plain
// TCP with opportunistic STARTTLS.
type Endpoint struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Secure    bool   `json:"secure"`
	FromEmail string `json:"fromEmail"`
	FromName  string `json:"fromName"`
}

// SendRequest is one batch: an ordered recipient list, the subject and
// body templates, and the SMTP endpoint to deliver through.
type SendRequest struct {
	Recipients []Recipient
	Subject    string
	Body       string
	Endpoint   Endpoint
}

// OutcomeStatus is the terminal status recorded for one recipient.
type OutcomeStatus string

const (
	// StatusSent means the SMTP server accepted the message.
	StatusSent OutcomeStatus = "sent"
	// StatusInvalidAddress means the address failed syntax validation
	// and no send was attempted.
	StatusInvalidAddress OutcomeStatus = "invalid_address"
	// StatusDeliveryFailed means a send was attempted (or abandoned
	// because the session died) and did not succeed.
	StatusDeliveryFailed OutcomeStatus = "delivery_failed"
)

// RecipientOutcome is produced exactly once per recipient in a batch
// and never mutated afterwards.
type RecipientOutcome struct {
	Recipient Recipient     `json:"recipient"`
	Status    OutcomeStatus `json:"status"`
	Detail    string        `json:"detail,omitempty"`
}

// BatchResult aggregates the per-recipient outcomes of one dispatch.
// SentCount and FailedCount are tallied from Outcomes; InvalidAddress
// and DeliveryFailed both count toward FailedCount.
type BatchResult struct {
	BatchID     string             `json:"batchId"`
	Outcomes    []RecipientOutcome `json:"outcomes"`
	SentCount   int                `json:"sentCount"`
	FailedCount int                `json:"failedCount"`
}

// Message is the fully-rendered per-recipient message ready for an SMTP
// session. By the time a message reaches this struct, all template
// substitution is complete.
type Message struct {
	To        string            `json:"to"`
	FromName  string            `json:"from_name"`
	FromEmail string            `json:"from_email"`
	Subject   string            `json:"subject"`
	HTML      string            `json:"html"`
	Text      string            `json:"text"`
	Headers   map[string]string `json:"headers,omitempty"`
}
