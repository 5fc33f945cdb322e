package domain

import "time"

type Account struct {
	ID           int       `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Balance      int64     `db:"balance"`
	CreatedAt    time.Time `db:"created_at"`
}

// EntryKind decides the sign of a ledger entry: payments debit the account,
// credits add to it.
type EntryKind string

const (
	KindPayment EntryKind = "payment"
	KindCredit  EntryKind = "credit"
)

func (k EntryKind) Valid() bool {
	return k == KindPayment || k == KindCredit
}

// Sign is -1 for payments and +1 for credits.
func (k EntryKind) Sign() int64 {
	if k == KindPayment {
		return -1
	}
	return 1
}

type EntryStatus string

const (
	// StatusProcessing marks an entry reserved before the processor call returned.
	StatusProcessing EntryStatus = "processing"
	StatusPending    EntryStatus = "pending"
	StatusApproved   EntryStatus = "approved"
	StatusRejected   EntryStatus = "rejected"
	StatusError      EntryStatus = "error"
)

func (s EntryStatus) Open() bool {
	return s == StatusProcessing || s == StatusPending
}

func (s EntryStatus) Final() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusError
}

// CanTransition reports whether an entry in status s may move to next.
func (s EntryStatus) CanTransition(next EntryStatus) bool {
	switch s {
	case StatusProcessing:
		return next == StatusPending || next.Final()
	case StatusPending:
		return next.Final()
	default:
		return false
	}
}

type LedgerEntry struct {
	ID                 int64       `db:"id"`
	AccountID          int         `db:"account_id"`
	Kind               EntryKind   `db:"kind"`
	Amount             int64       `db:"amount"`
	Currency           string      `db:"currency"`
	Description        string      `db:"description"`
	Status             EntryStatus `db:"status"`
	StatusDetail       string      `db:"status_detail"`
	PaymentMethodID    string      `db:"payment_method_id"`
	IdempotencyKey     string      `db:"idempotency_key"`
	Reference          string      `db:"reference"`
	ProcessorPaymentID string      `db:"processor_payment_id"`
	QRCode             string      `db:"qr_code"`
	QRCodeBase64       string      `db:"qr_code_base64"`
	CreatedAt          time.Time   `db:"created_at"`
	SettledAt          *time.Time  `db:"settled_at"`
}

// SignedAmount is the effect the entry has on the balance once approved.
func (e LedgerEntry) SignedAmount() int64 {
	return e.Kind.Sign() * e.Amount
}

type Payer struct {
	Email              string
	IdentificationType string
	IdentificationNum  string
}

// Outcome is the interpreted answer of the payment processor for one entry.
type Outcome struct {
	Status             EntryStatus
	Detail             string
	ProcessorPaymentID string
	QRCodeBase64       string
	QRCode             string
}

// Balance is the account balance together with the payments still on hold.
type Balance struct {
	AccountID int
	Email     string
	Current   int64
	Held      int64
	Currency  string
}

// Available is what new payments may still spend.
func (b Balance) Available() int64 {
	return b.Current - b.Held
}

// Page is one page of ledger entries, most recent first. NextCursor is empty
// on the last page.
type Page struct {
	Entries    []LedgerEntry
	NextCursor string
}

// Audit compares the stored balance with the sum of approved entries.
type Audit struct {
	AccountID int
	Balance   int64
	LedgerSum int64
}

func (a Audit) Consistent() bool {
	return a.Balance == a.LedgerSum
}
