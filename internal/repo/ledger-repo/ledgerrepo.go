package ledgerrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/pg"
)

const entryColumns = `id, account_id, kind, amount, currency, description, status, status_detail,
	payment_method_id, idempotency_key, reference::text, COALESCE(processor_payment_id, ''), qr_code, qr_code_base64, created_at, settled_at`

const (
	appendQuery = `
		INSERT INTO ledger_entries (account_id, kind, amount, currency, description, status, status_detail,
			payment_method_id, idempotency_key, reference, processor_payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
		RETURNING id, created_at
	`
	findByIdempotencyKeyQuery     = `SELECT ` + entryColumns + ` FROM ledger_entries WHERE account_id = $1 AND idempotency_key = $2`
	findByReferenceQuery          = `SELECT ` + entryColumns + ` FROM ledger_entries WHERE reference = $1::uuid`
	findByProcessorPaymentIDQuery = `SELECT ` + entryColumns + ` FROM ledger_entries WHERE processor_payment_id = $1`
	heldAmountQuery               = `
		SELECT COALESCE(SUM(amount), 0)::bigint
		FROM ledger_entries
		WHERE account_id = $1 AND kind = 'payment' AND status IN ('processing', 'pending')
	`
	transitionQuery = `
		UPDATE ledger_entries
		SET status = $2,
			status_detail = $3,
			processor_payment_id = COALESCE(NULLIF($4, ''), processor_payment_id),
			qr_code = COALESCE(NULLIF($5, ''), qr_code),
			qr_code_base64 = COALESCE(NULLIF($6, ''), qr_code_base64),
			settled_at = CASE WHEN $7 THEN now() ELSE NULL END
		WHERE id = $1 AND status = ANY($8)
	`
	listFirstPageQuery = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	listNextPageQuery = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE account_id = $1 AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	findOpenQuery = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE status IN ('processing', 'pending') AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	sumApprovedQuery = `
		SELECT COALESCE(SUM(CASE WHEN kind = 'credit' THEN amount ELSE -amount END), 0)::bigint
		FROM ledger_entries
		WHERE account_id = $1 AND status = 'approved'
	`
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// Append inserts a new entry and fills its id and creation time. Entries are
// never updated afterwards except through Transition.
func (r *Repository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	err := r.db.QueryRow(ctx, appendQuery,
		entry.AccountID, string(entry.Kind), entry.Amount, entry.Currency, entry.Description,
		string(entry.Status), entry.StatusDetail, entry.PaymentMethodID, entry.IdempotencyKey,
		entry.Reference, entry.ProcessorPaymentID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return domain.ErrDuplicateEntry
		}
		zap.L().Error("can't append ledger entry", zap.Int("account_id", entry.AccountID), zap.Error(err))
		return domain.Storage("can't append ledger entry", err)
	}
	return nil
}

func (r *Repository) FindByIdempotencyKey(ctx context.Context, accountID int, key string) (*domain.LedgerEntry, error) {
	return r.findOne(ctx, findByIdempotencyKeyQuery, accountID, key)
}

func (r *Repository) FindByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error) {
	return r.findOne(ctx, findByReferenceQuery, reference)
}

func (r *Repository) FindByProcessorPaymentID(ctx context.Context, processorPaymentID string) (*domain.LedgerEntry, error) {
	return r.findOne(ctx, findByProcessorPaymentIDQuery, processorPaymentID)
}

// HeldAmount sums the payments of the account that may still be approved.
func (r *Repository) HeldAmount(ctx context.Context, accountID int) (int64, error) {
	var held int64
	if err := r.db.QueryRow(ctx, heldAmountQuery, accountID).Scan(&held); err != nil {
		zap.L().Error("can't sum held amount", zap.Int("account_id", accountID), zap.Error(err))
		return 0, domain.Storage("can't sum held amount", err)
	}
	return held, nil
}

// Transition moves an entry to the outcome status if its current status allows
// it. It reports false when the entry was already moved by someone else.
func (r *Repository) Transition(ctx context.Context, id int64, outcome domain.Outcome) (bool, error) {
	next := outcome.Status
	from := allowedFrom(next)
	if len(from) == 0 {
		return false, domain.Validation("unsupported status " + string(next))
	}
	tag, err := r.db.Exec(ctx, transitionQuery, id, string(next), outcome.Detail, outcome.ProcessorPaymentID,
		outcome.QRCode, outcome.QRCodeBase64, next.Final(), from)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return false, domain.ErrDuplicateEntry
		}
		zap.L().Error("can't transition ledger entry", zap.Int64("entry_id", id), zap.Error(err))
		return false, domain.Storage("can't transition ledger entry", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByAccount returns up to limit entries, most recent first, starting after cursor.
func (r *Repository) ListByAccount(ctx context.Context, accountID int, cursor *domain.Cursor, limit int) ([]domain.LedgerEntry, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if cursor == nil {
		rows, err = r.db.Query(ctx, listFirstPageQuery, accountID, limit)
	} else {
		rows, err = r.db.Query(ctx, listNextPageQuery, accountID, cursor.CreatedAt, cursor.ID, limit)
	}
	if err != nil {
		zap.L().Error("can't list ledger entries", zap.Int("account_id", accountID), zap.Error(err))
		return nil, domain.Storage("can't list ledger entries", err)
	}
	return r.collect(rows)
}

// FindOpen returns processing and pending entries created before olderThan, oldest first.
func (r *Repository) FindOpen(ctx context.Context, olderThan time.Time, limit uint32) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, findOpenQuery, olderThan, limit)
	if err != nil {
		zap.L().Error("can't find open ledger entries", zap.Error(err))
		return nil, domain.Storage("can't find open ledger entries", err)
	}
	return r.collect(rows)
}

// SumApproved is the balance the account must have according to its ledger.
func (r *Repository) SumApproved(ctx context.Context, accountID int) (int64, error) {
	var sum int64
	if err := r.db.QueryRow(ctx, sumApprovedQuery, accountID).Scan(&sum); err != nil {
		zap.L().Error("can't sum approved entries", zap.Int("account_id", accountID), zap.Error(err))
		return 0, domain.Storage("can't sum approved entries", err)
	}
	return sum, nil
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*domain.LedgerEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find ledger entry", zap.Error(err))
		return nil, domain.Storage("can't find ledger entry", err)
	}
	return entry, nil
}

func (r *Repository) collect(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			zap.L().Error("can't scan ledger entry", zap.Error(err))
			return nil, domain.Storage("can't scan ledger entry", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("error iterating ledger entries", zap.Error(err))
		return nil, domain.Storage("can't read ledger entries", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		entry  domain.LedgerEntry
		kind   string
		status string
	)
	err := row.Scan(
		&entry.ID, &entry.AccountID, &kind, &entry.Amount, &entry.Currency, &entry.Description,
		&status, &entry.StatusDetail, &entry.PaymentMethodID, &entry.IdempotencyKey,
		&entry.Reference, &entry.ProcessorPaymentID, &entry.QRCode, &entry.QRCodeBase64,
		&entry.CreatedAt, &entry.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Kind = domain.EntryKind(kind)
	entry.Status = domain.EntryStatus(status)
	return &entry, nil
}

func allowedFrom(next domain.EntryStatus) []string {
	var from []string
	for _, s := range []domain.EntryStatus{domain.StatusProcessing, domain.StatusPending} {
		if s.CanTransition(next) {
			from = append(from, string(s))
		}
	}
	return from
}
