package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

var paymentColumns = []string{
	"id", "student_id", "amount", "currency", "method", "status", "lessons_purchased",
	"memo", "COALESCE(recorded_by, 0)", "paid_at", "refunded_at", "created_at",
}

func scanPayment(row scanner) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.StudentID, &p.Amount, &p.Currency, &p.Method, &p.Status, &p.LessonsPurchased,
		&p.Memo, &p.RecordedBy, &p.PaidAt, &p.RefundedAt, &p.CreatedAt)
	return &p, err
}

// PaymentRepository handles recorded payments
type PaymentRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pg *db.PostgresDB) *PaymentRepository {
	return &PaymentRepository{db: pg, sb: statementBuilder()}
}

// Create inserts a payment
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	var recordedBy *int64
	if p.RecordedBy != 0 {
		recordedBy = &p.RecordedBy
	}
	sql, args, err := r.sb.Insert("payments").
		Columns("student_id", "amount", "currency", "method", "status", "lessons_purchased", "memo", "recorded_by", "paid_at").
		Values(p.StudentID, p.Amount, p.Currency, p.Method, p.Status, p.LessonsPurchased, p.Memo, recordedBy, p.PaidAt).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create payment SQL")
		return fmt.Errorf("failed to build create payment query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		logger.Error().Err(err).Int64("studentID", p.StudentID).Msg("Error creating payment")
		return fmt.Errorf("error creating payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	sql, args, err := r.sb.Select(paymentColumns...).From("payments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get payment query: %w", err)
	}
	p, err := scanPayment(r.db.Conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error retrieving payment: %w", err)
	}
	return p, nil
}

// List returns a page of payments, newest first, and the total count
func (r *PaymentRepository) List(ctx context.Context, filter dto.PaymentFilter, offset uint64, limit int) ([]*models.Payment, int64, error) {
	where := squirrel.And{timeRange("paid_at", filter.From, filter.To)}
	if filter.StudentIDs != nil {
		where = append(where, squirrel.Eq{"student_id": filter.StudentIDs})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"status": filter.Status})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("payments").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count payments query: %w", err)
	}
	var total int64
	if err := r.db.Conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting payments: %w", err)
	}

	sql, args, err := r.sb.Select(paymentColumns...).
		From("payments").
		Where(where).
		OrderBy("paid_at DESC", "id DESC").
		Offset(offset).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list payments query: %w", err)
	}

	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing payments")
		return nil, 0, fmt.Errorf("error listing payments: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning payment: %w", err)
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// MarkRefunded flips a PAID payment to REFUNDED. It returns false when the
// payment exists but is not PAID.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, id int64, at time.Time) (bool, error) {
	sql, args, err := r.sb.Update("payments").
		Set("status", models.PaymentRefunded).
		Set("refunded_at", at).
		Where(squirrel.Eq{"id": id, "status": models.PaymentPaid}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build refund payment query: %w", err)
	}
	tag, err := r.db.Conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error refunding payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Balance sums lessons bought with PAID payments against lessons that were
// completed or missed.
func (r *PaymentRepository) Balance(ctx context.Context, studentID int64) (*models.StudentBalance, error) {
	purchasedSQL, purchasedArgs, err := r.sb.Select("COALESCE(SUM(lessons_purchased), 0)").
		From("payments").
		Where(squirrel.Eq{"student_id": studentID, "status": models.PaymentPaid}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build purchased lessons query: %w", err)
	}
	consumedSQL, consumedArgs, err := r.sb.Select("COUNT(*)").
		From("reservations").
		Where(squirrel.Eq{"student_id": studentID, "status": []models.ReservationStatus{models.ReservationCompleted, models.ReservationNoShow}}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build consumed lessons query: %w", err)
	}

	b := &models.StudentBalance{StudentID: studentID}
	var purchased, consumed int64
	if err := r.db.Conn(ctx).QueryRow(ctx, purchasedSQL, purchasedArgs...).Scan(&purchased); err != nil {
		return nil, fmt.Errorf("error summing purchased lessons: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, consumedSQL, consumedArgs...).Scan(&consumed); err != nil {
		return nil, fmt.Errorf("error counting consumed lessons: %w", err)
	}
	b.LessonsPurchased = int(purchased)
	b.LessonsConsumed = int(consumed)
	b.LessonsRemaining = b.LessonsPurchased - b.LessonsConsumed
	return b, nil
}
