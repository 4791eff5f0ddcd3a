package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

var agreementColumns = []string{
	"id", "student_id", "signer_name", "signature_data", "terms_version", "pdf_path", "signed_at", "COALESCE(created_by, 0)",
}

func scanAgreement(row scanner) (*models.Agreement, error) {
	var a models.Agreement
	err := row.Scan(&a.ID, &a.StudentID, &a.SignerName, &a.SignatureData, &a.TermsVersion, &a.PDFPath, &a.SignedAt, &a.CreatedBy)
	return &a, err
}

// AgreementRepository handles signed enrollment agreements
type AgreementRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewAgreementRepository creates a new AgreementRepository
func NewAgreementRepository(pg *db.PostgresDB) *AgreementRepository {
	return &AgreementRepository{db: pg, sb: statementBuilder()}
}

// Create inserts an agreement
func (r *AgreementRepository) Create(ctx context.Context, a *models.Agreement) error {
	var createdBy *int64
	if a.CreatedBy != 0 {
		createdBy = &a.CreatedBy
	}
	sql, args, err := r.sb.Insert("agreements").
		Columns("student_id", "signer_name", "signature_data", "terms_version", "signed_at", "created_by").
		Values(a.StudentID, a.SignerName, a.SignatureData, a.TermsVersion, a.SignedAt, createdBy).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create agreement query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&a.ID); err != nil {
		logger.Error().Err(err).Int64("studentID", a.StudentID).Msg("Error creating agreement")
		return fmt.Errorf("error creating agreement: %w", err)
	}
	return nil
}

// GetByID retrieves an agreement including its signature
func (r *AgreementRepository) GetByID(ctx context.Context, id int64) (*models.Agreement, error) {
	sql, args, err := r.sb.Select(agreementColumns...).From("agreements").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get agreement query: %w", err)
	}
	a, err := scanAgreement(r.db.Conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAgreementNotFound
		}
		return nil, fmt.Errorf("error retrieving agreement: %w", err)
	}
	return a, nil
}

// ListByStudent returns a student's agreements, newest first
func (r *AgreementRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.Agreement, error) {
	sql, args, err := r.sb.Select(agreementColumns...).
		From("agreements").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("signed_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list agreements query: %w", err)
	}
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing agreements: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Agreement, 0)
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning agreement: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// SetPDFPath records where the rendered PDF was archived
func (r *AgreementRepository) SetPDFPath(ctx context.Context, id int64, path string) error {
	sql, args, err := r.sb.Update("agreements").Set("pdf_path", path).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set pdf path query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrAgreementNotFound)
}
