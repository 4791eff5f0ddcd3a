package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/dberrors"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository        *UserRepository
	TokenRepository       *TokenRepository
	StudentRepository     *StudentRepository
	SettingsRepository    *SettingsRepository
	ReservationRepository *ReservationRepository
	PaymentRepository     *PaymentRepository
	AgreementRepository   *AgreementRepository
	MemoRepository        *MemoRepository
	InquiryRepository     *InquiryRepository
	AnalyticsRepository   *AnalyticsRepository
}

// NewRepositories initializes all repositories
func NewRepositories(pg *db.PostgresDB) *Repositories {
	return &Repositories{
		UserRepository:        NewUserRepository(pg),
		TokenRepository:       NewTokenRepository(pg),
		StudentRepository:     NewStudentRepository(pg),
		SettingsRepository:    NewSettingsRepository(pg),
		ReservationRepository: NewReservationRepository(pg),
		PaymentRepository:     NewPaymentRepository(pg),
		AgreementRepository:   NewAgreementRepository(pg),
		MemoRepository:        NewMemoRepository(pg),
		InquiryRepository:     NewInquiryRepository(pg),
		AnalyticsRepository:   NewAnalyticsRepository(pg),
	}
}

// scanner is satisfied by pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

func statementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// timeRange builds a half-open [from, to) condition on column. Nil bounds are open.
func timeRange(column string, from, to *time.Time) squirrel.And {
	cond := squirrel.And{}
	if from != nil {
		cond = append(cond, squirrel.GtOrEq{column: *from})
	}
	if to != nil {
		cond = append(cond, squirrel.Lt{column: *to})
	}
	return cond
}

// execOne runs a statement that must touch exactly one row
func execOne(ctx context.Context, conn db.DBTX, sql string, args []interface{}, notFound error) error {
	tag, err := conn.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.NewConflictError("record is still referenced by other data")
		}
		logger.Error().Err(err).Str("sql", sql).Msg("Error executing statement")
		return fmt.Errorf("error executing statement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
