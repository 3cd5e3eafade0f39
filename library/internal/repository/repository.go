package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type BookFilter struct {
	Query         string
	AvailableOnly bool
	Page, Size    int
}

type StudentFilter struct {
	Query      string
	Page, Size int
}

type LoanFilter struct {
	ActiveOnly bool
	Limit      int
}

type LoanCountFilter struct {
	ActiveOnly bool
	DueBefore  *time.Time
	From, To   *time.Time
}

type BookRepository interface {
	GetBook(ctx context.Context, id uuid.UUID) (model.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (model.Book, error)
	ListBooks(ctx context.Context, f BookFilter) (model.ListBooks, error)
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	// LockBook selects the book row for update inside a transaction.
	LockBook(ctx context.Context, id uuid.UUID) error

	DecrementAvailable(ctx context.Context, id uuid.UUID) (model.Book, bool, error)
	IncrementAvailable(ctx context.Context, id uuid.UUID) (model.Book, bool, error)
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int) (model.Book, bool, error)
	CountActiveLoansByBook(ctx context.Context, id uuid.UUID) (int, error)
}

type StudentRepository interface {
	GetStudent(ctx context.Context, id uuid.UUID) (model.Student, error)
	GetStudentByEnrollment(ctx context.Context, enrollment string) (model.Student, error)
	ListStudents(ctx context.Context, f StudentFilter) (model.ListStudents, error)
	CreateStudent(ctx context.Context, student model.Student) (model.Student, error)
	UpdateStudent(ctx context.Context, id uuid.UUID, req model.UpdateStudentRequest) (model.Student, error)
	DeleteStudent(ctx context.Context, id uuid.UUID) error
	// LockStudent selects the student row for update inside a transaction.
	// A concurrent loan insert for the student waits on it.
	LockStudent(ctx context.Context, id uuid.UUID) error
	CountActiveLoansByStudent(ctx context.Context, id uuid.UUID) (int, error)
	ListClasses(ctx context.Context) ([]model.Class, error)
}

type LoanRepository interface {
	CreateLoan(ctx context.Context, loan model.Loan) error
	GetLoan(ctx context.Context, id uuid.UUID) (model.Loan, error)
	ListLoans(ctx context.Context, f LoanFilter) ([]model.Loan, error)
	// MarkReturned closes the loan only if it is still active.
	MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) (model.Loan, bool, error)
	DeleteLoan(ctx context.Context, id uuid.UUID) (model.Loan, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order model.ReservationOrder) error
	HasPendingOrder(ctx context.Context, bookID, studentID uuid.UUID) (bool, error)
	GetOrder(ctx context.Context, id uuid.UUID) (model.ReservationOrder, error)
	// LockOrder selects the order row for update inside a transaction.
	LockOrder(ctx context.Context, id uuid.UUID) (model.ReservationOrder, error)
	ListOrders(ctx context.Context) ([]model.ReservationOrder, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type StatsRepository interface {
	SumQuantity(ctx context.Context) (int, error)
	CountAvailableBooks(ctx context.Context) (int, error)
	CountStudents(ctx context.Context) (int, error)
	CountStudentsWithActiveLoans(ctx context.Context) (int, error)
	CountLoans(ctx context.Context, f LoanCountFilter) (int, error)
	PopularBooks(ctx context.Context, limit int) ([]model.PopularBook, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

type Repository interface {
	BookRepository
	StudentRepository
	LoanRepository
	OrderRepository
	StatsRepository
	UserRepository
}

// Transactor runs fn against a repository bound to one transaction.
// A non-nil error from fn rolls the transaction back.
type Transactor interface {
	InTx(ctx context.Context, fn func(repo Repository) error) error
}

type repository struct {
	root *sqlx.DB
	db   sqlx.ExtContext
	log  *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	return &repository{
		root: db,
		db:   db,
		log:  log.Named("repo"),
	}, nil
}

var (
	_ Repository = (*repository)(nil)
	_ Transactor = (*repository)(nil)
)

func (r *repository) InTx(ctx context.Context, fn func(repo Repository) error) (err error) {
	tx, err := r.root.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "BeginTxx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.log.Error("tx.Rollback", zap.Error(rbErr))
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = errors.Wrap(err, "tx.Commit")
		}
	}()

	return fn(&repository{root: r.root, db: tx, log: r.log})
}

const (
	booksTableName    = `books`
	studentsTableName = `students`
	classesTableName  = `classes`
	loansTableName    = `loans`
	ordersTableName   = `order_loans`
	usersTableName    = `users`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *repository) get(ctx context.Context, dest any, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "ToSql")
	}
	if err := sqlx.GetContext(ctx, r.db, dest, query, args...); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.log.Error("get", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		}
		return err
	}
	return nil
}

func (r *repository) selectAll(ctx context.Context, dest any, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "ToSql")
	}
	r.log.Debug("select", zap.String("query", query), zap.Any("args", args))
	if err := sqlx.SelectContext(ctx, r.db, dest, query, args...); err != nil {
		r.log.Error("select", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) exec(ctx context.Context, q sq.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "ToSql")
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) count(ctx context.Context, q sq.SelectBuilder) (int, error) {
	var n int
	if err := r.get(ctx, &n, q); err != nil {
		return 0, err
	}
	return n, nil
}

// guarded runs an update ... returning * and reports false instead of
// sql.ErrNoRows when the where clause matched nothing.
func (r *repository) guarded(ctx context.Context, dest any, q sq.Sqlizer) (bool, error) {
	if err := r.get(ctx, dest, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrCode(err) == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrCode(err) == pgerrcode.ForeignKeyViolation
}

// missingReference maps a foreign key violation on loans or order_loans to
// the not-found error of the referenced row.
func missingReference(err error) error {
	if !isForeignKeyViolation(err) {
		return nil
	}
	switch constraintName(err) {
	case "loans_book_id_fkey", "order_loans_book_id_fkey":
		return errs.ErrBookNotFound
	case "loans_student_id_fkey", "order_loans_student_id_fkey":
		return errs.ErrStudentNotFound
	}
	return nil
}

// contains builds a case-insensitive substring match over columns.
func contains(query string, columns ...string) sq.Or {
	pattern := "%" + escapeLike(query) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, c := range columns {
		or = append(or, sq.ILike{c: pattern})
	}
	return or
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

func paginate(q sq.SelectBuilder, page, size int) sq.SelectBuilder {
	if page != 0 && size != 0 {
		q = q.Limit(uint64(size)).Offset(uint64((page - 1) * size))
	}
	return q
}
