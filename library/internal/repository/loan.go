package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var joinedBookColumns = []string{
	`b.id as "book.id"`, `b.isbn as "book.isbn"`, `b.title as "book.title"`, `b.author as "book.author"`,
	`b.year as "book.year"`, `b.quantity as "book.quantity"`, `b.available as "book.available"`,
	`b.created_at as "book.created_at"`, `b.updated_at as "book.updated_at"`,
}

var joinedStudentColumns = []string{
	`st.id as "student.id"`, `st.enrollment as "student.enrollment"`, `st.name as "student.name"`,
	`st.phone as "student.phone"`, `st.class_id as "student.class_id"`,
}

func loanSelect() sq.SelectBuilder {
	cols := []string{"l.id", "l.book_id", "l.student_id", "l.loan_date", "l.return_due_date", "l.returned", "l.actual_return_date"}
	cols = append(cols, joinedBookColumns...)
	cols = append(cols, joinedStudentColumns...)
	return qb.Select(cols...).
		From(loansTableName + " l").
		Join(booksTableName + " b on b.id = l.book_id").
		Join(studentsTableName + " st on st.id = l.student_id")
}

func (r *repository) CreateLoan(ctx context.Context, loan model.Loan) error {
	q := qb.Insert(loansTableName).
		Columns("id", "book_id", "student_id", "loan_date", "return_due_date", "returned").
		Values(loan.ID, loan.BookID, loan.StudentID, loan.LoanDate, loan.ReturnDueDate, false)
	if _, err := r.exec(ctx, q); err != nil {
		if missing := missingReference(err); missing != nil {
			return missing
		}
		return errors.Wrap(err, "CreateLoan")
	}
	return nil
}

func (r *repository) GetLoan(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	var loan model.Loan
	if err := r.get(ctx, &loan, loanSelect().Where(sq.Eq{"l.id": id}).Limit(1)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrLoanNotFound
		}
		return model.Loan{}, errors.Wrap(err, "GetLoan")
	}
	return loan, nil
}

func (r *repository) ListLoans(ctx context.Context, f LoanFilter) ([]model.Loan, error) {
	q := loanSelect().OrderBy("l.loan_date desc")
	if f.ActiveOnly {
		q = q.Where(sq.Eq{"l.returned": false})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	loans := make([]model.Loan, 0)
	if err := r.selectAll(ctx, &loans, q); err != nil {
		return nil, errors.Wrap(err, "ListLoans")
	}
	return loans, nil
}

func (r *repository) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) (model.Loan, bool, error) {
	q := qb.Update(loansTableName).
		Set("returned", true).
		Set("actual_return_date", at).
		Where(sq.Eq{"id": id, "returned": false}).
		Suffix("returning *")

	var loan model.Loan
	ok, err := r.guarded(ctx, &loan, q)
	if err != nil {
		return model.Loan{}, false, errors.Wrap(err, "MarkReturned")
	}
	return loan, ok, nil
}

func (r *repository) DeleteLoan(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	var loan model.Loan
	q := qb.Delete(loansTableName).Where(sq.Eq{"id": id}).Suffix("returning *")
	if err := r.get(ctx, &loan, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrLoanNotFound
		}
		return model.Loan{}, errors.Wrap(err, "DeleteLoan")
	}
	return loan, nil
}
