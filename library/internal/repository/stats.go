package repository

import (
	"context"

	"github.com/Astemirdum/school-library/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

func (r *repository) SumQuantity(ctx context.Context) (int, error) {
	n, err := r.count(ctx, qb.Select("coalesce(sum(quantity), 0)").From(booksTableName))
	if err != nil {
		return 0, errors.Wrap(err, "SumQuantity")
	}
	return n, nil
}

func (r *repository) CountAvailableBooks(ctx context.Context) (int, error) {
	n, err := r.count(ctx, qb.Select("count(*)").From(booksTableName).Where(sq.Gt{"available": 0}))
	if err != nil {
		return 0, errors.Wrap(err, "CountAvailableBooks")
	}
	return n, nil
}

func (r *repository) CountStudents(ctx context.Context) (int, error) {
	n, err := r.count(ctx, qb.Select("count(*)").From(studentsTableName))
	if err != nil {
		return 0, errors.Wrap(err, "CountStudents")
	}
	return n, nil
}

func (r *repository) CountStudentsWithActiveLoans(ctx context.Context) (int, error) {
	n, err := r.count(ctx, qb.Select("count(distinct student_id)").From(loansTableName).
		Where(sq.Eq{"returned": false}))
	if err != nil {
		return 0, errors.Wrap(err, "CountStudentsWithActiveLoans")
	}
	return n, nil
}

func (r *repository) CountLoans(ctx context.Context, f LoanCountFilter) (int, error) {
	where := sq.And{}
	if f.ActiveOnly {
		where = append(where, sq.Eq{"returned": false})
	}
	if f.DueBefore != nil {
		where = append(where, sq.Lt{"return_due_date": *f.DueBefore})
	}
	if f.From != nil {
		where = append(where, sq.GtOrEq{"loan_date": *f.From})
	}
	if f.To != nil {
		where = append(where, sq.Lt{"loan_date": *f.To})
	}
	n, err := r.count(ctx, qb.Select("count(*)").From(loansTableName).Where(where))
	if err != nil {
		return 0, errors.Wrap(err, "CountLoans")
	}
	return n, nil
}

func (r *repository) PopularBooks(ctx context.Context, limit int) ([]model.PopularBook, error) {
	cols := make([]string, 0, len(bookColumns)+1)
	for _, c := range bookColumns {
		cols = append(cols, "b."+c)
	}
	cols = append(cols, "count(l.id) as loan_count")

	q := qb.Select(cols...).
		From(booksTableName+" b").
		LeftJoin(loansTableName+" l on l.book_id = b.id").
		GroupBy("b.id").
		OrderBy("loan_count desc", "b.title asc").
		Limit(uint64(limit))

	books := make([]model.PopularBook, 0, limit)
	if err := r.selectAll(ctx, &books, q); err != nil {
		return nil, errors.Wrap(err, "PopularBooks")
	}
	return books, nil
}
