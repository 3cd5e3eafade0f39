package repository

import (
	"context"
	"database/sql"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var bookColumns = []string{"id", "isbn", "title", "author", "year", "quantity", "available", "created_at", "updated_at"}

func (r *repository) GetBook(ctx context.Context, id uuid.UUID) (model.Book, error) {
	var book model.Book
	q := qb.Select(bookColumns...).From(booksTableName).Where(sq.Eq{"id": id}).Limit(1)
	if err := r.get(ctx, &book, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrBookNotFound
		}
		return model.Book{}, errors.Wrap(err, "GetBook")
	}
	return book, nil
}

func (r *repository) GetBookByISBN(ctx context.Context, isbn string) (model.Book, error) {
	var book model.Book
	q := qb.Select(bookColumns...).From(booksTableName).Where(sq.Eq{"isbn": isbn}).Limit(1)
	if err := r.get(ctx, &book, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrBookNotFound
		}
		return model.Book{}, errors.Wrap(err, "GetBookByISBN")
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context, f BookFilter) (model.ListBooks, error) {
	where := sq.And{}
	if f.Query != "" {
		where = append(where, contains(f.Query, "title", "author", "isbn"))
	}
	if f.AvailableOnly {
		where = append(where, sq.Gt{"available": 0})
	}

	total, err := r.count(ctx, qb.Select("count(*)").From(booksTableName).Where(where))
	if err != nil {
		return model.ListBooks{}, errors.Wrap(err, "ListBooks count")
	}

	q := qb.Select(bookColumns...).From(booksTableName).Where(where).OrderBy("title asc")
	books := make([]model.Book, 0)
	if err := r.selectAll(ctx, &books, paginate(q, f.Page, f.Size)); err != nil {
		return model.ListBooks{}, errors.Wrap(err, "ListBooks")
	}

	return model.ListBooks{
		Paging: model.NewPaging(f.Page, f.Size, total),
		Items:  books,
	}, nil
}

func (r *repository) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	q := qb.Insert(booksTableName).
		Columns("id", "isbn", "title", "author", "year", "quantity", "available").
		Values(book.ID, book.ISBN, book.Title, book.Author, book.Year, book.Quantity, book.Available).
		Suffix("returning *")

	var created model.Book
	if err := r.get(ctx, &created, q); err != nil {
		if isUniqueViolation(err) {
			return model.Book{}, errs.ErrDuplicateISBN
		}
		return model.Book{}, errors.Wrap(err, "CreateBook")
	}
	return created, nil
}

func (r *repository) UpdateBook(ctx context.Context, id uuid.UUID, req model.UpdateBookRequest) (model.Book, error) {
	q := qb.Update(booksTableName).
		Set("title", req.Title).
		Set("author", req.Author).
		Set("year", req.Year).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("returning *")

	var book model.Book
	if err := r.get(ctx, &book, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrBookNotFound
		}
		return model.Book{}, errors.Wrap(err, "UpdateBook")
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, qb.Delete(booksTableName).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "DeleteBook")
	}
	if n == 0 {
		return errs.ErrBookNotFound
	}
	return nil
}

func (r *repository) LockBook(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	q := qb.Select("id").From(booksTableName).Where(sq.Eq{"id": id}).Suffix("for update")
	if err := r.get(ctx, &locked, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrBookNotFound
		}
		return errors.Wrap(err, "LockBook")
	}
	return nil
}

func (r *repository) DecrementAvailable(ctx context.Context, id uuid.UUID) (model.Book, bool, error) {
	q := qb.Update(booksTableName).
		Set("available", sq.Expr("available - 1")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Gt{"available": 0}).
		Suffix("returning *")

	var book model.Book
	ok, err := r.guarded(ctx, &book, q)
	return book, ok, err
}

func (r *repository) IncrementAvailable(ctx context.Context, id uuid.UUID) (model.Book, bool, error) {
	q := qb.Update(booksTableName).
		Set("available", sq.Expr("available + 1")).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Where("available < quantity").
		Suffix("returning *")

	var book model.Book
	ok, err := r.guarded(ctx, &book, q)
	return book, ok, err
}

func (r *repository) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) (model.Book, bool, error) {
	q := qb.Update(booksTableName).
		Set("available", sq.Expr("available + (? - quantity)", quantity)).
		Set("quantity", quantity).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("available + (? - quantity) >= 0", quantity)).
		Suffix("returning *")

	var book model.Book
	ok, err := r.guarded(ctx, &book, q)
	return book, ok, err
}

func (r *repository) CountActiveLoansByBook(ctx context.Context, id uuid.UUID) (int, error) {
	n, err := r.count(ctx, qb.Select("count(*)").From(loansTableName).
		Where(sq.Eq{"book_id": id, "returned": false}))
	if err != nil {
		return 0, errors.Wrap(err, "CountActiveLoansByBook")
	}
	return n, nil
}
