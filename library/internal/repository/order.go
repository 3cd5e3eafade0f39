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

var orderColumns = []string{"id", "book_id", "student_id", "return_due_date", "order_date"}

func orderSelect() sq.SelectBuilder {
	cols := []string{"o.id", "o.book_id", "o.student_id", "o.return_due_date", "o.order_date"}
	cols = append(cols, joinedBookColumns...)
	cols = append(cols, joinedStudentColumns...)
	return qb.Select(cols...).
		From(ordersTableName + " o").
		Join(booksTableName + " b on b.id = o.book_id").
		Join(studentsTableName + " st on st.id = o.student_id")
}

func (r *repository) CreateOrder(ctx context.Context, order model.ReservationOrder) error {
	q := qb.Insert(ordersTableName).
		Columns(orderColumns...).
		Values(order.ID, order.BookID, order.StudentID, order.ReturnDueDate, order.OrderDate)
	if _, err := r.exec(ctx, q); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrDuplicateRequest
		}
		if missing := missingReference(err); missing != nil {
			return missing
		}
		return errors.Wrap(err, "CreateOrder")
	}
	return nil
}

func (r *repository) HasPendingOrder(ctx context.Context, bookID, studentID uuid.UUID) (bool, error) {
	n, err := r.count(ctx, qb.Select("count(*)").From(ordersTableName).
		Where(sq.Eq{"book_id": bookID, "student_id": studentID}))
	if err != nil {
		return false, errors.Wrap(err, "HasPendingOrder")
	}
	return n > 0, nil
}

func (r *repository) GetOrder(ctx context.Context, id uuid.UUID) (model.ReservationOrder, error) {
	var order model.ReservationOrder
	if err := r.get(ctx, &order, orderSelect().Where(sq.Eq{"o.id": id}).Limit(1)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ReservationOrder{}, errs.ErrOrderNotFound
		}
		return model.ReservationOrder{}, errors.Wrap(err, "GetOrder")
	}
	return order, nil
}

func (r *repository) LockOrder(ctx context.Context, id uuid.UUID) (model.ReservationOrder, error) {
	var order model.ReservationOrder
	q := qb.Select(orderColumns...).From(ordersTableName).Where(sq.Eq{"id": id}).Suffix("for update")
	if err := r.get(ctx, &order, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ReservationOrder{}, errs.ErrOrderNotFound
		}
		return model.ReservationOrder{}, errors.Wrap(err, "LockOrder")
	}
	return order, nil
}

func (r *repository) ListOrders(ctx context.Context) ([]model.ReservationOrder, error) {
	orders := make([]model.ReservationOrder, 0)
	if err := r.selectAll(ctx, &orders, orderSelect().OrderBy("o.order_date desc")); err != nil {
		return nil, errors.Wrap(err, "ListOrders")
	}
	return orders, nil
}

func (r *repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, qb.Delete(ordersTableName).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "DeleteOrder")
	}
	if n == 0 {
		return errs.ErrOrderNotFound
	}
	return nil
}
