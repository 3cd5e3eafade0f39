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

func studentSelect() sq.SelectBuilder {
	return qb.Select("s.id", "s.enrollment", "s.name", "s.phone", "s.class_id", "c.name as class_name").
		From(studentsTableName + " s").
		LeftJoin(classesTableName + " c on c.id = s.class_id")
}

func (r *repository) GetStudent(ctx context.Context, id uuid.UUID) (model.Student, error) {
	var st model.Student
	if err := r.get(ctx, &st, studentSelect().Where(sq.Eq{"s.id": id}).Limit(1)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Student{}, errs.ErrStudentNotFound
		}
		return model.Student{}, errors.Wrap(err, "GetStudent")
	}
	return st, nil
}

func (r *repository) GetStudentByEnrollment(ctx context.Context, enrollment string) (model.Student, error) {
	var st model.Student
	if err := r.get(ctx, &st, studentSelect().Where(sq.Eq{"s.enrollment": enrollment}).Limit(1)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Student{}, errs.ErrStudentNotFound
		}
		return model.Student{}, errors.Wrap(err, "GetStudentByEnrollment")
	}
	return st, nil
}

func (r *repository) ListStudents(ctx context.Context, f StudentFilter) (model.ListStudents, error) {
	where := sq.And{}
	if f.Query != "" {
		where = append(where, contains(f.Query, "s.name", "s.enrollment"))
	}

	total, err := r.count(ctx, qb.Select("count(*)").From(studentsTableName+" s").Where(where))
	if err != nil {
		return model.ListStudents{}, errors.Wrap(err, "ListStudents count")
	}

	items := make([]model.Student, 0)
	q := studentSelect().Where(where).OrderBy("s.name asc")
	if err := r.selectAll(ctx, &items, paginate(q, f.Page, f.Size)); err != nil {
		return model.ListStudents{}, errors.Wrap(err, "ListStudents")
	}
	return model.ListStudents{
		Paging: model.NewPaging(f.Page, f.Size, total),
		Items:  items,
	}, nil
}

func (r *repository) CreateStudent(ctx context.Context, student model.Student) (model.Student, error) {
	q := qb.Insert(studentsTableName).
		Columns("id", "enrollment", "name", "phone", "class_id").
		Values(student.ID, student.Enrollment, student.Name, student.Phone, student.ClassID)
	if _, err := r.exec(ctx, q); err != nil {
		switch {
		case isUniqueViolation(err):
			return model.Student{}, errs.ErrDuplicateEnrollment
		case isForeignKeyViolation(err):
			return model.Student{}, errs.ErrClassNotFound
		}
		return model.Student{}, errors.Wrap(err, "CreateStudent")
	}
	return r.GetStudent(ctx, student.ID)
}

func (r *repository) UpdateStudent(ctx context.Context, id uuid.UUID, req model.UpdateStudentRequest) (model.Student, error) {
	q := qb.Update(studentsTableName).
		Set("name", req.Name).
		Set("phone", req.Phone).
		Set("class_id", req.ClassID).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id})
	n, err := r.exec(ctx, q)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Student{}, errs.ErrClassNotFound
		}
		return model.Student{}, errors.Wrap(err, "UpdateStudent")
	}
	if n == 0 {
		return model.Student{}, errs.ErrStudentNotFound
	}
	return r.GetStudent(ctx, id)
}

func (r *repository) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, qb.Delete(studentsTableName).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "DeleteStudent")
	}
	if n == 0 {
		return errs.ErrStudentNotFound
	}
	return nil
}

func (r *repository) LockStudent(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	q := qb.Select("id").From(studentsTableName).Where(sq.Eq{"id": id}).Suffix("for update")
	if err := r.get(ctx, &locked, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrStudentNotFound
		}
		return errors.Wrap(err, "LockStudent")
	}
	return nil
}

func (r *repository) CountActiveLoansByStudent(ctx context.Context, id uuid.UUID) (int, error) {
	n, err := r.count(ctx, qb.Select("count(*)").From(loansTableName).
		Where(sq.Eq{"student_id": id, "returned": false}))
	if err != nil {
		return 0, errors.Wrap(err, "CountActiveLoansByStudent")
	}
	return n, nil
}

func (r *repository) ListClasses(ctx context.Context) ([]model.Class, error) {
	classes := make([]model.Class, 0)
	q := qb.Select("id", "name", "year").From(classesTableName).OrderBy("year desc", "name asc")
	if err := r.selectAll(ctx, &classes, q); err != nil {
		return nil, errors.Wrap(err, "ListClasses")
	}
	return classes, nil
}
