package repository

import (
	"context"
	"database/sql"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

func (r *repository) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	q := qb.Insert(usersTableName).
		Columns("id", "name", "email", "password").
		Values(user.ID, user.Name, user.Email, user.Password).
		Suffix("returning *")

	var created model.User
	if err := r.get(ctx, &created, q); err != nil {
		if isUniqueViolation(err) {
			return model.User{}, errs.ErrDuplicateEmail
		}
		return model.User{}, errors.Wrap(err, "CreateUser")
	}
	return created, nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	q := qb.Select("id", "name", "email", "password", "created_at").
		From(usersTableName).
		Where(sq.Eq{"email": email}).
		Limit(1)
	if err := r.get(ctx, &user, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errs.ErrUserNotFound
		}
		return model.User{}, errors.Wrap(err, "GetUserByEmail")
	}
	return user, nil
}
