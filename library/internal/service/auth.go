package service

import (
	"context"
	"strings"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/Astemirdum/school-library/pkg/auth"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func (s *Service) SignIn(ctx context.Context, req model.SignInRequest) (model.SignInResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return model.SignInResponse{}, errs.ErrInvalidCredentials
		}
		return model.SignInResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return model.SignInResponse{}, errs.ErrInvalidCredentials
	}

	now := s.now()
	token, err := auth.Issue(s.auth, user.ID.String(), user.Name, user.Email, now)
	if err != nil {
		return model.SignInResponse{}, errors.Wrap(err, "auth.Issue")
	}
	return model.SignInResponse{
		AccessToken: token.AccessToken,
		ExpiresIn:   int64(token.ExpiresAt.Sub(now).Seconds()),
	}, nil
}

// CreateAdmin stores a new admin account with a bcrypt hashed password.
func (s *Service) CreateAdmin(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, errors.Wrap(err, "bcrypt")
	}
	return s.repo.CreateUser(ctx, model.User{
		ID:       uuid.New(),
		Name:     req.Name,
		Email:    strings.ToLower(req.Email),
		Password: string(hash),
	})
}
