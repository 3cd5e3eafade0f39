package service

import (
	"context"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/model"
	"github.com/Astemirdum/school-library/library/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func (s *Service) ListStudents(ctx context.Context, query string, page, size int) (model.ListStudents, error) {
	return s.repo.ListStudents(ctx, repository.StudentFilter{Query: query, Page: page, Size: size})
}

func (s *Service) SearchStudents(ctx context.Context, query string) ([]model.Student, error) {
	list, err := s.repo.ListStudents(ctx, repository.StudentFilter{Query: query, Page: 1, Size: searchLimit})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (s *Service) GetStudentByEnrollment(ctx context.Context, enrollment string) (model.Student, error) {
	return s.repo.GetStudentByEnrollment(ctx, enrollment)
}

func (s *Service) CreateStudent(ctx context.Context, req model.CreateStudentRequest) (model.Student, error) {
	return s.repo.CreateStudent(ctx, model.Student{
		ID:         uuid.New(),
		Enrollment: req.Enrollment,
		Name:       req.Name,
		Phone:      req.Phone,
		ClassID:    req.ClassID,
	})
}

func (s *Service) UpdateStudent(ctx context.Context, id uuid.UUID, req model.UpdateStudentRequest) (model.Student, error) {
	return s.repo.UpdateStudent(ctx, id, req)
}

func (s *Service) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(repo repository.Repository) error {
		if err := repo.LockStudent(ctx, id); err != nil {
			return err
		}
		n, err := repo.CountActiveLoansByStudent(ctx, id)
		if err != nil {
			return errors.Wrap(err, "CountActiveLoansByStudent")
		}
		if n > 0 {
			return errs.ErrStudentHasActiveLoans
		}
		return repo.DeleteStudent(ctx, id)
	})
}

func (s *Service) ListClasses(ctx context.Context) ([]model.Class, error) {
	return s.repo.ListClasses(ctx)
}
