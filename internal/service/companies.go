package service

import (
	"context"
	"errors"

	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
	"github.com/mmeshcher/shuttle-booking/internal/validation"
)

const msgCompanyName = "Company name is required and must be between 2 and 100 characters."

// ListCompanies возвращает всех перевозчиков.
func (s *Service) ListCompanies(ctx context.Context) ([]model.Company, error) {
	list, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, model.External("list companies", err)
	}
	return list, nil
}

// CreateCompany создаёт перевозчика.
func (s *Service) CreateCompany(ctx context.Context, name, phone string) (*model.Company, error) {
	name = validation.SanitizeName(name, validation.MaxNameLength)
	phone = validation.SanitizePhone(phone)

	var reasons []string
	if len([]rune(name)) < 2 {
		reasons = append(reasons, msgCompanyName)
	}
	if phone != "" && !validation.IsValidPhone(phone) {
		reasons = append(reasons, validation.MsgPhone)
	}
	if len(reasons) > 0 {
		return nil, model.NewValidationError(reasons...)
	}

	c, err := s.repo.CreateCompany(ctx, name, phone)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &model.ConflictError{Msg: "company already exists"}
		}
		return nil, model.External("create company", err)
	}
	return c, nil
}

// UpdateCompany изменяет заданные поля перевозчика.
func (s *Service) UpdateCompany(ctx context.Context, id int64, name, phone *string) (*model.Company, error) {
	var reasons []string
	if name != nil {
		v := validation.SanitizeName(*name, validation.MaxNameLength)
		if len([]rune(v)) < 2 {
			reasons = append(reasons, msgCompanyName)
		}
		name = &v
	}
	if phone != nil {
		v := validation.SanitizePhone(*phone)
		if v != "" && !validation.IsValidPhone(v) {
			reasons = append(reasons, validation.MsgPhone)
		}
		phone = &v
	}
	if len(reasons) > 0 {
		return nil, model.NewValidationError(reasons...)
	}

	c, err := s.repo.UpdateCompany(ctx, id, name, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &model.NotFoundError{Resource: "company", ID: id}
		}
		return nil, model.External("update company", err)
	}
	return c, nil
}

// DeleteCompany удаляет перевозчика. Маршруты теряют ссылку на него.
func (s *Service) DeleteCompany(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCompany(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.NotFoundError{Resource: "company", ID: id}
		}
		return model.External("delete company", err)
	}
	return nil
}
