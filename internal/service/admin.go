package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
	"github.com/mmeshcher/shuttle-booking/internal/validation"
)

// AdminSetupRequest содержит поля создания первого администратора.
type AdminSetupRequest struct {
	SetupKey string
	Username string
	Email    string
	Password string
}

// SetupAdmin создаёт первого администратора. Работает, только пока администраторов нет.
func (s *Service) SetupAdmin(ctx context.Context, clientID string, req AdminSetupRequest) (*model.Admin, error) {
	if err := throttle(s.adminLimiter, clientID); err != nil {
		return nil, err
	}

	if s.setupKey == "" || subtle.ConstantTimeCompare([]byte(req.SetupKey), []byte(s.setupKey)) != 1 {
		s.logger.Warn("admin setup with invalid key", zap.String("client", clientID))
		return nil, model.ErrForbidden
	}

	in := validation.AdminSetupInput{
		Username: validation.SanitizeName(req.Username, 50),
		Email:    validation.SanitizeEmail(req.Email),
		Password: req.Password,
	}
	if res := validation.ValidateAdminSetup(in); !res.Valid() {
		return nil, model.NewValidationError(res.Errors...)
	}

	exists, err := s.repo.HasAdmins(ctx)
	if err != nil {
		return nil, model.External("check admins", err)
	}
	if exists {
		return nil, &model.ConflictError{Msg: "admin account already exists"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, model.External("hash password", err)
	}

	a, err := s.repo.CreateAdmin(ctx, model.Admin{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.RoleSuperAdmin,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &model.ConflictError{Msg: "admin account already exists"}
		}
		return nil, model.External("create admin", err)
	}

	s.logger.Info("admin account created", zap.String("username", a.Username))
	return a, nil
}

// AuthenticateAdmin проверяет учётные данные администратора.
// После неудачной попытки действует дополнительный лимит: повторная ошибка в течение 5 минут даёт ThrottledError.
func (s *Service) AuthenticateAdmin(ctx context.Context, clientID, username, password string) (*model.Admin, error) {
	if err := throttle(s.adminLimiter, clientID); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, model.NewValidationError("Username and password are required.")
	}

	a, err := s.repo.GetAdminByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, model.External("get admin", err)
	}

	if a == nil || bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) != nil {
		s.logger.Warn("admin login failed", zap.String("client", clientID))
		if err := throttle(s.adminFailLimiter, clientID); err != nil {
			return nil, err
		}
		return nil, model.ErrUnauthorized
	}

	if !a.IsActive {
		return nil, model.ErrAccountDisabled
	}

	now := s.now()
	if err := s.repo.TouchAdminLogin(ctx, a.ID, now); err != nil {
		s.logger.Warn("update admin last login", zap.Int64("adminID", a.ID), zap.Error(err))
	} else {
		a.LastLogin = &now
	}

	return a, nil
}
