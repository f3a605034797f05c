package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/shuttle-booking/internal/model"
	"github.com/mmeshcher/shuttle-booking/internal/repository"
	"github.com/mmeshcher/shuttle-booking/internal/validation"
)

// MsgAccountExists возвращается при повторной регистрации на email с паролем.
const MsgAccountExists = "An account with this email address already exists. Please sign in instead."

// ResolveUser находит пассажира по email или создаёт гостевую запись.
// У гостя без пароля непустые name и phone перезаписываются, у зарегистрированного пользователя ничего не меняется.
func (s *Service) ResolveUser(ctx context.Context, email, name, phone string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if u.HasPassword() {
			return u, nil
		}
		return s.mergeProfile(ctx, u, name, phone, nil)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, model.External("get user", err)
	}

	created, err := s.repo.CreateUser(ctx, model.User{Email: email, Name: name, Phone: phone})
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, model.External("create user", err)
	}

	// Пользователя с тем же email создал параллельный запрос.
	u, err = s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, model.External("get user", err)
	}
	return u, nil
}

// mergeProfile дописывает непустые поля к существующему пользователю.
func (s *Service) mergeProfile(ctx context.Context, u *model.User, name, phone string, hash []byte) (*model.User, error) {
	var upd model.UserUpdate
	if name != "" && name != u.Name {
		upd.Name = &name
	}
	if phone != "" && phone != u.Phone {
		upd.Phone = &phone
	}
	upd.PasswordHash = hash

	if upd.Name == nil && upd.Phone == nil && upd.PasswordHash == nil {
		return u, nil
	}

	updated, err := s.repo.UpdateUser(ctx, u.ID, upd)
	if err != nil {
		return nil, model.External("update user", err)
	}
	return updated, nil
}

// RegisterRequest содержит неочищенные поля регистрации.
type RegisterRequest struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// Register создаёт пользователя с паролем или присваивает пароль гостевой записи.
// created == false означает, что пароль добавлен к существующему гостю.
func (s *Service) Register(ctx context.Context, clientID string, req RegisterRequest) (u *model.User, created bool, err error) {
	if err := throttle(s.registerLimiter, clientID); err != nil {
		return nil, false, err
	}

	in := validation.RegistrationInput{
		Name:     validation.SanitizeName(req.Name, validation.MaxNameLength),
		Email:    validation.SanitizeEmail(req.Email),
		Phone:    validation.SanitizePhone(req.Phone),
		Password: req.Password,
	}
	if res := validation.ValidateRegistration(in); !res.Valid() {
		return nil, false, model.NewValidationError(res.Errors...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, false, model.External("hash password", err)
	}

	existing, err := s.repo.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if existing.HasPassword() {
			return nil, false, &model.ConflictError{Msg: MsgAccountExists}
		}
		u, err := s.mergeProfile(ctx, existing, in.Name, in.Phone, hash)
		if err != nil {
			return nil, false, err
		}
		s.logger.Info("password attached to guest account", zap.Int64("userID", u.ID))
		return u, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, model.External("get user", err)
	}

	u, err = s.repo.CreateUser(ctx, model.User{Email: in.Email, Name: in.Name, Phone: in.Phone, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, &model.ConflictError{Msg: MsgAccountExists}
		}
		return nil, false, model.External("create user", err)
	}
	return u, true, nil
}

// VerifyLogin проверяет email и пароль пользователя.
func (s *Service) VerifyLogin(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, validation.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrUnauthorized
		}
		return nil, model.External("get user", err)
	}
	if !u.HasPassword() {
		return nil, model.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, model.ErrUnauthorized
	}
	return u, nil
}

// CheckUser сообщает, зарегистрирован ли email.
func (s *Service) CheckUser(ctx context.Context, email string) (bool, error) {
	_, err := s.repo.GetUserByEmail(ctx, validation.SanitizeEmail(email))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, model.External("get user", err)
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, model.External("list users", err)
	}
	return users, nil
}

// UserInput содержит изменяемые администратором поля пользователя. Nil означает «не менять».
type UserInput struct {
	Email *string
	Name  *string
	Phone *string
}

// UpdateUser изменяет профиль пользователя.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UserInput) (*model.User, error) {
	var (
		upd     model.UserUpdate
		reasons []string
	)

	if in.Email != nil {
		email := validation.SanitizeEmail(*in.Email)
		if !validation.IsValidEmail(email) {
			reasons = append(reasons, validation.MsgEmail)
		}
		upd.Email = &email
	}
	if in.Name != nil {
		name := validation.SanitizeName(*in.Name, validation.MaxNameLength)
		if len([]rune(name)) < 2 {
			reasons = append(reasons, validation.MsgUserName)
		}
		upd.Name = &name
	}
	if in.Phone != nil {
		phone := validation.SanitizePhone(*in.Phone)
		if phone != "" && !validation.IsValidPhone(phone) {
			reasons = append(reasons, validation.MsgPhone)
		}
		upd.Phone = &phone
	}
	if len(reasons) > 0 {
		return nil, model.NewValidationError(reasons...)
	}

	u, err := s.repo.UpdateUser(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, &model.NotFoundError{Resource: "user", ID: id}
		case errors.Is(err, repository.ErrDuplicate):
			return nil, &model.ConflictError{Msg: "email is already in use"}
		}
		return nil, model.External("update user", err)
	}
	return u, nil
}

// DeleteUser удаляет пользователя вместе с его бронированиями.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.NotFoundError{Resource: "user", ID: id}
		}
		return model.External("delete user", err)
	}
	return nil
}
