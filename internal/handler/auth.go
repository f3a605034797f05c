package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/shuttle-booking/internal/middleware"
	"github.com/mmeshcher/shuttle-booking/internal/service"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type userMessageResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

// Register регистрирует пассажира. Новая учётная запись отдаёт 201, пароль для гостевой записи отдаёт 200.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, created, err := h.service.Register(r.Context(), middleware.ClientIP(r), service.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, "register user", err)
		return
	}

	if created {
		h.writeJSON(w, http.StatusCreated, userMessageResponse{Message: "Account created successfully", User: toUserResponse(*u)})
		return
	}
	h.writeJSON(w, http.StatusOK, userMessageResponse{Message: "Password added to your existing account", User: toUserResponse(*u)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginVerify проверяет email и пароль пассажира.
func (h *Handler) LoginVerify(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := h.service.VerifyLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "verify login", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]userResponse{"user": toUserResponse(*u)})
}

// CheckUser сообщает, зарегистрирован ли email.
func (h *Handler) CheckUser(w http.ResponseWriter, r *http.Request) {
	exists, err := h.service.CheckUser(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.logger.Warn("check user error", zap.Error(err))
		exists = false
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string        `json:"token"`
	Admin adminResponse `json:"admin"`
}

// AdminLogin выдаёт токен администратора в теле ответа и в cookie.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	admin, err := h.service.AuthenticateAdmin(r.Context(), middleware.ClientIP(r), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, "authenticate admin", err)
		return
	}

	token, err := h.authMiddleware.SetAuthCookie(w, admin.ID, admin.Role)
	if err != nil {
		h.writeError(w, r, "issue admin token", err)
		return
	}

	h.writeJSON(w, http.StatusOK, adminLoginResponse{Token: token, Admin: toAdminResponse(*admin)})
}

type adminSetupRequest struct {
	SetupKey string `json:"setupKey"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminSetup создаёт первого администратора.
func (h *Handler) AdminSetup(w http.ResponseWriter, r *http.Request) {
	var req adminSetupRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	admin, err := h.service.SetupAdmin(r.Context(), middleware.ClientIP(r), service.AdminSetupRequest{
		SetupKey: req.SetupKey,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, "setup admin", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Admin account created successfully",
		"admin":   toAdminResponse(*admin),
	})
}

// AdminLogout удаляет cookie администратора.
func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
