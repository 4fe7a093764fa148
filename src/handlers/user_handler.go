package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avinm/ledgerdesk/src/config"
	"github.com/avinm/ledgerdesk/src/database"
	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/portfolio"
	"github.com/avinm/ledgerdesk/src/security"
	"github.com/avinm/ledgerdesk/src/security/validation"
	"github.com/avinm/ledgerdesk/src/services"
	"github.com/avinm/ledgerdesk/src/utils"
)

var passwordRegex = regexp.MustCompile(`^.{6,}$`)

// UserHandler owns registration, login and session lifecycle. This is a
// single-owner application: registration closes permanently after the first
// account is created.
type UserHandler struct {
	authService *security.AuthService
	vault       *services.VaultService
}

func NewUserHandler(authService *security.AuthService, vaultService *services.VaultService) *UserHandler {
	return &UserHandler{authService: authService, vault: vaultService}
}

// handleServiceError maps service-layer failures onto HTTP statuses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validation.ErrValidationFailed):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, "Record not found", http.StatusNotFound)
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, portfolio.ErrInsufficientQuantity):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, portfolio.ErrInvalidTrade):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrProtectedAccount):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrVaultLocked),
		errors.Is(err, services.ErrTOTPRequired),
		errors.Is(err, services.ErrTOTPInvalid):
		utils.SendJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrSyncDisabled):
		utils.SendJSONError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logger.FromContext(r.Context()).Error("Unhandled service error", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	credentials.Username = validation.SanitizeText(strings.TrimSpace(credentials.Username))
	credentials.Password = strings.TrimSpace(credentials.Password)

	if credentials.Username == "" {
		utils.SendJSONError(w, "Username is required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(credentials.Username, 50, "Username"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !passwordRegex.MatchString(credentials.Password) {
		utils.SendJSONError(w, "Password must be at least 6 characters long", http.StatusBadRequest)
		return
	}

	count, err := model.CountUsers(database.DB)
	if err != nil {
		logger.L.Error("Error counting users during registration", "error", err)
		utils.SendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}
	if count > 0 {
		utils.SendJSONError(w, "An owner account already exists", http.StatusConflict)
		return
	}

	hashedPassword, err := h.authService.HashPassword(credentials.Password)
	if err != nil {
		logger.L.Error("Failed to hash password", "error", err)
		utils.SendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	userID, err := model.CreateUser(database.DB, credentials.Username, hashedPassword)
	if err != nil {
		logger.L.Error("Failed to create user", "error", err)
		utils.SendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	if err := model.SeedDefaultCategories(database.DB); err != nil {
		logger.L.Warn("Failed to seed default categories", "error", err)
	}

	logger.L.Info("Owner account registered", "userID", userID, "username", credentials.Username)
	utils.SendJSON(w, map[string]string{"message": "Registration successful. You can now log in."}, http.StatusCreated)
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(database.DB, strings.TrimSpace(credentials.Username))
	if err != nil || !h.authService.CheckPassword(user.Password, credentials.Password) {
		logger.FromContext(r.Context()).Warn("Login failed", "username", credentials.Username)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	userIDStr := strconv.FormatInt(user.ID, 10)
	accessToken, err := h.authService.GenerateToken(userIDStr)
	if err != nil {
		logger.L.Error("Failed to generate access token", "error", err)
		utils.SendJSONError(w, "Failed to process login", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate refresh token", "error", err)
		utils.SendJSONError(w, "Failed to process login", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		logger.L.Error("Failed to create session", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to process login", http.StatusInternalServerError)
		return
	}

	if err := model.RecordLogin(database.DB, user.ID); err != nil {
		logger.L.Warn("Failed to record login stats", "userID", user.ID, "error", err)
	}

	utils.SendJSON(w, map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"username":      user.Username,
		"syncId":        user.SyncID,
		"autoSync":      user.AutoSync,
	}, http.StatusOK)
}

// RefreshTokenHandler rotates the session: the old refresh token is spent
// and a fresh token pair issued.
func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if requestBody.RefreshToken == "" {
		utils.SendJSONError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	oldSession, err := model.GetSessionByRefreshToken(database.DB, requestBody.RefreshToken)
	if err != nil || oldSession.IsBlocked || time.Now().After(oldSession.ExpiresAt) {
		utils.SendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	if err := model.DeleteSessionByToken(database.DB, oldSession.Token); err != nil {
		logger.L.Error("Failed to delete old session during refresh", "error", err)
	}

	userIDStr := strconv.FormatInt(oldSession.UserID, 10)
	newAccessToken, err := h.authService.GenerateToken(userIDStr)
	if err != nil {
		logger.L.Error("Failed to generate access token on refresh", "error", err)
		utils.SendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}
	newRefreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate refresh token on refresh", "error", err)
		utils.SendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}

	newSession := &model.Session{
		UserID:       oldSession.UserID,
		Token:        newAccessToken,
		RefreshToken: newRefreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, newSession); err != nil {
		logger.L.Error("Failed to create refreshed session", "error", err)
		utils.SendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]string{
		"access_token":  newAccessToken,
		"refresh_token": newRefreshToken,
	}, http.StatusOK)
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
		logger.FromContext(r.Context()).Warn("Failed to delete session on logout", "error", err)
	}
	utils.SendJSON(w, map[string]string{"message": "Logged out"}, http.StatusOK)
}

func (h *UserHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !passwordRegex.MatchString(requestBody.NewPassword) {
		utils.SendJSONError(w, "New password must be at least 6 characters long", http.StatusBadRequest)
		return
	}

	userID, ok := r.Context().Value(userIDContextKey).(int64)
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !h.authService.CheckPassword(user.Password, requestBody.CurrentPassword) {
		utils.SendJSONError(w, "Current password is incorrect", http.StatusForbidden)
		return
	}

	// The login password keys the vault: reseal before the hash changes.
	if err := h.vault.RekeySecrets(r.Context(), requestBody.CurrentPassword, requestBody.NewPassword); err != nil {
		logger.L.Error("Failed to rekey vault secrets", "error", err)
		utils.SendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}

	newHash, err := h.authService.HashPassword(requestBody.NewPassword)
	if err != nil {
		logger.L.Error("Failed to hash new password", "error", err)
		utils.SendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	if err := model.UpdatePassword(database.DB, userID, newHash); err != nil {
		handleServiceError(w, r, err)
		return
	}
	// Password changes invalidate every other session.
	if err := model.DeleteSessionsForUser(database.DB, userID); err != nil {
		logger.L.Warn("Failed to clear sessions after password change", "error", err)
	}

	logger.FromContext(r.Context()).Info("Password changed")
	utils.SendJSON(w, map[string]string{"message": "Password changed. Please log in again."}, http.StatusOK)
}
