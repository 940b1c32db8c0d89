package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"prepmate/api/internal/models"
	"prepmate/api/internal/repositories"
	"prepmate/api/internal/utils"
)

const (
	accessTokenTTL  = 30 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// AuthHandler manages registration, login, token refresh and the caller's
// own profile.
type AuthHandler struct {
	Repo      UserRepository
	JWTSecret string
}

func NewAuthHandler(repo UserRepository, jwtSecret string) *AuthHandler {
	return &AuthHandler{Repo: repo, JWTSecret: jwtSecret}
}

type registerRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Username  string   `json:"username"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      string   `json:"role"`
	Level     string   `json:"level"`
	TechStack []string `json:"tech_stack"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "email and password are required.")
		return
	}
	if !utils.IsPasswordValid(req.Password) {
		utils.JSONError(w, http.StatusBadRequest, "Password must be at least 8 characters and contain a special character.")
		return
	}
	if req.Level != "" && !models.IsValidLevel(req.Level) {
		utils.JSONError(w, http.StatusBadRequest, "level must be one of JUNIOR_I, JUNIOR_II, MID, UPPER_MID, SENIOR.")
		return
	}

	if _, err := h.Repo.GetUserByEmail(email); err == nil {
		utils.JSONError(w, http.StatusConflict, "A user with that email already exists.")
		return
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		utils.JSONError(w, http.StatusInternalServerError, "Database error checking email.")
		return
	}

	// Optional username: stored as NULL when blank so uniqueness only
	// applies to real values.
	var username *string
	if trimmed := strings.TrimSpace(req.Username); trimmed != "" {
		if _, err := h.Repo.GetUserByUsername(trimmed); err == nil {
			utils.JSONError(w, http.StatusConflict, "A user with that username already exists.")
			return
		} else if !errors.Is(err, repositories.ErrUserNotFound) {
			utils.JSONError(w, http.StatusInternalServerError, "Database error checking username.")
			return
		}
		username = &trimmed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to hash password.")
		return
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Level:        req.Level,
		TechStack:    models.StackToJSON(req.TechStack),
	}
	if err := h.Repo.CreateUser(user); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to create user.")
		return
	}
	utils.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	user, err := h.Repo.GetUserByEmail(utils.NormalizeEmail(req.Email))
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	h.writeTokenPair(w, user)
}

func (h *AuthHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		utils.JSONError(w, http.StatusBadRequest, "refresh token is required.")
		return
	}

	claims, err := utils.ParseToken(req.Refresh, h.JWTSecret)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid refresh token.")
		return
	}
	if purpose, _ := claims["type"].(string); purpose != "refresh" {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid refresh token.")
		return
	}
	userID, err := utils.GetUserIDFromClaims(claims)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid refresh token.")
		return
	}
	user, err := h.Repo.GetUserByID(userID)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid refresh token.")
		return
	}

	h.writeTokenPair(w, user)
}

func (h *AuthHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

type meUpdateRequest struct {
	Username  *string   `json:"username"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Role      *string   `json:"role"`
	Level     *string   `json:"level"`
	TechStack *[]string `json:"tech_stack"`
}

func (h *AuthHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req meUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}
	if req.Level != nil && *req.Level != "" && !models.IsValidLevel(*req.Level) {
		utils.JSONError(w, http.StatusBadRequest, "level must be one of JUNIOR_I, JUNIOR_II, MID, UPPER_MID, SENIOR.")
		return
	}

	if req.Username != nil {
		if trimmed := strings.TrimSpace(*req.Username); trimmed != "" {
			user.Username = &trimmed
		} else {
			user.Username = nil
		}
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Level != nil {
		user.Level = *req.Level
	}
	if req.TechStack != nil {
		user.TechStack = models.StackToJSON(*req.TechStack)
	}

	if err := h.Repo.SaveUser(user); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to update profile.")
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, err := utils.VerifyToken(r, h.JWTSecret)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Authentication required.")
		return nil, false
	}
	userID, err := utils.GetUserIDFromClaims(claims)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Authentication required.")
		return nil, false
	}
	user, err := h.Repo.GetUserByID(userID)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Authentication required.")
		return nil, false
	}
	return user, true
}

func (h *AuthHandler) writeTokenPair(w http.ResponseWriter, user *models.User) {
	access, err := utils.SignAccessToken(user.ID, user.Email, h.JWTSecret, accessTokenTTL)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to sign token.")
		return
	}
	refresh, err := utils.SignRefreshToken(user.ID, h.JWTSecret, refreshTokenTTL)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to sign token.")
		return
	}
	utils.JSON(w, http.StatusOK, tokenPairResponse{Access: access, Refresh: refresh})
}
