package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hsm-gustavo/todo-go/internal/api/middleware"
	"github.com/hsm-gustavo/todo-go/internal/api/request"
	"github.com/hsm-gustavo/todo-go/internal/api/response"
	"github.com/hsm-gustavo/todo-go/internal/api/user"
	"github.com/hsm-gustavo/todo-go/internal/db"
	"github.com/hsm-gustavo/todo-go/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Request/Response structures

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,max=254" example:"joao@example.com"`
	Password string  `json:"password" validate:"required,min=8,max=72" example:"longenough1"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=255" example:"João Silva"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required" example:"joao@example.com"`
	Password string `json:"password" validate:"required" example:"longenough1"`
}

type RegisterResponse struct {
	ID      string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Message string `json:"message" example:"User registered successfully"`
}

type AuthResponse struct {
	Token     string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType string `json:"token_type" example:"Bearer"`
	ExpiresIn int64  `json:"expires_in" example:"3600"`
}

type AuthHandler struct {
	service *AuthService
}

func NewAuthHandler(service *AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register godoc
// @Summary		Register a new user
// @Description	Register a new user account with email and password
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			user	body		RegisterRequest		true	"User registration data"
// @Success		201		{object}	RegisterResponse	"User registered successfully"
// @Failure		400		{object}	response.ErrorResponse	"Bad request - invalid input"
// @Failure		409		{object}	response.ErrorResponse	"Conflict - user already exists"
// @Failure		503		{object}	response.ErrorResponse	"Store unavailable"
// @Router			/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Email = request.NormalizeEmail(req.Email)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
		if name == "" {
			req.Name = nil
		}
	}
	if err := request.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		response.WriteError(w, r, response.Validation("password is required"))
		return
	}

	digest, err := HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			response.WriteError(w, r, response.Validation("password must be at most 72 bytes long"))
			return
		}
		response.WriteError(w, r, response.Internal("Error processing password", err))
		return
	}

	u := &db.User{
		Email:          req.Email,
		PasswordDigest: digest.String(),
		Name:           req.Name,
	}
	store := middleware.StoreFromContext(r.Context())
	if err := user.NewUserService(store).CreateUser(r.Context(), u); err != nil {
		metrics.RecordAuthAttempt("register", false)
		if errors.Is(err, db.ErrConflict) {
			response.WriteError(w, r, response.Conflict("A user with this email already exists"))
			return
		}
		response.WriteError(w, r, response.Internal("Error creating user account", err))
		return
	}
	metrics.RecordAuthAttempt("register", true)

	response.JSON(w, http.StatusCreated, RegisterResponse{
		ID:      u.ID,
		Message: "User registered successfully",
	})
}

// Login godoc
// @Summary		User login
// @Description	Authenticate user and return a bearer token
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			credentials	body		LoginRequest	true	"User login credentials"
// @Success		200			{object}	AuthResponse	"Login successful"
// @Failure		400			{object}	response.ErrorResponse	"Bad request - invalid input"
// @Failure		401			{object}	response.ErrorResponse	"Unauthorized - invalid credentials"
// @Failure		500			{object}	response.ErrorResponse	"Token signing misconfigured"
// @Failure		503			{object}	response.ErrorResponse	"Store unavailable"
// @Router			/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Email = request.NormalizeEmail(req.Email)
	if err := request.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	invalid := &response.Error{Kind: response.KindUnauthenticated, Message: "Email or password is incorrect"}

	store := middleware.StoreFromContext(r.Context())
	users := user.NewUserService(store)
	u, err := users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			verifyUnknownUser(req.Password)
			metrics.RecordAuthAttempt("login", false)
			response.WriteError(w, r, invalid)
			return
		}
		response.WriteError(w, r, response.Internal("Error retrieving user", err))
		return
	}

	digest := ParseDigest(u.PasswordDigest)
	if !digest.Verify(req.Password) {
		metrics.RecordAuthAttempt("login", false)
		response.WriteError(w, r, invalid)
		return
	}
	if isLegacy(digest) {
		h.upgradeDigest(r, users, u, req.Password)
	}

	token, _, err := h.service.GenerateJWT(u)
	if err != nil {
		if errors.Is(err, ErrMisconfigured) {
			response.WriteError(w, r, response.Misconfigured(err))
			return
		}
		response.WriteError(w, r, response.Internal("Error generating access token", err))
		return
	}
	metrics.RecordAuthAttempt("login", true)

	response.JSON(w, http.StatusOK, AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.service.TTL.Seconds()),
	})
}

// upgradeDigest replaces a legacy plaintext credential with a bcrypt digest.
// Failure does not fail the login; the record is retried on the next one.
func (h *AuthHandler) upgradeDigest(r *http.Request, users *user.UserService, u *db.User, password string) {
	log := zerolog.Ctx(r.Context())

	digest, err := HashPassword(password)
	if err != nil {
		log.Warn().Err(err).Str("user_id", u.ID).Msg("could not hash legacy credential")
		return
	}
	u.PasswordDigest = digest.String()
	if err := users.UpdatePasswordDigest(r.Context(), u); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID).Msg("could not upgrade legacy credential")
		return
	}
	log.Info().Str("user_id", u.ID).Msg("upgraded legacy plaintext credential")
}
