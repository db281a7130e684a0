package user

import (
	"errors"
	"net/http"

	"github.com/hsm-gustavo/todo-go/internal/api/middleware"
	"github.com/hsm-gustavo/todo-go/internal/api/request"
	"github.com/hsm-gustavo/todo-go/internal/api/response"
	"github.com/hsm-gustavo/todo-go/internal/db"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

type ProfileResponse struct {
	User *db.User `json:"user"`
}

type UpdateProfileRequest struct {
	Name  *string                  `json:"name" validate:"omitempty,max=255" example:"João Silva"`
	Email request.Optional[string] `json:"email,omitempty" swaggertype:"string"`
}

type UpdateProfileResponse struct {
	Message string   `json:"message" example:"Profile updated"`
	User    *db.User `json:"user"`
}

// GetProfile godoc
// @Summary		Get profile
// @Description	Returns the authenticated user's profile without the password digest
// @Tags			profile
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	ProfileResponse
// @Failure		401	{object}	response.ErrorResponse	"Unauthorized"
// @Failure		404	{object}	response.ErrorResponse	"Profile not found"
// @Failure		503	{object}	response.ErrorResponse	"Store unavailable"
// @Router			/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.loadProfile(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, ProfileResponse{User: u})
}

// UpdateProfile godoc
// @Summary		Update profile
// @Description	Updates the display name. Email is the account key and cannot change.
// @Tags			profile
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			profile	body		UpdateProfileRequest	true	"Fields to update"
// @Success		200		{object}	UpdateProfileResponse
// @Failure		400		{object}	response.ErrorResponse	"Empty name or email change"
// @Failure		401		{object}	response.ErrorResponse	"Unauthorized"
// @Failure		404		{object}	response.ErrorResponse	"Profile not found"
// @Failure		500		{object}	response.ErrorResponse	"Internal server error"
// @Router			/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.loadProfile(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if req.Email.Set && (req.Email.Value == nil || request.NormalizeEmail(*req.Email.Value) != u.Email) {
		response.WriteError(w, r, response.Immutable("Email change is not allowed. Contact support for an account migration."))
		return
	}

	if req.Name != nil {
		name, ok := request.Trimmed(*req.Name)
		if !ok {
			response.WriteError(w, r, response.Validation("name cannot be empty"))
			return
		}
		req.Name = &name
		if err := request.Validate(req); err != nil {
			response.WriteError(w, r, err)
			return
		}
		u.Name = &name
	}

	store := middleware.StoreFromContext(r.Context())
	if err := NewUserService(store).UpdateName(r.Context(), u); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			response.WriteError(w, r, response.NotFound("User profile not found"))
			return
		}
		response.WriteError(w, r, response.Internal("Error updating profile", err))
		return
	}

	response.JSON(w, http.StatusOK, UpdateProfileResponse{
		Message: "Profile updated",
		User:    u,
	})
}

// loadProfile reads the caller's own record, addressed by the token's
// email (partition key) and subject.
func (h *Handler) loadProfile(r *http.Request) (*db.User, error) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return nil, response.Unauthenticated()
	}
	store := middleware.StoreFromContext(r.Context())
	if store == nil {
		return nil, response.Unavailable(db.ErrUnavailable)
	}

	u, err := NewUserService(store).GetUser(r.Context(), claims.Email, claims.Subject)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, response.NotFound("User profile not found")
		}
		return nil, response.Internal("Error retrieving profile", err)
	}
	return u, nil
}
