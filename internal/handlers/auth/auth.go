package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/dto"
	"github.com/GlebRadaev/payledger/internal/handlers/httperr"
	"github.com/GlebRadaev/payledger/pkg/money"
	"github.com/GlebRadaev/payledger/pkg/utils"
)

type Service interface {
	Register(ctx context.Context, email, password string) (*domain.Account, error)
	Authenticate(ctx context.Context, email, password string) (*domain.Account, error)
	GenerateToken(accountID int) (string, error)
}

type AuthHandler struct {
	authService Service
}

func New(authService Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register godoc
//
//	@Summary		Register a new account
//	@Description	Create an account with email and password and open a session
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.RegisterRequestDTO	true	"Register request body"
//	@Success		201		{object}	dto.AuthResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		409		{object}	utils.Response	"Account already exists"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/user/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	account, err := h.authService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	h.respondWithSession(w, http.StatusCreated, account)
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Check the credentials and return a session token valid for one hour
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.LoginRequestDTO	true	"Login request body"
//	@Success		200		{object}	dto.AuthResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Invalid credentials"
//	@Failure		429		{object}	utils.Response	"Too many login attempts"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/user/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	account, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	h.respondWithSession(w, http.StatusOK, account)
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, status int, account *domain.Account) {
	token, err := h.authService.GenerateToken(account.ID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error generating token")
		return
	}
	w.Header().Set("Authorization", "Bearer "+token)
	utils.RespondWithJSON(w, status, dto.AuthResponseDTO{
		Token:   token,
		UserID:  account.ID,
		Email:   account.Email,
		Balance: json.Number(money.Format(account.Balance)),
	})
}
