package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bibliotek/backend/internal/auth"
	repstore "github.com/bibliotek/backend/internal/database/reputation"
	"github.com/bibliotek/backend/internal/database/users"
	"github.com/bibliotek/backend/internal/reputation"
)

// AccountRemover deletes a user together with their reputation state. The
// reputation service implements it so the cascade runs under the same
// per-user lock that serializes awards.
type AccountRemover interface {
	DeleteAccount(userID uint) error
}

// RegisterRequest carries a new account's credentials.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse returns the created account and its API token. The
// token is shown exactly once; only its hash is stored.
type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

type UsersController struct {
	users      *users.Repository
	accounts   AccountRemover
	bcryptCost int
}

func NewUsersController(userRepo *users.Repository, accounts AccountRemover, bcryptCost int) *UsersController {
	return &UsersController{
		users:      userRepo,
		accounts:   accounts,
		bcryptCost: bcryptCost,
	}
}

// Register creates a new account and returns its API token.
func (u *UsersController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username, email and password are required")
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		respondBadRequest(c, "password is too short")
		return
	}

	hash, err := auth.HashPassword(req.Password, u.bcryptCost)
	if err != nil {
		respondInternalError(c, err, "hash password")
		return
	}

	user, token, err := u.users.CreateUser(req.Username, req.Email, hash)
	if err != nil {
		if repstore.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "username or email already taken"})
			return
		}
		respondInternalError(c, err, "create user")
		return
	}

	respondCreated(c, RegisterResponse{
		ID:       user.PublicID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	})
}

// Delete removes an account and everything attached to it. The cascade runs
// through the reputation service so it is serialized against in-flight
// awards for the same user.
func (u *UsersController) Delete(c *gin.Context) {
	publicID := c.Param("id")

	user, err := u.users.GetByPublicID(publicID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "lookup user")
		return
	}

	if err := u.accounts.DeleteAccount(user.ID); err != nil {
		if errors.Is(err, reputation.ErrUserNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "delete account")
		return
	}

	c.Status(http.StatusNoContent)
}
