package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hardhat-shell/internal/middleware"
	"hardhat-shell/internal/model"
	"hardhat-shell/internal/store"
)

type UserHandler struct {
	Store *store.Store
}

type userBody struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Role       string `json:"role"`
	Password   string `json:"password"`
	Active     *bool  `json:"isActive"`
}

func validRole(r model.Role) bool {
	switch r {
	case model.RoleAdmin, model.RoleTechnician, model.RoleSupervisor:
		return true
	}
	return false
}

func (h *UserHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.Store.ListUsers()})
}

func (h *UserHandler) Create(c *gin.Context) {
	var body userBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.Name == "" || body.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and email required"})
		return
	}
	role := model.Role(body.Role)
	if !validRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	active := true
	if body.Active != nil {
		active = *body.Active
	}

	user, err := h.Store.AddUser(store.UserInput{
		Name:       body.Name,
		Email:      body.Email,
		Phone:      body.Phone,
		Department: body.Department,
		Role:       role,
		Password:   body.Password,
		Active:     active,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User creation failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type userPatchBody struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
	Role       *string `json:"role"`
	Active     *bool   `json:"isActive"`
	Password   *string `json:"password"`
}

func (h *UserHandler) Update(c *gin.Context) {
	actorID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body userPatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	patch := store.UserPatch{
		Name:       body.Name,
		Email:      body.Email,
		Phone:      body.Phone,
		Department: body.Department,
		Active:     body.Active,
		Password:   body.Password,
	}
	if body.Role != nil {
		role := model.Role(*body.Role)
		if !validRole(role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		patch.Role = &role
	}

	user, err := h.Store.UpdateUser(actorID, c.Param("id"), patch)
	if err != nil {
		h.replyUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) Delete(c *gin.Context) {
	actorID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	if err := h.Store.RemoveUser(actorID, c.Param("id")); err != nil {
		h.replyUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *UserHandler) ToggleActive(c *gin.Context) {
	actorID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	user, err := h.Store.ToggleUserActive(actorID, c.Param("id"))
	if err != nil {
		h.replyUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) replyUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrSelfModification):
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot modify your own user record"})
	case errors.Is(err, store.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User update failed"})
	}
}
