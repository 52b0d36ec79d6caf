package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/satis-shop/satis-api/config"
	"github.com/satis-shop/satis-api/middleware"
	"github.com/satis-shop/satis-api/models"
	"github.com/satis-shop/satis-api/services"
	"go.uber.org/zap"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name  string `json:"name" binding:"omitempty"`
	Email string `json:"email" binding:"omitempty,email"`
}

// CreateUser handles POST /api/v1/users - creates a new user from Auth0 userinfo.
// The role comes from the token's role claim and defaults to customer.
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		errorJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Oturum bilgisi bulunamadı.")
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		errorJSON(c, http.StatusUnauthorized, "MISSING_TOKEN", "Erişim anahtarı bulunamadı.")
		return
	}

	userInfo, err := services.GetUserInfoFetcher().GetUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		middleware.Logger(c).Warn("auth0 userinfo failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "AUTH0_ERROR", "Kullanıcı bilgileri Auth0'dan alınamadı.")
		return
	}

	if userInfo.Email == "" {
		errorJSON(c, http.StatusBadRequest, "MISSING_EMAIL", "Auth0 e-posta adresi döndürmedi.")
		return
	}
	if userInfo.Name == "" {
		errorJSON(c, http.StatusBadRequest, "MISSING_NAME", "Auth0 kullanıcı adı döndürmedi.")
		return
	}

	role := models.RoleCustomer
	switch r := middleware.TokenRole(c); r {
	case models.RoleStaff, models.RoleAdmin:
		role = r
	}

	user := models.User{
		Auth0ID: auth0ID,
		Name:    userInfo.Name,
		Email:   userInfo.Email,
		Role:    role,
	}

	if err := config.GetDB().Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			errorJSON(c, http.StatusConflict, "USER_EXISTS", "Bu Auth0 hesabı veya e-posta ile kayıtlı bir kullanıcı zaten var.")
			return
		}
		middleware.Logger(c).Error("failed to create user", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "DATABASE_ERROR", "Kullanıcı oluşturulamadı.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetMyProfile handles GET /api/v1/users/me
func GetMyProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// UpdateMyProfile handles PUT /api/v1/users/me
func UpdateMyProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Geçersiz istek verisi.",
				"details": err.Error(),
			},
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    user,
		})
		return
	}

	db := config.GetDB()
	if err := db.Model(user).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			errorJSON(c, http.StatusConflict, "EMAIL_EXISTS", "Bu e-posta adresi başka bir kullanıcıya ait.")
			return
		}
		middleware.Logger(c).Error("failed to update user", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "DATABASE_ERROR", "Profil güncellenemedi.")
		return
	}

	var updated models.User
	if err := db.First(&updated, user.ID).Error; err != nil {
		errorJSON(c, http.StatusInternalServerError, "DATABASE_ERROR", "Güncellenen profil okunamadı.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}

// isUniqueViolation matches duplicate key errors from both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
