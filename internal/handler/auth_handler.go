package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dozyo/internal/config"
	"github.com/dozyo/internal/db"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionUserIDKey = "user_id"

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register 创建账号并直接建立会话
func (a *API) Register(c *gin.Context) {
	var payload registerPayload
	if !bindJSON(c, &payload, "Invalid request body") {
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	password := strings.TrimSpace(payload.Password)
	if email == "" || password == "" {
		respondError(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	var existing db.User
	err := a.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		respondError(c, http.StatusBadRequest, "Email already registered")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		config.Logger.Errorf("register lookup failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		config.Logger.Errorf("hash password failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := db.User{
		Email:    email,
		Password: string(hashed),
		Name:     strings.TrimSpace(payload.Name),
	}
	if err := a.db.Create(&user).Error; err != nil {
		config.Logger.Errorf("create user failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !saveSessionUser(c, user.ID) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": userToPayload(user)})
}

// Login 校验邮箱密码并建立会话
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload, "Invalid request body") {
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	var user db.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !saveSessionUser(c, user.ID) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToPayload(user)})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		config.Logger.Errorf("clear session failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AuthRequired 校验会话并把用户 ID 放进请求上下文，
// 后续 handler 一律通过 currentUserID 显式取用。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		value := session.Get(sessionUserIDKey)
		userID, ok := value.(uint)
		if !ok || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

func saveSessionUser(c *gin.Context, userID uint) bool {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, userID)
	if err := session.Save(); err != nil {
		config.Logger.Errorf("save session failed: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return false
	}
	return true
}

func userToPayload(user db.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	}
}
