package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/xelth-com/mprgo/internal/models"
)

const (
	accessTokenTTL  = 12 * time.Hour
	refreshTokenTTL = 90 * 24 * time.Hour

	// TokenTypeRefresh marks refresh tokens, which are not accepted as access tokens
	TokenTypeRefresh = "refresh"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateTokens generates Access and Refresh tokens
func GenerateTokens(user *models.UserAuth, secret string) (string, string, error) {
	claims := jwt.MapClaims{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(accessTokenTTL).Unix(),
	}
	if user.ManagerID != nil {
		claims["managerID"] = *user.ManagerID
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}

	refreshClaims := jwt.MapClaims{
		"id":   user.ID,
		"type": TokenTypeRefresh,
		"exp":  time.Now().Add(refreshTokenTTL).Unix(),
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// TokenSubject returns the user id of a validated token and whether it is a refresh token
func TokenSubject(claims jwt.MapClaims) (string, bool, error) {
	id, _ := claims["id"].(string)
	if id == "" {
		return "", false, errors.New("token has no subject")
	}
	kind, _ := claims["type"].(string)
	return id, kind == TokenTypeRefresh, nil
}
