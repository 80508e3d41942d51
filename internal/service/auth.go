package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rewear/swap-ledger/internal/models"
)

// AdminRole is the role claim that grants admin privileges
const AdminRole = "admin"

// AdminLogin checks the admin console credentials and issues a token with the admin role
func (s *DefaultService) AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.AuthResponse, error) {
	if len(s.adminPasswordHash) == 0 {
		return nil, ErrInvalidCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.adminUsername)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password
	passErr := bcrypt.CompareHashAndPassword(s.adminPasswordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		s.logger.Warn("failed admin login for %q", req.Username)
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateJWT("admin:"+req.Username, AdminRole)
	if err != nil {
		return nil, transient("sign token", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    "admin:" + req.Username,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// Helper methods
func (s *DefaultService) generateJWT(subject, role string) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  now.Add(s.tokenDuration).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
