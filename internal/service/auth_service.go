package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/internal/repository"
	"wiyata.com/edurecords/pkg/apperror"
)

type AuthService interface {
	Login(ctx context.Context, usernameOrEmail, password string) (string, *model.User, error)
}

type authService struct {
	uow    *repository.Factory
	secret string
}

func NewAuthService(uow *repository.Factory) (AuthService, error) {
	if uow == nil {
		return nil, fmt.Errorf("%w: nil unit of work factory", apperror.ErrInvalidArgument)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "12345"
	}

	return &authService{uow: uow, secret: secret}, nil
}

func (s *authService) Login(ctx context.Context, usernameOrEmail, password string) (string, *model.User, error) {
	uow := s.uow.New()
	defer uow.Close()

	user, err := uow.Users.FindFirst(ctx, repository.NewFilter().
		Where("username = ? OR email = ?", usernameOrEmail, usernameOrEmail))
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, apperror.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperror.ErrUnauthorized
	}

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}
