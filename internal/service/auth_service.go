package service

import (
	"errors"
	"fmt"

	"draftly/config"
	"draftly/internal/auth"
	"draftly/internal/domain"
	"draftly/internal/models"
	"draftly/internal/repository"
	"draftly/pkg/mail"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidCreds    = errors.New("bad email or password")
	ErrAccountExists   = errors.New("account exists with a different login method")
	ErrUnknownProvider = errors.New("unknown oauth provider")
)

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
	tokens   *repository.TokenRepository
	mailer   mail.Sender
	log      *logrus.Logger
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository, tokens *repository.TokenRepository, mailer mail.Sender, log *logrus.Logger) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, tokens: tokens, mailer: mailer, log: log}
}

func (s *AuthService) Register(email, name, password string) (*models.User, error) {
	_, err := s.userRepo.GetByEmail(email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{Email: email, Name: name, PasswordHash: string(hash)}
	if err := s.userRepo.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Login(email, password string) (*models.User, string, string, error) {
	u, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrInvalidCreds
		}
		return nil, "", "", err
	}
	if u.PasswordHash == "" {
		// Social login only account.
		return nil, "", "", ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCreds
	}
	access, refresh, err := s.issueTokens(u)
	return u, access, refresh, err
}

// LoginWithProvider finds or creates a user for a verified social identity.
// An existing email account without this provider linked is refused rather
// than silently merged.
func (s *AuthService) LoginWithProvider(provider, socialID, email, name, image string) (*models.User, string, string, error) {
	if provider != domain.ProviderGoogle && provider != domain.ProviderApple {
		return nil, "", "", ErrUnknownProvider
	}
	u, err := s.userRepo.GetByProviderID(provider, socialID)
	if err == nil {
		access, refresh, err := s.issueTokens(u)
		return u, access, refresh, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}
	existing, err := s.userRepo.GetByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}
	if existing != nil {
		return nil, "", "", ErrAccountExists
	}
	u = &models.User{Email: email, Name: name, Image: image}
	sid := socialID
	switch provider {
	case domain.ProviderGoogle:
		u.GoogleID = &sid
	case domain.ProviderApple:
		u.AppleID = &sid
	}
	if err := s.userRepo.Create(u); err != nil {
		return nil, "", "", err
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "provider": provider}).Info("user created via oauth")
	access, refresh, err := s.issueTokens(u)
	return u, access, refresh, err
}

// Refresh rotates the token pair: the presented refresh token is revoked so
// it cannot be replayed.
func (s *AuthService) Refresh(refreshToken string) (string, string, error) {
	userID, jti, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return "", "", auth.ErrInvalidToken
	}
	if s.tokens.IsRevoked(jti) {
		return "", "", auth.ErrInvalidToken
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", "", auth.ErrInvalidToken
	}
	if err := s.tokens.Revoke(jti); err != nil {
		return "", "", err
	}
	return s.issueTokens(u)
}

// RevokeRefreshToken invalidates a refresh token by blocklisting its id.
func (s *AuthService) RevokeRefreshToken(refreshToken string) error {
	_, jti, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return auth.ErrInvalidToken
	}
	return s.tokens.Revoke(jti)
}

// Logout revokes a token id (access or refresh).
func (s *AuthService) Logout(jti string) error {
	if jti == "" {
		return nil
	}
	return s.tokens.Revoke(jti)
}

// ForgotPassword emails a reset link when the account exists. The caller must
// answer identically either way.
func (s *AuthService) ForgotPassword(email string) {
	u, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return
	}
	token, err := auth.GenerateResetToken(&s.cfg.JWT, u.ID)
	if err != nil {
		s.log.WithError(err).Error("reset token generation failed")
		return
	}
	resetURL := fmt.Sprintf("%s/reset-password/%s", s.cfg.Server.FrontendURL, token)
	if err := s.mailer.SendPasswordReset(u.Email, resetURL); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Error("password reset email failed")
	}
}

func (s *AuthService) ResetPassword(token, newPassword string) error {
	userID, err := auth.ParseResetToken(&s.cfg.JWT, token)
	if err != nil {
		return auth.ErrInvalidToken
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return auth.ErrInvalidToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.userRepo.Update(u)
}

func (s *AuthService) issueTokens(u *models.User) (string, string, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email)
	if err != nil {
		return "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
