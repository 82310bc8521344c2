package services

import (
	"errors"
	"time"

	"github.com/mek0124/momentum/internal/apperror"
	"github.com/mek0124/momentum/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenService mints and validates the bearer tokens that carry a user ID
// as subject. Verification collapses every failure mode (malformed token,
// wrong signature, wrong algorithm, elapsed expiry, bad subject) into a
// single Unauthenticated error so callers cannot tell which check failed.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

func (s *TokenService) Issue(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperror.Wrap(apperror.Internal, "failed to sign token", err)
	}
	return signed, nil
}

func (s *TokenService) Verify(tokenStr string) (uuid.UUID, error) {
	invalid := apperror.New(apperror.Unauthenticated, "could not validate credentials")

	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return uuid.Nil, invalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, invalid
	}

	subject, err := uuid.FromString(claims.Subject)
	if err != nil || subject == uuid.Nil {
		return uuid.Nil, invalid
	}
	return subject, nil
}

type AuthService interface {
	Login(db *gorm.DB, username, password string) (*models.User, error)
}

type AuthServiceImpl struct {
	bcryptCost int
}

func NewAuthService(bcryptCost int) *AuthServiceImpl {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthServiceImpl{bcryptCost: bcryptCost}
}

// Login resolves credentials to a user. Unknown username and wrong
// password produce the identical error so account existence never leaks.
func (s *AuthServiceImpl) Login(db *gorm.DB, username, password string) (*models.User, error) {
	badCredentials := apperror.New(apperror.Unauthenticated, "incorrect username or password")

	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, badCredentials
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to look up user", err)
	}

	if !VerifyPassword(user.PasswordHash, password) {
		return nil, badCredentials
	}
	return &user, nil
}

func (s *AuthServiceImpl) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", apperror.Wrap(apperror.Internal, "failed to hash password", err)
	}
	return string(hash), nil
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword)) == nil
}
