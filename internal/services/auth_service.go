package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"vskmarket/internal/backend"
	"vskmarket/internal/models"

	"github.com/dgrijalva/jwt-go"
)

// AuthService handles login, sign-up and the local session.
type AuthService struct {
	api        AuthAPI
	store      *LocalStore
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which a session token is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(api AuthAPI, store *LocalStore, jwtSecret string, tokenDuration time.Duration) *AuthService {
	if tokenDuration <= 0 {
		tokenDuration = 30 * 24 * time.Hour
	}
	return &AuthService{
		api:        api,
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenDuration,
	}
}

// Register submits the sign-up form. On success the backend sends an OTP
// to the mobile number; the session is created by VerifyRegistration.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (backend.Result, error) {
	res, err := s.api.Register(ctx, req)
	if err != nil {
		return res, fmt.Errorf("registration failed: %w", err)
	}
	return res, nil
}

// VerifyRegistration confirms the OTP. When the backend returns the new
// user record the session is stored and a token issued; otherwise the
// caller has to log in.
func (s *AuthService) VerifyRegistration(ctx context.Context, mobile, otp string) (*models.Session, string, error) {
	res, err := s.api.RegisterOTP(ctx, mobile, otp)
	if err != nil {
		return nil, "", fmt.Errorf("otp verification failed: %w", err)
	}
	sess, err := decodeSession(res)
	if err != nil {
		log.Printf("Registration for %s verified without a user record", mobile)
		return nil, "", nil
	}
	return s.establish(*sess)
}

// Login authenticates against the backend. Only a successful reply carrying
// a user record is persisted.
func (s *AuthService) Login(ctx context.Context, mobileNo, password string) (*models.Session, string, error) {
	res, err := s.api.Login(ctx, mobileNo, password)
	if err != nil {
		return nil, "", fmt.Errorf("login failed: %w", err)
	}
	sess, err := decodeSession(res)
	if err != nil {
		return nil, "", err
	}
	if sess.MobileNo.String() == "" {
		sess.MobileNo = models.FlexString(mobileNo)
	}
	return s.establish(*sess)
}

// ForgotPassword triggers the backend's password reset message.
func (s *AuthService) ForgotPassword(ctx context.Context, mobileNo string) (backend.Result, error) {
	return s.api.ForgotPassword(ctx, mobileNo)
}

// Logout clears the session. The cart and guest id stay on the device.
func (s *AuthService) Logout() error {
	if err := s.store.ClearSession(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// CurrentSession returns the stored session.
func (s *AuthService) CurrentSession() (*models.Session, error) {
	return s.store.Session()
}

// ValidateToken parses a session token and checks it still belongs to the
// stored session, so logging out revokes it.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	sess, err := s.store.Session()
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if uid, _ := claims["user_id"].(string); uid != sess.UserID.String() {
		return nil, fmt.Errorf("invalid token: session changed")
	}
	return claims, nil
}

func (s *AuthService) establish(sess models.Session) (*models.Session, string, error) {
	token, err := s.issueToken(sess)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.SaveSession(sess); err != nil {
		return nil, "", fmt.Errorf("failed to persist session: %w", err)
	}
	return &sess, token, nil
}

func (s *AuthService) issueToken(sess models.Session) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   sess.UserID.String(),
		"mobile_no": sess.MobileNo.String(),
		"exp":       now.Add(s.tokenDurat).Unix(),
		"iat":       now.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

func decodeSession(res backend.Result) (*models.Session, error) {
	var sess models.Session
	if err := res.Decode(&sess, "data", "user", "userdata"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if !sess.Valid() {
		return nil, ErrMalformedSession
	}
	return &sess, nil
}
