// Package auth implements registration, login, Google sign-in and JWT
// issuance.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/readlingo/bookreader/internal/app/domain/user"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/httputil"
	"github.com/readlingo/bookreader/pkg/logger"
)

// Validation and credential errors surfaced to the API layer.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidGoogleToken = errors.New("invalid google token")
)

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// Service handles authentication flows.
type Service struct {
	users    storage.UserStore
	tokens   *Tokens
	client   *httputil.Client
	clientID string
	infoURL  string
	log      *logger.Logger
}

// New constructs an auth service. googleClientID may be empty, which disables
// Google sign-in.
func New(users storage.UserStore, tokens *Tokens, client *httputil.Client, googleClientID string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if client == nil {
		client = httputil.NewClient(httputil.Config{Timeout: 10 * time.Second})
	}
	return &Service{
		users:    users,
		tokens:   tokens,
		client:   client,
		clientID: googleClientID,
		infoURL:  tokenInfoURL,
		log:      log,
	}
}

// Result is a user plus a freshly issued token pair.
type Result struct {
	User    user.User    `json:"user"`
	Profile user.Profile `json:"profile"`
	Tokens  TokenPair    `json:"tokens"`
}

// Register creates a user with a blank profile and returns tokens.
func (s *Service) Register(ctx context.Context, username, email, password, firstName, lastName string) (Result, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return Result{}, fmt.Errorf("username is required")
	}
	if email == "" {
		return Result{}, fmt.Errorf("email is required")
	}
	if len(password) < 8 {
		return Result{}, fmt.Errorf("password must be at least 8 characters")
	}

	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return Result{}, ErrUsernameTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return Result{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, user.User{
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: string(hash),
	})
	if err != nil {
		return Result{}, err
	}

	p, err := s.users.CreateProfile(ctx, user.Profile{UserID: u.ID})
	if err != nil {
		return Result{}, err
	}

	pair, err := s.tokens.IssuePair(u.ID, time.Now().UTC())
	if err != nil {
		return Result{}, err
	}

	s.log.WithField("user_id", u.ID).WithField("username", u.Username).Info("user registered")
	return Result{User: u, Profile: p, Tokens: pair}, nil
}

// Login verifies a username/password pair and returns tokens.
func (s *Service) Login(ctx context.Context, username, password string) (Result, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, err
	}
	if u.PasswordHash == "" {
		return Result{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Result{}, ErrInvalidCredentials
	}

	p, err := s.users.GetProfile(ctx, u.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Result{}, err
	}

	pair, err := s.tokens.IssuePair(u.ID, time.Now().UTC())
	if err != nil {
		return Result{}, err
	}
	return Result{User: u, Profile: p, Tokens: pair}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	access, err := s.tokens.sign(userID, typAccess, time.Now().UTC(), accessTTL)
	if err != nil {
		return "", err
	}
	return access, nil
}

// googleTokenInfo is the tokeninfo endpoint response.
type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// GoogleLogin verifies a Google ID token and signs the user in, linking or
// creating an account as needed.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (Result, error) {
	if s.clientID == "" {
		return Result{}, fmt.Errorf("google sign-in is not configured")
	}
	if strings.TrimSpace(idToken) == "" {
		return Result{}, ErrInvalidGoogleToken
	}

	var info googleTokenInfo
	endpoint := s.infoURL + "?id_token=" + url.QueryEscape(idToken)
	if err := s.client.GetJSON(ctx, endpoint, &info); err != nil {
		s.log.WithError(err).Warn("google token verification failed")
		return Result{}, ErrInvalidGoogleToken
	}
	if info.Aud != s.clientID || info.Sub == "" || info.Email == "" {
		return Result{}, ErrInvalidGoogleToken
	}

	u, p, err := s.resolveGoogleUser(ctx, info)
	if err != nil {
		return Result{}, err
	}

	pair, err := s.tokens.IssuePair(u.ID, time.Now().UTC())
	if err != nil {
		return Result{}, err
	}
	return Result{User: u, Profile: p, Tokens: pair}, nil
}

// resolveGoogleUser finds the account for a verified token: by google_id
// first, then by email (linking the profile), finally creating a new user.
func (s *Service) resolveGoogleUser(ctx context.Context, info googleTokenInfo) (user.User, user.Profile, error) {
	if p, err := s.users.GetProfileByGoogleID(ctx, info.Sub); err == nil {
		u, err := s.users.GetUser(ctx, p.UserID)
		if err != nil {
			return user.User{}, user.Profile{}, err
		}
		return u, p, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, user.Profile{}, err
	}

	if u, err := s.users.GetUserByEmail(ctx, info.Email); err == nil {
		p, err := s.linkProfile(ctx, u.ID, info)
		if err != nil {
			return user.User{}, user.Profile{}, err
		}
		return u, p, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, user.Profile{}, err
	}

	username, err := s.dedupeUsername(ctx, localPart(info.Email))
	if err != nil {
		return user.User{}, user.Profile{}, err
	}
	u, err := s.users.CreateUser(ctx, user.User{
		Username:  username,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
	})
	if err != nil {
		return user.User{}, user.Profile{}, err
	}
	p, err := s.users.CreateProfile(ctx, user.Profile{
		UserID:       u.ID,
		GoogleID:     info.Sub,
		AvatarURL:    info.Picture,
		IsGoogleUser: true,
	})
	if err != nil {
		return user.User{}, user.Profile{}, err
	}
	s.log.WithField("user_id", u.ID).Info("google user created")
	return u, p, nil
}

func (s *Service) linkProfile(ctx context.Context, userID string, info googleTokenInfo) (user.Profile, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.users.CreateProfile(ctx, user.Profile{
			UserID:       userID,
			GoogleID:     info.Sub,
			AvatarURL:    info.Picture,
			IsGoogleUser: true,
		})
	}
	if err != nil {
		return user.Profile{}, err
	}
	p.GoogleID = info.Sub
	p.IsGoogleUser = true
	if p.AvatarURL == "" {
		p.AvatarURL = info.Picture
	}
	return s.users.UpdateProfile(ctx, p)
}

// dedupeUsername appends a numeric suffix until the username is free.
func (s *Service) dedupeUsername(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "reader"
	}
	candidate := base
	for i := 1; ; i++ {
		_, err := s.users.GetUserByUsername(ctx, candidate)
		if errors.Is(err, storage.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
