package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/account"
)

const (
	contextTokenKey   = "accountToken"
	contextAccountKey = "account"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt  int64    `json:"oriat,omitempty"`
	Address       string   `json:"address,omitempty"`
	Email         string   `json:"email,omitempty"`
	IsAuthority   bool     `json:"is_authority,omitempty"`
	IsInstitution bool     `json:"is_institution,omitempty"`
	IsStudent     bool     `json:"is_student,omitempty"`
	Roles         []string `json:"roles,omitempty"`
}

// GetAccountClaims returns the claims of acc, keeping origIat when a token is refreshed.
func GetAccountClaims(acc account.Account, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   acc.ID,
			Audience:  "Registry",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:  oriat,
		Address:       acc.Address,
		Email:         acc.Email,
		IsAuthority:   acc.IsAuthority(),
		IsInstitution: acc.IsInstitution(),
		IsStudent:     acc.IsStudent(),
		Roles:         acc.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf      *core.Config
	accounts  *account.Service
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, accounts *account.Service) *authenticator {
	return &authenticator{
		conf:     conf,
		accounts: accounts,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

func (a *authenticator) authenticate(ctx context.Context, email, pwd string) (*Claims, error) {
	acc, err := a.accounts.Authenticate(ctx, email, pwd)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "authenticating account")
	}
	if !acc.IsActive {
		return nil, errAccountDeactivated
	}
	acc, err = a.accounts.SetLastLogin(ctx, acc)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetAccountClaims(acc, a.conf), nil
}

func (a *authenticator) token(claims *Claims) (string, error) {
	return GenerateToken(claims, a.conf.SecretKey)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextAccount loads the account of the request token once per request.
func (a *authenticator) contextAccount(ctx echo.Context) (account.Account, error) {
	if acc, ok := ctx.Get(contextAccountKey).(account.Account); ok {
		return acc, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return account.Account{}, err
	}
	acc, err := a.accounts.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return account.Account{}, errUnauthorized
		}
		return account.Account{}, errors.Wrap(err, "finding account by ID")
	}
	if !acc.IsActive {
		return account.Account{}, errAccountDeactivated
	}
	ctx.Set(contextAccountKey, acc)
	return acc, nil
}

// actor is the acting account of a write request.
func (a *authenticator) actor(ctx echo.Context) (core.Actor, error) {
	acc, err := a.contextAccount(ctx)
	if err != nil {
		return core.Actor{}, err
	}
	return acc.Actor(), nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	acc, err := a.contextAccount(ctx)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.token(GetAccountClaims(acc, a.conf, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
