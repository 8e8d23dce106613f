package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"roombook/config"
	"roombook/infras/jwt"
	"roombook/infras/otel"
	"roombook/shared/constant"
	"roombook/shared/failure"
	"roombook/transport/http/response"
)

// Auth identifies the caller. Users sign in through an external gate whose
// bearer tokens are verified here. Admins hold the API key.
type Auth interface {
	Identify(next http.Handler) http.Handler
	APIKey(next http.Handler) http.Handler
}

type authImpl struct {
	otel       otel.Otel
	cfg        *config.Config
	jwtService jwt.JWT
}

func NewAuthMiddleware(otel otel.Otel, cfg *config.Config, jwtService jwt.JWT) Auth {
	return &authImpl{
		otel:       otel,
		cfg:        cfg,
		jwtService: jwtService,
	}
}

// Identify stores the caller in the context. A valid API key makes the caller
// admin, a valid bearer token makes it the token's user, and anyone else is a
// guest. A bearer token that fails verification is rejected with 401.
func (m *authImpl) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		user := constant.ContextGuest

		switch authHeader := request.Header.Get(constant.RequestHeaderAuthorization); {
		case m.validKey(request.Header.Get(constant.RequestHeaderAPIKey)):
			user = constant.ContextAdmin
		case authHeader != "" && m.jwtService.Enabled():
			identity, err := m.verify(request.Context(), authHeader)
			if err != nil {
				response.WithError(writer, err)

				return
			}

			user = identity
		}

		ctx := context.WithValue(request.Context(), constant.ContextKeyUserID, user)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

func (m *authImpl) verify(ctx context.Context, authHeader string) (string, error) {
	_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "identify.middleware")
	defer scope.End()

	tokenString, err := jwt.ExtractTokenFromHeader(authHeader)
	if err != nil {
		err = failure.Unauthorized("Invalid authorization header format")
		scope.TraceError(err)

		return "", err
	}

	claims, err := m.jwtService.ValidateToken(tokenString)
	if err != nil {
		var message string

		switch {
		case errors.Is(err, jwt.ErrExpiredToken):
			message = "Token has expired"
		case errors.Is(err, jwt.ErrInvalidClaim):
			message = "Invalid token claims"
		default:
			message = "Invalid token"
		}

		err = failure.Unauthorized(message)
		scope.TraceError(err)

		return "", err
	}

	// The role labels are reserved so a token cannot pose as the API key holder.
	identity := claims.Identity()
	if identity == constant.ContextAdmin || identity == constant.ContextGuest {
		err = failure.Unauthorized("Invalid token claims")
		scope.TraceError(err)

		return "", err
	}

	return identity, nil
}

// APIKey guards admin routes. A missing key is 401 and a wrong key is 403.
// Every request is refused while no key is configured.
func (m *authImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "api_key.middleware")
		defer scope.End()

		apiKey := request.Header.Get(constant.RequestHeaderAPIKey)

		if apiKey == "" {
			err := failure.Unauthorized("missing API key")
			scope.TraceError(err)
			response.WithError(writer, err)

			return
		}

		if !m.validKey(apiKey) {
			err := failure.Forbidden("invalid API key")
			scope.TraceError(err)
			response.WithError(writer, err)

			return
		}

		ctx = context.WithValue(ctx, constant.ContextKeyUserID, constant.ContextAdmin)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

func (m *authImpl) validKey(key string) bool {
	configured := m.cfg.App.APIKey
	if configured == "" || key == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(key), []byte(configured)) == 1
}
