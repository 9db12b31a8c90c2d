package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
)

type failedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func Auth(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).
				With().
				Str(constants.KEY_TAG, "middleware Auth").
				Logger()
			c := logger.WithContext(r.Context())

			authorization := r.Header.Get(inHttp.KEY_HEADER_AUTHORIZATION)
			scheme, token, found := strings.Cut(authorization, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteJsonResponse(c, w, nil, http.StatusUnauthorized, failedResponse{
					Message: inErrors.ErrEmptyAuth.Error(),
				})
				return
			}

			if _, err := auth.VerifyToken(c, token, secret); err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteJsonResponse(c, w, nil, http.StatusUnauthorized, failedResponse{
					Message: inErrors.ErrTokenInvalid.Error(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
