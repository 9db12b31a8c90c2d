package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/otel"
)

// IssueToken signs an operator token accepted by VerifyToken.
func IssueToken(secret string, subject string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("secret key is empty")
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    constants.APP_STOREFRONT,
		Audience:  jwt.ClaimStrings{constants.AUDIENCE_OPERATOR},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed signing token with error=%w", err)
	}
	return token, nil
}

func VerifyToken(c context.Context, token string, secret string) (*jwt.Token, error) {
	c, span := otel.Tracer.Start(c, "VerifyToken")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "VerifyToken").
		Str(constants.KEY_PROCESS, "parsing claims").
		Logger()

	if secret == "" {
		err := fmt.Errorf("failed verifying token with error=%w", inErrors.ErrTokenInvalid)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg("secret key is not configured")
		return nil, inErrors.ErrTokenInvalid
	}

	logger.Trace().Msg("parsing claims")
	jwtToken, err := jwt.ParseWithClaims(token,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithAudience(constants.AUDIENCE_OPERATOR),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(constants.APP_STOREFRONT),
	)
	if err != nil {
		err = fmt.Errorf("failed parsing claims with error=%w", errors.Join(err, inErrors.ErrTokenInvalid))
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if !jwtToken.Valid {
		err = fmt.Errorf("failed validating token with error=%w", inErrors.ErrTokenInvalid)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Debug().Msg("verified token")

	return jwtToken, nil
}
