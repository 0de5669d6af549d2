package core

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LookupFunc resolves an environment variable. os.Getenv satisfies it.
type LookupFunc func(string) string

// RequireCredentials reads the named variables on every call. Blank values are reported
// together, in input order. A JWT-shaped value whose exp claim has passed is rejected too.
func RequireCredentials(lookup LookupFunc, names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		v := strings.TrimSpace(lookup(name))
		if v == "" {
			missing = append(missing, name)
			continue
		}
		values[name] = v
	}
	if len(missing) > 0 {
		return nil, Invalid("Отсутствуют обязательные переменные окружения: %s", strings.Join(missing, ", "))
	}

	for _, name := range names {
		if expired(values[name], time.Now()) {
			return nil, Invalid("Истёк срок действия токена в переменной окружения %s", name)
		}
	}
	return values, nil
}

// expired reports whether token parses as a JWT carrying an exp before now.
// Opaque tokens are never expired.
func expired(token string, now time.Time) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(now)
}

// IsCredentialError reports whether err came from RequireCredentials.
func IsCredentialError(err error) bool {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	return strings.HasPrefix(verr.Message, "Отсутствуют обязательные") || strings.HasPrefix(verr.Message, "Истёк срок")
}
