package handler

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionClaims are the caller identifiers carried in the session cookie.
type sessionClaims struct {
	CompanyID  uuid.UUID
	EmployeeID uuid.UUID
}

// claimsFromCookie extracts the cid/eid claims from the JWT session
// cookie. The token is parsed without signature verification: the cookie
// is issued and verified upstream, this service only reads the claims.
func claimsFromCookie(r *http.Request, cookieName string) (sessionClaims, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return sessionClaims{}, false
	}

	token, _, err := jwt.NewParser().ParseUnverified(cookie.Value, jwt.MapClaims{})
	if err != nil {
		return sessionClaims{}, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return sessionClaims{}, false
	}

	companyID, ok := uuidClaim(claims, "cid")
	if !ok {
		return sessionClaims{}, false
	}
	employeeID, ok := uuidClaim(claims, "eid")
	if !ok {
		return sessionClaims{}, false
	}
	return sessionClaims{CompanyID: companyID, EmployeeID: employeeID}, true
}

func uuidClaim(claims jwt.MapClaims, name string) (uuid.UUID, bool) {
	raw, ok := claims[name].(string)
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
