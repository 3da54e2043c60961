package auth_service

import (
	"fmt"
	"strconv"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
)

// PrincipalKind tells admins and parties apart inside a token
type PrincipalKind string

const (
	PrincipalAdmin PrincipalKind = "admin"
	PrincipalParty PrincipalKind = "party"
)

// TokenUse separates access tokens from refresh tokens signed with their own secrets
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// CreateToken from Claims to JWT
func CreateToken(claims jwt.MapClaims, secret string, duration int) (string, error) {
	now := time.Now()
	claims["iat"] = now.Unix()
	if duration != 0 {
		claims["exp"] = now.Add(time.Duration(duration) * time.Hour).Unix()
	} else {
		claims["exp"] = now.Add(time.Hour).Unix() // 1 hour
	}
	// create the token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	// Sign and get the complete encoded token as string
	return token.SignedString([]byte(secret))
}

// CreatePrincipalToken signs a token for the given admin or party
func CreatePrincipalToken(kind PrincipalKind, id uint64, use TokenUse, secret string, hours int) (string, error) {
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(id, 10),
		"kind": string(kind),
		"use":  string(use),
	}
	return CreateToken(claims, secret, hours)
}

// ParseToken from JWT to Claims
func ParseToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("Unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if token == nil {
		return jwt.MapClaims{}, fmt.Errorf("Invalid token")
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	if err == nil {
		err = fmt.Errorf("Invalid token")
	}
	return jwt.MapClaims{}, err
}

// ParsePrincipal validates the token and returns who it was issued to
func ParsePrincipal(tokenString, secret string, use TokenUse) (PrincipalKind, uint64, error) {
	claims, err := ParseToken(tokenString, secret)
	if err != nil {
		return "", 0, err
	}
	if u, _ := claims["use"].(string); TokenUse(u) != use {
		return "", 0, fmt.Errorf("Invalid token use")
	}
	kind, _ := claims["kind"].(string)
	if PrincipalKind(kind) != PrincipalAdmin && PrincipalKind(kind) != PrincipalParty {
		return "", 0, fmt.Errorf("Invalid token subject")
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return "", 0, fmt.Errorf("Invalid token subject")
	}
	return PrincipalKind(kind), id, nil
}
