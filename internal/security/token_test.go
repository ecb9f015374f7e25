package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test_secret_key_minimum_32_chars"

func TestGenerateAndValidateToken(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		email  string
		issuer string
	}{
		{
			name:   "Regular user",
			userID: "5f0e8c1e-6c4e-4d7e-9b43-000000000001",
			email:  "alice@example.com",
		},
		{
			name:   "Issuer checked",
			userID: "5f0e8c1e-6c4e-4d7e-9b43-000000000002",
			email:  "bob@example.com",
			issuer: "https://auth.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateJWT(tt.userID, tt.email, testSecret, tt.issuer, time.Hour)
			if err != nil {
				t.Fatalf("GenerateJWT() error = %v", err)
			}

			claims, err := ValidateJWT(token, testSecret, tt.issuer)
			if err != nil {
				t.Fatalf("ValidateJWT() error = %v", err)
			}

			if claims.UserID() != tt.userID {
				t.Errorf("UserID = %q, want %q", claims.UserID(), tt.userID)
			}
			if claims.Email != tt.email {
				t.Errorf("Email = %q, want %q", claims.Email, tt.email)
			}
		})
	}
}

func TestValidateJWT_Rejects(t *testing.T) {
	valid, _ := GenerateJWT("u1", "", testSecret, "issuer-a", time.Hour)
	expired, _ := GenerateJWT("u1", "", testSecret, "", -time.Minute)
	noSubject, _ := GenerateJWT("", "", testSecret, "", time.Hour)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	noExpiryToken, _ := noExpiry.SignedString([]byte(testSecret))

	wrongAlg := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	wrongAlgToken, _ := wrongAlg.SignedString([]byte(testSecret))

	tests := []struct {
		name   string
		token  string
		secret string
		issuer string
	}{
		{"Wrong secret", valid, "another_secret_key_minimum_32_chars", ""},
		{"Wrong issuer", valid, testSecret, "issuer-b"},
		{"Expired", expired, testSecret, ""},
		{"Missing subject", noSubject, testSecret, ""},
		{"Missing expiry", noExpiryToken, testSecret, ""},
		{"Unexpected algorithm", wrongAlgToken, testSecret, ""},
		{"Garbage", "not.a.token", testSecret, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateJWT(tt.token, tt.secret, tt.issuer); err == nil {
				t.Error("ValidateJWT() expected error, got nil")
			}
		})
	}
}
