package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
)

func newTestJWTService() *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "communityhub"})
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestJWTService()
	token, expiresIn, err := s.GenerateAccessToken(&models.User{ID: 7, Username: "ada"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if expiresIn != 3600 {
		t.Errorf("expiresIn = %d", expiresIn)
	}

	claims, err := s.ValidateAndExtractClaims(token)
	if err != nil {
		t.Fatalf("ValidateAndExtractClaims: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "ada" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestExpiredToken(t *testing.T) {
	s := newTestJWTService()
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := s.GenerateAccessToken(&models.User{ID: 7, Username: "ada"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	s.now = time.Now
	if _, err := s.ValidateToken(token); !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestForeignSecretIsRejected(t *testing.T) {
	token, _, err := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "communityhub"}).
		GenerateAccessToken(&models.User{ID: 7, Username: "ada"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := newTestJWTService().ValidateToken(token); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    bool
	}{
		{"Bearer a.b.c", "a.b.c", false},
		{"a.b.c", "a.b.c", false},
		{"", "", true},
		{"Basic dXNlcg==", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractBearerToken(tt.header)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ExtractBearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}
