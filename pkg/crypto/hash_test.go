package crypto

import (
	"errors"
	"strings"
	"testing"
)

// TestHashToken_Roundtrip проверяет, что захешированный токен проходит проверку
func TestHashToken_Roundtrip(t *testing.T) {
	token := "liq-api-token-2024"

	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("HashToken unexpected error: %v", err)
	}
	if hash == token {
		t.Errorf("hash must not equal plaintext token")
	}

	if err := VerifyToken(token, hash); err != nil {
		t.Errorf("VerifyToken failed for valid token: %v", err)
	}
}

// TestVerifyToken_Mismatch проверяет отклонение неверного токена
func TestVerifyToken_Mismatch(t *testing.T) {
	hash, err := HashToken("correct-token")
	if err != nil {
		t.Fatalf("HashToken unexpected error: %v", err)
	}

	err = VerifyToken("wrong-token", hash)
	if !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("VerifyToken = %v, want ErrTokenMismatch", err)
	}
}

// TestHashToken_Validation проверяет валидацию входных данных
func TestHashToken_Validation(t *testing.T) {
	if _, err := HashToken(""); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("empty token: err = %v, want ErrEmptyToken", err)
	}

	long := strings.Repeat("a", MaxTokenLength+1)
	if _, err := HashToken(long); !errors.Is(err, ErrTokenTooLong) {
		t.Errorf("long token: err = %v, want ErrTokenTooLong", err)
	}

	if err := VerifyToken("", "whatever"); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("empty token verify: err = %v, want ErrEmptyToken", err)
	}
}
