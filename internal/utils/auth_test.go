package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPasswordRoundtrip(t *testing.T) {
	hash, err := HashPassword("box-office-secret", 4)
	if err != nil {
		t.Fatal(err)
	}
	if hash == "box-office-secret" {
		t.Fatal("password stored in plain text")
	}
	if !VerifyPassword(hash, "box-office-secret") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordClampsCost(t *testing.T) {
	// out-of-range costs fall back to the bcrypt default instead of erroring
	for _, cost := range []int{-1, 0, 99} {
		hash, err := HashPassword("pw", cost)
		if err != nil {
			t.Fatalf("cost %d: %v", cost, err)
		}
		if !VerifyPassword(hash, "pw") {
			t.Errorf("cost %d: roundtrip failed", cost)
		}
	}
}

func TestNewAccessTokenClaims(t *testing.T) {
	at, err := NewAccessToken("test-secret", 42, "CASHIER", 15)
	if err != nil {
		t.Fatal(err)
	}
	if at.Token == "" {
		t.Fatal("empty token")
	}

	tok, err := jwt.Parse(at.Token, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			t.Fatalf("unexpected signing method %v", tk.Method)
		}
		return []byte("test-secret"), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("parse: %v (valid=%v)", err, tok.Valid)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not MapClaims")
	}
	if got := claims["sub"].(float64); uint64(got) != 42 {
		t.Errorf("sub = %v, want 42", claims["sub"])
	}
	if claims["role"] != "CASHIER" {
		t.Errorf("role = %v, want CASHIER", claims["role"])
	}
}

func TestNewAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken("right-secret", 1, "ADMIN", 15)
	if err != nil {
		t.Fatal(err)
	}
	_, err = jwt.Parse(at.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	if err == nil {
		t.Error("token verified with the wrong secret")
	}
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(30)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRefreshToken(30)
	if err != nil {
		t.Fatal(err)
	}
	if a.Raw == b.Raw {
		t.Error("two refresh tokens collided")
	}
	if len(a.Raw) != 96 { // 48 random bytes hex encoded
		t.Errorf("raw length = %d, want 96", len(a.Raw))
	}
	if until := time.Until(a.Exp); until < 29*24*time.Hour || until > 31*24*time.Hour {
		t.Errorf("expiry %v not ~30 days out", a.Exp)
	}
}

func TestHashRefreshRawStable(t *testing.T) {
	h1 := HashRefreshRaw("some-token")
	h2 := HashRefreshRaw("some-token")
	if h1 != h2 {
		t.Error("hash is not deterministic")
	}
	if h1 == "some-token" {
		t.Error("token stored unhashed")
	}
	if len(h1) != 64 { // sha256 hex
		t.Errorf("hash length = %d, want 64", len(h1))
	}
	if HashRefreshRaw("other-token") == h1 {
		t.Error("distinct tokens share a hash")
	}
}
