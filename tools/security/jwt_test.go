package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	req := require.New(t)
	opts := DefaultOptions([]byte("test-secret"))

	token, exp, err := Generate(opts, "user-1")
	req.NoError(err)
	req.NotEmpty(token)
	req.True(exp.After(time.Now()))

	claims, err := Verify(opts, token)
	req.NoError(err)
	req.Equal("user-1", claims.UserID())
}

func TestVerifyWrongSecret(t *testing.T) {
	req := require.New(t)

	token, _, err := Generate(DefaultOptions([]byte("secret-a")), "user-1")
	req.NoError(err)

	_, err = Verify(DefaultOptions([]byte("secret-b")), token)
	req.Error(err)
}

func TestVerifyExpiredToken(t *testing.T) {
	req := require.New(t)
	// exp 按秒截断，1ns 的 TTL 签出来就是过期的
	opts := Options{Secret: []byte("s"), TTL: time.Nanosecond}
	token, _, err := Generate(opts, "user-1")
	req.NoError(err)

	time.Sleep(10 * time.Millisecond)
	_, err = Verify(opts, token)
	req.Error(err)
}

func TestVerifyGarbage(t *testing.T) {
	req := require.New(t)
	_, err := Verify(DefaultOptions([]byte("s")), "not.a.token")
	req.Error(err)
}

func TestUnsupportedAlg(t *testing.T) {
	req := require.New(t)
	_, _, err := Generate(Options{Secret: []byte("s"), Alg: "RS256"}, "u")
	req.Error(err)
}

func TestPasswordHashing(t *testing.T) {
	req := require.New(t)

	hashed, err := HashPassword("s3cret!")
	req.NoError(err)
	req.NotEqual("s3cret!", hashed)

	req.True(ComparePassword("s3cret!", hashed))
	req.False(ComparePassword("wrong", hashed))
}

// 日志里只出现令牌摘要，校验摘要稳定且不含原文
func TestHashToken(t *testing.T) {
	req := require.New(t)

	h := HashToken("tok-abc")
	req.True(strings.HasPrefix(h, "sha256:"))
	req.NotContains(h, "tok-abc")
	req.Equal(h, HashToken("tok-abc"))
	req.NotEqual(h, HashToken("tok-xyz"))
}
