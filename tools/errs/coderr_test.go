package errs

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestUnwrapThroughWrap(t *testing.T) {
	req := require.New(t)

	err := ErrChatNotFound.WrapMsg("load chat", "chatId", "abc")
	ce := Unwrap(err)
	req.NotNil(ce)
	req.Equal(http.StatusNotFound, ce.Code)

	// 再包一层还能解出来
	err = errors.WithMessage(err, "outer")
	req.NotNil(Unwrap(err))
}

func TestUnwrapPlainError(t *testing.T) {
	req := require.New(t)
	req.Nil(Unwrap(errors.New("plain")))
}

func TestWithDetailDoesNotMutate(t *testing.T) {
	req := require.New(t)

	detailed := ErrBadRequest.WithDetail("字段缺失")
	req.Equal(ErrBadRequest.Code, detailed.Code)
	req.Empty(ErrBadRequest.Detail)
	req.Equal("字段缺失", detailed.Detail)
}

func TestIsMatchesByCode(t *testing.T) {
	req := require.New(t)

	err := ErrUserNotFound.WrapMsg("by id")
	req.True(errors.Is(err, ErrUserNotFound))
	req.False(errors.Is(err, ErrChatNotFound))
}
