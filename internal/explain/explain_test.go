package explain_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/explain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockChat = errors.New("mock chat error")

type mockChat struct {
	response string
	err      error
	model    string
	messages []core.Message
}

func (m *mockChat) Complete(_ context.Context, model string, messages []core.Message) (string, error) {
	m.model = model
	m.messages = messages

	return m.response, m.err
}

func submittedText(t *testing.T, chat *mockChat) string {
	t.Helper()

	require.Len(t, chat.messages, 2)

	return strings.TrimPrefix(chat.messages[1].Content, "Explain the following code:\n\n")
}

func TestExplain_ReturnsTrimmedResponse(t *testing.T) {
	t.Parallel()

	chat := &mockChat{response: "\n 1) Prints hi.\n"}
	generator := explain.New(chat, "", 0)

	explanation, err := generator.Explain(context.Background(), "print('hi')")
	require.NoError(t, err)

	assert.Equal(t, "1) Prints hi.", explanation)
	assert.Equal(t, explain.DefaultModel, chat.model)
	assert.Equal(t, core.RoleSystem, chat.messages[0].Role)
	assert.Contains(t, chat.messages[0].Content, "one-line summary")
	assert.Equal(t, "print('hi')", submittedText(t, chat))
}

func TestExplain_TruncatesLongInput(t *testing.T) {
	t.Parallel()

	chat := &mockChat{response: "ok"}
	generator := explain.New(chat, "gpt-4o", explain.MaxInputChars)

	long := strings.Repeat("a", explain.MaxInputChars) + "TAIL"

	_, err := generator.Explain(context.Background(), long)
	require.NoError(t, err)

	sent := submittedText(t, chat)
	assert.Len(t, sent, explain.MaxInputChars)
	assert.NotContains(t, sent, "TAIL")
}

func TestExplain_InputAtBudgetIsUnmodified(t *testing.T) {
	t.Parallel()

	chat := &mockChat{response: "ok"}
	generator := explain.New(chat, "", 10)

	_, err := generator.Explain(context.Background(), "0123456789")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", submittedText(t, chat))
}

func TestExplain_UpstreamErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]*mockChat{
		"call fails":       {err: errMockChat},
		"empty response":   {response: ""},
		"blank response":   {response: " \n\t"},
		"already upstream": {err: &core.UpstreamError{Op: "chat completion", Err: errMockChat}},
	}

	for name, chat := range cases {
		_, err := explain.New(chat, "", 0).Explain(context.Background(), "code")

		var upstreamErr *core.UpstreamError
		require.ErrorAs(t, err, &upstreamErr, name)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", explain.Truncate("abcdef", 3))
	assert.Equal(t, "abc", explain.Truncate("abc", 3))
	assert.Equal(t, "ab", explain.Truncate("ab", 3))
	assert.Empty(t, explain.Truncate("abc", 0))
	assert.Equal(t, "가나", explain.Truncate("가나다라", 2))
}
