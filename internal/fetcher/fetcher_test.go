package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yuval-kahan/Bookmarks-Search/pkg/jina"
)

type mockSource struct{ mock.Mock }

func (m *mockSource) Name() string {
	return m.Called().String(0)
}

func (m *mockSource) Fetch(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

type mockJina struct{ mock.Mock }

func (m *mockJina) Read(ctx context.Context, url string) (*jina.Page, error) {
	args := m.Called(ctx, url)
	if v := args.Get(0); v != nil {
		return v.(*jina.Page), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &mockSource{}
	first.On("Fetch", mock.Anything, "https://a.example").Return("", errors.New("blocked"))
	first.On("Name").Return("local_http")
	second := &mockSource{}
	second.On("Fetch", mock.Anything, "https://a.example").Return("  page text ", nil)
	third := &mockSource{}

	text, ok := NewChain(first, second, third).Convert(context.Background(), "https://a.example")
	require.True(t, ok)
	assert.Equal(t, "page text", text)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
	third.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestChain_EmptyTextFallsThrough(t *testing.T) {
	first := &mockSource{}
	first.On("Fetch", mock.Anything, "u").Return("   ", nil)
	second := &mockSource{}
	second.On("Fetch", mock.Anything, "u").Return("", errors.New("down"))
	second.On("Name").Return("jina")

	text, ok := NewChain(first, second).Convert(context.Background(), "u")
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestChain_CancelledContext(t *testing.T) {
	src := &mockSource{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := NewChain(src).Convert(ctx, "u")
	assert.False(t, ok)
	src.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestJinaSource(t *testing.T) {
	jc := &mockJina{}
	jc.On("Read", mock.Anything, "https://spa.example").
		Return(&jina.Page{URL: "https://spa.example", Content: "rendered text"}, nil)
	jc.On("Read", mock.Anything, "https://long.example").
		Return(&jina.Page{Content: strings.Repeat("m", 10), Truncated: true}, nil)
	jc.On("Read", mock.Anything, "https://down.example").
		Return(nil, errors.New("jina: unexpected status 503"))

	src := NewJinaSource(jc)
	assert.Equal(t, "jina", src.Name())

	text, err := src.Fetch(context.Background(), "https://spa.example")
	require.NoError(t, err)
	assert.Equal(t, "rendered text", text)

	text, err = src.Fetch(context.Background(), "https://long.example")
	require.NoError(t, err)
	assert.Len(t, text, 10)

	_, err = src.Fetch(context.Background(), "https://down.example")
	assert.Error(t, err)
}

func TestNewJinaReader_MatchesLocalFormat(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "text"},
		{FormatMarkdown, "markdown"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var header string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				header = r.Header.Get("X-Return-Format")
				w.Write([]byte(strings.Repeat("é", 20))) //nolint:errcheck
			}))
			defer srv.Close()

			text, err := NewJinaSource(NewJinaReader("k", srv.URL, tt.format, 7)).Fetch(context.Background(), "https://spa.example")
			require.NoError(t, err)
			assert.Equal(t, tt.want, header)
			assert.Equal(t, "ééé", text)
		})
	}
}
