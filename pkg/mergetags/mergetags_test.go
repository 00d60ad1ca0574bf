package mergetags

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Render(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		content  string
		data     map[string]interface{}
		expected string
	}{
		{
			name:     "substitutes nested values",
			content:  `<p>Hello {{ contact.first_name }}</p>`,
			data:     map[string]interface{}{"contact": map[string]interface{}{"first_name": "Ada"}},
			expected: `<p>Hello Ada</p>`,
		},
		{
			name:     "missing values render empty",
			content:  `<p>Hello {{ contact.first_name }}</p>`,
			data:     nil,
			expected: `<p>Hello </p>`,
		},
		{
			name:     "default filter",
			content:  `Hi {{ name | default: "there" }}`,
			data:     map[string]interface{}{},
			expected: `Hi there`,
		},
		{
			name:     "plain html untouched",
			content:  `<a href="https://x.com/?a=1&b=2">Buy</a>`,
			data:     map[string]interface{}{"a": "b"},
			expected: `<a href="https://x.com/?a=1&b=2">Buy</a>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Render(context.Background(), tt.content, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestEngine_SizeLimit(t *testing.T) {
	engine := NewEngine(WithMaxSize(32))

	_, err := engine.Render(context.Background(), "{{ a }}"+strings.Repeat("x", 64), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size")

	// content without tags skips the limit since nothing is rendered
	out, err := engine.Render(context.Background(), strings.Repeat("x", 64), nil)
	require.NoError(t, err)
	assert.Len(t, out, 64)
}

func TestEngine_Timeout(t *testing.T) {
	engine := NewEngine(WithTimeout(50 * time.Millisecond))

	template := `{% for i in (1..1000000) %}{% for j in (1..1000000) %}{{ i }}{% endfor %}{% endfor %}`

	start := time.Now()
	_, err := engine.Render(context.Background(), template, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEngine_SyntaxError(t *testing.T) {
	_, err := NewEngine().Render(context.Background(), "{% if %}", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge tag rendering failed")
}

func TestHasTags(t *testing.T) {
	assert.True(t, HasTags("{{ x }}"))
	assert.True(t, HasTags("{% if x %}{% endif %}"))
	assert.False(t, HasTags("<p>plain</p>"))
}
