package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterImageURLs(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		accepted []string
		dropped  []string
	}{
		{
			name:     "absolute http and https pass",
			input:    []string{"https://cdn.example/a.png", "http://cdn.example/b.jpg"},
			accepted: []string{"https://cdn.example/a.png", "http://cdn.example/b.jpg"},
			dropped:  []string{},
		},
		{
			name:     "order preserved around drops",
			input:    []string{"https://cdn.example/1.png", "blob:https://app.example/xyz", "https://cdn.example/2.png"},
			accepted: []string{"https://cdn.example/1.png", "https://cdn.example/2.png"},
			dropped:  []string{"blob:https://app.example/xyz"},
		},
		{
			name:     "data urls dropped",
			input:    []string{"data:image/png;base64,iVBORw0KGgo="},
			accepted: []string{},
			dropped:  []string{"data:image/png;base64,iVBORw0KGgo="},
		},
		{
			name:     "relative paths dropped",
			input:    []string{"/uploads/a.png", "uploads/b.png"},
			accepted: []string{},
			dropped:  []string{"/uploads/a.png", "uploads/b.png"},
		},
		{
			name:     "loopback hosts dropped",
			input:    []string{"http://localhost/a.png", "http://127.0.0.1:8080/b.png", "https://[::1]/c.png", "http://dev.localhost/d.png"},
			accepted: []string{},
			dropped:  []string{"http://localhost/a.png", "http://127.0.0.1:8080/b.png", "https://[::1]/c.png", "http://dev.localhost/d.png"},
		},
		{
			name:     "unspecified hosts dropped",
			input:    []string{"http://0.0.0.0/a.png", "http://[::]/b.png"},
			accepted: []string{},
			dropped:  []string{"http://0.0.0.0/a.png", "http://[::]/b.png"},
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    []string{"  https://cdn.example/a.png  "},
			accepted: []string{"https://cdn.example/a.png"},
			dropped:  []string{},
		},
		{
			name:     "blank entries dropped",
			input:    []string{"", "   "},
			accepted: []string{},
			dropped:  []string{"", "   "},
		},
		{
			name:     "empty input yields empty non-nil slices",
			input:    nil,
			accepted: []string{},
			dropped:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, dropped := FilterImageURLs(tt.input)
			assert.Equal(t, tt.accepted, accepted)
			assert.Equal(t, tt.dropped, dropped)
			assert.NotNil(t, accepted)
			assert.NotNil(t, dropped)
		})
	}
}
