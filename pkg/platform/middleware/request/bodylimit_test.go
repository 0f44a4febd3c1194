package request

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	const limit = 32

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"empty", "", false},
		{"small", `{"nip":"5261040828"}`, false},
		{"exact", strings.Repeat("x", limit), false},
		{"oversized", `{"nip":"` + strings.Repeat("5", limit) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				n   int
				err error
			)
			h := BodyLimit(limit)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				var data []byte
				data, err = io.ReadAll(r.Body)
				n = len(data)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/regon", strings.NewReader(tt.body))
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantErr {
				var maxErr *http.MaxBytesError
				assert.True(t, errors.As(err, &maxErr))
				assert.LessOrEqual(t, n, limit)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, len(tt.body), n)
		})
	}
}
