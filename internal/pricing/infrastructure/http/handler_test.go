package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	checkouthttp "github.com/foltz-ar/checkout-service/internal/checkout/infrastructure/http"
	"github.com/foltz-ar/checkout-service/internal/pricing/domain"
	"github.com/foltz-ar/checkout-service/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	t.Parallel()

	h := NewHandler(logging.Discard(), domain.NewEngine(domain.DefaultParams()), checkouthttp.NewResponder(logging.Discard(), true)).Routes()

	t.Run("combo wins for three items", func(t *testing.T) {
		t.Parallel()
		body := `{"items":[{"id":"a","size":"M","price":10000,"quantity":1},{"id":"b","size":"M","price":15000,"quantity":1},{"id":"c","size":"S","price":32900,"quantity":1}]}`
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Subtotal  int64 `json:"subtotal"`
			AmountDue int64 `json:"amount_due"`
			Scheme    struct {
				Kind string `json:"kind"`
			} `json:"scheme"`
			Lines []struct {
				LineTotal string `json:"line_total"`
			} `json:"lines"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, int64(57900), got.Subtotal)
		assert.Equal(t, int64(32900), got.AmountDue)
		assert.Equal(t, string(domain.SchemeTripleCombo), got.Scheme.Kind)
		assert.Len(t, got.Lines, 3)
	})

	t.Run("bad body", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
