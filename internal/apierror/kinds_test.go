package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"maaztelecom/internal/apierror"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, apierror.Status(apierror.Validation("discount exceeds subtotal")))
	assert.Equal(t, http.StatusNotFound, apierror.Status(apierror.NotFound("sale")))
	assert.Equal(t, http.StatusInternalServerError, apierror.Status(apierror.Persistence("create sale", errors.New("conn reset"))))
	assert.Equal(t, http.StatusInternalServerError, apierror.Status(errors.New("boom")))
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("record sale: %w", apierror.NotFound("product"))
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
	assert.True(t, apierror.Is(err, apierror.KindNotFound))
	assert.False(t, apierror.Is(nil, apierror.KindNotFound))
}

func TestMessage_HidesInternals(t *testing.T) {
	err := apierror.Persistence("create sale", errors.New("pq: duplicate key"))
	assert.NotContains(t, apierror.Message(err), "pq:")
	assert.Equal(t, "sale not found", apierror.Message(apierror.NotFound("sale")))
	assert.Equal(t, "internal server error", apierror.Message(errors.New("x")))
}
